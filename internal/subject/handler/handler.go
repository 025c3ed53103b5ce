package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/subject/service"
	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/middleware"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/response"
)

const (
	basePath = "/api/subjects"
	maxBody  = 64 << 10
)

// RegisterSubjectRoutes mounts the subjects catalog. Listing is public;
// writes run authMW and need auth.CapManageSubjects. mw runs before every
// route.
func RegisterSubjectRoutes(r gin.IRouter, svc *service.Service, authMW gin.HandlerFunc, mw ...gin.HandlerFunc) {
	h := &subjectHandler{svc: svc}
	g := r.Group(basePath, mw...)
	g.GET("", h.list)

	write := g.Group("", authMW, middleware.RequireCapability(auth.CapManageSubjects))
	write.POST("", h.create)
	write.PATCH("/:id", h.update)
	write.DELETE("/:id", h.remove)
}

type subjectHandler struct {
	svc *service.Service
}

type subjectBody struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Desc string `json:"desc"`
}

func (b subjectBody) input() service.Input {
	return service.Input{Name: b.Name, Slug: b.Slug, Desc: b.Desc}
}

func (h *subjectHandler) list(c *gin.Context) {
	subjects, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"subjects": subjects})
}

func (h *subjectHandler) create(c *gin.Context) {
	body, ok := bind(c)
	if !ok {
		return
	}
	s, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), body.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"subject": s})
}

func (h *subjectHandler) update(c *gin.Context) {
	body, ok := bind(c)
	if !ok {
		return
	}
	s, err := h.svc.Update(c.Request.Context(), middleware.Principal(c), c.Param("id"), body.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"subject": s})
}

func (h *subjectHandler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, nil)
}

func bind(c *gin.Context) (subjectBody, bool) {
	var body subjectBody
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid JSON body"))
		return body, false
	}
	return body, true
}
