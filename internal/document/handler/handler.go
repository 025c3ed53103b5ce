package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/document"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/document/service"
	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/middleware"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/response"
)

const (
	basePath = "/api/documents"
	// multipart overhead allowed on top of the file limit
	formSlack = 1 << 20
	// parts beyond this spill to temp files
	formMemory = 8 << 20
)

// RegisterDocumentRoutes mounts the papers API under /api/documents.
// mw runs before every route and must include the auth middleware. Writes
// are capability-gated before the body is read.
func RegisterDocumentRoutes(r gin.IRouter, svc *service.Service, mw ...gin.HandlerFunc) {
	h := &documentHandler{svc: svc}
	g := r.Group(basePath, mw...)
	canUpload := middleware.RequireCapability(auth.CapUpload)
	g.POST("", canUpload, h.upload)
	g.GET("", h.list)
	g.GET("/:id", h.download)
	g.GET("/:id/meta", h.meta)
	g.DELETE("/:id", canUpload, h.remove)
}

type documentHandler struct {
	svc *service.Service
}

type documentJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	PageCount   *int      `json:"pageCount"`
	Pages       *int      `json:"pages"`
	FileURL     string    `json:"fileUrl"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	ContentType string    `json:"contentType"`
	OwnerID     string    `json:"ownerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toJSON(s document.Summary) documentJSON {
	fileURL := s.URL
	if fileURL == "" {
		fileURL = basePath + "/" + s.ID
	}
	return documentJSON{
		ID:          s.ID,
		Title:       s.Subject,
		Subject:     s.Subject,
		PageCount:   s.PageCount,
		Pages:       s.PageCount,
		FileURL:     fileURL,
		FileName:    s.FileName,
		FileSize:    s.FileSize,
		ContentType: s.ContentType,
		OwnerID:     s.OwnerID,
		CreatedAt:   s.CreatedAt,
	}
}

func (h *documentHandler) upload(c *gin.Context) {
	p := middleware.Principal(c)
	if p == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.MaxUploadBytes()+formSlack)
	if err := c.Request.ParseMultipartForm(formMemory); err != nil {
		response.Error(c, h.parseError(c, err))
		return
	}
	defer func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}()

	in := service.UploadInput{
		Subject:     firstValue(c, "subject", "title"),
		PageCount:   firstValue(c, "pageCount", "totalPages", "pages"),
		DisplayName: c.PostForm("name"),
	}
	file, header, err := c.Request.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		in.File = file
		in.FileName = header.Filename
		in.ContentType = header.Header.Get("Content-Type")
		in.Size = header.Size
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid file part"))
		return
	}

	doc, err := h.svc.Upload(c.Request.Context(), p, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"document": toJSON(doc.Summarize())})
}

func (h *documentHandler) parseError(c *gin.Context, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file too large: limit is %d bytes", h.svc.MaxUploadBytes()))
	}
	if ctxErr := c.Request.Context().Err(); ctxErr != nil {
		logger.Warnf("upload: request aborted while reading body: %v", ctxErr)
		return appErrors.Wrap(ctxErr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "upload aborted")
	}
	if errors.Is(err, multipart.ErrMessageTooLarge) {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, "file too large")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "expected multipart/form-data body")
}

func (h *documentHandler) download(c *gin.Context) {
	dl, err := h.svc.Open(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer dl.Body.Close()

	c.Header("X-Content-Type-Options", "nosniff")
	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`inline; filename="%s"`, url.PathEscape(dl.FileName)),
	})
}

func (h *documentHandler) meta(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"document": toJSON(s)})
}

func (h *documentHandler) list(c *gin.Context) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		// out-of-range values parse as the closest int; anything else is page 1
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			page = 1
		}
	}
	q, res, err := h.svc.List(c.Request.Context(), middleware.Principal(c), document.ListQuery{
		Subject: c.Query("subject"),
		Q:       c.Query("q"),
		Sort:    c.Query("sort"),
		Page:    page,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]documentJSON, 0, len(res.Items))
	for _, s := range res.Items {
		out = append(out, toJSON(s))
	}
	response.OK(c, http.StatusOK, gin.H{
		"documents": out,
		"total":     res.Total,
		"page":      q.Page,
		"pageSize":  q.PageSize,
	})
}

func (h *documentHandler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func firstValue(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.PostForm(k)); v != "" {
			return v
		}
	}
	return ""
}
