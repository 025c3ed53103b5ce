package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/config"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/models"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/sessions"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/tokens"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/users"
	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/middleware"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/response"
)

// LoginRequest is the password login body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	blacklist   *sessions.Blacklist
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, bl *sessions.Blacklist) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, blacklist: bl}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg gin.IRouter, mw ...gin.HandlerFunc) {
	a := rg.Group("/auth", mw...)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// RegisterMe mounts GET /api/v1/me behind authMW.
func (h *AuthHandler) RegisterMe(rg gin.IRouter, authMW gin.HandlerFunc) {
	rg.GET("/api/v1/me", authMW, h.Me)
}

// Login checks email and password, opens a refresh session and sets the
// session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "email and password are required"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := h.usersSvc.Authenticate(c.Request.Context(), email, req.Password)
	if err != nil {
		if appErrors.FromError(err).Status >= http.StatusInternalServerError {
			logger.Errorf("login: user lookup failed: %v", err)
		} else {
			logger.Infof("login: rejected credentials for %s", email)
		}
		response.Error(c, err)
		return
	}

	refreshTTL := h.cfg.JWT.RefreshTokenTTL
	if req.Remember {
		refreshTTL = h.cfg.JWT.RememberRefreshTTL
	}
	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.Sub, refreshTTL, req.Remember)
	if err != nil {
		logger.Errorf("login: failed to create session: %v", err)
		response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err))
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		logger.Errorf("login: failed to sign access token: %v", err)
		response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err))
		return
	}
	h.setSessionCookie(c, access, h.cfg.JWT.AccessTokenTTL)
	logger.Infof("login: %s signed in role=%s", u.Sub, u.Role)
	response.OK(c, http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"expiresIn":    int(h.cfg.JWT.AccessTokenTTL.Seconds()),
		"user":         u,
	})
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "refresh_token is required"))
		return
	}
	sess, err := h.sessionsSvc.ValidateRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		logger.Errorf("refresh: session lookup failed: %v", err)
		response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err))
		return
	}
	if sess == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid refresh token"))
		return
	}
	u, err := h.usersSvc.GetBySub(c.Request.Context(), sess.Sub)
	if err != nil {
		logger.Errorf("refresh: user lookup failed: %v", err)
		response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err))
		return
	}
	if u == nil {
		_ = h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken)
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid refresh token"))
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err))
		return
	}
	h.setSessionCookie(c, access, h.cfg.JWT.AccessTokenTTL)
	response.OK(c, http.StatusOK, gin.H{
		"accessToken": access,
		"expiresIn":   int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	})
}

// Logout removes the refresh session, blacklists the presented access token
// for the rest of its lifetime and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "refresh_token is required"))
		return
	}
	if raw, err := auth.TokenFromRequest(c.Request, h.cfg.Auth.CookieName); err == nil {
		if claims, err := tokens.ParseAccessToken(h.cfg.JWT.Secret, raw); err == nil {
			if err := h.blacklist.Add(c.Request.Context(), raw, claims.RemainingTTL(time.Now())); err != nil {
				logger.Errorf("logout: blacklist failed: %v", err)
				response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err))
				return
			}
		}
	}
	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		logger.Errorf("logout: failed to remove session: %v", err)
		response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err))
		return
	}
	h.setSessionCookie(c, "", -1)
	response.OK(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the current principal. Principals from an external provider are
// recorded in the users collection on first sight.
func (h *AuthHandler) Me(c *gin.Context) {
	p := middleware.Principal(c)
	if p == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var u *models.User
	if h.cfg.Auth.Mode == "oidc" {
		var err error
		u, err = h.usersSvc.UpsertFromClaims(c.Request.Context(), map[string]interface{}{
			"sub": p.ID, "email": p.Email, "name": p.Name, "role": string(p.Role),
		})
		if err != nil {
			logger.Errorf("me: user upsert failed: %v", err)
		}
	}
	body := gin.H{"principal": p, "capabilities": capabilities(p)}
	if u != nil {
		body["user"] = u
	}
	response.OK(c, http.StatusOK, body)
}

func capabilities(p *auth.Principal) []auth.Capability {
	out := []auth.Capability{}
	for _, cp := range []auth.Capability{auth.CapRead, auth.CapUpload, auth.CapManageSubjects} {
		if p.Can(cp) {
			out = append(out, cp)
		}
	}
	return out
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Auth.CookieName, value, maxAge, "/", "", h.cfg.Server.IsProduction(), true)
}
