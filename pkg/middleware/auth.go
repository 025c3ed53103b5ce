package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/response"
)

const (
	principalKey = "principal"
	claimsKey    = "claims"
)

// AuthMiddleware resolves the caller with res and stores the principal on the
// context. Requests without a valid session are rejected with 401.
func AuthMiddleware(res auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := res.Resolve(c.Request.Context(), c.Request)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrNoCredentials):
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevokedToken):
				logger.Debugf("auth: rejected token: %v", err)
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired session"))
			default:
				logger.Errorf("auth: resolve failed: %v", err)
				response.Error(c, appErrors.WrapAs(appErrors.ErrUnauthorized, err))
			}
			return
		}
		c.Set(principalKey, p)
		// the rate limiters key on claims.sub
		c.Set(claimsKey, map[string]interface{}{"sub": p.ID, "email": p.Email, "role": string(p.Role)})
		c.Next()
	}
}

// Principal returns the principal stored by AuthMiddleware, or nil.
func Principal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}

// RequireCapability rejects authenticated callers lacking cap with 403.
func RequireCapability(cap auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Principal(c)
		if p == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if !p.Can(cap) {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
