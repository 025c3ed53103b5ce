package response

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
)

var verbose atomic.Bool

// SetVerbose controls whether 5xx responses expose the wrapped cause.
// Enabled in development only.
func SetVerbose(v bool) { verbose.Store(v) }

// ErrorBody is the uniform failure shape.
type ErrorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Message returns the client-facing text for err.
func Message(err error) string {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError && verbose.Load() {
		return appErr.Error()
	}
	return appErr.Message
}

// Error writes {ok:false,error} with the status carried by err.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(appErr.Status, ErrorBody{OK: false, Error: Message(appErr), Code: appErr.Code})
}

// OK writes {ok:true} merged with fields.
func OK(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(status, body)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
