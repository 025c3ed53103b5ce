package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
)

// fakeResolver maps bearer tokens to principals.
type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, r *http.Request) (*auth.Principal, error) {
	tok, err := auth.TokenFromRequest(r, "session")
	if err != nil {
		return nil, err
	}
	switch tok {
	case "admintoken":
		return &auth.Principal{ID: "admin-1", Role: auth.RoleAdmin}, nil
	case "studenttoken":
		return &auth.Principal{ID: "student-1", Role: auth.RoleStudent}, nil
	case "broken":
		return nil, errors.New("redis down")
	}
	return nil, auth.ErrInvalidToken
}

func serveAuth(t *testing.T, header string, handlers ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := gin.New()
	chain := append([]gin.HandlerFunc{AuthMiddleware(fakeResolver{})}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"principal": Principal(c), "claims": c.MustGet("claims")})
	})
	g.GET("/", chain...)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoCredentials(t *testing.T) {
	rw := serveAuth(t, "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Equal(t, false, body["ok"])
	require.Equal(t, "authentication required", body["error"])
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, serveAuth(t, "BadHeader").Code)
	require.Equal(t, http.StatusUnauthorized, serveAuth(t, "Bearer nope").Code)
	require.Equal(t, http.StatusUnauthorized, serveAuth(t, "Bearer broken").Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rw := serveAuth(t, "Bearer admintoken")
	require.Equal(t, http.StatusOK, rw.Code)
	var got struct {
		Principal auth.Principal         `json:"principal"`
		Claims    map[string]interface{} `json:"claims"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "admin-1", got.Principal.ID)
	require.Equal(t, "admin-1", got.Claims["sub"])
}

func TestRequireCapability(t *testing.T) {
	require.Equal(t, http.StatusOK, serveAuth(t, "Bearer admintoken", RequireCapability(auth.CapUpload)).Code)
	require.Equal(t, http.StatusForbidden, serveAuth(t, "Bearer studenttoken", RequireCapability(auth.CapUpload)).Code)
	require.Equal(t, http.StatusOK, serveAuth(t, "Bearer studenttoken", RequireCapability(auth.CapRead)).Code)
}
