package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerUI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterSwagger(g)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/swagger/doc.json")
}

func TestSwaggerDocumentsEveryRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterSwagger(g)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var doc struct {
		OpenAPI string                                       `json:"openapi"`
		Paths   map[string]map[string]map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc), "doc.json must be valid JSON")
	assert.NotEmpty(t, doc.OpenAPI)

	routes := []struct{ path, method string }{
		{"/api/documents", "post"},
		{"/api/documents", "get"},
		{"/api/documents/{id}", "get"},
		{"/api/documents/{id}", "delete"},
		{"/api/documents/{id}/meta", "get"},
		{"/api/subjects", "get"},
		{"/api/subjects", "post"},
		{"/api/subjects/{id}", "patch"},
		{"/api/subjects/{id}", "delete"},
		{"/auth/login", "post"},
		{"/auth/refresh", "post"},
		{"/auth/logout", "post"},
		{"/api/v1/me", "get"},
		{"/health", "get"},
		{"/ready", "get"},
		{"/metrics", "get"},
	}
	for _, rt := range routes {
		assert.Contains(t, doc.Paths[rt.path], rt.method, "%s %s", rt.method, rt.path)
	}

	responses, _ := doc.Paths["/api/documents"]["post"]["responses"].(map[string]interface{})
	for _, code := range []string{"201", "400", "401", "403", "413"} {
		assert.Contains(t, responses, code)
	}
}
