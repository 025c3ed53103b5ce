package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the papers service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>dugsihub papers API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI document for the papers and session endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "dugsihub-papers", "version": "v1.0.0" },
  "components": {
    "securitySchemes": {
      "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" },
      "cookie": { "type": "apiKey", "in": "cookie", "name": "session" }
    },
    "schemas": {
      "Error": { "type": "object", "properties": { "ok": {"type":"boolean"}, "error": {"type":"string"}, "code": {"type":"string"} } },
      "Document": {
        "type": "object",
        "properties": {
          "id": {"type":"string"}, "title": {"type":"string"}, "subject": {"type":"string"},
          "pageCount": {"type":"integer","nullable":true}, "pages": {"type":"integer","nullable":true},
          "fileUrl": {"type":"string"}, "fileName": {"type":"string"}, "fileSize": {"type":"integer"},
          "contentType": {"type":"string"}, "ownerId": {"type":"string"}, "createdAt": {"type":"string","format":"date-time"}
        }
      }
    }
  },
  "security": [ { "bearer": [] }, { "cookie": [] } ],
  "paths": {
    "/api/documents": {
      "post": {
        "summary": "Upload a past paper (PDF only)",
        "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","required":["file","subject"],"properties":{"file":{"type":"string","format":"binary"},"subject":{"type":"string","minLength":2,"maxLength":120},"title":{"type":"string"},"name":{"type":"string"},"pageCount":{"type":"integer","minimum":1,"maximum":2000}}}}}},
        "responses": {
          "201": { "description": "document created" },
          "400": { "description": "validation failed", "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Error"} } } },
          "401": { "description": "no session" }, "403": { "description": "upload capability required" },
          "413": { "description": "file too large" }, "500": { "description": "storage or persistence failure" }
        }
      },
      "get": {
        "summary": "List papers",
        "parameters": [
          {"name":"subject","in":"query","schema":{"type":"string"}},
          {"name":"q","in":"query","schema":{"type":"string"}},
          {"name":"sort","in":"query","schema":{"type":"string","enum":["newest","oldest","subject_asc","subject_desc"]}},
          {"name":"page","in":"query","schema":{"type":"integer","minimum":1}}
        ],
        "responses": { "200": { "description": "documents, total, page, pageSize" }, "401": { "description": "no session" } }
      }
    },
    "/api/documents/{id}": {
      "get": {
        "summary": "Stream the stored PDF",
        "parameters": [ {"name":"id","in":"path","required":true,"schema":{"type":"string"}} ],
        "responses": { "200": { "description": "PDF bytes", "content": { "application/pdf": {} } }, "404": { "description": "document not found" } }
      },
      "delete": {
        "summary": "Delete a paper and its stored bytes",
        "parameters": [ {"name":"id","in":"path","required":true,"schema":{"type":"string"}} ],
        "responses": { "204": { "description": "deleted" }, "403": { "description": "upload capability required" }, "404": { "description": "document not found" } }
      }
    },
    "/api/documents/{id}/meta": {
      "get": {
        "summary": "Document metadata",
        "parameters": [ {"name":"id","in":"path","required":true,"schema":{"type":"string"}} ],
        "responses": { "200": { "description": "document" }, "404": { "description": "document not found" } }
      }
    },
    "/api/subjects": {
      "get": { "summary": "List subjects sorted by name (public)", "responses": { "200": { "description": "subjects" } } },
      "post": {
        "summary": "Create a subject (superadmin)",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["name","slug"],"properties":{"name":{"type":"string","minLength":2,"maxLength":60},"slug":{"type":"string","pattern":"^[a-z0-9-]+$","minLength":2,"maxLength":80},"desc":{"type":"string","maxLength":300}}}}}},
        "responses": { "201": { "description": "created" }, "400": { "description": "validation error" }, "401": { "description": "no session" }, "403": { "description": "not a superadmin" }, "409": { "description": "slug already in use" } }
      }
    },
    "/api/subjects/{id}": {
      "patch": {
        "summary": "Replace a subject's name, slug and description (superadmin)",
        "parameters": [ {"name":"id","in":"path","required":true,"schema":{"type":"string"}} ],
        "responses": { "200": { "description": "updated" }, "400": { "description": "validation error" }, "403": { "description": "not a superadmin" }, "404": { "description": "subject not found" }, "409": { "description": "slug already in use" } }
      },
      "delete": {
        "summary": "Delete a subject (superadmin)",
        "parameters": [ {"name":"id","in":"path","required":true,"schema":{"type":"string"}} ],
        "responses": { "200": { "description": "deleted" }, "403": { "description": "not a superadmin" }, "404": { "description": "subject not found" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Password login; sets the session cookie",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["email","password"],"properties":{"email":{"type":"string"},"password":{"type":"string"},"remember":{"type":"boolean"}}}}}},
        "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid email or password" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout, revoke tokens and clear the cookie", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Current principal and capabilities", "responses": { "200": { "description": "principal" }, "401": { "description": "no session" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
