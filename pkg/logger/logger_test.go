package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dugsihub/dugsihub/backend/go-services/pkg/middleware/requestid"
)

func TestInitAndLevelString(t *testing.T) {
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	setOutput(&buf, "console")
	defer setOutput(os.Stdout, "console")

	Init("warn")
	defer Init("info")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg %d", 7)

	out := buf.String()
	if strings.Contains(out, "debug-msg") {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if strings.Contains(out, "info-msg") {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if !strings.Contains(out, "warn-msg") {
		t.Fatalf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "error-msg 7") {
		t.Fatalf("error message missing: %q", out)
	}

	buf.Reset()
	Init("info")
	Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("Info expected at info level, got: %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	setOutput(&buf, "json")
	defer setOutput(os.Stdout, "console")
	Init("info")

	Infof("structured %s", "line")
	out := buf.String()
	if !strings.Contains(out, `"msg":"structured line"`) {
		t.Fatalf("expected json encoded message, got %q", out)
	}
	if !strings.Contains(out, `"timestamp"`) {
		t.Fatalf("expected timestamp key, got %q", out)
	}
}

func TestGinMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	setOutput(&buf, "json")
	defer setOutput(os.Stdout, "console")
	Init("info")

	g := gin.New()
	g.Use(requestid.Middleware(), GinMiddleware())
	g.GET("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestid.HeaderKey, "rid-1")
	g.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"http_request"`, `"path":"/ping"`, `"status":418`, `"request_id":"rid-1"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %q", want, out)
		}
	}
}
