package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
)

func TestLocalSink_PutOpenDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalSink(dir, "/uploads")
	require.NoError(t, err)
	assert.Equal(t, "local", s.Backend())

	data := []byte("%PDF-1.4 hello")
	obj, err := s.Put(context.Background(), "papers/1-abc-exam.pdf", bytes.NewReader(data), int64(len(data)), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/papers/1-abc-exam.pdf", obj.URL)
	assert.Equal(t, int64(len(data)), obj.Size)

	rc, err := s.Open(context.Background(), obj.Key)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, data, got)

	require.NoError(t, s.Delete(context.Background(), obj.Key))
	_, err = s.Open(context.Background(), obj.Key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NoError(t, s.Delete(context.Background(), obj.Key), "deleting a missing object is a no-op")
}

func TestLocalSink_ShortWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalSink(dir, "")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "papers/short.pdf", strings.NewReader("abc"), 10, "application/pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorageWrite))

	entries, _ := os.ReadDir(filepath.Join(dir, "papers"))
	assert.Empty(t, entries, "no final or temp file may remain")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalSink_ReaderFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalSink(dir, "")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "papers/x.pdf", failingReader{}, 5, "application/pdf")
	require.Error(t, err)
	_, err = s.Open(context.Background(), "papers/x.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalSink_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalSink(filepath.Join(dir, "root"), "")
	require.NoError(t, err)

	for _, key := range []string{"../escape.pdf", "/etc/passwd", "papers/../../x", "", "a\\b"} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"), 1, "application/pdf")
		assert.Error(t, err, key)
		_, err = s.Open(context.Background(), key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	_, statErr := os.Stat(filepath.Join(dir, "escape.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalSink_CancelledContext(t *testing.T) {
	s, err := NewLocalSink(t.TempDir(), "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, "papers/a.pdf", strings.NewReader("x"), 1, "application/pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalSink_Unwritable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewLocalSink(filepath.Join(file, "sub"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorageUnavailable))
}

func TestNewKey(t *testing.T) {
	now := time.UnixMilli(1712345678901)
	k1 := NewKey("papers", "exam.pdf", now)
	k2 := NewKey("papers", "exam.pdf", now)
	assert.True(t, strings.HasPrefix(k1, "papers/1712345678901-"))
	assert.True(t, strings.HasSuffix(k1, "-exam.pdf"))
	assert.NotEqual(t, k1, k2)
	assert.NoError(t, ValidateKey(k1))
}

func TestNewSink_FallsBackToLocal(t *testing.T) {
	s, err := NewSink(context.Background(), Config{LocalDir: t.TempDir(), PublicPath: "/uploads"})
	require.NoError(t, err)
	assert.Equal(t, "local", s.Backend())
}
