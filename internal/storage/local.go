package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
)

// LocalSink stores blobs in a directory. Objects written here live on the
// host filesystem and do not survive redeploys of ephemeral containers.
type LocalSink struct {
	root       string
	publicPath string
}

// NewLocalSink creates root if needed and verifies it is writable.
func NewLocalSink(root, publicPath string) (*LocalSink, error) {
	if root == "" {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, errors.New("local storage directory not configured"))
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, fmt.Errorf("create %s: %w", abs, err))
	}
	tmp, err := os.CreateTemp(abs, ".writecheck-*")
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, fmt.Errorf("%s not writable: %w", abs, err))
	}
	tmp.Close()
	_ = os.Remove(tmp.Name())
	if publicPath == "" {
		publicPath = "/uploads"
	}
	return &LocalSink{root: abs, publicPath: publicPath}, nil
}

func (s *LocalSink) Backend() string { return "local" }

// Root returns the absolute directory blobs are written to.
func (s *LocalSink) Root() string { return s.root }

func (s *LocalSink) pathFromKey(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return p, nil
}

// Put writes to a temp file in the target directory and renames it into place.
func (s *LocalSink) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error) {
	p, err := s.pathFromKey(key)
	if err != nil {
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		_ = os.Remove(tmpName)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	if size >= 0 && n != size {
		cleanup()
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageWrite, fmt.Errorf("short write: %d of %d bytes", n, size))
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	return Object{Key: key, URL: joinURL(s.publicPath, key), Size: n}, nil
}

func (s *LocalSink) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
	}
	return f, nil
}

// Delete removes the object; a missing object is not an error.
func (s *LocalSink) Delete(ctx context.Context, key string) error {
	p, err := s.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	return nil
}
