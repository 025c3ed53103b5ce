package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by Open when no bytes exist under the key.
var ErrObjectNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for keys that are absolute or escape the root.
var ErrInvalidKey = errors.New("storage: invalid key")

// Object describes a stored blob.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// Sink stores raw bytes under caller-generated keys.
// A Put either stores all bytes or leaves nothing behind under the key.
type Sink interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Backend() string
}

// NewKey builds a locator of the form {category}/{unixMillis}-{rand8}-{name}.
func NewKey(category, name string, now time.Time) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to nanos.
		return fmt.Sprintf("%s/%d-%08x-%s", category, now.UnixMilli(), uint32(now.UnixNano()), name)
	}
	return fmt.Sprintf("%s/%d-%s-%s", category, now.UnixMilli(), hex.EncodeToString(b[:]), name)
}

// ValidateKey rejects empty, absolute and traversing keys.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		out += "/" + strings.Trim(p, "/")
	}
	return out
}
