package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Service issues, validates and revokes refresh sessions.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service { return &Service{repo: r, now: time.Now} }

// CreateSession stores a new refresh session and returns the raw refresh token.
func (s *Service) CreateSession(ctx context.Context, sub string, ttl time.Duration, remember bool) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	raw := base64.RawURLEncoding.EncodeToString(b)
	now := s.now().UTC()
	sess := &Session{
		TokenHash: HashToken(raw),
		Sub:       sub,
		Remember:  remember,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return raw, nil
}

// ValidateRefresh returns the session for a live refresh token, or nil.
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	if refresh == "" {
		return nil, nil
	}
	hash := HashToken(refresh)
	sess, err := s.repo.GetByHash(ctx, hash)
	if err != nil || sess == nil {
		return nil, err
	}
	if s.now().UTC().After(sess.ExpiresAt) {
		_ = s.repo.DeleteByHash(ctx, hash)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByHash(ctx, HashToken(refresh))
}
