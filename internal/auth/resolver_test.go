package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/config"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/models"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/oidc"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/sessions"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/tokens"
)

const secret = "resolver-test-secret-0123456789abcdef"

func issue(t *testing.T, u *models.User, ttl time.Duration) string {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	tok, err := tokens.GenerateAccessToken(cfg, u, ttl)
	require.NoError(t, err)
	return tok
}

func TestPrincipalCapabilities(t *testing.T) {
	assert.True(t, (&Principal{Role: RoleSuperadmin}).Can(CapUpload))
	assert.True(t, (&Principal{Role: RoleAdmin}).Can(CapUpload))
	assert.True(t, (&Principal{Role: RoleStudent}).Can(CapRead))
	assert.False(t, (&Principal{Role: RoleStudent}).Can(CapUpload))
	assert.True(t, (&Principal{Role: RoleSuperadmin}).Can(CapManageSubjects))
	assert.False(t, (&Principal{Role: RoleAdmin}).Can(CapManageSubjects))
	assert.False(t, (&Principal{}).Can(CapRead))
	var nilP *Principal
	assert.False(t, nilP.Can(CapRead))
	assert.Equal(t, RoleAdmin, ParseRole(" ADMIN "))
	assert.Equal(t, Role(""), ParseRole("guest"))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := TokenFromRequest(r, "session")
	assert.ErrorIs(t, err, ErrNoCredentials)

	r.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"})
	tok, err := TokenFromRequest(r, "session")
	require.NoError(t, err)
	assert.Equal(t, "cookie-token", tok)

	r.Header.Set("Authorization", "Bearer header-token")
	tok, err = TokenFromRequest(r, "session")
	require.NoError(t, err)
	assert.Equal(t, "header-token", tok, "header wins over cookie")

	r.Header.Set("Authorization", "Basic abc")
	_, err = TokenFromRequest(r, "session")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTResolver(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}), "")
	res := NewJWTResolver(secret, "session", bl)
	ctx := context.Background()

	tok := issue(t, &models.User{Sub: "u-1", Email: "a@dugsi.so", Role: "admin"}, time.Minute)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	p, err := res.Resolve(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, RoleAdmin, p.Role)

	require.NoError(t, bl.Add(ctx, tok, time.Minute))
	_, err = res.Resolve(ctx, r)
	assert.ErrorIs(t, err, ErrRevokedToken)

	expired := issue(t, &models.User{Sub: "u-2"}, -time.Minute)
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: expired})
	_, err = res.Resolve(ctx, r)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = res.Resolve(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func fakeIDToken(payload string) string {
	return "e30." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"
}

func TestOIDCResolver_RoleFromRealmAccess(t *testing.T) {
	res := NewOIDCResolver(oidc.NewInsecureVerifier(), "", nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+fakeIDToken(`{"sub":"kc-1","email":"k@dugsi.so","realm_access":{"roles":["offline_access","student","admin"]}}`))

	p, err := res.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "kc-1", p.ID)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.True(t, p.Can(CapUpload))
}

func TestOIDCResolver_RoleClaimAndMissingSub(t *testing.T) {
	res := NewOIDCResolver(oidc.NewInsecureVerifier(), "", nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+fakeIDToken(`{"sub":"kc-2","role":"student"}`))
	p, err := res.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, p.Role)

	r.Header.Set("Authorization", "Bearer "+fakeIDToken(`{"email":"x@y"}`))
	_, err = res.Resolve(context.Background(), r)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
