package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/oidc"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/sessions"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/tokens"
)

var (
	ErrNoCredentials = errors.New("missing credentials")
	ErrInvalidToken  = errors.New("invalid token")
	ErrRevokedToken  = errors.New("token revoked")
)

// Resolver turns an incoming request into a Principal.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (*Principal, error)
}

// TokenFromRequest extracts a bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", fmt.Errorf("%w: malformed Authorization header", ErrInvalidToken)
		}
		return strings.TrimSpace(token), nil
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", ErrNoCredentials
}

func checkRevoked(ctx context.Context, bl *sessions.Blacklist, raw string) error {
	revoked, err := bl.Contains(ctx, raw)
	if err != nil {
		return fmt.Errorf("blacklist lookup: %w", err)
	}
	if revoked {
		return ErrRevokedToken
	}
	return nil
}

// JWTResolver accepts HS256 session tokens issued by this service.
type JWTResolver struct {
	secret     string
	cookieName string
	blacklist  *sessions.Blacklist
}

func NewJWTResolver(secret, cookieName string, bl *sessions.Blacklist) *JWTResolver {
	return &JWTResolver{secret: secret, cookieName: cookieName, blacklist: bl}
}

func (j *JWTResolver) Resolve(ctx context.Context, r *http.Request) (*Principal, error) {
	raw, err := TokenFromRequest(r, j.cookieName)
	if err != nil {
		return nil, err
	}
	claims, err := tokens.ParseAccessToken(j.secret, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := checkRevoked(ctx, j.blacklist, raw); err != nil {
		return nil, err
	}
	return &Principal{ID: claims.Subject, Email: claims.Email, Name: claims.Name, Role: ParseRole(claims.Role)}, nil
}

// OIDCResolver accepts ID tokens from an external provider. The role comes
// from a "role" claim or, for Keycloak, from realm_access.roles.
type OIDCResolver struct {
	verifier   oidc.TokenVerifier
	cookieName string
	blacklist  *sessions.Blacklist
}

func NewOIDCResolver(v oidc.TokenVerifier, cookieName string, bl *sessions.Blacklist) *OIDCResolver {
	return &OIDCResolver{verifier: v, cookieName: cookieName, blacklist: bl}
}

type oidcClaims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// role picks the most privileged known role among the claims.
func (c oidcClaims) role() Role {
	candidates := append([]string{c.Role}, c.RealmAccess.Roles...)
	best := Role("")
	rank := map[Role]int{RoleStudent: 1, RoleAdmin: 2, RoleSuperadmin: 3}
	for _, s := range candidates {
		if r := ParseRole(s); rank[r] > rank[best] {
			best = r
		}
	}
	return best
}

func (o *OIDCResolver) Resolve(ctx context.Context, r *http.Request) (*Principal, error) {
	raw, err := TokenFromRequest(r, o.cookieName)
	if err != nil {
		return nil, err
	}
	tok, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var claims oidcClaims
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	if err := checkRevoked(ctx, o.blacklist, raw); err != nil {
		return nil, err
	}
	return &Principal{ID: claims.Sub, Email: claims.Email, Name: claims.Name, Role: claims.role()}, nil
}
