package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/config"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/models"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/tokens"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/users"
)

type memUsers struct {
	byEmail map[string]*models.User
}

func (m *memUsers) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	m.byEmail[u.Email] = u
	return u, nil
}

func (m *memUsers) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.Sub == sub {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.byEmail[email], nil
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	c := *u
	c.Sub = "sub-" + u.Email
	m.byEmail[u.Email] = &c
	return &c, nil
}

func (m *memUsers) UpdateCredentials(ctx context.Context, sub, role, hash string) error {
	for _, u := range m.byEmail {
		if u.Sub == sub {
			u.Role = role
			u.PasswordHash = hash
		}
	}
	return nil
}

func testEnv(repo *memUsers) (*env, *bytes.Buffer) {
	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	return &env{
		loadConfig: func() (*config.Config, error) { return cfg, nil },
		openUsers: func(ctx context.Context, cfg *config.Config) (users.UserRepository, func(), error) {
			return repo, func() {}, nil
		},
		out: &out,
	}, &out
}

func execute(e *env, stdin string, args ...string) error {
	cmd := newRootCmd(e)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	return cmd.ExecuteContext(context.Background())
}

func TestSuperadminCreateAndPromote(t *testing.T) {
	repo := &memUsers{byEmail: map[string]*models.User{}}
	e, out := testEnv(repo)

	require.NoError(t, execute(e, "", "superadmin", "create", "--email", "Head@Dugsi.test", "--password", "long-enough"))
	assert.Contains(t, out.String(), "created superadmin head@dugsi.test")
	u := repo.byEmail["head@dugsi.test"]
	require.NotNil(t, u)
	assert.Equal(t, users.RoleSuperadmin, u.Role)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("long-enough")))

	out.Reset()
	repo.byEmail["staff@dugsi.test"] = &models.User{Sub: "t-1", Email: "staff@dugsi.test", Role: users.RoleStudent}
	require.NoError(t, execute(e, "new-password\n", "superadmin", "create", "--email", "staff@dugsi.test", "--password-stdin"))
	assert.Contains(t, out.String(), "promoted superadmin staff@dugsi.test")
	assert.Equal(t, users.RoleSuperadmin, repo.byEmail["staff@dugsi.test"].Role)
}

func TestSuperadminCreateValidation(t *testing.T) {
	e, _ := testEnv(&memUsers{byEmail: map[string]*models.User{}})
	require.ErrorContains(t, execute(e, "", "superadmin", "create", "--password", "long-enough"), "--email is required")
	require.ErrorContains(t, execute(e, "", "superadmin", "create", "--email", "a@b.c", "--password", ""), "--password")
	require.ErrorIs(t, execute(e, "", "superadmin", "create", "--email", "a@b.c", "--password", "short"), users.ErrWeakPassword)
}

func TestTokenIssue(t *testing.T) {
	e, out := testEnv(nil)
	require.NoError(t, execute(e, "", "token", "issue", "--sub", "u-9", "--role", "Admin", "--ttl", "5m"))

	claims, err := tokens.ParseAccessToken("0123456789abcdef0123456789abcdef", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-9", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	require.ErrorContains(t, execute(e, "", "token", "issue", "--role", "guest"), "unknown role")
}
