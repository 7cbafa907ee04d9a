package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/m88-digital/idea-intake-api/internal/models"
	appErrors "github.com/m88-digital/idea-intake-api/pkg/errors"
)

type mockUserRepo struct {
	users   map[string]*models.User
	tokens  map[string]*models.RefreshToken
	revoked []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]*models.RefreshToken)
	}
	m.tokens[token.Token] = token
	return nil
}

func (m *mockUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "idea-intake-api",
	}
}

func seededUserRepo(t *testing.T) *mockUserRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &mockUserRepo{users: map[string]*models.User{
		"user-1": {
			ID:           "user-1",
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			FullName:     "Admin User",
			Role:         models.RoleAdmin,
			Department:   "IT",
			Active:       true,
		},
	}}
}

func TestLoginSuccess(t *testing.T) {
	repo := seededUserRepo(t)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Contains(t, repo.tokens, resp.RefreshToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(seededUserRepo(t), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(seededUserRepo(t), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "s3cret-pass",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := seededUserRepo(t)
	repo.users["user-1"].Active = false
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := seededUserRepo(t)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)

	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	// A rotated token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestRefreshTokenExpired(t *testing.T) {
	repo := seededUserRepo(t)
	repo.tokens = map[string]*models.RefreshToken{
		"stale": {ID: "rt-1", UserID: "user-1", Token: "stale", ExpiresAt: time.Now().UTC().Add(-time.Hour)},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	repo := seededUserRepo(t)
	repo.tokens = map[string]*models.RefreshToken{
		"theirs": {ID: "rt-1", UserID: "user-2", Token: "theirs", ExpiresAt: time.Now().UTC().Add(time.Hour)},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.Logout(context.Background(), "theirs", "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, repo.revoked)
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := seededUserRepo(t)
	repo.tokens = map[string]*models.RefreshToken{
		"mine": {ID: "rt-1", UserID: "user-1", Token: "mine", ExpiresAt: time.Now().UTC().Add(time.Hour)},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	require.NoError(t, svc.Logout(context.Background(), "mine", "user-1"))
	assert.Equal(t, []string{"rt-1"}, repo.revoked)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := NewAuthService(seededUserRepo(t), nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	other := NewAuthService(seededUserRepo(t), nil, nil, AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: 15 * time.Minute,
	})
	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
