package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/roster-ledger-api/internal/models"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
)

type mockCredentialStore struct {
	users     map[string]models.User
	findErr   error
	upsertErr error
}

func (m *mockCredentialStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[username]
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrNotFound, "user %s not found", username)
	}
	return &u, nil
}

func (m *mockCredentialStore) Upsert(_ context.Context, user models.User) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.users == nil {
		m.users = map[string]models.User{}
	}
	m.users[user.Username] = user
	return nil
}

func newAuthService(t *testing.T, repo *mockCredentialStore) *AuthService {
	t.Helper()
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "roster-ledger",
	})
	svc.clock = func() time.Time { return testNow }
	return svc
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLoginIssuesValidToken(t *testing.T) {
	repo := &mockCredentialStore{users: map[string]models.User{
		"admin": {Username: "admin", PasswordHash: hashed(t, "s3cret"), Role: models.RoleAdmin},
	}}
	svc := newAuthService(t, repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: " admin ", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.True(t, testNow.Equal(resp.IssuedAt))

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "roster-ledger", claims.Issuer)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := &mockCredentialStore{users: map[string]models.User{
		"clerk": {Username: "clerk", PasswordHash: hashed(t, "right"), Role: models.RoleUser},
		"ghost": {Username: "ghost", PasswordHash: hashed(t, "right"), Role: "viewer"},
	}}
	svc := newAuthService(t, repo)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Username: "clerk", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, models.LoginRequest{Username: "nobody", Password: "right"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, models.LoginRequest{Username: "ghost", Password: "right"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Login(ctx, models.LoginRequest{Username: "clerk"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	repo.findErr = errors.New("disk gone")
	_, err = svc.Login(ctx, models.LoginRequest{Username: "clerk", Password: "right"})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestValidateTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	repo := &mockCredentialStore{users: map[string]models.User{
		"clerk": {Username: "clerk", PasswordHash: hashed(t, "pw"), Role: models.RoleUser},
	}}
	svc := newAuthService(t, repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "clerk", Password: "pw"})
	require.NoError(t, err)

	svc.clock = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	svc.clock = func() time.Time { return testNow }
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{Username: "clerk", Role: models.RoleAdmin})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAddUserHashesPassword(t *testing.T) {
	repo := &mockCredentialStore{}
	svc := newAuthService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.AddUser(ctx, "clerk", "pw", models.RoleUser))
	stored := repo.users["clerk"]
	assert.NotEqual(t, "pw", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw")))

	err := svc.AddUser(ctx, "clerk", "pw", "root")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	err = svc.AddUser(ctx, " ", "pw", models.RoleUser)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	repo.upsertErr = errors.New("read-only")
	err = svc.AddUser(ctx, "other", "pw", models.RoleAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
