package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-ledger-api/internal/models"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
)

func TestCredentialsRepositoryReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	content := "users:\n  admin:\n    password: $2a$10$hash\n    role: admin\n  clerk:\n    password: $2a$10$other\n    role: user\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	repo := NewCredentialsRepository(path)

	user, err := repo.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "$2a$10$hash", user.PasswordHash)

	_, err = repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
}

func TestCredentialsRepositoryUpsertCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "credentials.yaml")
	repo := NewCredentialsRepository(path)

	require.NoError(t, repo.Upsert(context.Background(), models.User{Username: "clerk", PasswordHash: "h1", Role: models.RoleUser}))
	require.NoError(t, repo.Upsert(context.Background(), models.User{Username: "clerk", PasswordHash: "h2", Role: models.RoleAdmin}))

	user, err := repo.FindByUsername(context.Background(), "clerk")
	require.NoError(t, err)
	assert.Equal(t, "h2", user.PasswordHash)
	assert.Equal(t, models.RoleAdmin, user.Role)

	assert.Error(t, repo.Upsert(context.Background(), models.User{}))
}
