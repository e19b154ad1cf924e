package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientIsAMiss(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	require.ErrorIs(t, repo.Get(ctx, "roster:list:1", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "roster:list:1", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "roster:*"))
	require.NoError(t, repo.Close())
}
