package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-performance-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]interface{}
	assert.ErrorIs(t, repo.Get(ctx, "performance:student:s1", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "performance:student:s1", map[string]int{"a": 1}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "performance:*"))
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Close())
}
