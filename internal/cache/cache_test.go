package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openindexer/indexerd/pkg/config"
)

func TestKeyNamespace(t *testing.T) {
	assert.Equal(t, "indexerd:indexer:abc", IndexerKey("abc"))
	assert.Equal(t, "indexerd:post:abc", PostKey("abc"))
	assert.Equal(t, "indexerd:posts:all", PostListKey)
}

func TestNewDisabledReturnsNoop(t *testing.T) {
	c, err := New(context.Background(), &config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)
}

func TestNoop(t *testing.T) {
	c := Noop{}
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", map[string]string{"a": "b"}))

	var dest map[string]string
	hit, err := c.GetJSON(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Health(ctx))
	assert.NoError(t, c.Close())
}
