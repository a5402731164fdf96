package blocklist

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAddRemoveContains(t *testing.T) {
	bl := NewMemory()
	ctx := context.Background()

	hit, err := bl.Contains(ctx, "254700000001")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, bl.Add(ctx, "254700000001"))
	hit, err = bl.Contains(ctx, "254700000001")
	require.NoError(t, err)
	assert.True(t, hit)

	size, err := bl.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	require.NoError(t, bl.Remove(ctx, "254700000001"))
	hit, err = bl.Contains(ctx, "254700000001")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryEmptyIDIsIgnored(t *testing.T) {
	bl := NewMemory()
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, ""))
	size, err := bl.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size, "empty identifiers must not be stored")

	hit, err := bl.Contains(ctx, "")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryConcurrentDuplicateAdds(t *testing.T) {
	bl := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bl.Add(ctx, "user-1")
			_ = bl.Add(ctx, "254700000001")
		}()
	}
	wg.Wait()

	size, err := bl.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size, "adds must be idempotent under concurrency")
}
