package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := Dial(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestEmbedder_CachesResults(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setup(t)
	inner := llm.NewMockEmbedder(4)
	e := New(inner, rdb, "text-embedding-004", time.Hour)

	first, err := e.EmbedText(ctx, "transformers")
	require.NoError(t, err)
	second, err := e.EmbedText(ctx, "transformers")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, inner.Calls(), 1)
	assert.True(t, mr.Exists(e.key("transformers")))
	assert.Equal(t, time.Hour, mr.TTL(e.key("transformers")))
}

func TestEmbedder_KeysAreNamespacedByModel(t *testing.T) {
	_, rdb := setup(t)
	a := New(llm.NewMockEmbedder(2), rdb, "model-a", 0)
	b := New(llm.NewMockEmbedder(2), rdb, "model-b", 0)
	assert.NotEqual(t, a.key("x"), b.key("x"))
	assert.Equal(t, DefaultTTL, a.ttl)
}

func TestEmbedder_CorruptEntryIsReplaced(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setup(t)
	inner := llm.NewMockEmbedder(2)
	inner.Vectors["q"] = []float32{1, 2}
	e := New(inner, rdb, "m", time.Hour)

	require.NoError(t, mr.Set(e.key("q"), "not json"))

	vec, err := e.EmbedText(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.Len(t, inner.Calls(), 1)

	cached, err := mr.Get(e.key("q"))
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", cached)
}

func TestEmbedder_CorruptEntryDeleteFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setup(t)
	inner := llm.NewMockEmbedder(2)
	inner.Vectors["q"] = []float32{1, 2}
	e := New(inner, rdb, "m", time.Hour)

	require.NoError(t, mr.Set(e.key("q"), "not json"))
	rdb.AddHook(failDel{})

	vec, err := e.EmbedText(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.Len(t, inner.Calls(), 1)
}

// failDel makes every DEL command fail.
type failDel struct{}

func (failDel) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failDel) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "del" {
			err := errors.New("del refused")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failDel) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestEmbedder_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setup(t)
	inner := llm.NewMockEmbedder(2)
	e := New(inner, rdb, "m", time.Hour)
	mr.Close()

	vec, err := e.EmbedText(ctx, "q")
	require.NoError(t, err)
	assert.Len(t, vec, 2)
}

func TestEmbedder_ModelErrorNotCached(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setup(t)
	inner := llm.NewMockEmbedder(2)
	inner.Err = errors.New("quota")
	e := New(inner, rdb, "m", time.Hour)

	_, err := e.EmbedText(ctx, "q")
	assert.Error(t, err)
	assert.False(t, mr.Exists(e.key("q")))
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}
