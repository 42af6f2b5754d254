// Package cache wraps a TextEmbedder with a Redis-backed result cache so
// re-ingesting a file or repeating a query does not hit the model again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm"
)

const (
	keyPrefix  = "kb:emb:"
	DefaultTTL = 7 * 24 * time.Hour
)

var _ llm.TextEmbedder = (*Embedder)(nil)

// Embedder caches vectors by SHA-256 of model name and text.
type Embedder struct {
	next  llm.TextEmbedder
	rdb   *redis.Client
	model string
	ttl   time.Duration
}

// New wraps next. model namespaces the keys so switching embedding models
// never serves stale vectors.
func New(next llm.TextEmbedder, rdb *redis.Client, model string, ttl time.Duration) *Embedder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Embedder{next: next, rdb: rdb, model: model, ttl: ttl}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", addr, err)
	}
	return rdb, nil
}

// EmbedText returns the cached vector or computes and stores it. Redis
// failures are logged and never fail the call.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)

	data, err := e.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
			log.Debug("embedding cache hit", "key", key)
			return vec, nil
		}
		log.Warn("dropping corrupt cached embedding", "key", key)
		if err := e.rdb.Del(ctx, key).Err(); err != nil {
			log.Debug("failed to drop corrupt cached embedding", "key", key, "err", err)
		}
	case !errors.Is(err, redis.Nil):
		log.Warn("embedding cache unavailable, falling back to model", "err", err)
	}

	vec, err := e.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(vec)
	if err != nil {
		return vec, nil
	}
	if err := e.rdb.Set(ctx, key, data, e.ttl).Err(); err != nil {
		log.Warn("failed to cache embedding", "key", key, "err", err)
	}
	return vec, nil
}

func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(e.model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}
