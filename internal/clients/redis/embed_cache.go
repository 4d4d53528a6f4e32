// Package redis holds thin clients over a shared Redis instance. The only
// one today is a best-effort cache for query embeddings, which saves a
// provider round trip when the same message text is embedded twice.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

// EmbedCache caches query embeddings keyed by provider, model, and a hash of
// the input text. All methods are nil-safe so the app runs fine without
// Redis configured.
type EmbedCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewEmbedCache connects using REDIS_ADDR. Returns (nil, nil) when the
// variable is unset; a set-but-unreachable address is an error.
func NewEmbedCache(log *logger.Logger) (*EmbedCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	ttl := 24 * time.Hour
	if v := strings.TrimSpace(os.Getenv("REDIS_EMBED_TTL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &EmbedCache{
		log: log.With("service", "redis_embed_cache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func cacheKey(providerID, model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embed:%s:%s:%s", providerID, model, hex.EncodeToString(sum[:]))
}

// Get returns the cached embedding for text, or nil on miss or any Redis
// failure. Failures are logged, never propagated.
func (c *EmbedCache) Get(ctx context.Context, providerID, model, text string) []float32 {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, cacheKey(providerID, model, text)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Debug("embed cache get failed", "error", err.Error())
		}
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		c.log.Debug("embed cache decode failed", "error", err.Error())
		return nil
	}
	return vec
}

// Put stores an embedding with the configured TTL. Best effort.
func (c *EmbedCache) Put(ctx context.Context, providerID, model, text string, vec []float32) {
	if c == nil || c.rdb == nil || len(vec) == 0 {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(providerID, model, text), raw, c.ttl).Err(); err != nil {
		c.log.Debug("embed cache put failed", "error", err.Error())
	}
}

// Close releases the underlying connection.
func (c *EmbedCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
