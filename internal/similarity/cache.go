package similarity

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache defaults.
const (
	DefaultCacheTTL    = 7 * 24 * time.Hour
	DefaultCachePrefix = "embedding:"
)

// Cache stores embedding vectors by key.
type Cache interface {
	GetMany(ctx context.Context, keys []string) ([][]float32, error)
	SetMany(ctx context.Context, keys []string, vecs [][]float32) error
}

// CacheKey derives a stable key from the model and text.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// RedisCache keeps vectors in Redis as little-endian float32 blobs.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to the Redis instance at url (redis://...) and verifies connectivity.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, &CacheError{Message: "invalid redis url", Cause: err}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, &CacheError{Message: fmt.Sprintf("failed to connect to redis at %s", opts.Addr), Cause: err}
	}
	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, prefix: DefaultCachePrefix, ttl: ttl}
}

// GetMany returns one entry per key; a miss is nil.
func (r *RedisCache) GetMany(ctx context.Context, keys []string) ([][]float32, error) {
	if len(keys) == 0 {
		return [][]float32{}, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	vals, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, &CacheError{Message: "mget failed", Cause: err}
	}
	out := make([][]float32, len(keys))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		vec, err := decodeVector([]byte(s))
		if err != nil {
			log.Printf("[similarity] dropping corrupt cache entry %s: %v", keys[i], err)
			continue
		}
		out[i] = vec
	}
	return out, nil
}

// SetMany stores vectors under keys with the configured TTL.
func (r *RedisCache) SetMany(ctx context.Context, keys []string, vecs [][]float32) error {
	if len(keys) != len(vecs) {
		return ErrCountMismatch
	}
	pipe := r.client.Pipeline()
	for i, k := range keys {
		pipe.Set(ctx, r.prefix+k, encodeVector(vecs[i]), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &CacheError{Message: "pipeline set failed", Cause: err}
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, errors.New("blob length is not a multiple of 4")
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}

// CachedEmbedder serves repeated texts from a Cache and embeds only the misses.
// Cache failures degrade to uncached embedding.
type CachedEmbedder struct {
	inner Embedder
	cache Cache
}

// NewCachedEmbedder wraps inner with cache.
func NewCachedEmbedder(inner Embedder, cache Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

// ModelName implements Embedder.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// EmbedTexts implements Embedder.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	model := c.inner.ModelName()
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = CacheKey(model, t)
	}

	out, err := c.cache.GetMany(ctx, keys)
	if err != nil || len(out) != len(texts) {
		if err != nil {
			log.Printf("[similarity] cache read failed: %v", err)
		}
		out = make([][]float32, len(texts))
	}

	// Identical texts within one call share a single lookup.
	missIdx := map[string][]int{}
	var missTexts, missKeys []string
	for i, vec := range out {
		if vec != nil {
			continue
		}
		if _, seen := missIdx[keys[i]]; !seen {
			missTexts = append(missTexts, texts[i])
			missKeys = append(missKeys, keys[i])
		}
		missIdx[keys[i]] = append(missIdx[keys[i]], i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, ErrCountMismatch
	}
	for j, key := range missKeys {
		for _, i := range missIdx[key] {
			out[i] = vecs[j]
		}
	}
	if err := c.cache.SetMany(ctx, missKeys, vecs); err != nil {
		log.Printf("[similarity] cache write failed: %v", err)
	}
	return out, nil
}
