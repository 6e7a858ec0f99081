package upstream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const catalogTTL = 60 * time.Minute

type catalogEntry struct {
	models []ModelInfo
	asOf   time.Time
}

// Catalog is the model-catalog cache from spec.md §4.1: keyed by base_url
// only (never the api key), 60-minute TTL. It holds an in-process map as
// the source of truth and, when Redis is configured, a second tier so the
// snapshot survives restarts and is shared across replicas — the domain
// expansion named in SPEC_FULL.md §3.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
	redis   *redis.Client
}

// NewCatalog builds a Catalog. redisClient may be nil, in which case the
// cache is purely in-process.
func NewCatalog(redisClient *redis.Client) *Catalog {
	return &Catalog{entries: make(map[string]catalogEntry), redis: redisClient}
}

// List returns the cached snapshot for baseURL if fresh, otherwise calls
// fetch, and stores the result back into both cache tiers.
func (c *Catalog) List(ctx context.Context, baseURL string, fetch func(context.Context) ([]ModelInfo, error)) ([]ModelInfo, error) {
	if models, ok := c.lookupMemory(baseURL); ok {
		return models, nil
	}
	if models, ok := c.lookupRedis(ctx, baseURL); ok {
		c.storeMemory(baseURL, models)
		return models, nil
	}

	models, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.storeMemory(baseURL, models)
	c.storeRedis(ctx, baseURL, models)
	return models, nil
}

func (c *Catalog) lookupMemory(baseURL string) ([]ModelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[baseURL]
	if !ok || time.Since(e.asOf) > catalogTTL {
		return nil, false
	}
	return e.models, true
}

func (c *Catalog) storeMemory(baseURL string, models []ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[baseURL] = catalogEntry{models: models, asOf: time.Now()}
}

func redisKey(baseURL string) string { return "council:model-catalog:" + baseURL }

func (c *Catalog) lookupRedis(ctx context.Context, baseURL string) ([]ModelInfo, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, redisKey(baseURL)).Bytes()
	if err != nil {
		return nil, false
	}
	var models []ModelInfo
	if err := json.Unmarshal(data, &models); err != nil {
		log.Warn().Err(err).Msg("corrupt redis model-catalog entry")
		return nil, false
	}
	return models, true
}

func (c *Catalog) storeRedis(ctx context.Context, baseURL string, models []ModelInfo) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(models)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, redisKey(baseURL), data, catalogTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to write model-catalog entry to redis")
	}
}
