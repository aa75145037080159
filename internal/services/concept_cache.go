package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// DefaultConceptTTL is how long generated concepts are reused
const DefaultConceptTTL = 24 * time.Hour

// ConceptStore is a shared second cache tier. A miss is (nil, false, nil).
type ConceptStore interface {
	Name() string
	GetConcepts(ctx context.Context, key string) ([]models.Concept, bool, error)
	PutConcepts(ctx context.Context, key string, concepts []models.Concept, ttl time.Duration) error
}

// ConceptCache is a bounded in-process LRU with expiry, optionally backed by
// a shared store. Store errors are logged and read as misses.
type ConceptCache struct {
	local   *expirable.LRU[string, []models.Concept]
	store   ConceptStore
	ttl     time.Duration
	metrics *FetchMetrics
	logger  *logging.Logger
}

// NewConceptCache creates a cache holding at most size entries for ttl
func NewConceptCache(size int, ttl time.Duration, store ConceptStore, metrics *FetchMetrics, logger *logging.Logger) *ConceptCache {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = DefaultConceptTTL
	}
	return &ConceptCache{
		local:   expirable.NewLRU[string, []models.Concept](size, nil, ttl),
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logging.OrNop(logger),
	}
}

type conceptCacheFingerprint struct {
	Categories     []string `json:"categories"`
	Specific       string   `json:"specific"`
	Faith          []string `json:"faith"`
	LGBTQ          []string `json:"lgbtq"`
	Cultural       []string `json:"cultural"`
	Womens         []string `json:"womens"`
	YoungProf      []string `json:"youngProf"`
	International  []string `json:"international"`
	FreeTime       string   `json:"freeTime"`
	TravelDistance string   `json:"travelDistance"`
}

// ConceptCacheKey is userID-surveyID- followed by 16 hex chars of the sha256
// of the answers that shape concepts: interests, affinity groups, free time
// and travel distance
func ConceptCacheKey(userID, surveyID string, survey *models.SurveyResponse) string {
	fp := conceptCacheFingerprint{}
	if survey != nil {
		a := survey.AffinityGroups
		fp = conceptCacheFingerprint{
			Categories:     nonNil(survey.Interests.Categories),
			Specific:       survey.Interests.Specific,
			Faith:          nonNil(a.Faith),
			LGBTQ:          nonNil(a.LGBTQ),
			Cultural:       nonNil(a.Cultural),
			Womens:         nonNil(a.Womens),
			YoungProf:      nonNil(a.YoungProf),
			International:  nonNil(a.International),
			FreeTime:       survey.Preferences.FreeTime,
			TravelDistance: survey.Preferences.TravelDistance,
		}
	}

	// Struct fields marshal in declaration order, which keeps the encoding canonical.
	data, _ := json.Marshal(fp)
	return fmt.Sprintf("%s-%s-%s", userID, surveyID, models.HashHex(string(data), 16))
}

// Get looks in memory first and then the shared store. A store hit is
// copied into memory.
func (c *ConceptCache) Get(ctx context.Context, key string) ([]models.Concept, bool) {
	if concepts, ok := c.local.Get(key); ok {
		c.metrics.RecordCacheLookup("memory", true)
		c.logger.Debug("[CACHE] concept cache hit", "tier", "memory", "key", key)
		return concepts, true
	}
	c.metrics.RecordCacheLookup("memory", false)

	if c.store == nil {
		return nil, false
	}

	concepts, ok, err := c.store.GetConcepts(ctx, key)
	if err != nil {
		c.logger.Warn("[CACHE] shared store lookup failed", "tier", c.store.Name(), "error", err)
		c.metrics.RecordCacheLookup(c.store.Name(), false)
		return nil, false
	}
	c.metrics.RecordCacheLookup(c.store.Name(), ok)
	if !ok {
		return nil, false
	}

	c.local.Add(key, concepts)
	c.logger.Debug("[CACHE] concept cache hit", "tier", c.store.Name(), "key", key)
	return concepts, true
}

// Set stores concepts in both tiers
func (c *ConceptCache) Set(ctx context.Context, key string, concepts []models.Concept) {
	c.local.Add(key, concepts)
	if c.store == nil {
		return
	}
	if err := c.store.PutConcepts(ctx, key, concepts, c.ttl); err != nil {
		c.logger.Warn("[CACHE] shared store write failed", "tier", c.store.Name(), "error", err)
	}
}

// Len reports the number of in-memory entries
func (c *ConceptCache) Len() int {
	return c.local.Len()
}

// redisKV is the part of *redis.Client the store uses
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisConceptStore keeps concepts as JSON strings with a key TTL
type RedisConceptStore struct {
	client redisKV
	prefix string
}

// NewRedisConceptStore connects to redisURL
func NewRedisConceptStore(ctx context.Context, redisURL string) (*RedisConceptStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisConceptStoreWithClient(client), nil
}

// NewRedisConceptStoreWithClient wraps an existing client
func NewRedisConceptStoreWithClient(client redisKV) *RedisConceptStore {
	return &RedisConceptStore{client: client, prefix: "concepts:"}
}

func (r *RedisConceptStore) Name() string {
	return "redis"
}

func (r *RedisConceptStore) GetConcepts(ctx context.Context, key string) ([]models.Concept, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached concepts: %w", err)
	}

	var concepts []models.Concept
	if err := json.Unmarshal(data, &concepts); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached concepts: %w", err)
	}
	return concepts, true, nil
}

func (r *RedisConceptStore) PutConcepts(ctx context.Context, key string, concepts []models.Concept, ttl time.Duration) error {
	data, err := json.Marshal(concepts)
	if err != nil {
		return fmt.Errorf("failed to encode concepts: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache concepts: %w", err)
	}
	return nil
}
