package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-activity-recommender/internal/models"
)

func sampleSurvey() *models.SurveyResponse {
	return &models.SurveyResponse{
		ID:     "recSurvey",
		UserID: "recUser",
		SurveyAnswers: models.SurveyAnswers{
			Interests: models.InterestAnswers{
				Categories: []string{"Arts & Culture", "Food & Dining"},
				Specific:   "pottery, ramen",
			},
			Preferences: models.PreferenceAnswers{
				FreeTime:       "5-10 hours",
				TravelDistance: "Within 10 miles",
			},
			AffinityGroups: models.AffinityAnswers{Cultural: []string{"Latino/Hispanic"}},
		},
	}
}

func TestConceptCacheKey(t *testing.T) {
	survey := sampleSurvey()
	key := ConceptCacheKey("recUser", "recSurvey", survey)

	require.True(t, strings.HasPrefix(key, "recUser-recSurvey-"))
	assert.Len(t, strings.TrimPrefix(key, "recUser-recSurvey-"), 16)
	assert.Equal(t, key, ConceptCacheKey("recUser", "recSurvey", sampleSurvey()))

	changed := sampleSurvey()
	changed.Preferences.TravelDistance = "15+ miles"
	assert.NotEqual(t, key, ConceptCacheKey("recUser", "recSurvey", changed))

	// Personality answers do not shape concepts
	personality := sampleSurvey()
	personality.Personality = map[string]float64{"q1": 7}
	assert.Equal(t, key, ConceptCacheKey("recUser", "recSurvey", personality))
}

func TestConceptCache_MemoryExpiry(t *testing.T) {
	cache := NewConceptCache(4, 50*time.Millisecond, nil, nil, nil)
	ctx := context.Background()
	concepts := []models.Concept{{ConceptName: "Pottery Club"}}

	cache.Set(ctx, "k", concepts)
	got, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, concepts, got)

	time.Sleep(120 * time.Millisecond)
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestConceptCache_Bounded(t *testing.T) {
	cache := NewConceptCache(2, time.Hour, nil, nil, nil)
	ctx := context.Background()

	cache.Set(ctx, "a", nil)
	cache.Set(ctx, "b", nil)
	cache.Set(ctx, "c", nil)

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)
}

type stubConceptStore struct {
	entries map[string][]models.Concept
	getErr  error
	puts    int
}

func (s *stubConceptStore) Name() string { return "stub" }

func (s *stubConceptStore) GetConcepts(_ context.Context, key string) ([]models.Concept, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	c, ok := s.entries[key]
	return c, ok, nil
}

func (s *stubConceptStore) PutConcepts(_ context.Context, key string, concepts []models.Concept, _ time.Duration) error {
	s.puts++
	s.entries[key] = concepts
	return nil
}

func TestConceptCache_SharedTier(t *testing.T) {
	store := &stubConceptStore{entries: map[string][]models.Concept{
		"shared": {{ConceptName: "Run Club"}},
	}}
	cache := NewConceptCache(4, time.Hour, store, nil, nil)
	ctx := context.Background()

	got, ok := cache.Get(ctx, "shared")
	require.True(t, ok)
	assert.Equal(t, "Run Club", got[0].ConceptName)
	assert.Equal(t, 1, cache.Len(), "store hit is copied into memory")

	cache.Set(ctx, "new", []models.Concept{{ConceptName: "Book Club"}})
	assert.Equal(t, 1, store.puts)

	store.getErr = errors.New("connection refused")
	_, ok = cache.Get(ctx, "missing")
	assert.False(t, ok, "store errors read as misses")
}

type memoryDynamo struct {
	items map[string]map[string]types.AttributeValue
}

func (m *memoryDynamo) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	pk := params.Key["PK"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: m.items[pk]}, nil
}

func (m *memoryDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	pk := params.Item["PK"].(*types.AttributeValueMemberS).Value
	m.items[pk] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoConceptStore_RoundTripAndExpiry(t *testing.T) {
	db := &memoryDynamo{items: map[string]map[string]types.AttributeValue{}}
	store := NewDynamoConceptStore(db, "concept-cache")
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	concepts := []models.Concept{{ConceptName: "Pottery Club", Keywords: []string{"clay"}, Priority: 1}}
	require.NoError(t, store.PutConcepts(ctx, "k", concepts, time.Hour))

	ttl, ok := db.items["CONCEPTS#k"]["ttl"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, "1759323600", ttl.Value)

	got, ok, err := store.GetConcepts(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, concepts, got)

	now = now.Add(2 * time.Hour)
	_, ok, err = store.GetConcepts(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.GetConcepts(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisConceptStore(t *testing.T) {
	client := &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
	store := NewRedisConceptStoreWithClient(client)
	ctx := context.Background()

	_, ok, err := store.GetConcepts(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutConcepts(ctx, "k", []models.Concept{{ConceptName: "Trivia Night"}}, DefaultConceptTTL))
	assert.Equal(t, DefaultConceptTTL, client.ttls["concepts:k"])

	got, ok, err := store.GetConcepts(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Trivia Night", got[0].ConceptName)
}
