package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"social-activity-recommender/internal/models"
)

// DynamoItemAPI is the part of *dynamodb.Client the concept store uses
type DynamoItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoConceptStore shares generated concepts across Lambda instances. The
// table is keyed by PK and expires items through its "ttl" attribute.
type DynamoConceptStore struct {
	client    DynamoItemAPI
	tableName string
	now       func() time.Time
}

// conceptCacheItem is the stored shape of one cache entry
type conceptCacheItem struct {
	PK        string           `dynamodbav:"PK"`
	Concepts  []models.Concept `dynamodbav:"concepts"`
	CreatedAt time.Time        `dynamodbav:"created_at"`
	TTL       int64            `dynamodbav:"ttl"`
}

// NewDynamoConceptStore creates a store over tableName
func NewDynamoConceptStore(client DynamoItemAPI, tableName string) *DynamoConceptStore {
	return &DynamoConceptStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func (s *DynamoConceptStore) Name() string {
	return "dynamodb"
}

func conceptPK(key string) string {
	return "CONCEPTS#" + key
}

// calculateTTL returns the unix expiry DynamoDB reads from the ttl attribute
func calculateTTL(now time.Time, duration time.Duration) int64 {
	return now.Add(duration).Unix()
}

// GetConcepts reads one entry. DynamoDB removes expired items lazily, so an
// item whose ttl has passed is also a miss.
func (s *DynamoConceptStore) GetConcepts(ctx context.Context, key string) ([]models.Concept, bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: conceptPK(key)},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached concepts: %w", err)
	}
	if result.Item == nil {
		return nil, false, nil
	}

	var item conceptCacheItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached concepts: %w", err)
	}
	if item.TTL > 0 && item.TTL <= s.now().Unix() {
		return nil, false, nil
	}
	return item.Concepts, true, nil
}

// PutConcepts writes one entry (upsert)
func (s *DynamoConceptStore) PutConcepts(ctx context.Context, key string, concepts []models.Concept, ttl time.Duration) error {
	now := s.now()
	item, err := attributevalue.MarshalMap(conceptCacheItem{
		PK:        conceptPK(key),
		Concepts:  concepts,
		CreatedAt: now,
		TTL:       calculateTTL(now, ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cached concepts: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to cache concepts: %w", err)
	}
	return nil
}
