package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// ObjectStore is the part of *s3.Client the archive uses
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SnapshotArchive writes the aggregated event list of each request to S3 so
// source yield can be inspected after the fact
type SnapshotArchive struct {
	client     ObjectStore
	bucketName string
	region     string
	logger     *logging.Logger
}

// S3Config holds configuration for the archive
type S3Config struct {
	BucketName string
	Region     string
	Profile    string // AWS profile to use
}

// EventSnapshot is the archived document
type EventSnapshot struct {
	Metadata SnapshotMetadata `json:"metadata"`
	Events   []models.Event   `json:"events"`
}

// SnapshotMetadata describes one aggregation
type SnapshotMetadata struct {
	PostalCode   string         `json:"postal_code"`
	Location     string         `json:"location"`
	Categories   []string       `json:"categories"`
	EventCount   int            `json:"event_count"`
	Sources      map[string]int `json:"sources"`
	UsedFallback bool           `json:"used_fallback"`
	ArchivedAt   time.Time      `json:"archived_at"`
}

// S3UploadResult represents the result of an S3 upload operation
type S3UploadResult struct {
	Key        string    `json:"key"`
	ETag       string    `json:"etag"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	PublicURL  string    `json:"public_url"`
}

// NewSnapshotArchive creates an archive using the default AWS credential chain
func NewSnapshotArchive(ctx context.Context, cfg S3Config, logger *logging.Logger) (*SnapshotArchive, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSnapshotArchiveWithClient(s3.NewFromConfig(awsCfg), cfg.BucketName, awsCfg.Region, logger), nil
}

// NewSnapshotArchiveWithClient wraps an existing client
func NewSnapshotArchiveWithClient(client ObjectStore, bucketName, region string, logger *logging.Logger) *SnapshotArchive {
	return &SnapshotArchive{
		client:     client,
		bucketName: bucketName,
		region:     region,
		logger:     logging.OrNop(logger),
	}
}

// Archive uploads one snapshot under a key derived from the postal code,
// categories and archive time
func (s *SnapshotArchive) Archive(ctx context.Context, snapshot EventSnapshot) (*S3UploadResult, error) {
	if snapshot.Metadata.ArchivedAt.IsZero() {
		snapshot.Metadata.ArchivedAt = time.Now().UTC()
	}
	snapshot.Metadata.EventCount = len(snapshot.Events)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event snapshot: %w", err)
	}

	stamp := snapshot.Metadata.ArchivedAt.UTC().Format("2006-01-02T15-04-05Z")
	key := models.GenerateSnapshotKey(snapshot.Metadata.PostalCode, snapshot.Metadata.Categories, stamp)

	result, err := s.uploadJSON(ctx, data, key)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("[S3] event snapshot archived", "key", key, "events", len(snapshot.Events))
	return result, nil
}

func (s *SnapshotArchive) uploadJSON(ctx context.Context, data []byte, key string) (*S3UploadResult, error) {
	key = strings.TrimPrefix(key, "/")

	result, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"uploaded-by": "social-activity-recommender",
			"upload-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	etag := ""
	if result.ETag != nil {
		etag = strings.Trim(*result.ETag, `"`)
	}

	return &S3UploadResult{
		Key:        key,
		ETag:       etag,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		PublicURL:  s.GetPublicURL(key),
	}, nil
}

// GetPublicURL generates the public URL for an S3 object
func (s *SnapshotArchive) GetPublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)
}
