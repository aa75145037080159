package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-activity-recommender/internal/models"
)

type memoryObjectStore struct {
	objects map[string][]byte
	putErr  error
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: map[string][]byte{}}
}

func (m *memoryObjectStore) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{ETag: aws.String(`"etag-1"`)}, nil
}

func TestSnapshotArchive_PublicURL(t *testing.T) {
	archive := NewSnapshotArchiveWithClient(newMemoryObjectStore(), "test-bucket", "us-west-2", nil)

	tests := []struct {
		key      string
		expected string
	}{
		{
			key:      "events/22901/latest.json",
			expected: "https://test-bucket.s3.us-west-2.amazonaws.com/events/22901/latest.json",
		},
		{
			key:      "/events/22901/latest.json", // Leading slash should be handled
			expected: "https://test-bucket.s3.us-west-2.amazonaws.com/events/22901/latest.json",
		},
	}

	for _, test := range tests {
		if url := archive.GetPublicURL(test.key); url != test.expected {
			t.Errorf("For key %s, expected URL %s, got %s", test.key, test.expected, url)
		}
	}
}

func TestSnapshotArchive_Archive(t *testing.T) {
	store := newMemoryObjectStore()
	archive := NewSnapshotArchiveWithClient(store, "test-bucket", "us-west-2", nil)

	archivedAt := time.Date(2025, 10, 1, 15, 4, 5, 0, time.UTC)
	snapshot := EventSnapshot{
		Metadata: SnapshotMetadata{
			PostalCode: "22901",
			Location:   "Charlottesville, VA",
			Categories: []string{"Arts & Culture"},
			Sources:    map[string]int{"eventbrite": 2},
			ArchivedAt: archivedAt,
		},
		Events: []models.Event{
			{Name: "Pottery Night", StartTime: "2025-10-03T19:00:00Z", Source: "Eventbrite"},
			{Name: "Gallery Walk", StartTime: "2025-10-04T12:00:00Z", Source: "Eventbrite"},
		},
	}

	result, err := archive.Archive(context.Background(), snapshot)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Key, "events/22901/2025-10-01T15-04-05Z_"))
	assert.True(t, strings.HasSuffix(result.Key, ".json"))
	assert.Equal(t, "etag-1", result.ETag)
	assert.Contains(t, store.objects, result.Key)

	var loaded EventSnapshot
	require.NoError(t, json.Unmarshal(store.objects[result.Key], &loaded))
	assert.Equal(t, 2, loaded.Metadata.EventCount)
	assert.Equal(t, "Charlottesville, VA", loaded.Metadata.Location)
	require.Len(t, loaded.Events, 2)
	assert.Equal(t, "Pottery Night", loaded.Events[0].Name)
}

func TestSnapshotArchive_KeyIsStable(t *testing.T) {
	key1 := models.GenerateSnapshotKey("22901", []string{"Arts & Culture", "Music & Performance"}, "stamp")
	key2 := models.GenerateSnapshotKey("22901", []string{"Arts & Culture", "Music & Performance"}, "stamp")
	key3 := models.GenerateSnapshotKey("22901", []string{"Sports & Fitness"}, "stamp")

	assert.Equal(t, key1, key2)
	assert.NotEqual(t, key1, key3)
}

func TestSnapshotArchive_UploadError(t *testing.T) {
	store := newMemoryObjectStore()
	store.putErr = errors.New("access denied")
	archive := NewSnapshotArchiveWithClient(store, "test-bucket", "us-west-2", nil)

	_, err := archive.Archive(context.Background(), EventSnapshot{Metadata: SnapshotMetadata{PostalCode: "22901"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload to S3")
}
