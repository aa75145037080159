package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"social-activity-recommender/internal/logging"
)

func TestFetchers_UnconfiguredReturnEmptyQuietly(t *testing.T) {
	req := FetchRequest{
		PostalCode:     "22903",
		City:           "Charlottesville",
		State:          "VA",
		Lat:            38.03,
		Lng:            -78.48,
		HasCoordinates: true,
		Categories:     []string{"Arts & Culture"},
	}

	tests := []struct {
		name  string
		build func(logger *logging.Logger) EventFetcher
	}{
		{"eventbrite without key", func(l *logging.Logger) EventFetcher { return NewEventbriteFetcher("", l) }},
		{"places without key", func(l *logging.Logger) EventFetcher { return NewPlacesFetcher("", l) }},
		{"custom search without key", func(l *logging.Logger) EventFetcher { return NewCustomSearchFetcher("", "cx", l) }},
		{"custom search without engine", func(l *logging.Logger) EventFetcher { return NewCustomSearchFetcher("key", "", l) }},
		{"structured scrape without scraper", func(l *logging.Logger) EventFetcher {
			return NewStructuredScrapeFetcher(nil, nil, nil, true, l)
		}},
		{"community scrape without scraper", func(l *logging.Logger) EventFetcher {
			return NewCommunityScrapeFetcher(nil, nil, true, l)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			fetcher := tt.build(&logging.Logger{SugaredLogger: zap.New(core).Sugar()})

			start := time.Now()
			events := fetcher.Fetch(context.Background(), req)
			elapsed := time.Since(start)

			assert.Empty(t, events)
			assert.True(t, elapsed < 100*time.Millisecond, "took %s", elapsed)
			for _, entry := range logs.All() {
				assert.True(t, entry.Level < zapcore.ErrorLevel, "unexpected %s log %q", entry.Level, entry.Message)
			}
		})
	}
}
