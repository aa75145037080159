package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventbriteBody = `{"events":[
	{"id":"1","name":{"text":"Pottery Night"},"description":{"text":"Wheel basics"},
	 "start":{"local":"2025-10-03T19:00:00","utc":"2025-10-03T23:00:00Z"},"url":"https://www.eventbrite.com/e/1",
	 "is_free":false,
	 "venue":{"name":"Clay Studio","address":{"address_1":"100 Main St","city":"Charlottesville","region":"VA","postal_code":"22901"}},
	 "category":{"name":"Arts"},
	 "ticket_availability":{"minimum_ticket_price":{"display":"$25.00"}}},
	{"id":"2","name":{"text":"Park Cleanup"},"start":{"utc":"2025-10-04T14:00:00Z"},"url":"https://www.eventbrite.com/e/2","is_free":true}
]}`

func newTestEventbrite(serverURL string) *EventbriteFetcher {
	fetcher := NewEventbriteFetcher("eb-token", nil)
	fetcher.SetBaseURL(serverURL)
	fetcher.now = func() time.Time { return time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC) }
	return fetcher
}

func TestEventbriteFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer eb-token", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "38.070000", q.Get("location.latitude"))
		assert.Equal(t, "25mi", q.Get("location.within"))
		assert.Equal(t, "2025-10-01T09:00:00Z", q.Get("start_date.range_start"))
		assert.Equal(t, "2025-10-15T09:00:00Z", q.Get("start_date.range_end"))
		assert.Equal(t, "103,110", q.Get("categories"))
		_, _ = w.Write([]byte(eventbriteBody))
	}))
	defer server.Close()

	events := newTestEventbrite(server.URL).Fetch(context.Background(), FetchRequest{
		Lat: 38.07, Lng: -78.49, HasCoordinates: true,
		Categories: []string{"Arts & Culture", "Music & Performance", "Food & Dining"},
	})
	require.Len(t, events, 2)

	pottery := events[0]
	assert.Equal(t, "Pottery Night", pottery.Name)
	assert.Equal(t, "2025-10-03T19:00:00", pottery.StartTime)
	assert.Equal(t, "Clay Studio", pottery.Venue)
	assert.Equal(t, "100 Main St, Charlottesville, VA, 22901", pottery.Address)
	assert.Equal(t, "$25.00", pottery.Cost)
	assert.Equal(t, "Arts", pottery.Category)
	assert.Equal(t, "Eventbrite", pottery.Source)

	cleanup := events[1]
	assert.Equal(t, "2025-10-04T14:00:00Z", cleanup.StartTime)
	assert.Equal(t, "Free", cleanup.Cost)
	assert.Equal(t, "TBD", cleanup.Venue)
}

func TestEventbriteFetcher_TokenFallback(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "eb-token", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(eventbriteBody))
	}))
	defer server.Close()

	events := newTestEventbrite(server.URL).Fetch(context.Background(), FetchRequest{Lat: 1, Lng: 1, HasCoordinates: true})
	assert.Len(t, events, 2)
	assert.Equal(t, 2, calls)
}

func TestEventbriteFetcher_Degrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := newTestEventbrite(server.URL)
	assert.Empty(t, fetcher.Fetch(context.Background(), FetchRequest{Lat: 1, Lng: 1, HasCoordinates: true}))
	assert.Empty(t, fetcher.Fetch(context.Background(), FetchRequest{PostalCode: "22901"}), "no coordinates")
	assert.Empty(t, NewEventbriteFetcher("", nil).Fetch(context.Background(), FetchRequest{HasCoordinates: true}))
}
