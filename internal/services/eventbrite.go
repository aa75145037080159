package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// eventbriteCategoryIDs maps interest labels to Eventbrite category ids
var eventbriteCategoryIDs = map[string]string{
	models.CategoryArtsCulture:         "103",
	models.CategorySportsFitness:       "108",
	models.CategoryFoodDining:          "110",
	models.CategorySocialEntertainment: "105",
	models.CategoryLearningDevelopment: "102",
	models.CategoryOutdoorNature:       "109",
	models.CategoryGamesHobbies:        "119",
	models.CategoryVolunteering:        "111",
	models.CategoryWellness:            "107",
	models.CategoryMusicPerformance:    "103",
}

// EventbriteFetcher searches Eventbrite for live events near the user
type EventbriteFetcher struct {
	apiKey     string
	baseURL    string
	radius     string
	httpClient *http.Client
	now        func() time.Time
	logger     *logging.Logger
}

// NewEventbriteFetcher creates a fetcher; an empty key disables it
func NewEventbriteFetcher(apiKey string, logger *logging.Logger) *EventbriteFetcher {
	return &EventbriteFetcher{
		apiKey:     apiKey,
		baseURL:    "https://www.eventbriteapi.com/v3/events/search",
		radius:     "25mi",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
		logger:     logging.OrNop(logger),
	}
}

// SetBaseURL points the fetcher at another endpoint
func (e *EventbriteFetcher) SetBaseURL(baseURL string) {
	e.baseURL = baseURL
}

func (e *EventbriteFetcher) Name() string {
	return "eventbrite"
}

func (e *EventbriteFetcher) Fetch(ctx context.Context, req FetchRequest) []models.Event {
	if e.apiKey == "" || !req.HasCoordinates {
		return nil
	}

	params := e.buildParams(req)
	body, err := e.search(ctx, params, true)
	if status := StatusCode(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
		e.logger.Info("[EVENTS] eventbrite bearer auth rejected, retrying with token parameter", "status", status)
		params.Set("token", e.apiKey)
		body, err = e.search(ctx, params, false)
	}
	if err != nil {
		e.logger.Error("[EVENTS] eventbrite search failed", "error", err)
		return nil
	}

	events := make([]models.Event, 0, len(body.Events))
	for _, raw := range body.Events {
		events = append(events, raw.normalize())
	}
	e.logger.Info("[EVENTS] eventbrite fetched", "count", len(events))
	return events
}

func (e *EventbriteFetcher) buildParams(req FetchRequest) url.Values {
	now := e.now().UTC()
	params := url.Values{}
	params.Set("location.latitude", fmt.Sprintf("%f", req.Lat))
	params.Set("location.longitude", fmt.Sprintf("%f", req.Lng))
	params.Set("location.within", e.radius)
	params.Set("status", "live")
	params.Set("order_by", "start_asc")
	params.Set("start_date.range_start", now.Format("2006-01-02T15:04:05Z"))
	params.Set("start_date.range_end", now.Add(14*24*time.Hour).Format("2006-01-02T15:04:05Z"))
	params.Set("expand", "venue,category")

	var ids []string
	seen := make(map[string]bool)
	for _, category := range req.Categories {
		if id, ok := eventbriteCategoryIDs[category]; ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		params.Set("categories", strings.Join(ids, ","))
	}
	return params
}

type eventbriteResponse struct {
	Events []eventbriteEvent `json:"events"`
}

type eventbriteText struct {
	Text string `json:"text"`
}

type eventbriteTime struct {
	Local string `json:"local"`
	UTC   string `json:"utc"`
}

func (t eventbriteTime) value() string {
	if t.Local != "" {
		return t.Local
	}
	return t.UTC
}

type eventbriteEvent struct {
	ID          string         `json:"id"`
	Name        eventbriteText `json:"name"`
	Description eventbriteText `json:"description"`
	Start       eventbriteTime `json:"start"`
	End         eventbriteTime `json:"end"`
	URL         string         `json:"url"`
	IsFree      bool           `json:"is_free"`
	Venue       *struct {
		Name    string `json:"name"`
		Address struct {
			Address1   string `json:"address_1"`
			City       string `json:"city"`
			Region     string `json:"region"`
			PostalCode string `json:"postal_code"`
			Latitude   string `json:"latitude"`
			Longitude  string `json:"longitude"`
		} `json:"address"`
	} `json:"venue"`
	Category *struct {
		Name string `json:"name"`
	} `json:"category"`
	TicketAvailability *struct {
		MinimumTicketPrice *struct {
			Display string `json:"display"`
		} `json:"minimum_ticket_price"`
	} `json:"ticket_availability"`
}

func (raw eventbriteEvent) normalize() models.Event {
	event := models.Event{
		Name:        raw.Name.Text,
		Description: raw.Description.Text,
		StartTime:   raw.Start.value(),
		EndTime:     raw.End.value(),
		Venue:       "TBD",
		Address:     "TBD",
		URL:         raw.URL,
		Source:      "Eventbrite",
	}

	if raw.Venue != nil {
		if raw.Venue.Name != "" {
			event.Venue = raw.Venue.Name
		}
		var parts []string
		for _, part := range []string{raw.Venue.Address.Address1, raw.Venue.Address.City, raw.Venue.Address.Region, raw.Venue.Address.PostalCode} {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			event.Address = strings.Join(parts, ", ")
		} else if raw.Venue.Name != "" {
			event.Address = raw.Venue.Name
		}
	}
	if raw.Category != nil {
		event.Category = raw.Category.Name
	}

	switch {
	case raw.IsFree:
		event.Cost = "Free"
	case raw.TicketAvailability != nil && raw.TicketAvailability.MinimumTicketPrice != nil && raw.TicketAvailability.MinimumTicketPrice.Display != "":
		event.Cost = "$" + strings.TrimPrefix(raw.TicketAvailability.MinimumTicketPrice.Display, "$")
	default:
		event.Cost = "See website"
	}
	return event
}

func (e *EventbriteFetcher) search(ctx context.Context, params url.Values, bearer bool) (*eventbriteResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if bearer {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eventbrite request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPStatusError{Service: "eventbrite", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var body eventbriteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode eventbrite response: %w", err)
	}
	return &body, nil
}
