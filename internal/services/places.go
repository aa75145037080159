package services

import (
	"bytes"
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

type placeQueryTemplate struct {
	queries []string
	types   []string
}

var placeQueryTemplates = map[string]placeQueryTemplate{
	models.CategorySportsFitness: {
		queries: []string{"fitness classes", "yoga classes", "gym classes", "sports leagues", "workout classes"},
		types:   []string{"gym", "fitness_center", "yoga_studio", "sports_club"},
	},
	models.CategoryArtsCulture: {
		queries: []string{"art classes", "pottery workshops", "painting classes", "art workshops", "craft classes"},
		types:   []string{"art_school", "art_studio", "art_gallery", "community_center"},
	},
	models.CategoryFoodDining: {
		queries: []string{"cooking classes", "culinary workshops", "wine tasting events", "cooking courses"},
		types:   []string{"cooking_school", "restaurant"},
	},
	models.CategoryMusicPerformance: {
		queries: []string{"music classes", "dance classes", "live music events", "concerts"},
		types:   []string{"music_venue", "night_club", "performing_arts_theater"},
	},
	models.CategoryOutdoorNature: {
		queries: []string{"outdoor activities", "hiking groups", "nature workshops", "outdoor classes"},
		types:   []string{"park", "campground"},
	},
	models.CategoryLearningDevelopment: {
		queries: []string{"educational workshops", "learning classes", "skill-building courses", "training workshops"},
		types:   []string{"school", "university", "training_center", "library"},
	},
	models.CategoryVolunteering: {
		queries: []string{"community events", "volunteer opportunities", "community workshops", "networking events"},
		types:   []string{"community_center", "church", "synagogue"},
	},
	models.CategoryWellness: {
		queries: []string{"wellness classes", "meditation classes", "health workshops", "wellness events"},
		types:   []string{"spa", "gym", "yoga_studio"},
	},
	models.CategorySocialEntertainment: {
		queries: []string{"networking events", "social meetups", "networking workshops", "social events"},
		types:   []string{"community_center", "restaurant", "cafe"},
	},
	models.CategoryGamesHobbies: {
		queries: []string{"board game nights", "hobby clubs", "trivia nights", "game cafes"},
		types:   []string{"community_center", "cafe", "library"},
	},
}

var placeActivityIndicators = []string{
	"class", "workshop", "studio", "school", "center", "club", "academy",
	"training", "learning", "education",
}

var placeActivityTypes = map[string]bool{
	"art_school":       true,
	"yoga_studio":      true,
	"gym":              true,
	"community_center": true,
	"school":           true,
}

// PlacesFetcher finds venues that host recurring classes and workshops via
// Places text search. Results carry no start time.
type PlacesFetcher struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewPlacesFetcher creates a fetcher; an empty key disables it
func NewPlacesFetcher(apiKey string, logger *logging.Logger) *PlacesFetcher {
	return &PlacesFetcher{
		apiKey:     apiKey,
		baseURL:    "https://places.googleapis.com/v1/places:searchText",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.OrNop(logger),
	}
}

// SetBaseURL points the fetcher at another endpoint
func (p *PlacesFetcher) SetBaseURL(baseURL string) {
	p.baseURL = baseURL
}

func (p *PlacesFetcher) Name() string {
	return "google-places"
}

// buildPlaceQueries returns the text queries (at most three) and up to five place types
func buildPlaceQueries(categories []string, locationStr string) ([]string, []string) {
	var queries, types []string
	seenType := make(map[string]bool)
	addType := func(t string) {
		if !seenType[t] {
			seenType[t] = true
			types = append(types, t)
		}
	}

	for _, category := range categories {
		template, ok := placeQueryTemplates[category]
		if !ok {
			continue
		}
		for _, query := range template.queries[:2] {
			queries = append(queries, query+" "+locationStr)
		}
		for _, t := range template.types {
			addType(t)
		}
	}

	if len(queries) == 0 {
		queries = []string{"workshops " + locationStr, "classes " + locationStr, "events " + locationStr}
		addType("community_center")
		addType("school")
	}

	if len(queries) > 3 {
		queries = queries[:3]
	}
	if len(types) > 5 {
		types = types[:5]
	}
	return queries, types
}

type placesSearchResponse struct {
	Places []struct {
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string   `json:"formattedAddress"`
		WebsiteURI       string   `json:"websiteUri"`
		Types            []string `json:"types"`
		Location         *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	} `json:"places"`
}

func (p *PlacesFetcher) Fetch(ctx context.Context, req FetchRequest) []models.Event {
	if p.apiKey == "" || !req.HasCoordinates {
		return nil
	}

	locationStr := req.LocationString()
	queries, types := buildPlaceQueries(req.Categories, locationStr)
	category := "General"
	if len(req.Categories) > 0 {
		category = req.Categories[0]
	}

	var events []models.Event
	for _, query := range queries {
		response, err := p.search(ctx, query, types, req)
		if err != nil {
			p.logger.Debug("[EVENTS] places search failed", "query", query, "error", err)
			continue
		}

		for _, place := range response.Places {
			name := place.DisplayName.Text
			if name == "" || !hasActivityIndicator(name, place.Types) {
				continue
			}

			event := models.Event{
				Name:        name,
				Description: "Activities at " + name,
				Venue:       name,
				Address:     place.FormattedAddress,
				URL:         place.WebsiteURI,
				Category:    category,
				Source:      "Google Places API 2.0",
				Cost:        "See website",
			}
			if event.Address == "" {
				event.Address = locationStr
			}
			if event.URL == "" {
				event.URL = "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(name+" "+locationStr)
			}
			if place.Location != nil {
				event.Coordinates = &models.Coordinates{Lat: place.Location.Latitude, Lng: place.Location.Longitude}
			}
			events = append(events, event)
		}
	}

	p.logger.Info("[EVENTS] places fetched", "count", len(events))
	return events
}

func hasActivityIndicator(name string, types []string) bool {
	lower := strings.ToLower(name)
	for _, indicator := range placeActivityIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	for _, t := range types {
		if placeActivityTypes[t] {
			return true
		}
	}
	return false
}

func (p *PlacesFetcher) search(ctx context.Context, query string, types []string, req FetchRequest) (*placesSearchResponse, error) {
	payload := map[string]interface{}{
		"textQuery":      query,
		"maxResultCount": 10,
		"locationBias": map[string]interface{}{
			"circle": map[string]interface{}{
				"center": map[string]float64{"latitude": req.Lat, "longitude": req.Lng},
				"radius": 8000,
			},
		},
	}
	if len(types) > 0 {
		payload["includedTypes"] = types
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal places request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", p.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", "places.id,places.displayName,places.formattedAddress,places.websiteUri,places.types,places.rating,places.location")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPStatusError{Service: "places", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var response placesSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}
	return &response, nil
}
