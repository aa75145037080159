package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// DefaultLocation is substituted by callers when geocoding returns nil
var DefaultLocation = models.Location{City: "Charlottesville", State: "VA"}

// GeocoderConfig configures the geocoding providers
type GeocoderConfig struct {
	GoogleAPIKey string
	GoogleURL    string
	NominatimURL string
	UserAgent    string
	HTTPClient   *http.Client
}

// Geocoder resolves postal codes to coordinates. Google is used when a key is
// configured, otherwise the free Nominatim service.
type Geocoder struct {
	googleAPIKey string
	googleURL    string
	nominatimURL string
	userAgent    string
	httpClient   *http.Client
	logger       *logging.Logger
}

// NewGeocoder creates a geocoder with production endpoints
func NewGeocoder(googleAPIKey string, logger *logging.Logger) *Geocoder {
	return NewGeocoderWithConfig(GeocoderConfig{GoogleAPIKey: googleAPIKey}, logger)
}

// NewGeocoderWithConfig creates a geocoder with custom endpoints
func NewGeocoderWithConfig(cfg GeocoderConfig, logger *logging.Logger) *Geocoder {
	if cfg.GoogleURL == "" {
		cfg.GoogleURL = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = "https://nominatim.openstreetmap.org/search"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Empower-Social-App"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Geocoder{
		googleAPIKey: cfg.GoogleAPIKey,
		googleURL:    cfg.GoogleURL,
		nominatimURL: cfg.NominatimURL,
		userAgent:    cfg.UserAgent,
		httpClient:   cfg.HTTPClient,
		logger:       logging.OrNop(logger),
	}
}

// Geocode returns nil when the postal code cannot be resolved by the
// configured provider. It never returns an error.
func (g *Geocoder) Geocode(ctx context.Context, postalCode string) *models.Location {
	if postalCode == "" {
		return nil
	}

	var (
		location *models.Location
		err      error
	)
	if g.googleAPIKey != "" {
		location, err = g.geocodeGoogle(ctx, postalCode)
	} else {
		location, err = g.geocodeNominatim(ctx, postalCode)
	}
	if err != nil {
		g.logger.Warn("[GEOCODE] lookup failed", "postal_code", postalCode, "error", err)
		return nil
	}
	if location == nil {
		g.logger.Debug("[GEOCODE] no result", "postal_code", postalCode)
	}
	return location
}

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

func (g *Geocoder) geocodeGoogle(ctx context.Context, postalCode string) (*models.Location, error) {
	params := url.Values{}
	params.Set("address", postalCode)
	params.Set("key", g.googleAPIKey)

	var body googleGeocodeResponse
	if err := g.getJSON(ctx, g.googleURL+"?"+params.Encode(), &body); err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		return nil, nil
	}

	result := body.Results[0]
	location := &models.Location{
		Lat: result.Geometry.Location.Lat,
		Lng: result.Geometry.Location.Lng,
	}
	for _, component := range result.AddressComponents {
		for _, kind := range component.Types {
			switch kind {
			case "locality":
				location.City = component.LongName
			case "administrative_area_level_1":
				location.State = component.ShortName
			}
		}
	}
	return location, nil
}

type nominatimResult struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
	} `json:"address"`
}

func (g *Geocoder) geocodeNominatim(ctx context.Context, postalCode string) (*models.Location, error) {
	params := url.Values{}
	params.Set("postalcode", postalCode)
	params.Set("country", "US")
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "1")

	var results []nominatimResult
	if err := g.getJSON(ctx, g.nominatimURL+"?"+params.Encode(), &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude %q: %w", result.Lat, err)
	}
	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude %q: %w", result.Lon, err)
	}

	city := result.Address.City
	if city == "" {
		city = result.Address.Town
	}
	if city == "" {
		city = result.Address.Village
	}
	return &models.Location{
		Lat:   lat,
		Lng:   lng,
		City:  city,
		State: stateCode(result.Address.State),
	}, nil
}

func (g *Geocoder) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{Service: "geocoder", StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode geocode response: %w", err)
	}
	return nil
}

var usStateCodes = map[string]string{
	"Alabama": "AL", "Alaska": "AK", "Arizona": "AZ", "Arkansas": "AR", "California": "CA",
	"Colorado": "CO", "Connecticut": "CT", "Delaware": "DE", "District of Columbia": "DC",
	"Florida": "FL", "Georgia": "GA", "Hawaii": "HI", "Idaho": "ID", "Illinois": "IL",
	"Indiana": "IN", "Iowa": "IA", "Kansas": "KS", "Kentucky": "KY", "Louisiana": "LA",
	"Maine": "ME", "Maryland": "MD", "Massachusetts": "MA", "Michigan": "MI", "Minnesota": "MN",
	"Mississippi": "MS", "Missouri": "MO", "Montana": "MT", "Nebraska": "NE", "Nevada": "NV",
	"New Hampshire": "NH", "New Jersey": "NJ", "New Mexico": "NM", "New York": "NY",
	"North Carolina": "NC", "North Dakota": "ND", "Ohio": "OH", "Oklahoma": "OK", "Oregon": "OR",
	"Pennsylvania": "PA", "Rhode Island": "RI", "South Carolina": "SC", "South Dakota": "SD",
	"Tennessee": "TN", "Texas": "TX", "Utah": "UT", "Vermont": "VT", "Virginia": "VA",
	"Washington": "WA", "West Virginia": "WV", "Wisconsin": "WI", "Wyoming": "WY",
	"Puerto Rico": "PR",
}

// stateCode maps a full state name to its USPS code; unknown names pass through
func stateCode(state string) string {
	if code, ok := usStateCodes[state]; ok {
		return code
	}
	return state
}
