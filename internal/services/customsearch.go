package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// CustomSearchFetcher is the low-confidence fallback source: web search
// results filtered down to pages that look like upcoming events.
type CustomSearchFetcher struct {
	apiKey     string
	engineID   string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	logger     *logging.Logger
}

// NewCustomSearchFetcher creates a fetcher; it is disabled unless both values are set
func NewCustomSearchFetcher(apiKey, engineID string, logger *logging.Logger) *CustomSearchFetcher {
	return &CustomSearchFetcher{
		apiKey:     apiKey,
		engineID:   engineID,
		baseURL:    "https://www.googleapis.com/customsearch/v1",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
		logger:     logging.OrNop(logger),
	}
}

// SetBaseURL points the fetcher at another endpoint
func (c *CustomSearchFetcher) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

func (c *CustomSearchFetcher) Name() string {
	return "google-search"
}

var queryActionVerbs = map[string]string{
	"workshop": "join",
	"class":    "take",
	"league":   "join",
}

// buildSearchQueries returns every candidate query; callers use the first three
func buildSearchQueries(categories []string, specificInterests, locationStr string) []string {
	var queries []string
	for i, category := range categories {
		if i == 3 {
			break
		}
		queries = append(queries, category+" events "+locationStr, category+" meetup "+locationStr)
	}

	if strings.TrimSpace(specificInterests) != "" {
		interests := strings.Split(specificInterests, ",")
		if len(interests) > 2 {
			interests = interests[:2]
		}
		for _, interest := range interests {
			interest = strings.TrimSpace(interest)
			if interest == "" {
				continue
			}
			for _, format := range []string{"workshop", "class", "league"} {
				query := fmt.Sprintf("%s %s %s %s", queryActionVerbs[format], interest, format, locationStr)
				queries = append(queries, query+" -wikipedia -yelp")
			}
		}
	}

	if len(queries) == 0 {
		queries = []string{
			"join upcoming workshops " + locationStr + " registration",
			"take classes " + locationStr + " sign up",
			"attend events " + locationStr + " this week",
		}
	}
	return queries
}

type customSearchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
}

func (c *CustomSearchFetcher) Fetch(ctx context.Context, req FetchRequest) []models.Event {
	if c.apiKey == "" || c.engineID == "" {
		return nil
	}

	locationStr := req.PostalCode
	if req.HasCoordinates {
		locationStr = req.LocationString()
	}
	category := "General"
	if len(req.Categories) > 0 {
		category = req.Categories[0]
	}

	queries := buildSearchQueries(req.Categories, req.SpecificInterests, locationStr)
	if len(queries) > 3 {
		queries = queries[:3]
	}

	var events []models.Event
	for _, query := range queries {
		response, err := c.search(ctx, query)
		if err != nil {
			c.logger.Debug("[EVENTS] custom search query failed", "query", query, "error", err)
			continue
		}

		for _, item := range response.Items {
			if isGenericPlace(item.Title, item.Snippet, item.Link) || !hasEventIndicators(item.Title, item.Snippet, item.Link) {
				continue
			}
			event := models.Event{
				Name:        item.Title,
				Description: item.Snippet,
				URL:         item.Link,
				Source:      "Google Search",
				Address:     locationStr,
				Venue:       locationStr,
				Category:    category,
				Cost:        "See website",
			}
			if start, ok := extractSnippetDate(item.Snippet, c.now()); ok {
				event.StartTime = start.Format(time.RFC3339)
			}
			events = append(events, event)
		}
	}

	c.logger.Info("[EVENTS] custom search fetched", "count", len(events))
	return events
}

func (c *CustomSearchFetcher) search(ctx context.Context, query string) (*customSearchResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("num", "5")
	params.Set("dateRestrict", "d14")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("custom search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPStatusError{Service: "customsearch", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var response customSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode custom search response: %w", err)
	}
	return &response, nil
}

func isGenericPlace(title, snippet, link string) bool {
	title, snippet, link = strings.ToLower(title), strings.ToLower(snippet), strings.ToLower(link)
	return strings.Contains(link, "wikipedia.org") ||
		strings.Contains(link, "yelp.com/biz") ||
		(strings.Contains(title, "about") && !strings.Contains(title, "event")) ||
		(strings.Contains(snippet, "about us") && !strings.Contains(snippet, "event"))
}

var (
	titleEventIndicators   = []string{"event", "workshop", "class", "league", "meetup", "registration", "sign up"}
	snippetEventIndicators = []string{"register", "sign up", "starts", "begins", "date:", "time:"}
	linkEventIndicators    = []string{"eventbrite.com", "meetup.com", "event", "workshop", "class"}
)

func hasEventIndicators(title, snippet, link string) bool {
	return containsAny(strings.ToLower(title), titleEventIndicators) ||
		containsAny(strings.ToLower(snippet), snippetEventIndicators) ||
		containsAny(strings.ToLower(link), linkEventIndicators)
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

var (
	monthDayPattern  = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s+(\d{1,2})\b`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// extractSnippetDate finds a month/day in a search snippet. The year is
// inferred: a date that already passed this year is read as next year.
// Times default to noon.
func extractSnippetDate(snippet string, now time.Time) (time.Time, bool) {
	var (
		month time.Month
		day   int
	)

	if m := monthDayPattern.FindStringSubmatch(snippet); m != nil {
		month = monthsByPrefix[strings.ToLower(m[1])[:3]]
		day, _ = strconv.Atoi(m[2])
	} else if m := slashDatePattern.FindStringSubmatch(snippet); m != nil {
		monthNum, _ := strconv.Atoi(m[1])
		if monthNum < 1 || monthNum > 12 {
			return time.Time{}, false
		}
		month = time.Month(monthNum)
		day, _ = strconv.Atoi(m[2])
	} else {
		return time.Time{}, false
	}

	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	candidate := time.Date(now.Year(), month, day, 12, 0, 0, 0, time.UTC)
	if candidate.Month() != month {
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if candidate.Before(today) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate, true
}
