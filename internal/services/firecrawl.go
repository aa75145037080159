package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mendableai/firecrawl-go/v2"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// PageScraper turns a URL into markdown
type PageScraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// FireCrawlClient scrapes pages to markdown through the Firecrawl API
type FireCrawlClient struct {
	client  *firecrawl.FirecrawlApp
	timeout time.Duration
}

// NewFireCrawlClient creates a new FireCrawl client
func NewFireCrawlClient(apiKey string) (*FireCrawlClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("FIRECRAWL_API_KEY is required")
	}

	app, err := firecrawl.NewFirecrawlApp(apiKey, "https://api.firecrawl.dev")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FireCrawl client: %w", err)
	}

	return &FireCrawlClient{
		client:  app,
		timeout: 60 * time.Second,
	}, nil
}

// NewFireCrawlClientWithTimeout creates a new FireCrawl client with custom timeout
func NewFireCrawlClientWithTimeout(apiKey string, timeout time.Duration) (*FireCrawlClient, error) {
	client, err := NewFireCrawlClient(apiKey)
	if err != nil {
		return nil, err
	}
	client.timeout = timeout
	return client, nil
}

// Scrape fetches url as markdown. The SDK takes no context, so the call is
// raced against the client timeout and ctx.
func (fc *FireCrawlClient) Scrape(ctx context.Context, url string) (string, error) {
	return raceTimeout(ctx, fc.timeout, func(context.Context) (string, error) {
		doc, err := fc.client.ScrapeURL(url, &firecrawl.ScrapeParams{Formats: []string{"markdown"}})
		if err != nil {
			return "", fmt.Errorf("firecrawl scrape failed: %w", err)
		}
		if doc == nil {
			return "", fmt.Errorf("firecrawl returned no document for %s", url)
		}
		return doc.Markdown, nil
	})
}

// isExpectedScrapeMiss reports failures that guessed domains produce all the
// time: missing pages, dead hosts and timeouts.
func isExpectedScrapeMiss(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if status := StatusCode(err); status == 404 || status == 500 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "404") || strings.Contains(msg, "500") || strings.Contains(msg, "no such host")
}

// structuredGuessTemplates are guessed organization domains for the
// structured scrape. {slug} is the city slug and {state} the lowercase state.
var structuredGuessTemplates = []string{
	"https://www.{slug}.gov/events",
	"https://www.{slug}parksandrec.org/events",
	"https://www.{slug}communitycenter.org/calendar",
	"https://www.{slug}library.org/events",
	"https://events.{slug}university.edu",
	"https://www.{slug}university.edu/events",
	"https://www.{slug}museum.org/events",
	"https://www.{slug}artmuseum.org/calendar",
	"https://nextdoor.com/events/{slug}-{state}",
	"https://www.{slug}church.org/events",
	"https://www.{slug}temple.org/calendar",
	"https://www.{slug}nonprofit.org/events",
	"https://www.{slug}volunteer.org/calendar",
}

var communityGuessTemplates = []string{
	"https://www.{slug}parksandrec.org/events",
	"https://www.{slug}communitycenter.com/calendar",
	"https://www.{slug}communitycenter.org/events",
	"https://www.{slug}times.com/events",
	"https://www.{slug}news.com/events",
	"https://www.{slug}chamber.org/events",
	"https://www.{slug}chamber.com/calendar",
	"https://nextdoor.com/events/{slug}-{state}",
	"https://events.{slug}university.edu",
	"https://calendar.{slug}university.edu",
	"https://www.{slug}museum.org/events",
	"https://www.{slug}artmuseum.org/calendar",
	"https://www.{slug}church.org/events",
	"https://www.{slug}temple.org/calendar",
	"https://www.{slug}nonprofit.org/events",
	"https://www.{slug}volunteer.org/calendar",
}

// expandTargets fills {slug}/{city} and {state} into each template, drops
// duplicates and keeps at most limit URLs.
func expandTargets(templates []string, city, state string, limit int) []string {
	replacer := strings.NewReplacer(
		"{slug}", models.CitySlug(city),
		"{city}", models.CitySlug(city),
		"{state}", strings.ToLower(state),
	)

	seen := make(map[string]bool)
	var urls []string
	for _, template := range templates {
		if limit > 0 && len(urls) == limit {
			break
		}
		url := replacer.Replace(template)
		if seen[url] {
			continue
		}
		seen[url] = true
		urls = append(urls, url)
	}
	return urls
}

// ScrapedEvent is one event as the extraction model reports it
type ScrapedEvent struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Recurring   bool   `json:"recurring"`
	Cost        string `json:"cost"`
	Category    string `json:"category"`
}

// EventExtractor pulls event listings out of page markdown
type EventExtractor interface {
	ExtractEvents(ctx context.Context, content, pageURL, city string) ([]ScrapedEvent, error)
}

// StructuredScrapeFetcher scrapes configured and guessed pages and asks the
// extraction model for the events on them.
type StructuredScrapeFetcher struct {
	scraper      PageScraper
	extractor    EventExtractor
	targets      []string
	guessDomains bool
	maxTargets   int
	timeout      time.Duration
	now          func() time.Time
	logger       *logging.Logger
}

// NewStructuredScrapeFetcher creates the fetcher. targets are URL templates
// that may contain {city} and {state}; guessed domains follow them when
// guessDomains is set. A nil scraper or extractor disables it.
func NewStructuredScrapeFetcher(scraper PageScraper, extractor EventExtractor, targets []string, guessDomains bool, logger *logging.Logger) *StructuredScrapeFetcher {
	return &StructuredScrapeFetcher{
		scraper:      scraper,
		extractor:    extractor,
		targets:      targets,
		guessDomains: guessDomains,
		maxTargets:   4,
		timeout:      30 * time.Second,
		now:          time.Now,
		logger:       logging.OrNop(logger),
	}
}

func (s *StructuredScrapeFetcher) Name() string {
	return "firecrawl-structured"
}

// Targets returns the URLs one request would scrape
func (s *StructuredScrapeFetcher) Targets(req FetchRequest) []string {
	templates := append([]string{}, s.targets...)
	if s.guessDomains {
		templates = append(templates, structuredGuessTemplates...)
	}
	return expandTargets(templates, req.City, req.State, s.maxTargets)
}

func (s *StructuredScrapeFetcher) Fetch(ctx context.Context, req FetchRequest) []models.Event {
	if s.scraper == nil || s.extractor == nil || req.City == "" {
		return nil
	}

	var events []models.Event
	for _, url := range s.Targets(req) {
		scraped, err := raceTimeout(ctx, s.timeout, func(ctx context.Context) ([]ScrapedEvent, error) {
			markdown, err := s.scraper.Scrape(ctx, url)
			if err != nil {
				return nil, err
			}
			return s.extractor.ExtractEvents(ctx, markdown, url, req.City)
		})
		if err != nil {
			if !isExpectedScrapeMiss(err) {
				s.logger.Warn("[EVENTS] structured scrape failed", "url", url, "error", err)
			}
			continue
		}

		for _, raw := range scraped {
			if event, ok := s.normalize(raw, url, req); ok {
				events = append(events, event)
			}
		}
	}

	if len(events) > 0 {
		s.logger.Info("[EVENTS] structured scrape fetched", "count", len(events))
	}
	return events
}

func (s *StructuredScrapeFetcher) normalize(raw ScrapedEvent, pageURL string, req FetchRequest) (models.Event, bool) {
	name := strings.TrimSpace(raw.Name)
	if name == "" || name == "Untitled Event" || len(name) <= 3 {
		return models.Event{}, false
	}

	cityState := req.LocationString()
	event := models.Event{
		Name:        name,
		Description: raw.Description,
		Venue:       cityState,
		Address:     cityState,
		URL:         raw.URL,
		Category:    raw.Category,
		Cost:        raw.Cost,
		Recurring:   raw.Recurring,
		Source:      "Firecrawl (structured)",
	}
	if location := strings.TrimSpace(raw.Location); location != "" {
		event.Address = location
		event.Venue = strings.TrimSpace(strings.Split(location, ",")[0])
	}
	if !models.IsValidURL(event.URL) {
		event.URL = pageURL
	}
	if event.Category == "" {
		event.Category = "General"
	}
	if event.Cost == "" {
		event.Cost = "See website"
	}
	if start, ok := parseLooseDateTime(raw.Date, raw.Time, s.now()); ok {
		event.StartTime = start.Format(time.RFC3339)
	}
	return event, true
}

// CommunityScrapeFetcher scrapes guessed local community calendars and reads
// event blocks out of the markdown without a model call. With no scraper and
// a page reader set, pages are fetched directly and schema.org Event JSON-LD
// is used instead.
type CommunityScrapeFetcher struct {
	scraper      PageScraper
	reader       *PageReader
	guessDomains bool
	maxTargets   int
	timeout      time.Duration
	now          func() time.Time
	logger       *logging.Logger
}

// NewCommunityScrapeFetcher creates the fetcher; reader is only used when scraper is nil
func NewCommunityScrapeFetcher(scraper PageScraper, reader *PageReader, guessDomains bool, logger *logging.Logger) *CommunityScrapeFetcher {
	return &CommunityScrapeFetcher{
		scraper:      scraper,
		reader:       reader,
		guessDomains: guessDomains,
		maxTargets:   4,
		timeout:      5 * time.Second,
		now:          time.Now,
		logger:       logging.OrNop(logger),
	}
}

func (c *CommunityScrapeFetcher) Name() string {
	return "community-scrape"
}

// Targets returns the URLs one request would try
func (c *CommunityScrapeFetcher) Targets(req FetchRequest) []string {
	if !c.guessDomains {
		return nil
	}
	return expandTargets(communityGuessTemplates, req.City, req.State, c.maxTargets)
}

func (c *CommunityScrapeFetcher) Fetch(ctx context.Context, req FetchRequest) []models.Event {
	if (c.scraper == nil && c.reader == nil) || req.City == "" {
		return nil
	}

	var events []models.Event
	for _, url := range c.Targets(req) {
		found, err := raceTimeout(ctx, c.timeout, func(ctx context.Context) ([]models.Event, error) {
			return c.fetchPage(ctx, url, req)
		})
		if err != nil {
			if isExpectedScrapeMiss(err) {
				c.logger.Debug("[EVENTS] community page unavailable", "url", url, "error", err)
			} else {
				c.logger.Warn("[EVENTS] community scrape failed", "url", url, "error", err)
			}
			continue
		}
		events = append(events, found...)
	}

	if len(events) > 0 {
		c.logger.Info("[EVENTS] community scrape fetched", "count", len(events))
	}
	return events
}

func (c *CommunityScrapeFetcher) fetchPage(ctx context.Context, url string, req FetchRequest) ([]models.Event, error) {
	if c.scraper == nil {
		html, err := c.reader.FetchHTML(ctx, url)
		if err != nil {
			return nil, err
		}
		return extractJSONLDEvents(html, url, req)
	}

	markdown, err := c.scraper.Scrape(ctx, url)
	if err != nil {
		return nil, err
	}

	category := "General"
	if len(req.Categories) > 0 {
		category = req.Categories[0]
	}

	var events []models.Event
	for _, block := range parseMarkdownEvents(markdown, 15) {
		if len(block.Title) <= 3 {
			continue
		}
		event := models.Event{
			Name:        block.Title,
			Description: block.Description,
			Venue:       req.LocationString(),
			Address:     req.LocationString(),
			URL:         block.URL,
			Cost:        block.Price,
			Category:    category,
			Source:      "Local Community",
		}
		if block.Location != "" {
			event.Venue = block.Location
			event.Address = block.Location
		}
		if !models.IsValidURL(event.URL) {
			event.URL = url
		}
		if event.Cost == "" {
			event.Cost = "See website"
		}
		if start, ok := parseLooseDateTime(block.Date, block.Time, c.now()); ok {
			event.StartTime = start.Format(time.RFC3339)
		}
		events = append(events, event)
	}
	return events, nil
}
