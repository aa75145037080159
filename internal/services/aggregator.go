package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

const (
	// fallbackThreshold is the primary yield below which the fallback source runs
	fallbackThreshold = 5
	eventWindow       = 14 * 24 * time.Hour
	maxRankedEvents   = 20
	archiveTimeout    = 10 * time.Second
)

// trustedPlatforms only list upcoming events, so their start-less listings are kept
var trustedPlatforms = []string{"eventbrite.com", "meetup.com", "facebook.com/events"}

// LocationResolver turns a postal code into a location, nil when unresolvable
type LocationResolver interface {
	Geocode(ctx context.Context, postalCode string) *models.Location
}

// SnapshotWriter archives an aggregation result
type SnapshotWriter interface {
	Archive(ctx context.Context, snapshot EventSnapshot) (*S3UploadResult, error)
}

// AggregationResult is the outcome of one aggregation
type AggregationResult struct {
	Events       []models.Event
	Location     models.Location
	UsedFallback bool
	Sources      map[string]int
}

// Aggregator fans out to the primary event sources, escalates to the
// fallback source on low yield, then deduplicates, filters and ranks.
type Aggregator struct {
	geocoder LocationResolver
	primary  []EventFetcher
	fallback EventFetcher
	archive  SnapshotWriter
	metrics  *FetchMetrics
	logger   *logging.Logger
	now      func() time.Time
	debug    bool

	pending sync.WaitGroup
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithClock replaces time.Now
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

// WithSnapshotArchive archives every aggregation in the background
func WithSnapshotArchive(archive SnapshotWriter) AggregatorOption {
	return func(a *Aggregator) { a.archive = archive }
}

// WithAggregatorMetrics records fallback usage
func WithAggregatorMetrics(metrics *FetchMetrics) AggregatorOption {
	return func(a *Aggregator) { a.metrics = metrics }
}

// WithDebugEvents logs per-source diagnostics at info level
func WithDebugEvents(debug bool) AggregatorOption {
	return func(a *Aggregator) { a.debug = debug }
}

// NewAggregator creates an aggregator. fallback may be nil.
func NewAggregator(geocoder LocationResolver, primary []EventFetcher, fallback EventFetcher, logger *logging.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		geocoder: geocoder,
		primary:  primary,
		fallback: fallback,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns up to 20 deduplicated events starting within the next
// 14 days for the profile's location and interests
func (a *Aggregator) Aggregate(ctx context.Context, profile models.UserProfile) []models.Event {
	return a.Collect(ctx, profile).Events
}

// Collect runs the aggregation and also reports the resolved location and
// whether the fallback source was used
func (a *Aggregator) Collect(ctx context.Context, profile models.UserProfile) AggregationResult {
	location := a.resolveLocation(ctx, profile.PostalCode)
	req := FetchRequest{
		PostalCode:        profile.PostalCode,
		City:              location.City,
		State:             location.State,
		Lat:               location.Lat,
		Lng:               location.Lng,
		HasCoordinates:    location.Lat != 0 || location.Lng != 0,
		Categories:        profile.Categories,
		SpecificInterests: profile.SpecificInterests,
	}

	sources := make(map[string]int)
	events := a.fetchPrimary(ctx, req, sources)

	usedFallback := false
	if len(events) < fallbackThreshold && a.fallback != nil {
		usedFallback = true
		fallbackEvents := a.fallback.Fetch(ctx, req)
		sources[a.fallback.Name()] = len(fallbackEvents)
		a.debugLog("[EVENTS] fallback source invoked", "source", a.fallback.Name(), "primary_events", len(events), "fallback_events", len(fallbackEvents))
		events = append(events, fallbackEvents...)
	}
	a.metrics.RecordAggregation(usedFallback)

	fetched := len(events)
	events = dedupeEvents(events)
	deduped := len(events)
	events = filterUpcoming(events, a.now())
	events = rankEvents(events)

	a.debugLog("[EVENTS] aggregation complete",
		"location", location.String(),
		"fetched", fetched,
		"deduplicated", deduped,
		"returned", len(events),
		"used_fallback", usedFallback)

	result := AggregationResult{
		Events:       events,
		Location:     location,
		UsedFallback: usedFallback,
		Sources:      sources,
	}
	a.archiveAsync(ctx, profile, result)
	return result
}

func (a *Aggregator) resolveLocation(ctx context.Context, postalCode string) models.Location {
	if a.geocoder != nil {
		if location := a.geocoder.Geocode(ctx, postalCode); location != nil {
			return *location
		}
	}
	a.logger.Warn("[GEOCODE] using default location", "postal_code", postalCode, "location", DefaultLocation.String())
	return DefaultLocation
}

// fetchPrimary invokes every primary source concurrently and waits for all.
// Fetchers never return errors, so one slow or failing source cannot cancel
// the others. Results keep the configured source order.
func (a *Aggregator) fetchPrimary(ctx context.Context, req FetchRequest, sources map[string]int) []models.Event {
	results := make([][]models.Event, len(a.primary))

	var g errgroup.Group
	for i, fetcher := range a.primary {
		i, fetcher := i, fetcher
		g.Go(func() error {
			results[i] = fetcher.Fetch(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	var events []models.Event
	for i, fetcher := range a.primary {
		sources[fetcher.Name()] = len(results[i])
		a.debugLog("[EVENTS] source finished", "source", fetcher.Name(), "events", len(results[i]))
		events = append(events, results[i]...)
	}
	return events
}

// dedupeEvents keeps the first event for each name+day key. Events without a
// start time have no key and are all kept.
func dedupeEvents(events []models.Event) []models.Event {
	seen := make(map[string]bool, len(events))
	unique := make([]models.Event, 0, len(events))
	for _, event := range events {
		if key, ok := event.DedupKey(); ok {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		unique = append(unique, event)
	}
	return unique
}

// filterUpcoming keeps events starting in [now, now+14d]. Events without a
// resolvable start time survive only when listed on a trusted platform.
func filterUpcoming(events []models.Event, now time.Time) []models.Event {
	end := now.Add(eventWindow)
	kept := make([]models.Event, 0, len(events))
	for _, event := range events {
		start, ok := event.StartsAt()
		if !ok {
			if isTrustedPlatform(event.URL) {
				kept = append(kept, event)
			}
			continue
		}
		if start.Before(now) || start.After(end) {
			continue
		}
		kept = append(kept, event)
	}
	return kept
}

func isTrustedPlatform(url string) bool {
	lower := strings.ToLower(url)
	for _, platform := range trustedPlatforms {
		if strings.Contains(lower, platform) {
			return true
		}
	}
	return false
}

// rankEvents is the personalization hook; it currently keeps source order
// and truncates
func rankEvents(events []models.Event) []models.Event {
	if len(events) > maxRankedEvents {
		return events[:maxRankedEvents]
	}
	return events
}

func (a *Aggregator) archiveAsync(ctx context.Context, profile models.UserProfile, result AggregationResult) {
	if a.archive == nil {
		return
	}

	snapshot := EventSnapshot{
		Metadata: SnapshotMetadata{
			PostalCode:   profile.PostalCode,
			Location:     result.Location.String(),
			Categories:   profile.Categories,
			Sources:      result.Sources,
			UsedFallback: result.UsedFallback,
			ArchivedAt:   a.now().UTC(),
		},
		Events: result.Events,
	}

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()
		if _, err := a.archive.Archive(archiveCtx, snapshot); err != nil {
			a.logger.Warn("[S3] failed to archive event snapshot", "postal_code", profile.PostalCode, "error", err)
		}
	}()
}

// Wait blocks until background archive writes have finished
func (a *Aggregator) Wait() {
	a.pending.Wait()
}

func (a *Aggregator) debugLog(msg string, keysAndValues ...interface{}) {
	if a.debug {
		a.logger.Info(msg, keysAndValues...)
		return
	}
	a.logger.Debug(msg, keysAndValues...)
}
