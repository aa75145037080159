package services

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// FetchRequest is the resolved location and interests an event source searches for
type FetchRequest struct {
	PostalCode        string
	City              string
	State             string
	Lat               float64
	Lng               float64
	HasCoordinates    bool
	Categories        []string
	SpecificInterests string
}

// LocationString renders "City, ST"
func (r FetchRequest) LocationString() string {
	return r.City + ", " + r.State
}

// EventFetcher is one adapter to one external event provider. Fetch never
// fails: provider errors are logged and reported as an empty result.
type EventFetcher interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) []models.Event
}

// rateLimitedFetcher bounds outbound calls to a provider across requests
type rateLimitedFetcher struct {
	EventFetcher
	limiter *rate.Limiter
	logger  *logging.Logger
}

// WithRateLimit wraps a fetcher so invocations wait for a token. A
// non-positive rate returns the fetcher unchanged.
func WithRateLimit(fetcher EventFetcher, perSecond float64, logger *logging.Logger) EventFetcher {
	if perSecond <= 0 {
		return fetcher
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedFetcher{
		EventFetcher: fetcher,
		limiter:      rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:       logging.OrNop(logger),
	}
}

func (f *rateLimitedFetcher) Fetch(ctx context.Context, req FetchRequest) []models.Event {
	if err := f.limiter.Wait(ctx); err != nil {
		f.logger.Debug("[EVENTS] rate limit wait abandoned", "source", f.Name(), "error", err)
		return nil
	}
	return f.EventFetcher.Fetch(ctx, req)
}

// instrumentedFetcher records per-source yield and latency
type instrumentedFetcher struct {
	EventFetcher
	metrics *FetchMetrics
}

// WithMetrics wraps a fetcher so every invocation is recorded in metrics
func WithMetrics(fetcher EventFetcher, metrics *FetchMetrics) EventFetcher {
	if metrics == nil {
		return fetcher
	}
	return &instrumentedFetcher{EventFetcher: fetcher, metrics: metrics}
}

func (f *instrumentedFetcher) Fetch(ctx context.Context, req FetchRequest) []models.Event {
	start := time.Now()
	events := f.EventFetcher.Fetch(ctx, req)
	f.metrics.RecordFetch(f.Name(), len(events), time.Since(start))
	return events
}

// FetcherFunc adapts a function to EventFetcher
type FetcherFunc struct {
	SourceName string
	Func       func(ctx context.Context, req FetchRequest) []models.Event
}

func (f FetcherFunc) Name() string {
	return f.SourceName
}

func (f FetcherFunc) Fetch(ctx context.Context, req FetchRequest) []models.Event {
	return f.Func(ctx, req)
}
