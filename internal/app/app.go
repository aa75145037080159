// Package app wires configuration into the services and handlers shared by
// the server, the API Lambda and the regeneration worker.
package app

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	lambdaclient "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"social-activity-recommender/internal/api"
	"social-activity-recommender/internal/config"
	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/services"
)

// App holds the long-lived components of one process
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Store      *services.RecordStore
	Geocoder   *services.Geocoder
	Aggregator *services.Aggregator
	Service    *services.RecommendationService
	Metrics    *services.FetchMetrics
	Handler    *api.Handler
}

// Options adjusts wiring for tests and single-purpose binaries
type Options struct {
	// Registerer receives the fetch metrics; nil means the default registry.
	Registerer prometheus.Registerer
	// WithoutDispatcher skips the worker Lambda client even when a function
	// name is configured. The worker itself sets it.
	WithoutDispatcher bool
}

// New builds the App from cfg. AWS backed components are only created when
// their table, bucket or function name is configured.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts Options) (*App, error) {
	logger = logging.OrNop(logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics := services.GetFetchMetrics()
	if opts.Registerer != nil {
		metrics = services.NewFetchMetrics(opts.Registerer)
	}

	airtable := services.NewAirtableClientWithConfig(services.AirtableConfig{
		APIKey:  cfg.AirtableAPIKey,
		BaseID:  cfg.AirtableBaseID,
		BaseURL: cfg.AirtableURL,
		Retry:   services.DefaultRetryConfig(),
	}, logger)
	store := services.NewRecordStore(airtable, logger)
	geocoder := services.NewGeocoder(cfg.GoogleMapsAPIKey, logger)
	openai := services.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)

	aggOpts := []services.AggregatorOption{
		services.WithAggregatorMetrics(metrics),
		services.WithDebugEvents(cfg.DebugEvents),
	}
	if cfg.S3BucketName != "" {
		archive, err := services.NewSnapshotArchive(ctx, services.S3Config{
			BucketName: cfg.S3BucketName,
			Region:     cfg.AWSRegion,
		}, logger)
		if err != nil {
			logger.Warn("[EVENTS] snapshot archive disabled", "bucket", cfg.S3BucketName, "error", err)
		} else {
			aggOpts = append(aggOpts, services.WithSnapshotArchive(archive))
		}
	}

	primary, fallback := eventFetchers(cfg, openai, metrics, logger)
	aggregator := services.NewAggregator(geocoder, primary, fallback, logger, aggOpts...)

	conceptStore, err := conceptStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	cache := services.NewConceptCache(cfg.ConceptCacheSize, services.DefaultConceptTTL, conceptStore, metrics, logger)

	service := services.NewRecommendationService(store, geocoder, cfg.RecommendationsCount, metrics, logger,
		services.NewConceptualStrategy(openai, cfg.OpenAIConceptModel, cache, logger),
		services.NewLegacyStrategy(openai, cfg.OpenAIModel, aggregator, logger),
	)

	var dispatcher api.Dispatcher
	if cfg.RegenerateFunctionName != "" && !opts.WithoutDispatcher {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		dispatcher = services.NewRegenerateDispatcher(lambdaclient.NewFromConfig(awsCfg), cfg.RegenerateFunctionName, logger)
	}

	handler := api.NewHandler(api.Config{
		Store:       store,
		Generator:   service,
		Geocoder:    geocoder,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Environment: cfg.Environment,
		Logger:      logger,
	})

	logger.Info("[API] service wired",
		"environment", cfg.Environment,
		"sources", len(primary),
		"fallback", fallback != nil,
		"concept_store", storeName(conceptStore),
		"async_regenerate", dispatcher != nil)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Geocoder:   geocoder,
		Aggregator: aggregator,
		Service:    service,
		Metrics:    metrics,
		Handler:    handler,
	}, nil
}

// Close waits for background archive uploads and logs the source summary
func (a *App) Close() {
	a.Aggregator.Wait()
	a.Metrics.LogMetricsSummary(a.Logger)
	a.Logger.Sync()
}

// eventFetchers builds the primary sources and the custom search fallback.
// Sources whose keys are missing are skipped rather than wired as no-ops.
func eventFetchers(cfg *config.Config, extractor services.EventExtractor, metrics *services.FetchMetrics, logger *logging.Logger) ([]services.EventFetcher, services.EventFetcher) {
	wrap := func(f services.EventFetcher) services.EventFetcher {
		return services.WithMetrics(services.WithRateLimit(f, cfg.FetcherRatePerSecond, logger), metrics)
	}

	var scraper services.PageScraper
	if cfg.FirecrawlAPIKey != "" {
		client, err := services.NewFireCrawlClient(cfg.FirecrawlAPIKey)
		if err != nil {
			logger.Warn("[EVENTS] firecrawl disabled", "error", err)
		} else {
			scraper = client
		}
	}

	var primary []services.EventFetcher
	if cfg.EventbriteAPIKey != "" {
		primary = append(primary, wrap(services.NewEventbriteFetcher(cfg.EventbriteAPIKey, logger)))
	}
	if cfg.GoogleMapsAPIKey != "" {
		primary = append(primary, wrap(services.NewPlacesFetcher(cfg.GoogleMapsAPIKey, logger)))
	}
	if scraper != nil {
		primary = append(primary, wrap(services.NewStructuredScrapeFetcher(scraper, extractor, cfg.ScrapeTargets, cfg.GuessedDomainScraping, logger)))
	}
	switch {
	case scraper != nil:
		primary = append(primary, wrap(services.NewCommunityScrapeFetcher(scraper, nil, cfg.GuessedDomainScraping, logger)))
	case cfg.CommunityDirectFetch:
		primary = append(primary, wrap(services.NewCommunityScrapeFetcher(nil, services.NewPageReader(), cfg.GuessedDomainScraping, logger)))
	}

	var fallback services.EventFetcher
	if cfg.GoogleSearchAPIKey != "" && cfg.GoogleSearchEngineID != "" {
		fallback = wrap(services.NewCustomSearchFetcher(cfg.GoogleSearchAPIKey, cfg.GoogleSearchEngineID, logger))
	}
	return primary, fallback
}

// conceptStore picks the shared concept cache tier: DynamoDB when a table is
// configured, else Redis, else none (in-process LRU only).
func conceptStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (services.ConceptStore, error) {
	switch {
	case cfg.ConceptCacheTable != "":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return services.NewDynamoConceptStore(dynamodb.NewFromConfig(awsCfg), cfg.ConceptCacheTable), nil
	case cfg.RedisURL != "":
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		store, err := services.NewRedisConceptStore(pingCtx, cfg.RedisURL)
		if err != nil {
			logger.Warn("[CACHE] redis unavailable, using in-process cache only", "error", err)
			return nil, nil
		}
		return store, nil
	}
	return nil, nil
}

func storeName(store services.ConceptStore) string {
	if store == nil {
		return "none"
	}
	return store.Name()
}
