package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process-wide configuration. Optional provider keys left empty
// disable the matching event source.
type Config struct {
	Environment string
	Port        string

	AirtableAPIKey string
	AirtableBaseID string
	AirtableURL    string

	OpenAIAPIKey       string
	OpenAIConceptModel string
	OpenAIModel        string

	RecommendationsCount int
	TestMode             bool
	DebugEvents          bool

	EventbriteAPIKey     string
	GoogleMapsAPIKey     string
	GoogleSearchAPIKey   string
	GoogleSearchEngineID string
	FirecrawlAPIKey      string

	GuessedDomainScraping bool
	CommunityDirectFetch  bool
	ScrapeTargets         []string
	FetcherRatePerSecond  float64

	AWSRegion              string
	S3BucketName           string
	ConceptCacheTable      string
	ConceptCacheSize       int
	RedisURL               string
	RegenerateFunctionName string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "")
	v.SetDefault("NODE_ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("AIRTABLE_API_URL", "https://api.airtable.com/v0")
	v.SetDefault("OPENAI_CONCEPT_MODEL", "gpt-4o")
	v.SetDefault("OPENAI_MODEL", "gpt-4-turbo")
	v.SetDefault("RECOMMENDATIONS_COUNT", 5)
	v.SetDefault("TEST_MODE", false)
	v.SetDefault("DEBUG_EVENTS", false)
	v.SetDefault("GUESSED_DOMAIN_SCRAPING", true)
	v.SetDefault("COMMUNITY_DIRECT_FETCH", false)
	v.SetDefault("SCRAPE_TARGETS", "")
	v.SetDefault("FETCHER_RATE_PER_SECOND", 5.0)
	v.SetDefault("AWS_REGION", "us-west-2")
	v.SetDefault("CONCEPT_CACHE_SIZE", 512)
}

// Load reads .env when present and then the process environment. Numeric and
// boolean settings that do not parse are reported together.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

// envParser reads typed settings and collects the ones that fail to parse
type envParser struct {
	v    *viper.Viper
	errs []error
}

func (p *envParser) intValue(key string) int {
	raw := strings.TrimSpace(p.v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be an integer, got %q", key, raw))
	}
	return n
}

func (p *envParser) floatValue(key string) float64 {
	raw := strings.TrimSpace(p.v.GetString(key))
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be a number, got %q", key, raw))
	}
	return f
}

func (p *envParser) boolValue(key string) bool {
	raw := strings.TrimSpace(p.v.GetString(key))
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be true or false, got %q", key, raw))
	}
	return b
}

func fromViper(v *viper.Viper) (*Config, error) {
	p := &envParser{v: v}

	env := v.GetString("APP_ENV")
	if env == "" {
		env = v.GetString("NODE_ENV")
	}

	count := p.intValue("RECOMMENDATIONS_COUNT")
	if count <= 0 {
		count = 5
	}
	testMode := p.boolValue("TEST_MODE")
	if testMode {
		count = 1
	}

	cacheSize := p.intValue("CONCEPT_CACHE_SIZE")
	if cacheSize <= 0 {
		cacheSize = 512
	}

	cfg := &Config{
		Environment: env,
		Port:        v.GetString("PORT"),

		AirtableAPIKey: v.GetString("AIRTABLE_API_KEY"),
		AirtableBaseID: v.GetString("AIRTABLE_BASE_ID"),
		AirtableURL:    v.GetString("AIRTABLE_API_URL"),

		OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
		OpenAIConceptModel: v.GetString("OPENAI_CONCEPT_MODEL"),
		OpenAIModel:        v.GetString("OPENAI_MODEL"),

		RecommendationsCount: count,
		TestMode:             testMode,
		DebugEvents:          p.boolValue("DEBUG_EVENTS"),

		EventbriteAPIKey:     v.GetString("EVENTBRITE_API_KEY"),
		GoogleMapsAPIKey:     v.GetString("GOOGLE_MAPS_API_KEY"),
		GoogleSearchAPIKey:   v.GetString("GOOGLE_SEARCH_API_KEY"),
		GoogleSearchEngineID: v.GetString("GOOGLE_SEARCH_ENGINE_ID"),
		FirecrawlAPIKey:      v.GetString("FIRECRAWL_API_KEY"),

		GuessedDomainScraping: p.boolValue("GUESSED_DOMAIN_SCRAPING"),
		CommunityDirectFetch:  p.boolValue("COMMUNITY_DIRECT_FETCH"),
		ScrapeTargets:         splitList(v.GetString("SCRAPE_TARGETS")),
		FetcherRatePerSecond:  p.floatValue("FETCHER_RATE_PER_SECOND"),

		AWSRegion:              v.GetString("AWS_REGION"),
		S3BucketName:           v.GetString("S3_BUCKET_NAME"),
		ConceptCacheTable:      v.GetString("CONCEPT_CACHE_TABLE"),
		ConceptCacheSize:       cacheSize,
		RedisURL:               v.GetString("REDIS_URL"),
		RegenerateFunctionName: v.GetString("REGENERATE_FUNCTION_NAME"),
	}
	if len(p.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(p.errs...))
	}
	return cfg, nil
}

// Validate checks the providers the service cannot run without
func (c *Config) Validate() error {
	var missing []string
	if c.AirtableAPIKey == "" {
		missing = append(missing, "AIRTABLE_API_KEY")
	}
	if c.AirtableBaseID == "" {
		missing = append(missing, "AIRTABLE_BASE_ID")
	}
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s must be set in environment variables", strings.Join(missing, ", "))
	}
	return nil
}

// IsProduction selects the production logger config
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
