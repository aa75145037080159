package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// Generation methods reported to callers and stored with prompts
const (
	MethodConceptual = "conceptual_only"
	MethodLegacy     = "legacy"
)

const (
	conceptSystemPrompt = "You are an expert social psychologist and activity recommender. You deeply understand personality types, social preferences, and what makes people thrive. Always respond with valid JSON only."
	legacySystemPrompt  = "You are an expert social activity recommendation engine."

	conceptTimeout   = 60 * time.Second
	conceptMaxTokens = 2500
	legacyTimeout    = 90 * time.Second

	recommendationSeparator = "\n\n---\n\n"
)

// Completer sends one chat completion
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// EventSource aggregates real events for a profile
type EventSource interface {
	Collect(ctx context.Context, profile models.UserProfile) AggregationResult
}

// GenerationInput is everything a strategy needs. Location is already
// resolved; Count is the number of recommendations to ask for.
type GenerationInput struct {
	User        *models.User
	Survey      *models.SurveyResponse
	Scores      *models.CalculatedScores
	Location    models.Location
	Count       int
	BypassCache bool
}

// GenerationResult is the output of one successful strategy
type GenerationResult struct {
	Method          string
	Text            string
	PromptText      string
	Concepts        []models.Concept
	Recommendations []models.Recommendation
	Events          []models.Event
	Stats           map[string]int
}

// Strategy is one way of producing recommendations
type Strategy interface {
	Name() string
	Generate(ctx context.Context, input GenerationInput) (*GenerationResult, error)
}

// StrategyError records why one strategy failed
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// ErrNoStrategies is returned when TryInOrder is called with nothing to run
var ErrNoStrategies = errors.New("no generation strategies configured")

// TryInOrder runs strategies until one succeeds. It returns that result and
// the errors of the strategies that failed before it. When all fail the
// result is nil and the error joins every failure.
func TryInOrder(ctx context.Context, input GenerationInput, metrics *FetchMetrics, logger *logging.Logger, strategies ...Strategy) (*GenerationResult, []error, error) {
	logger = logging.OrNop(logger)
	if len(strategies) == 0 {
		return nil, nil, ErrNoStrategies
	}

	var failures []error
	for _, strategy := range strategies {
		start := time.Now()
		result, err := strategy.Generate(ctx, input)
		metrics.RecordGeneration(strategy.Name(), err == nil, time.Since(start))
		if err == nil {
			return result, failures, nil
		}

		logger.Warn("[OPENAI] generation strategy failed", "strategy", strategy.Name(), "error", err)
		failures = append(failures, &StrategyError{Strategy: strategy.Name(), Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return nil, failures, errors.Join(failures...)
}

// ConceptualStrategy asks for idealized activity concepts as JSON. Concepts
// are cached per user, survey and concept-shaping answers.
type ConceptualStrategy struct {
	client Completer
	model  string
	cache  *ConceptCache
	logger *logging.Logger
}

// NewConceptualStrategy creates the strategy. cache may be nil.
func NewConceptualStrategy(client Completer, model string, cache *ConceptCache, logger *logging.Logger) *ConceptualStrategy {
	return &ConceptualStrategy{
		client: client,
		model:  model,
		cache:  cache,
		logger: logging.OrNop(logger),
	}
}

func (s *ConceptualStrategy) Name() string {
	return MethodConceptual
}

func (s *ConceptualStrategy) Generate(ctx context.Context, input GenerationInput) (*GenerationResult, error) {
	location := input.Location.String()
	key := ConceptCacheKey(input.User.ID, input.Survey.ID, input.Survey)

	var concepts []models.Concept
	if s.cache != nil && !input.BypassCache {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.Info("[CACHE] using cached concepts", "user_id", input.User.ID)
			concepts = cached
		}
	}

	if concepts == nil {
		prompt := BuildConceptualPrompt(input.User, input.Survey, input.Scores, location, input.Count)
		response, err := s.client.Complete(ctx, CompletionRequest{
			Model:       s.model,
			System:      conceptSystemPrompt,
			Prompt:      prompt,
			Temperature: 0.7,
			MaxTokens:   conceptMaxTokens,
			JSONMode:    true,
			Timeout:     conceptTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("conceptual generation failed: %w", err)
		}

		concepts, err = normalizeConcepts(response, input.Count)
		if err != nil {
			return nil, fmt.Errorf("conceptual generation failed: %w", err)
		}
		if len(concepts) == 0 {
			return nil, fmt.Errorf("conceptual generation failed: response held no concepts")
		}
		if s.cache != nil {
			s.cache.Set(ctx, key, concepts)
		}
	}

	recommendations := formatConceptualRecommendations(concepts, location)
	promptText, err := json.MarshalIndent(map[string]interface{}{
		"concepts": concepts,
		"method":   MethodConceptual,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode concepts: %w", err)
	}

	return &GenerationResult{
		Method:          MethodConceptual,
		Text:            recommendationsText(recommendations),
		PromptText:      string(promptText),
		Concepts:        concepts,
		Recommendations: recommendations,
		Stats: map[string]int{
			"conceptsGenerated":       len(concepts),
			"recommendationsReturned": len(recommendations),
		},
	}, nil
}

// formatConceptualRecommendations turns concepts into display records.
// Concepts have no real schedule or page.
func formatConceptualRecommendations(concepts []models.Concept, location string) []models.Recommendation {
	recommendations := make([]models.Recommendation, 0, len(concepts))
	for _, concept := range concepts {
		date, clock := "Check schedule", "TBD"
		if concept.IsRecurring {
			date, clock = "Ongoing", "Varies"
		}
		recommendations = append(recommendations, models.Recommendation{
			Name:         concept.ConceptName,
			URL:          "#",
			WhyItMatches: concept.WhyItMatches,
			Date:         date,
			Time:         clock,
			Location:     location,
			Recurring:    concept.IsRecurring,
			Category:     orDefault(concept.Category, "General"),
			IsConceptual: true,
		})
	}
	return recommendations
}

func recommendationsText(recommendations []models.Recommendation) string {
	blocks := make([]string, 0, len(recommendations))
	for _, r := range recommendations {
		blocks = append(blocks, r.Text())
	}
	return strings.Join(blocks, recommendationSeparator)
}

// normalizeConcepts decodes the model's concept list and fills missing
// fields. The list may be a bare array or sit under "concepts" or "data".
func normalizeConcepts(response string, count int) ([]models.Concept, error) {
	var raw []map[string]interface{}
	if err := decodeListResponse(response, []string{"concepts", "data"}, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse concepts: %w", err)
	}
	if count > 0 && len(raw) > count {
		raw = raw[:count]
	}

	concepts := make([]models.Concept, 0, len(raw))
	for i, item := range raw {
		concepts = append(concepts, normalizeConcept(item, i))
	}
	return concepts, nil
}

func normalizeConcept(item map[string]interface{}, index int) models.Concept {
	name := firstNonEmpty(fieldString(item, "conceptName"), fieldString(item, "name"))
	if name == "" {
		name = fmt.Sprintf("Concept %d", index+1)
	}

	concept := models.Concept{
		ConceptName:  name,
		Category:     orDefault(fieldString(item, "category"), "General"),
		WhyItMatches: firstNonEmpty(fieldString(item, "whyItMatches"), fieldString(item, "why"), "Matches user profile"),
		IdealCharacteristics: models.IdealCharacteristics{
			Setting:        "mixed",
			GroupSize:      "medium",
			Atmosphere:     "welcoming",
			TimeCommitment: "2-3 hours",
		},
		SearchQueries: limitStrings(conceptStrings(item["searchQueries"]), 5),
		Keywords:      limitStrings(conceptStrings(item["keywords"]), 10),
		IsRecurring:   index%2 == 0,
		Priority:      min(5, index+1),
	}

	if ideal, ok := item["idealCharacteristics"].(map[string]interface{}); ok {
		c := &concept.IdealCharacteristics
		c.Setting = orDefault(fieldString(ideal, "setting"), c.Setting)
		c.GroupSize = orDefault(fieldString(ideal, "groupSize"), c.GroupSize)
		c.Atmosphere = orDefault(fieldString(ideal, "atmosphere"), c.Atmosphere)
		c.TimeCommitment = orDefault(fieldString(ideal, "timeCommitment"), c.TimeCommitment)
	}
	if recurring, ok := item["isRecurring"].(bool); ok {
		concept.IsRecurring = recurring
	}
	if priority, ok := item["priority"].(float64); ok {
		concept.Priority = int(priority)
	}
	return concept
}

// conceptStrings accepts a list of strings or a single string
func conceptStrings(raw interface{}) []string {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		return []string{v}
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				values = append(values, s)
			}
		}
		return values
	}
	return []string{}
}

func limitStrings(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// LegacyStrategy grounds a free-text prompt in real aggregated events
type LegacyStrategy struct {
	client Completer
	model  string
	events EventSource
	logger *logging.Logger
}

// NewLegacyStrategy creates the strategy. events may be nil, in which case
// the prompt asks for conceptual suggestions.
func NewLegacyStrategy(client Completer, model string, events EventSource, logger *logging.Logger) *LegacyStrategy {
	return &LegacyStrategy{
		client: client,
		model:  model,
		events: events,
		logger: logging.OrNop(logger),
	}
}

func (s *LegacyStrategy) Name() string {
	return MethodLegacy
}

// legacyMaxTokens scales with the requested count
func legacyMaxTokens(count int) int {
	return max(1000, count*300+500)
}

func (s *LegacyStrategy) Generate(ctx context.Context, input GenerationInput) (*GenerationResult, error) {
	location := input.Location
	var events []models.Event
	if s.events != nil {
		result := s.events.Collect(ctx, models.UserProfile{
			PostalCode:        input.User.Zipcode,
			Categories:        input.Survey.Interests.Categories,
			SpecificInterests: input.Survey.Interests.Specific,
		})
		events = result.Events
		location = result.Location
	}

	prompt := BuildRecommendationPrompt(input.User, input.Survey, input.Scores, events, location.String(), input.Count)
	response, err := s.client.Complete(ctx, CompletionRequest{
		Model:       s.model,
		System:      legacySystemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   legacyMaxTokens(input.Count),
		Timeout:     legacyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("legacy generation failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("legacy generation failed: empty response")
	}

	return &GenerationResult{
		Method:     MethodLegacy,
		Text:       response,
		PromptText: prompt,
		Events:     events,
		Stats: map[string]int{
			"eventsConsidered": len(events),
		},
	}, nil
}
