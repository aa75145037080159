package services

import (
	"context"
	"errors"
	"fmt"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// Lookup failures of a generation request; the API maps each to a 404
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSurveyNotFound   = errors.New("no survey response found for this user")
	ErrScoresNotFound   = errors.New("no calculated scores found for this user")
	ErrMissingZipcode   = errors.New("user zipcode is required for recommendations")
	ErrGenerationFailed = errors.New("failed to generate recommendations")
)

// ProfileStore is the part of the record store generation reads and writes
type ProfileStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetSurveyResponse(ctx context.Context, id string) (*models.SurveyResponse, error)
	LatestSurveyResponse(ctx context.Context, userID string) (*models.SurveyResponse, error)
	GetCalculatedScores(ctx context.Context, id string) (*models.CalculatedScores, error)
	LatestCalculatedScores(ctx context.Context, userID string) (*models.CalculatedScores, error)
	SavePrompt(ctx context.Context, prompt models.GPTPrompt) (*models.GPTPrompt, error)
}

// GenerateOptions selects records and cache behavior. Empty ids mean the
// user's newest record.
type GenerateOptions struct {
	SurveyResponseID   string
	CalculatedScoresID string
	BypassCache        bool
	Count              int
}

// GenerateOutcome is what callers report back to the user
type GenerateOutcome struct {
	UserID             string
	Recommendations    string
	Structured         []models.Recommendation
	Method             string
	Stats              map[string]int
	Warning            string
	UserLocation       string
	PromptID           string
	SurveyResponseID   string
	CalculatedScoresID string
}

// RecommendationService loads a user's records, runs the generation
// strategies in order and stores the result
type RecommendationService struct {
	store      ProfileStore
	geocoder   LocationResolver
	strategies []Strategy
	count      int
	metrics    *FetchMetrics
	logger     *logging.Logger
}

// NewRecommendationService creates the service. count is the default number
// of recommendations per request.
func NewRecommendationService(store ProfileStore, geocoder LocationResolver, count int, metrics *FetchMetrics, logger *logging.Logger, strategies ...Strategy) *RecommendationService {
	if count <= 0 {
		count = 5
	}
	return &RecommendationService{
		store:      store,
		geocoder:   geocoder,
		strategies: strategies,
		count:      count,
		metrics:    metrics,
		logger:     logging.OrNop(logger),
	}
}

// Generate produces and stores recommendations for userID. A failed prompt
// save does not fail the request; it is reported as a warning.
func (s *RecommendationService) Generate(ctx context.Context, userID string, opts GenerateOptions) (*GenerateOutcome, error) {
	input, err := s.loadInput(ctx, userID, opts)
	if err != nil {
		return nil, err
	}

	result, failures, err := TryInOrder(ctx, *input, s.metrics, s.logger, s.strategies...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if len(failures) > 0 {
		s.logger.Info("[API] fell back to later strategy", "user_id", userID, "method", result.Method, "failed", len(failures))
	}

	outcome := &GenerateOutcome{
		UserID:             userID,
		Recommendations:    result.Text,
		Structured:         result.Recommendations,
		Method:             result.Method,
		Stats:              result.Stats,
		UserLocation:       input.Location.String(),
		SurveyResponseID:   input.Survey.ID,
		CalculatedScoresID: input.Scores.ID,
	}

	saved, err := s.store.SavePrompt(ctx, models.GPTPrompt{
		UserID:                   userID,
		SurveyResponseID:         input.Survey.ID,
		CalculatedScoresID:       input.Scores.ID,
		PromptText:               result.PromptText,
		RecommendationsGenerated: result.Text,
	})
	if err != nil {
		s.logger.Error("[AIRTABLE] failed to save prompt", "user_id", userID, "error", err)
		outcome.Warning = "Failed to save to Airtable: " + err.Error()
	} else {
		outcome.PromptID = saved.ID
	}

	s.logger.Info("[API] recommendations generated", "user_id", userID, "method", result.Method)
	return outcome, nil
}

// loadInput resolves the user, survey and scores. Explicit ids are fetched
// directly, missing ones fall back to the user's newest linked record.
func (s *RecommendationService) loadInput(ctx context.Context, userID string, opts GenerateOptions) (*GenerationInput, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var survey *models.SurveyResponse
	if opts.SurveyResponseID != "" {
		survey, err = s.store.GetSurveyResponse(ctx, opts.SurveyResponseID)
	} else {
		survey, err = s.store.LatestSurveyResponse(ctx, userID)
	}
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to load survey response: %w", err)
	}

	var scores *models.CalculatedScores
	if opts.CalculatedScoresID != "" {
		scores, err = s.store.GetCalculatedScores(ctx, opts.CalculatedScoresID)
	} else {
		scores, err = s.store.LatestCalculatedScores(ctx, userID)
	}
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrScoresNotFound
		}
		return nil, fmt.Errorf("failed to load calculated scores: %w", err)
	}
	scores.ApplyDefaults()

	if user.Zipcode == "" {
		return nil, ErrMissingZipcode
	}

	count := opts.Count
	if count <= 0 {
		count = s.count
	}

	return &GenerationInput{
		User:        user,
		Survey:      survey,
		Scores:      scores,
		Location:    s.ResolveLocation(ctx, user.Zipcode),
		Count:       count,
		BypassCache: opts.BypassCache,
	}, nil
}

// ResolveLocation geocodes a postal code, substituting the default location
func (s *RecommendationService) ResolveLocation(ctx context.Context, postalCode string) models.Location {
	if s.geocoder != nil && postalCode != "" {
		if location := s.geocoder.Geocode(ctx, postalCode); location != nil {
			return *location
		}
	}
	return DefaultLocation
}
