package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-activity-recommender/internal/models"
)

type fakeProfileStore struct {
	users   map[string]*models.User
	surveys map[string]*models.SurveyResponse
	scores  map[string]*models.CalculatedScores
	saveErr error
	loadErr error
	saved   []models.GPTPrompt
}

func newFakeProfileStore() *fakeProfileStore {
	input := generationInput()
	return &fakeProfileStore{
		users:   map[string]*models.User{"recUser": input.User},
		surveys: map[string]*models.SurveyResponse{"recSurvey": input.Survey},
		scores:  map[string]*models.CalculatedScores{"recScores": input.Scores},
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func (f *fakeProfileStore) GetUser(_ context.Context, id string) (*models.User, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, notFound("user", id)
}

func (f *fakeProfileStore) GetSurveyResponse(_ context.Context, id string) (*models.SurveyResponse, error) {
	if s, ok := f.surveys[id]; ok {
		return s, nil
	}
	return nil, notFound("survey", id)
}

func (f *fakeProfileStore) LatestSurveyResponse(_ context.Context, userID string) (*models.SurveyResponse, error) {
	for _, s := range f.surveys {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, notFound("survey for", userID)
}

func (f *fakeProfileStore) GetCalculatedScores(_ context.Context, id string) (*models.CalculatedScores, error) {
	if s, ok := f.scores[id]; ok {
		return s, nil
	}
	return nil, notFound("scores", id)
}

func (f *fakeProfileStore) LatestCalculatedScores(_ context.Context, userID string) (*models.CalculatedScores, error) {
	for _, s := range f.scores {
		return s, nil
	}
	return nil, notFound("scores for", userID)
}

func (f *fakeProfileStore) SavePrompt(_ context.Context, prompt models.GPTPrompt) (*models.GPTPrompt, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	prompt.ID = fmt.Sprintf("recPrompt%d", len(f.saved)+1)
	f.saved = append(f.saved, prompt)
	return &prompt, nil
}

func TestRecommendationService_Generate(t *testing.T) {
	store := newFakeProfileStore()
	strategy := &namedStrategy{name: MethodConceptual}
	geocoder := stubGeocoder{location: &models.Location{City: "Austin", State: "TX"}}
	service := NewRecommendationService(store, geocoder, 5, nil, nil, strategy)

	outcome, err := service.Generate(context.Background(), "recUser", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, MethodConceptual, outcome.Method)
	assert.Equal(t, "Austin, TX", outcome.UserLocation)
	assert.Equal(t, "recPrompt1", outcome.PromptID)
	assert.Empty(t, outcome.Warning)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "recSurvey", store.saved[0].SurveyResponseID)
	assert.Equal(t, "recScores", store.saved[0].CalculatedScoresID)
}

func TestRecommendationService_LookupErrors(t *testing.T) {
	testCases := []struct {
		name     string
		userID   string
		opts     GenerateOptions
		mutate   func(f *fakeProfileStore)
		expected error
	}{
		{"unknown user", "recMissing", GenerateOptions{}, nil, ErrUserNotFound},
		{"no survey", "recUser", GenerateOptions{}, func(f *fakeProfileStore) { f.surveys = nil }, ErrSurveyNotFound},
		{"explicit survey missing", "recUser", GenerateOptions{SurveyResponseID: "recOther"}, nil, ErrSurveyNotFound},
		{"no scores", "recUser", GenerateOptions{}, func(f *fakeProfileStore) { f.scores = nil }, ErrScoresNotFound},
		{"missing zipcode", "recUser", GenerateOptions{}, func(f *fakeProfileStore) { f.users["recUser"].Zipcode = "" }, ErrMissingZipcode},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeProfileStore()
			if tc.mutate != nil {
				tc.mutate(store)
			}
			service := NewRecommendationService(store, nil, 5, nil, nil, &namedStrategy{name: "a"})
			_, err := service.Generate(context.Background(), tc.userID, tc.opts)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestRecommendationService_StoreFailureIsNotNotFound(t *testing.T) {
	store := newFakeProfileStore()
	store.loadErr = errors.New("airtable unavailable")
	service := NewRecommendationService(store, nil, 5, nil, nil, &namedStrategy{name: "a"})

	_, err := service.Generate(context.Background(), "recUser", GenerateOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestRecommendationService_SaveFailureIsWarning(t *testing.T) {
	store := newFakeProfileStore()
	store.saveErr = errors.New("422 INVALID_VALUE_FOR_COLUMN")
	service := NewRecommendationService(store, nil, 5, nil, nil, &namedStrategy{name: MethodConceptual})

	outcome, err := service.Generate(context.Background(), "recUser", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Failed to save to Airtable: 422 INVALID_VALUE_FOR_COLUMN", outcome.Warning)
	assert.Empty(t, outcome.PromptID)
	assert.Equal(t, "Charlottesville, VA", outcome.UserLocation)
}

func TestRecommendationService_GenerationFailure(t *testing.T) {
	service := NewRecommendationService(newFakeProfileStore(), nil, 5, nil, nil,
		&namedStrategy{name: "a", err: errors.New("timeout")})

	_, err := service.Generate(context.Background(), "recUser", GenerateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "timeout")
}

type countingStrategy struct {
	input GenerationInput
}

func (s *countingStrategy) Name() string { return "counting" }

func (s *countingStrategy) Generate(_ context.Context, input GenerationInput) (*GenerationResult, error) {
	s.input = input
	return &GenerationResult{Method: "counting"}, nil
}

func TestRecommendationService_CountAndDefaults(t *testing.T) {
	store := newFakeProfileStore()
	store.scores["recScores"].ExtraversionCategory = ""
	strategy := &countingStrategy{}
	service := NewRecommendationService(store, nil, 0, nil, nil, strategy)

	_, err := service.Generate(context.Background(), "recUser", GenerateOptions{BypassCache: true})
	require.NoError(t, err)
	assert.Equal(t, 5, strategy.input.Count)
	assert.True(t, strategy.input.BypassCache)
	assert.Equal(t, models.TraitMedium, strategy.input.Scores.ExtraversionCategory)

	_, err = service.Generate(context.Background(), "recUser", GenerateOptions{Count: 8})
	require.NoError(t, err)
	assert.Equal(t, 8, strategy.input.Count)
}
