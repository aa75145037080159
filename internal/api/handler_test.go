package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-activity-recommender/internal/models"
	"social-activity-recommender/internal/services"
)

func notFound(what string) error {
	return fmt.Errorf("failed to find %s: %w", what, services.ErrNotFound)
}

type fakeStore struct {
	users    map[string]*models.User
	surveys  map[string]*models.SurveyResponse
	prompts  map[string]*models.GPTPrompt
	storeErr error
	saveErr  error

	calls       []string
	updatedUser models.User
	feedback    []models.Feedback
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string]*models.User{
			"recAda": {ID: "recAda", Name: "Ada", Username: "ada", Email: "ada@example.com", Age: 31, Gender: "Female", Zipcode: "22901"},
		},
		surveys: map[string]*models.SurveyResponse{
			"recAda": {ID: "recSurvey", UserID: "recAda", SurveyAnswers: models.SurveyAnswers{
				Interests: models.InterestAnswers{Categories: []string{"Arts & Culture"}, Specific: "pottery"},
			}},
		},
		prompts: map[string]*models.GPTPrompt{},
	}
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*models.User, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, &services.HTTPStatusError{Service: "airtable", StatusCode: http.StatusNotFound}
}

func (f *fakeStore) findUser(match func(*models.User) bool) (*models.User, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	for _, user := range f.users {
		if match(user) {
			return user, nil
		}
	}
	return nil, notFound("user")
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return f.findUser(func(u *models.User) bool { return u.Username == username })
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.findUser(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeStore) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	f.calls = append(f.calls, "CreateUser")
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	user.ID = "recNew"
	f.users[user.ID] = &user
	return &user, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, user models.User) error {
	f.calls = append(f.calls, "UpdateUser")
	f.updatedUser = user
	return f.saveErr
}

func (f *fakeStore) CreateSurveyResponse(_ context.Context, userID string, answers models.SurveyAnswers) (*models.SurveyResponse, error) {
	f.calls = append(f.calls, "CreateSurveyResponse")
	return &models.SurveyResponse{ID: "recNewSurvey", UserID: userID, SurveyAnswers: answers}, nil
}

func (f *fakeStore) UpdateSurveyResponse(_ context.Context, id string, answers models.SurveyAnswers) (*models.SurveyResponse, error) {
	f.calls = append(f.calls, "UpdateSurveyResponse:"+id)
	return &models.SurveyResponse{ID: id, SurveyAnswers: answers}, nil
}

func (f *fakeStore) LatestSurveyResponse(_ context.Context, userID string) (*models.SurveyResponse, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	if survey, ok := f.surveys[userID]; ok {
		return survey, nil
	}
	return nil, notFound("survey response")
}

func (f *fakeStore) CreateCalculatedScores(_ context.Context, userID, surveyResponseID string) (*models.CalculatedScores, error) {
	f.calls = append(f.calls, "CreateCalculatedScores")
	return &models.CalculatedScores{ID: "recNewScores", UserID: userID, SurveyResponseID: surveyResponseID}, nil
}

func (f *fakeStore) UpdateCalculatedScores(_ context.Context, userID, surveyResponseID string) (*models.CalculatedScores, error) {
	f.calls = append(f.calls, "UpdateCalculatedScores:"+surveyResponseID)
	return &models.CalculatedScores{ID: "recScores", UserID: userID, SurveyResponseID: surveyResponseID}, nil
}

func (f *fakeStore) LatestPrompt(_ context.Context, userID string) (*models.GPTPrompt, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	if prompt, ok := f.prompts[userID]; ok {
		return prompt, nil
	}
	return nil, notFound("prompt")
}

func (f *fakeStore) SaveFeedback(_ context.Context, feedback models.Feedback) error {
	f.feedback = append(f.feedback, feedback)
	return f.saveErr
}

type fakeGenerator struct {
	outcome *services.GenerateOutcome
	err     error
	userID  string
	opts    services.GenerateOptions
}

func (g *fakeGenerator) Generate(_ context.Context, userID string, opts services.GenerateOptions) (*services.GenerateOutcome, error) {
	g.userID = userID
	g.opts = opts
	if g.err != nil {
		return nil, g.err
	}
	return g.outcome, nil
}

type fakeDispatcher struct {
	events []services.RegenerateEvent
	err    error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, event services.RegenerateEvent) (string, error) {
	d.events = append(d.events, event)
	return "req-1", d.err
}

type fixedGeocoder struct {
	location *models.Location
}

func (g fixedGeocoder) Geocode(context.Context, string) *models.Location {
	return g.location
}

func conceptualOutcome() *services.GenerateOutcome {
	return &services.GenerateOutcome{
		UserID:          "recAda",
		Recommendations: "Pottery Circle\nSmall groups meeting weekly for wheel throwing\nOngoing Varies at Charlottesville, VA\n#",
		Method:          services.MethodConceptual,
		Stats:           map[string]int{"total": 1},
		UserLocation:    "Charlottesville, VA",
	}
}

func newTestHandler(store *fakeStore, gen *fakeGenerator) *Handler {
	h := NewHandler(Config{
		Store:       store,
		Generator:   gen,
		Geocoder:    fixedGeocoder{location: &models.Location{City: "Charlottesville", State: "VA"}},
		Environment: "test",
	})
	h.now = func() time.Time { return time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func jsonBody(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func validSubmission() map[string]interface{} {
	return map[string]interface{}{
		"name": "Ada", "username": "ada", "email": "ada@example.com", "age": 31,
		"gender": "Female", "zipcode": "22901",
		"personality": map[string]int{"q1": 5, "q6": 3, "q3": 6, "q8": 2, "q5": 7, "q10": 1},
		"motivation":  map[string]int{"m1": 4, "m2": 5, "m3": 3, "m4": 4, "m5": 5, "m6": 2},
		"interests":   map[string]interface{}{"categories": []string{"arts"}, "specific": "pottery"},
	}
}

func TestHealth(t *testing.T) {
	resp := newTestHandler(newFakeStore(), &fakeGenerator{}).Health(context.Background(), Request{})
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, Body{
		"success":     true,
		"status":      "healthy",
		"timestamp":   "2025-10-01T12:00:00Z",
		"environment": "test",
	}, resp.Body)
}

func TestSubmitSurvey_New(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{outcome: conceptualOutcome()}
	h := newTestHandler(store, gen)

	resp := h.SubmitSurvey(context.Background(), Request{Body: jsonBody(t, validSubmission())})

	require.Equal(t, http.StatusCreated, resp.Status, resp.Body)
	assert.Equal(t, "recNew", resp.Body["userId"])
	assert.Equal(t, "Survey submitted successfully and recommendations generated", resp.Body["message"])
	assert.Equal(t, []string{"CreateUser", "CreateSurveyResponse", "CreateCalculatedScores"}, store.calls)
	assert.Equal(t, "recNew", gen.userID)
	assert.Equal(t, services.GenerateOptions{SurveyResponseID: "recNewSurvey", CalculatedScoresID: "recNewScores"}, gen.opts)
}

func TestSubmitSurvey_Edit(t *testing.T) {
	store := newFakeStore()
	outcome := conceptualOutcome()
	outcome.Method = services.MethodLegacy
	h := newTestHandler(store, &fakeGenerator{outcome: outcome})

	sub := validSubmission()
	sub["isEdit"] = true
	sub["userId"] = "recAda"
	sub["name"] = "  Ada L.  "

	resp := h.SubmitSurvey(context.Background(), Request{Body: jsonBody(t, sub)})

	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.Equal(t, "Survey updated successfully and recommendations regenerated (legacy system)", resp.Body["message"])
	assert.Equal(t, []string{"UpdateUser", "UpdateSurveyResponse:recSurvey", "UpdateCalculatedScores:recSurvey"}, store.calls)
	assert.Equal(t, "recAda", store.updatedUser.ID)
	assert.Equal(t, "Ada L.", store.updatedUser.Name)
}

func TestSubmitSurvey_Errors(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		resp := newTestHandler(newFakeStore(), &fakeGenerator{}).SubmitSurvey(context.Background(), Request{})
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "Request body is required", resp.Body["error"])
	})

	t.Run("validation", func(t *testing.T) {
		sub := validSubmission()
		sub["zipcode"] = "2290"
		resp := newTestHandler(newFakeStore(), &fakeGenerator{}).SubmitSurvey(context.Background(), Request{Body: jsonBody(t, sub)})
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "Valid zipcode is required (5 digits)", resp.Body["error"])
	})

	t.Run("wrongly typed fields", func(t *testing.T) {
		tests := []struct {
			field    string
			value    interface{}
			expected string
		}{
			{"age", 30.5, "Valid age is required (1-120)"},
			{"age", "31", "Valid age is required (1-120)"},
			{"personality", map[string]interface{}{"q1": "5", "q6": 3, "q3": 6, "q8": 2, "q5": 7, "q10": 1}, "Personality question q1 must be a number between 1 and 7"},
			{"motivation", map[string]interface{}{"m1": 4, "m2": 5, "m3": 3, "m4": 4, "m5": 5, "m6": "2"}, "Motivation question m6 must be a number between 1 and 5"},
		}
		for _, tt := range tests {
			sub := validSubmission()
			sub[tt.field] = tt.value
			resp := newTestHandler(newFakeStore(), &fakeGenerator{}).SubmitSurvey(context.Background(), Request{Body: jsonBody(t, sub)})
			assert.Equal(t, http.StatusBadRequest, resp.Status)
			assert.Equal(t, tt.expected, resp.Body["error"])
		}
	})

	t.Run("edit flag without user id creates", func(t *testing.T) {
		store := newFakeStore()
		sub := validSubmission()
		sub["isEdit"] = true
		resp := newTestHandler(store, &fakeGenerator{outcome: conceptualOutcome()}).SubmitSurvey(context.Background(), Request{Body: jsonBody(t, sub)})
		assert.Equal(t, http.StatusCreated, resp.Status)
		assert.Equal(t, "CreateUser", store.calls[0])
	})

	t.Run("edit without survey", func(t *testing.T) {
		store := newFakeStore()
		delete(store.surveys, "recAda")
		sub := validSubmission()
		sub["isEdit"] = true
		sub["userId"] = "recAda"
		resp := newTestHandler(store, &fakeGenerator{}).SubmitSurvey(context.Background(), Request{Body: jsonBody(t, sub)})
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.Equal(t, "No survey response found to update", resp.Body["error"])
	})

	t.Run("store failure", func(t *testing.T) {
		store := newFakeStore()
		store.saveErr = errors.New("INVALID_MULTIPLE_CHOICE_OPTIONS")
		resp := newTestHandler(store, &fakeGenerator{}).SubmitSurvey(context.Background(), Request{Body: jsonBody(t, validSubmission())})
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.Equal(t, "Failed to create user: INVALID_MULTIPLE_CHOICE_OPTIONS", resp.Body["error"])
	})

	t.Run("generation failure", func(t *testing.T) {
		gen := &fakeGenerator{err: fmt.Errorf("%w: %w", services.ErrGenerationFailed, errors.New("openai timeout"))}
		resp := newTestHandler(newFakeStore(), gen).SubmitSurvey(context.Background(), Request{Body: jsonBody(t, validSubmission())})
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.Equal(t, "Failed to generate recommendations: openai timeout", resp.Body["error"])
	})
}

func TestGetSurvey(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeGenerator{})

	resp := h.GetSurvey(context.Background(), Request{Params: map[string]string{"userId": "recAda"}})
	require.Equal(t, http.StatusOK, resp.Status)
	form, ok := resp.Body["data"].(models.SurveyForm)
	require.True(t, ok)
	assert.Equal(t, "ada", form.Username)
	assert.Equal(t, "pottery", form.Interests.Specific)

	resp = h.GetSurvey(context.Background(), Request{Params: map[string]string{"userId": "recGhost"}})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "User not found. Please make sure you have completed the survey.", resp.Body["error"])

	store := newFakeStore()
	delete(store.surveys, "recAda")
	resp = newTestHandler(store, &fakeGenerator{}).GetSurvey(context.Background(), Request{Params: map[string]string{"userId": "recAda"}})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "No survey data found for this user", resp.Body["error"])

	store = newFakeStore()
	store.storeErr = errors.New("rate limited")
	resp = newTestHandler(store, &fakeGenerator{}).GetSurvey(context.Background(), Request{Params: map[string]string{"userId": "recAda"}})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Error fetching user: rate limited", resp.Body["error"])
}

func TestGetRecommendations(t *testing.T) {
	store := newFakeStore()
	created := time.Date(2025, 9, 30, 8, 0, 0, 0, time.UTC)
	store.prompts["recAda"] = &models.GPTPrompt{
		ID:                       "recPrompt",
		RecommendationsGenerated: "### Recommendation 1: Clay Studio Open Night\n**Why we think you'll like this:** ...\nhttps://example.com/event\n",
		CreatedTime:              created,
	}
	h := newTestHandler(store, &fakeGenerator{})

	resp := h.GetRecommendations(context.Background(), Request{Params: map[string]string{"userId": "recAda"}})
	require.Equal(t, http.StatusOK, resp.Status)
	data := resp.Body["data"].(Body)
	assert.Equal(t, "Ada", data["userName"])
	assert.Equal(t, "ada@example.com", data["userEmail"])
	assert.Equal(t, "Charlottesville, VA", data["userLocation"])
	assert.Equal(t, created, data["createdAt"])

	parsed := data["parsed"].([]models.ParsedRecommendation)
	require.Len(t, parsed, 1)
	assert.Equal(t, "Clay Studio Open Night", parsed[0].Name)

	resp = h.GetRecommendations(context.Background(), Request{Params: map[string]string{"userId": "recBob"}})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "No recommendations found for this user", resp.Body["error"])

	resp = h.GetRecommendations(context.Background(), Request{Params: map[string]string{"userId": " "}})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestGetRecommendations_UnresolvedLocation(t *testing.T) {
	store := newFakeStore()
	store.prompts["recAda"] = &models.GPTPrompt{RecommendationsGenerated: "free text"}
	h := NewHandler(Config{Store: store, Generator: &fakeGenerator{}, Geocoder: fixedGeocoder{}})

	resp := h.GetRecommendations(context.Background(), Request{Params: map[string]string{"userId": "recAda"}})
	require.Equal(t, http.StatusOK, resp.Status)
	data := resp.Body["data"].(Body)
	assert.Nil(t, data["userLocation"])
	assert.Nil(t, data["createdAt"])
	assert.Empty(t, data["parsed"])
}

func TestRegenerate(t *testing.T) {
	t.Run("conceptual", func(t *testing.T) {
		gen := &fakeGenerator{outcome: conceptualOutcome()}
		h := newTestHandler(newFakeStore(), gen)

		resp := h.Regenerate(context.Background(), Request{
			Params: map[string]string{"userId": "recAda"},
			Body:   []byte(`{"surveyResponseId":"recS2"}`),
		})
		require.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "Recommendations regenerated successfully (conceptual system)", resp.Body["message"])
		assert.Equal(t, map[string]int{"total": 1}, resp.Body["stats"])
		assert.Equal(t, "Charlottesville, VA", resp.Body["userLocation"])
		assert.True(t, gen.opts.BypassCache)
		assert.Equal(t, "recS2", gen.opts.SurveyResponseID)
	})

	t.Run("legacy with warning", func(t *testing.T) {
		outcome := conceptualOutcome()
		outcome.Method = services.MethodLegacy
		outcome.Warning = "Failed to save to Airtable: 422"
		h := newTestHandler(newFakeStore(), &fakeGenerator{outcome: outcome})

		resp := h.Regenerate(context.Background(), Request{Params: map[string]string{"userId": "recAda"}})
		require.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "legacy", resp.Body["method"])
		assert.Equal(t, "Recommendations regenerated successfully (legacy system)", resp.Body["message"])
		assert.NotContains(t, resp.Body, "stats")
		assert.Equal(t, "Failed to save to Airtable: 422", resp.Body["warning"])
	})

	t.Run("async", func(t *testing.T) {
		gen := &fakeGenerator{}
		dispatcher := &fakeDispatcher{}
		h := newTestHandler(newFakeStore(), gen)
		h.dispatcher = dispatcher

		resp := h.Regenerate(context.Background(), Request{
			Params: map[string]string{"userId": "recAda"},
			Query:  map[string]string{"async": "true"},
		})
		assert.Equal(t, http.StatusAccepted, resp.Status)
		assert.Equal(t, "req-1", resp.Body["requestId"])
		require.Len(t, dispatcher.events, 1)
		assert.Equal(t, "recAda", dispatcher.events[0].UserID)
		assert.Empty(t, gen.userID)
	})

	testCases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"user", services.ErrUserNotFound, http.StatusNotFound, "User not found. Please make sure you completed the survey."},
		{"survey", services.ErrSurveyNotFound, http.StatusNotFound, "No survey response found for this user. It looks like the survey may not have been completed successfully. Please take the survey again."},
		{"scores", services.ErrScoresNotFound, http.StatusNotFound, "No calculated scores found for this user"},
		{"generation", fmt.Errorf("%w: %w", services.ErrGenerationFailed, errors.New("all strategies failed")), http.StatusInternalServerError, "Failed to generate recommendations: all strategies failed"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(newFakeStore(), &fakeGenerator{err: tc.err})
			resp := h.Regenerate(context.Background(), Request{Params: map[string]string{"userId": "recAda"}})
			assert.Equal(t, tc.status, resp.Status)
			assert.Equal(t, tc.message, resp.Body["error"])
		})
	}
}

func TestLoginAndEmailLookup(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store, &fakeGenerator{})

	resp := h.Login(context.Background(), Request{Body: []byte(`{"username":"  ada "}`)})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, Body{"success": true, "userId": "recAda", "username": "ada", "name": "Ada"}, resp.Body)

	resp = h.Login(context.Background(), Request{Body: []byte(`{"username":""}`)})
	assert.Equal(t, "Username is required", resp.Body["error"])

	resp = h.Login(context.Background(), Request{Body: []byte(`{"username":"ghost"}`)})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "User not found", resp.Body["error"])

	resp = h.UserByEmail(context.Background(), Request{Body: []byte(`{"email":"ada@example.com"}`)})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, Body{"userId": "recAda", "userName": "Ada", "userEmail": "ada@example.com"}, resp.Body["data"])

	resp = h.UserByEmail(context.Background(), Request{})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Email is required", resp.Body["error"])

	resp = h.UserByEmail(context.Background(), Request{Body: []byte(`{"email":"nobody@example.com"}`)})
	assert.Equal(t, "No account found with this email address", resp.Body["error"])

	store.storeErr = errors.New("upstream down")
	resp = h.Login(context.Background(), Request{Body: []byte(`{"username":"ada"}`)})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Server error during login", resp.Body["error"])
}

func TestFeedback(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store, &fakeGenerator{})

	resp := h.Feedback(context.Background(), Request{Body: []byte(`{"userId":"recAda","recommendationId":"rec-1","action":"maybe"}`)})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Feedback saved successfully", resp.Body["message"])
	require.Len(t, store.feedback, 1)
	assert.Equal(t, models.FeedbackMaybe, store.feedback[0].Action)

	resp = h.Feedback(context.Background(), Request{Body: []byte(`{"userId":"recAda","action":"maybe"}`)})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "userId, recommendationId, and action are required", resp.Body["error"])

	resp = h.Feedback(context.Background(), Request{Body: []byte(`{"userId":"recAda","recommendationId":"rec-1","action":"love"}`)})
	assert.Equal(t, "action must be one of: interested, maybe, not-interested", resp.Body["error"])

	store.saveErr = errors.New("TABLE_NOT_FOUND")
	resp = h.Feedback(context.Background(), Request{Body: []byte(`{"userId":"recAda","recommendationId":"rec-1","action":"interested"}`)})
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, true, resp.Body["success"])
	assert.Equal(t, "Recommendation_Feedback table may not exist in Airtable", resp.Body["warning"])
}

func TestServeAndMatchPath(t *testing.T) {
	params, ok := matchPath("/api/recommendations/:userId/regenerate", "/api/recommendations/recAda/regenerate")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"userId": "recAda"}, params)

	_, ok = matchPath("/api/recommendations/:userId", "/api/recommendations/recAda/regenerate")
	assert.False(t, ok)
	_, ok = matchPath("/api/survey/:userId", "/api/survey/")
	assert.False(t, ok)

	h := newTestHandler(newFakeStore(), &fakeGenerator{})
	resp := h.Serve(context.Background(), http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)

	resp = h.Serve(context.Background(), http.MethodDelete, "/api/health", nil, nil)
	assert.Equal(t, Body{"success": false, "error": "Route not found", "path": "/api/health"}, resp.Body)
}
