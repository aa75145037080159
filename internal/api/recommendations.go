package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"social-activity-recommender/internal/models"
	"social-activity-recommender/internal/parser"
	"social-activity-recommender/internal/services"
)

// RegenerateRequest optionally pins the records used for regeneration
type RegenerateRequest struct {
	SurveyResponseID   string `json:"surveyResponseId"`
	CalculatedScoresID string `json:"calculatedScoresId"`
}

// GetRecommendations handles GET /api/recommendations/:userId. The stored text
// is returned as is, with the parsed records next to it.
func (h *Handler) GetRecommendations(ctx context.Context, req Request) Response {
	userID := req.Param("userId")
	if userID == "" {
		return fail(http.StatusBadRequest, "userId is required")
	}

	prompt, err := h.store.LatestPrompt(ctx, userID)
	if err != nil {
		if services.IsNotFound(err) {
			return fail(http.StatusNotFound, "No recommendations found for this user")
		}
		h.logger.Error("[AIRTABLE] failed to load recommendations", "user_id", userID, "error", err)
		return fail(http.StatusInternalServerError, err.Error())
	}

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		h.logger.Error("[AIRTABLE] failed to load user", "user_id", userID, "error", err)
		return fail(http.StatusInternalServerError, err.Error())
	}

	parsed := parser.Parse(prompt.RecommendationsGenerated)
	h.logger.Debug("[API] parsed recommendations", "user_id", userID, "count", len(parsed))

	var createdAt interface{}
	if !prompt.CreatedTime.IsZero() {
		createdAt = prompt.CreatedTime
	}

	return respond(http.StatusOK, Body{"data": Body{
		"userId":          userID,
		"userName":        user.Name,
		"userEmail":       user.Email,
		"recommendations": prompt.RecommendationsGenerated,
		"parsed":          parsed,
		"userLocation":    h.locationLabel(ctx, user.Zipcode),
		"createdAt":       createdAt,
	}})
}

// Regenerate handles POST /api/recommendations/:userId/regenerate. The concept
// cache is bypassed. With ?async=true and a dispatcher configured the work is
// handed to the worker and 202 is returned.
func (h *Handler) Regenerate(ctx context.Context, req Request) Response {
	userID := req.Param("userId")
	if userID == "" {
		return fail(http.StatusBadRequest, "userId is required")
	}

	var body RegenerateRequest
	if len(strings.TrimSpace(string(req.Body))) > 0 {
		if err := decode(req.Body, &body); err != nil {
			return badBody(err)
		}
	}

	if req.Query["async"] == "true" && h.dispatcher != nil {
		requestID, err := h.dispatcher.Dispatch(ctx, services.RegenerateEvent{
			UserID:             userID,
			SurveyResponseID:   body.SurveyResponseID,
			CalculatedScoresID: body.CalculatedScoresID,
		})
		if err != nil {
			h.logger.Error("[API] failed to dispatch regeneration", "user_id", userID, "error", err)
			return fail(http.StatusInternalServerError, "Failed to start regeneration: "+err.Error())
		}
		return respond(http.StatusAccepted, Body{
			"userId":    userID,
			"requestId": requestID,
			"message":   "Regeneration started",
		})
	}

	outcome, err := h.generator.Generate(ctx, userID, services.GenerateOptions{
		SurveyResponseID:   body.SurveyResponseID,
		CalculatedScoresID: body.CalculatedScoresID,
		BypassCache:        true,
	})
	if err != nil {
		return h.generationFailure(userID, err)
	}

	resp := Body{
		"userId":          userID,
		"recommendations": outcome.Recommendations,
		"userLocation":    outcome.UserLocation,
		"method":          outcome.Method,
	}
	if outcome.Method == services.MethodLegacy {
		resp["message"] = "Recommendations regenerated successfully (legacy system)"
	} else {
		resp["stats"] = outcome.Stats
		resp["message"] = "Recommendations regenerated successfully (conceptual system)"
	}
	if outcome.Warning != "" {
		resp["warning"] = outcome.Warning
	}
	return respond(http.StatusOK, resp)
}

func (h *Handler) generationFailure(userID string, err error) Response {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return fail(http.StatusNotFound, "User not found. Please make sure you completed the survey.")
	case errors.Is(err, services.ErrSurveyNotFound):
		return fail(http.StatusNotFound, "No survey response found for this user. It looks like the survey may not have been completed successfully. Please take the survey again.")
	case errors.Is(err, services.ErrScoresNotFound):
		return fail(http.StatusNotFound, "No calculated scores found for this user")
	}
	h.logger.Error("[API] regeneration failed", "user_id", userID, "error", err)
	return fail(http.StatusInternalServerError, generationMessage("Failed to generate recommendations", err))
}

// FeedbackRequest is the body of POST /api/recommendation-feedback
type FeedbackRequest struct {
	UserID           string `json:"userId"`
	RecommendationID string `json:"recommendationId"`
	Action           string `json:"action"`
	Reason           string `json:"reason"`
	Timestamp        string `json:"timestamp"`
}

// Feedback records a reaction to a recommendation. A store failure is not
// surfaced to the user; the feedback is logged instead.
func (h *Handler) Feedback(ctx context.Context, req Request) Response {
	var body FeedbackRequest
	if err := decode(req.Body, &body); err != nil {
		return badBody(err)
	}
	if body.UserID == "" || body.RecommendationID == "" || body.Action == "" {
		return fail(http.StatusBadRequest, "userId, recommendationId, and action are required")
	}
	if !models.ValidateFeedbackAction(body.Action) {
		return fail(http.StatusBadRequest, "action must be one of: "+strings.Join(models.FeedbackActions(), ", "))
	}

	err := h.store.SaveFeedback(ctx, models.Feedback{
		UserID:           body.UserID,
		RecommendationID: body.RecommendationID,
		Action:           body.Action,
		Reason:           body.Reason,
		Timestamp:        body.Timestamp,
	})
	if err != nil {
		h.logger.Warn("[AIRTABLE] feedback not stored",
			"user_id", body.UserID,
			"recommendation_id", body.RecommendationID,
			"action", body.Action,
			"error", err)
		return respond(http.StatusOK, Body{
			"message": "Feedback logged (table may need to be created)",
			"warning": "Recommendation_Feedback table may not exist in Airtable",
		})
	}
	return respond(http.StatusOK, Body{"message": "Feedback saved successfully"})
}
