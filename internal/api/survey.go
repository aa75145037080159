package api

import (
	"context"
	"errors"
	"net/http"

	"social-activity-recommender/internal/models"
	"social-activity-recommender/internal/services"
)

// SubmitSurvey handles POST /api/submit-survey. The submission mode is read
// from the body once; new submissions create the user, survey and scores
// records, edits update the records of the given user.
func (h *Handler) SubmitSurvey(ctx context.Context, req Request) Response {
	var sub models.SurveySubmission
	if err := decode(req.Body, &sub); err != nil {
		return badBody(err)
	}
	if err := sub.Validate(); err != nil {
		var invalid *models.ValidationError
		if errors.As(err, &invalid) {
			return fail(http.StatusBadRequest, invalid.Message)
		}
		return fail(http.StatusBadRequest, err.Error())
	}

	mode := sub.Mode()
	h.logger.Info("[API] survey submission", "mode", mode.String())
	if mode.IsEdit() {
		return h.editSurvey(ctx, mode.UserID(), &sub)
	}
	return h.createSurvey(ctx, &sub)
}

func (h *Handler) createSurvey(ctx context.Context, sub *models.SurveySubmission) Response {
	user, err := h.store.CreateUser(ctx, sub.User())
	if err != nil {
		h.logger.Error("[AIRTABLE] failed to create user", "error", err)
		return fail(http.StatusInternalServerError, "Failed to create user: "+err.Error())
	}

	survey, err := h.store.CreateSurveyResponse(ctx, user.ID, sub.SurveyAnswers)
	if err != nil {
		h.logger.Error("[AIRTABLE] failed to create survey response", "user_id", user.ID, "error", err)
		return fail(http.StatusInternalServerError, "Failed to create survey response: "+err.Error())
	}

	scores, err := h.store.CreateCalculatedScores(ctx, user.ID, survey.ID)
	if err != nil {
		h.logger.Error("[AIRTABLE] failed to create calculated scores", "user_id", user.ID, "error", err)
		return fail(http.StatusInternalServerError, "Failed to create calculated scores: "+err.Error())
	}

	outcome, err := h.generator.Generate(ctx, user.ID, services.GenerateOptions{
		SurveyResponseID:   survey.ID,
		CalculatedScoresID: scores.ID,
	})
	if err != nil {
		h.logger.Error("[API] generation failed after submission", "user_id", user.ID, "error", err)
		return fail(http.StatusInternalServerError, generationMessage("Failed to generate recommendations", err))
	}

	body := Body{
		"userId":          user.ID,
		"recommendations": outcome.Recommendations,
		"method":          outcome.Method,
		"message":         "Survey submitted successfully and recommendations generated" + methodSuffix(outcome.Method),
	}
	if outcome.Warning != "" {
		body["warning"] = outcome.Warning
	}
	return respond(http.StatusCreated, body)
}

func (h *Handler) editSurvey(ctx context.Context, userID string, sub *models.SurveySubmission) Response {
	user := sub.User()
	user.ID = userID
	if err := h.store.UpdateUser(ctx, user); err != nil {
		h.logger.Error("[AIRTABLE] failed to update user", "user_id", userID, "error", err)
		return fail(http.StatusInternalServerError, "Failed to update user: "+err.Error())
	}

	existing, err := h.store.LatestSurveyResponse(ctx, userID)
	if err != nil {
		if services.IsNotFound(err) {
			return fail(http.StatusNotFound, "No survey response found to update")
		}
		return fail(http.StatusInternalServerError, err.Error())
	}

	survey, err := h.store.UpdateSurveyResponse(ctx, existing.ID, sub.SurveyAnswers)
	if err != nil {
		h.logger.Error("[AIRTABLE] failed to update survey response", "user_id", userID, "error", err)
		return fail(http.StatusInternalServerError, "Failed to update survey response: "+err.Error())
	}

	scores, err := h.store.UpdateCalculatedScores(ctx, userID, survey.ID)
	if err != nil {
		h.logger.Error("[AIRTABLE] failed to update calculated scores", "user_id", userID, "error", err)
		return fail(http.StatusInternalServerError, "Failed to update calculated scores: "+err.Error())
	}

	outcome, err := h.generator.Generate(ctx, userID, services.GenerateOptions{
		SurveyResponseID:   survey.ID,
		CalculatedScoresID: scores.ID,
	})
	if err != nil {
		h.logger.Error("[API] regeneration failed after edit", "user_id", userID, "error", err)
		return fail(http.StatusInternalServerError, generationMessage("Failed to regenerate recommendations", err))
	}

	body := Body{
		"userId":          userID,
		"recommendations": outcome.Recommendations,
		"method":          outcome.Method,
		"message":         "Survey updated successfully and recommendations regenerated" + methodSuffix(outcome.Method),
	}
	if outcome.Warning != "" {
		body["warning"] = outcome.Warning
	}
	return respond(http.StatusOK, body)
}

// GetSurvey handles GET /api/survey/:userId and returns the stored answers in
// the shape of the survey form.
func (h *Handler) GetSurvey(ctx context.Context, req Request) Response {
	userID := req.Param("userId")
	if userID == "" {
		return fail(http.StatusBadRequest, "userId is required")
	}

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		if services.IsNotFound(err) {
			return fail(http.StatusNotFound, "User not found. Please make sure you have completed the survey.")
		}
		return fail(http.StatusInternalServerError, "Error fetching user: "+err.Error())
	}

	survey, err := h.store.LatestSurveyResponse(ctx, userID)
	if err != nil {
		if services.IsNotFound(err) {
			return fail(http.StatusNotFound, "No survey data found for this user")
		}
		return fail(http.StatusInternalServerError, err.Error())
	}

	form := models.SurveyForm{
		Name:          user.Name,
		Username:      user.Username,
		Email:         user.Email,
		Age:           user.Age,
		Gender:        user.Gender,
		Zipcode:       user.Zipcode,
		SurveyAnswers: survey.SurveyAnswers,
	}
	return respond(http.StatusOK, Body{"data": form})
}
