package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"

	"social-activity-recommender/internal/api"
	"social-activity-recommender/internal/app"
	"social-activity-recommender/internal/config"
	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/parser"
	"social-activity-recommender/internal/services"
)

// WorkerResponse is returned to the async invoker and shows up in the
// Lambda destination records
type WorkerResponse struct {
	RequestID       string `json:"requestId"`
	UserID          string `json:"userId"`
	Method          string `json:"method,omitempty"`
	Recommendations int    `json:"recommendations"`
	Skipped         string `json:"skipped,omitempty"`
}

type worker struct {
	generator api.Generator
	logger    *logging.Logger
}

// handleEvent regenerates recommendations for one user. Missing records are
// not retried; generation failures are returned so Lambda retries the event.
func (w *worker) handleEvent(ctx context.Context, event services.RegenerateEvent) (WorkerResponse, error) {
	resp := WorkerResponse{RequestID: event.RequestID, UserID: event.UserID}
	logger := w.logger.With("request_id", event.RequestID, "user_id", event.UserID)

	if event.UserID == "" {
		logger.Warn("[API] regenerate event without user id")
		resp.Skipped = "missing userId"
		return resp, nil
	}

	outcome, err := w.generator.Generate(ctx, event.UserID, services.GenerateOptions{
		SurveyResponseID:   event.SurveyResponseID,
		CalculatedScoresID: event.CalculatedScoresID,
		BypassCache:        true,
	})
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrSurveyNotFound),
		errors.Is(err, services.ErrScoresNotFound):
		logger.Warn("[API] regenerate skipped", "error", err)
		resp.Skipped = err.Error()
		return resp, nil
	case err != nil:
		logger.Error("[API] regenerate failed", "error", err)
		return resp, fmt.Errorf("failed to regenerate recommendations for %s: %w", event.UserID, err)
	}

	parsed := parser.Parse(outcome.Recommendations)
	resp.Method = outcome.Method
	resp.Recommendations = len(parsed)
	logger.Info("[API] regenerate complete",
		"method", outcome.Method,
		"parsed", len(parsed),
		"prompt_id", outcome.PromptID,
		"warning", outcome.Warning)
	return resp, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Environment)
	if err != nil {
		panic(err)
	}

	application, err := app.New(context.Background(), cfg, logger, app.Options{WithoutDispatcher: true})
	if err != nil {
		logger.Fatal("[API] failed to initialize worker", "error", err)
	}

	w := &worker{generator: application.Service, logger: logger}
	lambda.Start(w.handleEvent)
}
