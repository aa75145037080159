// Package api holds the HTTP handlers of the recommendation service. Handlers
// work on a plain Request and return a Response so the gin server and the API
// Gateway Lambda share them.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
	"social-activity-recommender/internal/services"
)

// Body is a JSON response document. Every body carries "success".
type Body map[string]interface{}

// Response is a status code and body, independent of the transport
type Response struct {
	Status int
	Body   Body
}

// Request carries what handlers read from an inbound call
type Request struct {
	Params map[string]string
	Query  map[string]string
	Body   []byte
}

// Param returns a path parameter, trimmed
func (r Request) Param(name string) string {
	return strings.TrimSpace(r.Params[name])
}

// Store is the record store surface used by the handlers
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
	CreateSurveyResponse(ctx context.Context, userID string, answers models.SurveyAnswers) (*models.SurveyResponse, error)
	UpdateSurveyResponse(ctx context.Context, id string, answers models.SurveyAnswers) (*models.SurveyResponse, error)
	LatestSurveyResponse(ctx context.Context, userID string) (*models.SurveyResponse, error)
	CreateCalculatedScores(ctx context.Context, userID, surveyResponseID string) (*models.CalculatedScores, error)
	UpdateCalculatedScores(ctx context.Context, userID, surveyResponseID string) (*models.CalculatedScores, error)
	LatestPrompt(ctx context.Context, userID string) (*models.GPTPrompt, error)
	SaveFeedback(ctx context.Context, feedback models.Feedback) error
}

// Generator produces and stores recommendations for a user
type Generator interface {
	Generate(ctx context.Context, userID string, opts services.GenerateOptions) (*services.GenerateOutcome, error)
}

// Dispatcher hands regeneration to a background worker
type Dispatcher interface {
	Dispatch(ctx context.Context, event services.RegenerateEvent) (string, error)
}

// Config wires a Handler. Geocoder, Dispatcher and Metrics are optional.
type Config struct {
	Store       Store
	Generator   Generator
	Geocoder    services.LocationResolver
	Dispatcher  Dispatcher
	Metrics     *services.FetchMetrics
	Environment string
	Logger      *logging.Logger
}

// Handler implements the service's routes
type Handler struct {
	store       Store
	generator   Generator
	geocoder    services.LocationResolver
	dispatcher  Dispatcher
	metrics     *services.FetchMetrics
	environment string
	logger      *logging.Logger
	now         func() time.Time
}

// NewHandler creates a Handler from cfg
func NewHandler(cfg Config) *Handler {
	env := cfg.Environment
	if env == "" {
		env = "development"
	}
	return &Handler{
		store:       cfg.Store,
		generator:   cfg.Generator,
		geocoder:    cfg.Geocoder,
		dispatcher:  cfg.Dispatcher,
		metrics:     cfg.Metrics,
		environment: env,
		logger:      logging.OrNop(cfg.Logger),
		now:         time.Now,
	}
}

func respond(status int, body Body) Response {
	body["success"] = true
	return Response{Status: status, Body: body}
}

func fail(status int, message string) Response {
	return Response{Status: status, Body: Body{"success": false, "error": message}}
}

// NotFound is the body returned for unknown routes
func NotFound(path string) Response {
	resp := fail(http.StatusNotFound, "Route not found")
	resp.Body["path"] = path
	return resp
}

// InternalError is the body returned when a handler panics
func InternalError() Response {
	return fail(http.StatusInternalServerError, "Internal server error")
}

var errEmptyBody = errors.New("request body is required")

// decode reads a JSON body into v. An empty body is errEmptyBody.
func decode(raw []byte, v interface{}) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(raw, v)
}

func badBody(err error) Response {
	if errors.Is(err, errEmptyBody) {
		return fail(http.StatusBadRequest, "Request body is required")
	}
	return fail(http.StatusBadRequest, "Invalid request body: "+err.Error())
}

// locationLabel renders "City, ST" for a zipcode, or nil when it cannot be
// resolved.
func (h *Handler) locationLabel(ctx context.Context, zipcode string) interface{} {
	if h.geocoder == nil || zipcode == "" {
		return nil
	}
	location := h.geocoder.Geocode(ctx, zipcode)
	if location == nil || location.City == "" || location.State == "" {
		h.logger.Warn("[GEOCODE] could not resolve user location", "zipcode", zipcode)
		return nil
	}
	return location.String()
}

// generationMessage drops the sentinel prefix so the message reads
// "Failed to generate recommendations: <cause>".
func generationMessage(prefix string, err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, services.ErrGenerationFailed.Error()+": ")
	return prefix + ": " + msg
}

// methodSuffix is appended to success messages produced by the legacy strategy
func methodSuffix(method string) string {
	if method == services.MethodLegacy {
		return " (legacy system)"
	}
	return ""
}

// Health reports liveness and the configured environment
func (h *Handler) Health(_ context.Context, _ Request) Response {
	return respond(http.StatusOK, Body{
		"status":      "healthy",
		"timestamp":   h.now().UTC().Format(time.RFC3339),
		"environment": h.environment,
	})
}

// SourceMetrics reports per-source fetch counters
func (h *Handler) SourceMetrics(_ context.Context, _ Request) Response {
	if h.metrics == nil {
		return respond(http.StatusOK, Body{"data": map[string]interface{}{}})
	}
	return respond(http.StatusOK, Body{"data": h.metrics.GetDashboardMetrics()})
}
