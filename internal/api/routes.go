package api

import (
	"context"
	"net/http"
	"strings"
)

// HandleFunc is the transport-independent signature of every route
type HandleFunc func(ctx context.Context, req Request) Response

// Route binds a method and a path pattern. Pattern segments starting with ':'
// capture a parameter.
type Route struct {
	Method  string
	Pattern string
	Handle  HandleFunc
}

// Routes lists the service's API
func (h *Handler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/api/health", h.Health},
		{http.MethodPost, "/api/submit-survey", h.SubmitSurvey},
		{http.MethodGet, "/api/survey/:userId", h.GetSurvey},
		{http.MethodGet, "/api/recommendations/:userId", h.GetRecommendations},
		{http.MethodPost, "/api/recommendations/:userId/regenerate", h.Regenerate},
		{http.MethodPost, "/api/login", h.Login},
		{http.MethodPost, "/api/user/by-email", h.UserByEmail},
		{http.MethodPost, "/api/recommendation-feedback", h.Feedback},
		{http.MethodGet, "/api/metrics/sources", h.SourceMetrics},
	}
}

// Serve routes a call by method and path. It is used by transports without
// their own router.
func (h *Handler) Serve(ctx context.Context, method, path string, query map[string]string, body []byte) Response {
	for _, route := range h.Routes() {
		if route.Method != method {
			continue
		}
		if params, ok := matchPath(route.Pattern, path); ok {
			return route.Handle(ctx, Request{Params: params, Query: query, Body: body})
		}
	}
	return NotFound(path)
}

func matchPath(pattern, path string) (map[string]string, bool) {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return nil, false
	}

	params := map[string]string{}
	for i, segment := range want {
		if strings.HasPrefix(segment, ":") {
			if got[i] == "" {
				return nil, false
			}
			params[segment[1:]] = got[i]
			continue
		}
		if segment != got[i] {
			return nil, false
		}
	}
	return params, true
}
