package api

import (
	"context"
	"net/http"
	"strings"

	"social-activity-recommender/internal/services"
)

type loginRequest struct {
	Username string `json:"username"`
}

type emailRequest struct {
	Email string `json:"email"`
}

// Login looks a user up by username. There is no password.
func (h *Handler) Login(ctx context.Context, req Request) Response {
	var body loginRequest
	if err := decode(req.Body, &body); err != nil && err != errEmptyBody {
		return badBody(err)
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		return fail(http.StatusBadRequest, "Username is required")
	}

	user, err := h.store.GetUserByUsername(ctx, username)
	if err != nil {
		if services.IsNotFound(err) {
			return fail(http.StatusNotFound, "User not found")
		}
		h.logger.Error("[API] login failed", "username", username, "error", err)
		return fail(http.StatusInternalServerError, "Server error during login")
	}

	return respond(http.StatusOK, Body{
		"userId":   user.ID,
		"username": user.Username,
		"name":     user.Name,
	})
}

// UserByEmail handles POST /api/user/by-email
func (h *Handler) UserByEmail(ctx context.Context, req Request) Response {
	var body emailRequest
	if err := decode(req.Body, &body); err != nil && err != errEmptyBody {
		return badBody(err)
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		return fail(http.StatusBadRequest, "Email is required")
	}

	user, err := h.store.GetUserByEmail(ctx, email)
	if err != nil {
		if services.IsNotFound(err) {
			return fail(http.StatusNotFound, "No account found with this email address")
		}
		h.logger.Error("[API] email lookup failed", "email", email, "error", err)
		return fail(http.StatusInternalServerError, err.Error())
	}

	return respond(http.StatusOK, Body{"data": Body{
		"userId":    user.ID,
		"userName":  user.Name,
		"userEmail": user.Email,
	}})
}
