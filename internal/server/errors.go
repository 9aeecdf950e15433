package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/songsim/internal/shared"
)

const (
	msgCredentialsNotConfigured = "Spotify API credentials not configured"
	msgCredentialsRejected      = "Spotify API credentials were rejected"
)

// StatusFor maps an error onto an HTTP status code and the message sent to the client.
//
// Order matters: an escalated strategy failure wraps its last cause, and is still a 500.
func StatusFor(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, shared.ErrAllStrategiesFailed):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, shared.ErrMissingCredentials):
		return http.StatusInternalServerError, msgCredentialsNotConfigured
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusInternalServerError, msgCredentialsRejected
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrUnauthorized),
		errors.Is(err, shared.ErrNoRefreshToken),
		errors.Is(err, shared.ErrAuthFailed):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, shared.ErrSeedNotFound),
		errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
