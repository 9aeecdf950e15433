package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/songsim/internal/shared"
	"golang.org/x/oauth2"
)

// statusError maps a non-2xx Spotify response onto a shared sentinel, keeping the API's message.
func statusError(resp *http.Response, data []byte) error {
	msg := http.StatusText(resp.StatusCode)
	var body spotifyErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		if after := resp.Header.Get("Retry-After"); after != "" {
			return fmt.Errorf("%w: %s (retry after %ss)", shared.ErrRateLimited, msg, after)
		}
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, msg)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}
}

// classifyTransportError maps a failed round trip. Caller cancellation is returned as is so
// callers can tell it apart from upstream failures.
func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contextError(ctxErr)
	}

	if errors.Is(err, shared.ErrInvalidCredentials) {
		return err
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			return fmt.Errorf("%w: token endpoint: %v", shared.ErrServiceUnavailable, err)
		}
		return fmt.Errorf("%w: token request failed: %v", shared.ErrUnauthorized, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}
	return err
}

// appTokenSource reports a 4xx from the client-credentials grant as [shared.ErrInvalidCredentials]:
// the configured client id or secret is wrong, not the user's session.
type appTokenSource struct {
	source oauth2.TokenSource
}

func (a appTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err == nil {
		return token, nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
		retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
		return nil, fmt.Errorf("%w: app token request rejected: %w", shared.ErrInvalidCredentials, err)
	}
	return nil, err
}
