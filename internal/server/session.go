package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/shared"
	"golang.org/x/oauth2"
)

// SessionCookie names the cookie holding the session id.
const SessionCookie = "songsim-session"

const sessionMaxAge = 30 * 24 * 60 * 60

// loadSession returns the request's session, or nil when there is no live session cookie.
func (a *API) loadSession(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	session, err := a.sessions.Get(cookie.Value)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// ensureSession loads the request's session or creates one and sets its cookie.
func (a *API) ensureSession(w http.ResponseWriter, r *http.Request) (*models.Session, error) {
	session, err := a.loadSession(r)
	if err != nil || session != nil {
		return session, err
	}

	session = models.NewSession()
	if err := a.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID(),
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   a.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return session, nil
}

// authedSession returns the request's session when it holds a user token.
func (a *API) authedSession(r *http.Request) (*models.Session, error) {
	session, err := a.loadSession(r)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Authenticated() {
		return nil, fmt.Errorf("%w: Not logged in", shared.ErrNotAuthenticated)
	}
	return session, nil
}

// persistToken stores refreshed tokens back on the session row.
func (a *API) persistToken(session *models.Session) func(*oauth2.Token) {
	return func(token *oauth2.Token) {
		session.SetToken(token)
		if err := a.sessions.Update(session); err != nil {
			a.logger.Warn("failed to persist refreshed token", "session", session.ID(), "error", err)
			return
		}
		a.logger.Debug("persisted refreshed token", "session", session.ID())
	}
}
