package models

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

var _ Model = (*Session)(nil)

// Session is a browser session: the pending OAuth state during login and the user's token afterwards.
type Session struct {
	id        string
	state     string
	userID    string
	token     *oauth2.Token
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewSession creates an empty, unsaved session.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{createdAt: now, updatedAt: now}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }
func (s *Session) UpdatedAt() time.Time  { return s.updatedAt }
func (s *Session) DeletedAt() *time.Time { return s.deletedAt }
func (s *Session) State() string         { return s.state }
func (s *Session) UserID() string        { return s.userID }
func (s *Session) Token() *oauth2.Token  { return s.token }

func (s *Session) SetID(id string)              { s.id = id }
func (s *Session) SetState(state string)        { s.state = state }
func (s *Session) SetUserID(userID string)      { s.userID = userID }
func (s *Session) SetCreatedAt(t time.Time)     { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time)     { s.updatedAt = t }
func (s *Session) SetDeletedAt(t *time.Time)    { s.deletedAt = t }
func (s *Session) SetToken(token *oauth2.Token) { s.token = token }

// Authenticated reports whether the session holds a usable access token.
func (s *Session) Authenticated() bool { return s.token != nil && s.token.AccessToken != "" }

// Logout drops the token and user but keeps the session row.
func (s *Session) Logout() {
	s.token = nil
	s.userID = ""
}

// Validate checks the session has an id and creation timestamp.
func (s *Session) Validate() error {
	if s.id == "" {
		return fmt.Errorf("session id is required")
	}
	if s.createdAt.IsZero() {
		return fmt.Errorf("session created_at is required")
	}
	return nil
}
