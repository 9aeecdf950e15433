package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/shared"
	"golang.org/x/oauth2"
)

var _ models.SessionStore = (*SessionRepository)(nil)

const sessionColumns = `id, oauth_state, user_id, access_token, refresh_token, token_type, expiry, created_at, updated_at, deleted_at`

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session with a generated ID
func (r *SessionRepository) Create(session *models.Session) error {
	if session.ID() == "" {
		session.SetID(shared.GenerateID())
	}

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	access, refresh, tokenType, expiry := tokenColumns(session.Token())
	query := `
		INSERT INTO sessions (id, oauth_state, user_id, access_token, refresh_token, token_type, expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		session.ID(), session.State(), session.UserID(),
		access, refresh, tokenType, expiry,
		session.CreatedAt().UTC(), session.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	session, err := scanSession(r.db.QueryRow(query, id))
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	return session, nil
}

// Update stores the session's state, user and token
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	session.SetUpdatedAt(now)

	access, refresh, tokenType, expiry := tokenColumns(session.Token())
	query := `
		UPDATE sessions
		SET oauth_state = ?, user_id = ?, access_token = ?, refresh_token = ?, token_type = ?, expiry = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, session.State(), session.UserID(), access, refresh, tokenType, expiry, now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return checkAffected(result, "session", session.ID())
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	query := `
		UPDATE sessions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return checkAffected(result, "session", id)
}

// List retrieves sessions matching the given criteria, excluding soft-deleted sessions.
// Supported criteria: "user_id" (string) and "authenticated" (bool).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if authed, ok := criteria["authenticated"].(bool); ok {
		if authed {
			query += " AND access_token != ''"
		} else {
			query += " AND access_token = ''"
		}
	}

	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

// Purge permanently removes soft-deleted sessions and sessions untouched since before.
func (r *SessionRepository) Purge(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE deleted_at IS NOT NULL OR updated_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		id, state, userID          string
		access, refresh, tokenType string
		expiry                     sql.NullTime
		createdAt, updatedAt       time.Time
		deletedAt                  sql.NullTime
	)

	err := row.Scan(&id, &state, &userID, &access, &refresh, &tokenType, &expiry, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	session := models.NewSession()
	session.SetID(id)
	session.SetState(state)
	session.SetUserID(userID)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}

	if access != "" {
		token := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: tokenType}
		if expiry.Valid {
			token.Expiry = expiry.Time
		}
		session.SetToken(token)
	}
	return session, nil
}

func tokenColumns(token *oauth2.Token) (access, refresh, tokenType string, expiry sql.NullTime) {
	if token == nil {
		return "", "", "", sql.NullTime{}
	}
	return token.AccessToken, token.RefreshToken, token.TokenType, nullTime(token.Expiry)
}
