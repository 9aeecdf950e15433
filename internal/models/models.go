// package models defines the catalog, library and session types shared across songsim
package models

import (
	"time"
)

// Model is a row the server persists between requests. Recommendations are never stored, so sessions
// are currently the only implementation.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is the CRUD surface over one persisted model type.
//
// Get returns [shared.ErrNotFound] (wrapped) for unknown or deleted ids.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}

// SessionStore adds expiry to a session repository: Purge removes logged-out sessions and sessions last
// touched before the cutoff, returning how many rows went away.
type SessionStore interface {
	Repository[*Session]
	Purge(before time.Time) (int64, error)
}
