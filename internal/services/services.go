package services

import (
	"context"

	"github.com/desertthunder/songsim/internal/models"
	"golang.org/x/oauth2"
)

// Catalog is the read-only view of the music catalog used by the recommendation engine.
//
// Every method fails with one of [shared.ErrNotFound], [shared.ErrRateLimited], [shared.ErrUnauthorized],
// [shared.ErrInvalidCredentials], [shared.ErrServiceUnavailable] or [shared.ErrTimeout] (wrapped).
// Ordering of results is whatever the catalog returns and is not assumed to be stable across calls.
type Catalog interface {
	// Track fetches a full track snapshot by id.
	Track(ctx context.Context, trackID string) (*models.Track, error)

	// Artist fetches an artist and its genres.
	Artist(ctx context.Context, artistID string) (*models.Artist, error)

	// ArtistTopTracks returns the artist's most popular tracks in market (typically at most 10).
	ArtistTopTracks(ctx context.Context, artistID, market string) ([]models.Track, error)

	// AlbumTracks lists the album's tracks as light references.
	AlbumTracks(ctx context.Context, albumID, market string) ([]models.TrackRef, error)

	// Search runs a free-text track search.
	Search(ctx context.Context, query, market string, limit int) ([]models.Track, error)
}

// Library covers the user-data endpoints used by favorites and playlist creation.
type Library interface {
	// CurrentUser returns the authenticated user's profile.
	CurrentUser(ctx context.Context) (*models.User, error)

	// Playlists returns every playlist in the user's library.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// CreatePlaylist creates a playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error)

	// PlaylistTracks returns the items of a playlist in order.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.PlaylistItem, error)

	// AddItems appends tracks to a playlist.
	AddItems(ctx context.Context, playlistID string, trackIDs []string) error

	// RemoveItems removes every occurrence of the tracks from a playlist.
	RemoveItems(ctx context.Context, playlistID string, trackIDs []string) error
}

// OAuthService is implemented by services that support the authorization code flow.
type OAuthService interface {
	GetAuthURL(state string) string
	OAuthConfig() *oauth2.Config
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// UserService is a catalog client authenticated as a user.
type UserService interface {
	Catalog
	Library

	// TopTracks returns the user's top tracks for a time range (short_term, medium_term, long_term).
	TopTracks(ctx context.Context, limit int, timeRange string) ([]models.Track, error)

	// Token returns the current token, refreshing it first when expired.
	Token() (*oauth2.Token, error)
}
