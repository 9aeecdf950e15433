package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/shared"
)

// Spotify accepts at most 100 items per playlist mutation.
const playlistBatchSize = 100

var (
	_ Library      = (*SpotifyService)(nil)
	_ OAuthService = (*SpotifyService)(nil)
	_ UserService  = (*SpotifyService)(nil)
)

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.User, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	u := user.toModel()
	return &u, nil
}

// Playlists retrieves all playlists for the authenticated user.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	limit := 50
	offset := 0

	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(limit))
		query.Set("offset", strconv.Itoa(offset))

		var response page[SpotifySimplePlaylist]
		if err := s.doRequest(ctx, http.MethodGet, "/me/playlists", query, nil, &response); err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			playlists = append(playlists, sp.toModel())
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += limit
	}
	return playlists, nil
}

// CreatePlaylist creates a playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var created SpotifySimplePlaylist
	endpoint := "/users/" + url.PathEscape(userID) + "/playlists"
	if err := s.doRequest(ctx, http.MethodPost, endpoint, nil, body, &created); err != nil {
		return nil, err
	}

	p := created.toModel()
	return &p, nil
}

// PlaylistTracks retrieves every item of a playlist, skipping local and unavailable tracks.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	items := []models.PlaylistItem{}
	offset := 0
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(playlistBatchSize))
		query.Set("offset", strconv.Itoa(offset))

		var response page[SpotifyPlaylistTrack]
		endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
		if err := s.doRequest(ctx, http.MethodGet, endpoint, query, nil, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			items = append(items, models.PlaylistItem{AddedAt: item.AddedAt, Track: item.Track.toModel()})
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}
	return items, nil
}

// AddItems appends tracks to a playlist in batches.
func (s *SpotifyService) AddItems(ctx context.Context, playlistID string, trackIDs []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	for _, batch := range batches(trackIDs, playlistBatchSize) {
		uris := make([]string, len(batch))
		for i, id := range batch {
			uris[i] = trackURI(id)
		}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, nil, map[string]any{"uris": uris}, nil); err != nil {
			return err
		}
	}
	return nil
}

// RemoveItems removes every occurrence of the tracks from a playlist in batches.
func (s *SpotifyService) RemoveItems(ctx context.Context, playlistID string, trackIDs []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	type trackObject struct {
		URI string `json:"uri"`
	}

	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	for _, batch := range batches(trackIDs, playlistBatchSize) {
		tracks := make([]trackObject, len(batch))
		for i, id := range batch {
			tracks[i] = trackObject{URI: trackURI(id)}
		}
		if err := s.doRequest(ctx, http.MethodDelete, endpoint, nil, map[string]any{"tracks": tracks}, nil); err != nil {
			return err
		}
	}
	return nil
}

func batches(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
