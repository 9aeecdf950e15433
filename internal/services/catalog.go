package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/shared"
)

const (
	maxSearchLimit  = 50
	albumTracksPage = 50
)

var _ Catalog = (*SpotifyService)(nil)

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*models.Track, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	var track SpotifyTrack
	if err := s.doRequest(ctx, http.MethodGet, "/tracks/"+url.PathEscape(trackID), nil, nil, &track); err != nil {
		return nil, err
	}

	t := track.toModel()
	return &t, nil
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, artistID string) (*models.Artist, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	var artist SpotifyArtist
	if err := s.doRequest(ctx, http.MethodGet, "/artists/"+url.PathEscape(artistID), nil, nil, &artist); err != nil {
		return nil, err
	}

	a := artist.toModel()
	return &a, nil
}

// ArtistTopTracks retrieves an artist's top tracks in market.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, artistID, market string) ([]models.Track, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	query := url.Values{}
	if market != "" {
		query.Set("market", market)
	}

	var response topTracksResponse
	endpoint := "/artists/" + url.PathEscape(artistID) + "/top-tracks"
	if err := s.doRequest(ctx, http.MethodGet, endpoint, query, nil, &response); err != nil {
		return nil, err
	}
	return toTracks(response.Tracks), nil
}

// AlbumTracks lists every track on an album, following pagination.
func (s *SpotifyService) AlbumTracks(ctx context.Context, albumID, market string) ([]models.TrackRef, error) {
	if albumID == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	var refs []models.TrackRef
	offset := 0
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(albumTracksPage))
		query.Set("offset", strconv.Itoa(offset))
		if market != "" {
			query.Set("market", market)
		}

		var response page[SpotifySimpleTrack]
		endpoint := "/albums/" + url.PathEscape(albumID) + "/tracks"
		if err := s.doRequest(ctx, http.MethodGet, endpoint, query, nil, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			if item.ID == "" {
				continue
			}
			refs = append(refs, models.TrackRef{ID: item.ID, Title: item.Name})
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}
	return refs, nil
}

// Search runs a track search. limit is clamped to [1, 50].
func (s *SpotifyService) Search(ctx context.Context, q, market string, limit int) ([]models.Track, error) {
	if q == "" {
		return nil, fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	limit = min(max(limit, 1), maxSearchLimit)

	query := url.Values{}
	query.Set("q", q)
	query.Set("type", "track")
	query.Set("limit", strconv.Itoa(limit))
	if market != "" {
		query.Set("market", market)
	}

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search", query, nil, &response); err != nil {
		return nil, err
	}
	return toTracks(response.Tracks.Items), nil
}

// TopTracks retrieves the current user's top tracks.
func (s *SpotifyService) TopTracks(ctx context.Context, limit int, timeRange string) ([]models.Track, error) {
	limit = min(max(limit, 1), maxSearchLimit)
	if timeRange == "" {
		timeRange = "medium_term"
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("time_range", timeRange)

	var response page[SpotifyTrack]
	if err := s.doRequest(ctx, http.MethodGet, "/me/top/tracks", query, nil, &response); err != nil {
		return nil, err
	}
	return toTracks(response.Items), nil
}

// trackIDLength is the length of a base62 Spotify id.
const trackIDLength = 22

// ParseTrackID extracts a track id from a bare id, a spotify:track: URI or an open.spotify.com track URL.
func ParseTrackID(s string) (string, bool) {
	s = strings.TrimSpace(s)

	if rest, ok := strings.CutPrefix(s, "spotify:track:"); ok {
		s = rest
	} else if u, err := url.Parse(s); err == nil && u.Host != "" {
		if !strings.HasSuffix(u.Host, "spotify.com") {
			return "", false
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 || parts[len(parts)-2] != "track" {
			return "", false
		}
		s = parts[len(parts)-1]
	}

	if len(s) != trackIDLength {
		return "", false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "", false
		}
	}
	return s, true
}
