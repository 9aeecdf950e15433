// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"github.com/desertthunder/songsim/internal/models"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Artists          []SpotifyArtist   `json:"artists"`
	Album            SpotifyAlbum      `json:"album"`
	AvailableMarkets []string          `json:"available_markets"`
	DurationMS       int               `json:"duration_ms"`
	Explicit         bool              `json:"explicit"`
	ExternalURLs     map[string]string `json:"external_urls"`
	Popularity       int               `json:"popularity"`
	PreviewURL       string            `json:"preview_url"`
	URI              string            `json:"uri"`
}

// SpotifyArtist represents a Spotify artist. Genres are only populated on the full artist object.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// SpotifySimpleTrack is the track object embedded in album listings.
type SpotifySimpleTrack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	Images      []SpotifyImage      `json:"images"`
	URI         string              `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed or local items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// page is the paging object shared by every list endpoint.
type page[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

type searchResponse struct {
	Tracks page[SpotifyTrack] `json:"tracks"`
}

type topTracksResponse struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func toImages(images []SpotifyImage) []models.Image {
	if len(images) == 0 {
		return nil
	}
	out := make([]models.Image, 0, len(images))
	for _, img := range images {
		out = append(out, models.Image{URL: img.URL, Height: img.Height, Width: img.Width})
	}
	return out
}

func (t SpotifyTrack) toModel() models.Track {
	artists := make([]models.ArtistRef, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.ArtistRef{ID: a.ID, Name: a.Name})
	}

	return models.Track{
		ID:               t.ID,
		Title:            t.Name,
		Artists:          artists,
		Album:            models.AlbumRef{ID: t.Album.ID, Name: t.Album.Name, Images: toImages(t.Album.Images)},
		AvailableMarkets: t.AvailableMarkets,
		DurationMS:       t.DurationMS,
		Popularity:       t.Popularity,
		PreviewURL:       t.PreviewURL,
		ExternalURLs:     t.ExternalURLs,
		URI:              t.URI,
	}
}

func toTracks(tracks []SpotifyTrack) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		out = append(out, t.toModel())
	}
	return out
}

func (a SpotifyArtist) toModel() models.Artist {
	return models.Artist{ID: a.ID, Name: a.Name, Genres: a.Genres}
}

func (p SpotifySimplePlaylist) toModel() models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.Owner.ID,
		TrackCount:  p.Tracks.Total,
		Public:      p.Public,
		URI:         p.URI,
	}
}

func (u SpotifyUser) toModel() models.User {
	return models.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Country:     u.Country,
		Product:     u.Product,
		Images:      toImages(u.Images),
	}
}
