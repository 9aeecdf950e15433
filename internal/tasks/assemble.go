package tasks

import (
	"fmt"

	"github.com/desertthunder/songsim/internal/models"
)

// MaxCategoryTracks caps every category in a response.
const MaxCategoryTracks = 10

// assemble labels and truncates strategy output into a response. Every category key is present
// with a non-nil track list.
func assemble(seed *SeedContext, tracks map[string][]models.Track) *models.AggregateResponse {
	labels := map[string]string{
		models.CategoryArtist: fmt.Sprintf("%s's Top Tracks", seed.PrimaryArtistName),
		models.CategoryAlbum:  fmt.Sprintf("From Album: %s", seed.Track.Album.Name),
		models.CategoryGenre:  fmt.Sprintf("%s Tracks", seed.PrimaryGenreLabel),
	}

	resp := &models.AggregateResponse{Categories: make(map[string]models.CategoryResult, len(models.CategoryKeys))}
	for _, key := range models.CategoryKeys {
		list := tracks[key]
		if len(list) > MaxCategoryTracks {
			list = list[:MaxCategoryTracks]
		}

		out := make([]models.Track, len(list))
		copy(out, list)
		resp.Categories[key] = models.CategoryResult{Name: labels[key], Tracks: out}
	}
	return resp
}
