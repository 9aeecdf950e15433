package tasks

import (
	"fmt"

	"github.com/desertthunder/songsim/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
	Err     error  // Set when the phase ended with a recorded failure
}

// Operation phase enumeration
type Phase int

const (
	ResolveSeed Phase = iota
	ArtistStrategy
	AlbumStrategy
	GenreStrategy
	Assemble
	Favorites
)

func (p Phase) String() string {
	switch p {
	case ResolveSeed:
		return "resolve_seed"
	case ArtistStrategy:
		return "artist_strategy"
	case AlbumStrategy:
		return "album_strategy"
	case GenreStrategy:
		return "genre_strategy"
	case Assemble:
		return "assemble"
	case Favorites:
		return "favorites"
	default:
		return ""
	}
}

// Label is the short display name of the phase.
func (p Phase) Label() string {
	switch p {
	case ResolveSeed:
		return "Seed"
	case ArtistStrategy:
		return "Artist"
	case AlbumStrategy:
		return "Album"
	case GenreStrategy:
		return "Genre"
	case Assemble:
		return "Results"
	case Favorites:
		return "Favorites"
	default:
		return ""
	}
}

func resolveSeedUpdate(trackID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveSeed,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Resolving seed track %s...", trackID),
	}
}

func seedResolvedUpdate(seed *SeedContext) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveSeed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Seed: %s by %s (%s, %s)", seed.Track.Title, seed.PrimaryArtistName, seed.PrimaryGenreLabel, seed.RegionCode),
		Data:    seed,
	}
}

func strategyStartedUpdate(phase Phase) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Searching by %s...", phase.Label()),
	}
}

func strategyDoneUpdate(phase Phase, tracks []models.Track, err error) ProgressUpdate {
	if err != nil && len(tracks) == 0 {
		return ProgressUpdate{
			Phase:   phase,
			Step:    1,
			Total:   1,
			Message: fmt.Sprintf("✗ %s: %v", phase.Label(), err),
			Data:    tracks,
			Err:     err,
		}
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %s: %d tracks", phase.Label(), len(tracks)),
		Data:    tracks,
		Err:     err,
	}
}

func assembleUpdate(accepted int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Assemble,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d similar tracks", accepted),
	}
}

func favoritesCreatedUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Favorites,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}
