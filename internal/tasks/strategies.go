package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/songsim/internal/models"
)

// strategy is one independent retrieval method. run returns whatever it accepted plus the error that
// stopped it, if any; it never fails the request on its own.
type strategy struct {
	key   string
	phase Phase
	run   func(ctx context.Context, seed *SeedContext, dedup *DedupSet) ([]models.Track, error)
}

// genreQuery is one level of the genre cascade.
type genreQuery struct {
	query string
	limit int
}

// artistStrategy keeps the primary artist's top tracks. There is no fallback.
func (e *RecommendationEngine) artistStrategy(ctx context.Context, seed *SeedContext, dedup *DedupSet) ([]models.Track, error) {
	accepted := []models.Track{}
	if seed.PrimaryArtistID == "" {
		return accepted, nil
	}

	cctx, cancel := e.callContext(ctx)
	defer cancel()

	tracks, err := e.catalog.ArtistTopTracks(cctx, seed.PrimaryArtistID, seed.RegionCode)
	if err != nil {
		return accepted, fmt.Errorf("artist top tracks for %s: %w", seed.PrimaryArtistID, err)
	}

	for _, t := range tracks {
		if len(accepted) >= MaxCategoryTracks {
			break
		}
		if dedup.TryMark(t.ID) {
			accepted = append(accepted, t)
		}
	}
	return accepted, nil
}

// albumStrategy upgrades the seed album's other tracks to full tracks. The first failure ends the
// strategy with what was collected so far.
func (e *RecommendationEngine) albumStrategy(ctx context.Context, seed *SeedContext, dedup *DedupSet) ([]models.Track, error) {
	accepted := []models.Track{}
	albumID := seed.Track.Album.ID
	if albumID == "" {
		return accepted, nil
	}

	cctx, cancel := e.callContext(ctx)
	refs, err := e.catalog.AlbumTracks(cctx, albumID, seed.RegionCode)
	cancel()
	if err != nil {
		return accepted, fmt.Errorf("album tracks for %s: %w", albumID, err)
	}

	for _, ref := range refs {
		if len(accepted) >= MaxCategoryTracks {
			break
		}
		if err := ctx.Err(); err != nil {
			return accepted, err
		}
		if ref.ID == "" || dedup.Seen(ref.ID) {
			continue
		}

		cctx, cancel := e.callContext(ctx)
		track, err := e.catalog.Track(cctx, ref.ID)
		cancel()
		if err != nil {
			return accepted, fmt.Errorf("album track %s: %w", ref.ID, err)
		}

		// Another strategy may have taken the id while the fetch was in flight.
		if track != nil && dedup.TryMark(ref.ID) {
			accepted = append(accepted, *track)
		}
	}
	return accepted, nil
}

// genreStrategy runs the genre cascade. A level runs only while fewer than GenreFloor tracks have been
// accepted; a failed level is remembered and the cascade moves on.
func (e *RecommendationEngine) genreStrategy(ctx context.Context, seed *SeedContext, dedup *DedupSet) ([]models.Track, error) {
	accepted := []models.Track{}
	var lastErr error

	for i, level := range e.genreLevels(seed) {
		if len(accepted) >= e.opts.GenreFloor || len(accepted) >= MaxCategoryTracks {
			break
		}
		if err := ctx.Err(); err != nil {
			return accepted, err
		}

		cctx, cancel := e.callContext(ctx)
		tracks, err := e.catalog.Search(cctx, level.query, seed.RegionCode, level.limit)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("genre search level %d (%q): %w", i+1, level.query, err)
			e.logger.Debug("genre level failed", "level", i+1, "query", level.query, "err", err)
			continue
		}

		for _, t := range tracks {
			if len(accepted) >= MaxCategoryTracks {
				break
			}
			if dedup.TryMark(t.ID) {
				accepted = append(accepted, t)
			}
		}
	}

	if len(accepted) > 0 {
		return accepted, nil
	}
	return accepted, lastErr
}

// genreLevels builds the three cascade queries for seed.
func (e *RecommendationEngine) genreLevels(seed *SeedContext) []genreQuery {
	if seed.HasGenre {
		return []genreQuery{
			{query: seed.PrimaryGenreLabel + " " + seed.PrimaryArtistName, limit: 15},
			{query: seed.PrimaryGenreLabel, limit: 20},
			{query: e.opts.PopularQuery, limit: 10},
		}
	}
	return []genreQuery{
		{query: "similar to " + seed.PrimaryArtistName, limit: 15},
		{query: "popular " + seed.PrimaryArtistName + " type", limit: 20},
		{query: e.opts.PopularQuery, limit: 10},
	}
}
