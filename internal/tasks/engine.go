package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/services"
	"github.com/desertthunder/songsim/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCallTimeout  = 10 * time.Second
	defaultGenreFloor   = 3
	defaultPopularQuery = "popular music 2025"
	defaultMarket       = "US"
	unknownArtistName   = "Unknown Artist"
)

// Options tunes a [RecommendationEngine]. Zero values fall back to the defaults in [DefaultOptions].
type Options struct {
	CallTimeout   time.Duration // Bound on every catalog call
	GenreFloor    int           // Accepted tracks below which the genre cascade moves to its next level
	PopularQuery  string        // Last-resort genre query
	DefaultMarket string        // Region used when the seed lists no markets
	Sequential    bool          // Run strategies one at a time in artist, album, genre order
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		CallTimeout:   defaultCallTimeout,
		GenreFloor:    defaultGenreFloor,
		PopularQuery:  defaultPopularQuery,
		DefaultMarket: defaultMarket,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.GenreFloor <= 0 {
		o.GenreFloor = d.GenreFloor
	}
	if o.PopularQuery == "" {
		o.PopularQuery = d.PopularQuery
	}
	if o.DefaultMarket == "" {
		o.DefaultMarket = d.DefaultMarket
	}
	return o
}

// SeedContext is derived once per request from the seed track and its primary artist.
type SeedContext struct {
	Track             models.Track
	PrimaryArtistID   string
	PrimaryArtistName string
	RegionCode        string
	PrimaryGenreLabel string // First genre, or "<artist> Style" when the artist has none
	HasGenre          bool
}

// Recommender produces categorized similar tracks for a seed.
type Recommender interface {
	SimilarTracks(ctx context.Context, trackID string) (*models.AggregateResponse, error)
}

// RecommendationEngine runs the artist, album and genre strategies against a [services.Catalog]
// and merges their output under one [DedupSet].
type RecommendationEngine struct {
	catalog services.Catalog
	opts    Options
	logger  *log.Logger
}

var _ Recommender = (*RecommendationEngine)(nil)

// NewRecommendationEngine creates an engine over catalog. A nil logger uses the default logger.
func NewRecommendationEngine(catalog services.Catalog, opts Options, logger *log.Logger) *RecommendationEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &RecommendationEngine{catalog: catalog, opts: opts.withDefaults(), logger: logger}
}

// SimilarTracks returns the categorized similar tracks for trackID.
func (e *RecommendationEngine) SimilarTracks(ctx context.Context, trackID string) (*models.AggregateResponse, error) {
	return e.Run(ctx, trackID, nil)
}

// Run is [RecommendationEngine.SimilarTracks] with progress reporting.
//
// Fails with [shared.ErrSeedNotFound] when the seed does not resolve, with [shared.ErrAllStrategiesFailed]
// when nothing was accepted and at least one strategy failed, and with the context error when ctx is
// cancelled. No partial response is returned alongside an error.
func (e *RecommendationEngine) Run(ctx context.Context, trackID string, progress chan<- ProgressUpdate) (*models.AggregateResponse, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	sendProgress(progress, resolveSeedUpdate(trackID))

	seed, err := e.resolveSeed(ctx, trackID)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, seedResolvedUpdate(seed))

	dedup := NewDedupSet(seed.Track.ID)
	failures := newFailureAggregator()

	strategies := []strategy{
		{key: models.CategoryArtist, phase: ArtistStrategy, run: e.artistStrategy},
		{key: models.CategoryAlbum, phase: AlbumStrategy, run: e.albumStrategy},
		{key: models.CategoryGenre, phase: GenreStrategy, run: e.genreStrategy},
	}
	results := make([][]models.Track, len(strategies))

	exec := func(i int) {
		s := strategies[i]
		sendProgress(progress, strategyStartedUpdate(s.phase))

		tracks, err := s.run(ctx, seed, dedup)
		results[i] = tracks
		if err != nil && ctx.Err() == nil {
			e.logger.Warn("strategy failed", "strategy", s.key, "seed", seed.Track.ID, "accepted", len(tracks), "err", err)
			failures.record(s.key, err)
		}
		sendProgress(progress, strategyDoneUpdate(s.phase, tracks, failures.failed(s.key)))
	}

	if e.opts.Sequential {
		for i := range strategies {
			if ctx.Err() != nil {
				break
			}
			exec(i)
		}
	} else {
		// exec keeps each strategy's error to itself, so one failure never cancels the others.
		var g errgroup.Group
		for i := range strategies {
			g.Go(func() error {
				exec(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("similar tracks for %s: %w", trackID, err)
	}

	byKey := make(map[string][]models.Track, len(strategies))
	accepted := 0
	for i, s := range strategies {
		byKey[s.key] = results[i]
		accepted += len(results[i])
	}

	e.logger.Debug("strategies finished", "seed", seed.Track.ID, "accepted", accepted, "marked", dedup.Len())

	if err := failures.escalate(accepted); err != nil {
		return nil, err
	}

	sendProgress(progress, assembleUpdate(accepted))
	return assemble(seed, byKey), nil
}

// resolveSeed fetches the seed and its primary artist. Only an unresolvable seed is fatal;
// a failed artist lookup leaves the seed without genres.
func (e *RecommendationEngine) resolveSeed(ctx context.Context, trackID string) (*SeedContext, error) {
	cctx, cancel := e.callContext(ctx)
	track, err := e.catalog.Track(cctx, trackID)
	cancel()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("similar tracks for %s: %w", trackID, ctxErr)
		}
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrAPIRequest) {
			return nil, fmt.Errorf("%w: %s: %w", shared.ErrSeedNotFound, trackID, err)
		}
		return nil, fmt.Errorf("failed to fetch seed track %s: %w", trackID, err)
	}
	if track == nil || track.ID == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrSeedNotFound, trackID)
	}

	seed := &SeedContext{
		Track:             *track,
		RegionCode:        e.opts.DefaultMarket,
		PrimaryArtistName: unknownArtistName,
	}
	if len(track.AvailableMarkets) > 0 && track.AvailableMarkets[0] != "" {
		seed.RegionCode = track.AvailableMarkets[0]
	}

	if ref, ok := track.PrimaryArtist(); ok {
		seed.PrimaryArtistID = ref.ID
		if ref.Name != "" {
			seed.PrimaryArtistName = ref.Name
		}
	}

	if seed.PrimaryArtistID != "" {
		cctx, cancel := e.callContext(ctx)
		artist, err := e.catalog.Artist(cctx, seed.PrimaryArtistID)
		cancel()

		switch {
		case err != nil:
			e.logger.Warn("artist lookup failed, continuing without genres", "artist", seed.PrimaryArtistID, "err", err)
		case artist != nil:
			if artist.Name != "" {
				seed.PrimaryArtistName = artist.Name
			}
			if len(artist.Genres) > 0 && artist.Genres[0] != "" {
				seed.PrimaryGenreLabel = artist.Genres[0]
				seed.HasGenre = true
			}
		}
	}

	if !seed.HasGenre {
		seed.PrimaryGenreLabel = seed.PrimaryArtistName + " Style"
	}
	return seed, nil
}

// callContext bounds a single catalog call.
func (e *RecommendationEngine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.opts.CallTimeout)
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
