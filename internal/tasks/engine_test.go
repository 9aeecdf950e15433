package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/shared"
	tu "github.com/desertthunder/songsim/internal/testing"
)

const (
	seedID   = "seed"
	artistID = "a1"
	albumID  = "al1"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func track(id string) models.Track {
	return models.Track{
		ID:      id,
		Title:   "Track " + id,
		Artists: []models.ArtistRef{{ID: "other", Name: "Someone"}},
	}
}

func tracks(ids ...string) []models.Track {
	out := make([]models.Track, len(ids))
	for i, id := range ids {
		out[i] = track(id)
	}
	return out
}

func numbered(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return ids
}

func refs(ids ...string) []models.TrackRef {
	out := make([]models.TrackRef, len(ids))
	for i, id := range ids {
		out[i] = models.TrackRef{ID: id, Title: "Track " + id}
	}
	return out
}

// newIndiePopCatalog builds the reference fixture: genre "indie pop", an album with five other tracks,
// eight top tracks including the seed and four level-one genre results.
func newIndiePopCatalog() *tu.FakeCatalog {
	c := tu.NewFakeCatalog()
	c.AddTrack(models.Track{
		ID:               seedID,
		Title:            "Seed Song",
		Artists:          []models.ArtistRef{{ID: artistID, Name: "Artist One"}},
		Album:            models.AlbumRef{ID: albumID, Name: "Album One"},
		AvailableMarkets: []string{"GB", "US"},
	})
	c.Artists[artistID] = models.Artist{ID: artistID, Name: "Artist One", Genres: []string{"indie pop", "bedroom pop"}}
	c.TopTracks[artistID] = append(tracks(seedID), tracks(numbered("x", 7)...)...)

	albumIDs := numbered("b", 5)
	c.Albums[albumID] = refs(append([]string{seedID}, albumIDs...)...)
	for _, id := range albumIDs {
		c.AddTrack(track(id))
	}

	c.Searches["indie pop Artist One"] = tracks(numbered("g", 4)...)
	return c
}

func newEngine(c *tu.FakeCatalog) *RecommendationEngine {
	return NewRecommendationEngine(c, Options{Sequential: true}, quietLogger())
}

func categoryIDs(resp *models.AggregateResponse, key string) []string {
	ids := []string{}
	for _, t := range resp.Categories[key].Tracks {
		ids = append(ids, t.ID)
	}
	return ids
}

// assertInvariants checks the properties every successful response must hold.
func assertInvariants(t *testing.T, resp *models.AggregateResponse, seed string) {
	t.Helper()

	seen := map[string]string{}
	for _, key := range models.CategoryKeys {
		cat, ok := resp.Categories[key]
		if !ok {
			t.Errorf("category %q missing from response", key)
			continue
		}
		if cat.Tracks == nil {
			t.Errorf("category %q has nil track list", key)
		}
		if len(cat.Tracks) > MaxCategoryTracks {
			t.Errorf("category %q has %d tracks, max %d", key, len(cat.Tracks), MaxCategoryTracks)
		}
		for _, tr := range cat.Tracks {
			if tr.ID == seed {
				t.Errorf("seed %s appears in category %q", seed, key)
			}
			if prev, dup := seen[tr.ID]; dup {
				t.Errorf("track %s appears in both %q and %q", tr.ID, prev, key)
			}
			seen[tr.ID] = key
		}
	}
}

func TestRecommendationEngine_SimilarTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("indie pop reference example", func(t *testing.T) {
		c := newIndiePopCatalog()
		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		assertInvariants(t, resp, seedID)

		if got := len(resp.Category(models.CategoryArtist).Tracks); got != 7 {
			t.Errorf("expected 7 artist tracks, got %d", got)
		}
		if got := len(resp.Category(models.CategoryAlbum).Tracks); got != 5 {
			t.Errorf("expected 5 album tracks, got %d", got)
		}
		if got := len(resp.Category(models.CategoryGenre).Tracks); got != 4 {
			t.Errorf("expected 4 genre tracks, got %d", got)
		}

		labels := map[string]string{
			models.CategoryArtist: "Artist One's Top Tracks",
			models.CategoryAlbum:  "From Album: Album One",
			models.CategoryGenre:  "indie pop Tracks",
		}
		for key, want := range labels {
			if got := resp.Category(key).Name; got != want {
				t.Errorf("expected %s label %q, got %q", key, want, got)
			}
		}

		searches := c.CallsTo("search")
		if len(searches) != 1 {
			t.Fatalf("expected a single genre query, got %+v", searches)
		}
		if searches[0].Arg != "indie pop Artist One" || searches[0].Limit != 15 {
			t.Errorf("unexpected level one query %+v", searches[0])
		}

		for _, call := range c.Calls() {
			if call.Method != "track" && call.Method != "artist" && call.Market != "GB" {
				t.Errorf("expected first available market GB, got %+v", call)
			}
		}
	})

	t.Run("no markets and no genres", func(t *testing.T) {
		c := tu.NewFakeCatalog()
		c.AddTrack(models.Track{
			ID:      seedID,
			Title:   "Seed Song",
			Artists: []models.ArtistRef{{ID: artistID, Name: "Artist One"}},
			Album:   models.AlbumRef{ID: albumID, Name: "Album One"},
		})
		c.Artists[artistID] = models.Artist{ID: artistID, Name: "Artist One"}
		c.TopTracks[artistID] = tracks("x1")

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		searches := c.CallsTo("search")
		want := []string{"similar to Artist One", "popular Artist One type", defaultPopularQuery}
		if len(searches) != len(want) {
			t.Fatalf("expected %d genre queries, got %+v", len(want), searches)
		}
		for i, q := range want {
			if searches[i].Arg != q {
				t.Errorf("level %d: expected query %q, got %q", i+1, q, searches[i].Arg)
			}
			if searches[i].Market != defaultMarket {
				t.Errorf("level %d: expected default market, got %q", i+1, searches[i].Market)
			}
		}
		if got := resp.Category(models.CategoryGenre).Name; got != "Artist One Style Tracks" {
			t.Errorf("expected synthesized style label, got %q", got)
		}
	})

	t.Run("duplicates across strategies are dropped", func(t *testing.T) {
		c := newIndiePopCatalog()
		c.TopTracks[artistID] = tracks(seedID, "x1", "b1", "g1")
		c.Searches["indie pop Artist One"] = tracks(seedID, "x1", "b2", "g1", "g2", "g3", "g4")

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		assertInvariants(t, resp, seedID)

		if got := categoryIDs(resp, models.CategoryArtist); !reflect.DeepEqual(got, []string{"x1", "b1", "g1"}) {
			t.Errorf("unexpected artist category %v", got)
		}
		if got := categoryIDs(resp, models.CategoryAlbum); !reflect.DeepEqual(got, []string{"b2", "b3", "b4", "b5"}) {
			t.Errorf("unexpected album category %v", got)
		}
		if got := categoryIDs(resp, models.CategoryGenre); !reflect.DeepEqual(got, []string{"g2", "g3", "g4"}) {
			t.Errorf("unexpected genre category %v", got)
		}

		for _, call := range c.CallsTo("track") {
			if call.Arg == "b1" {
				t.Error("album strategy should not fetch a track already taken by the artist strategy")
			}
		}
	})

	t.Run("categories are capped at ten", func(t *testing.T) {
		c := newIndiePopCatalog()
		c.TopTracks[artistID] = tracks(numbered("x", 15)...)

		albumIDs := numbered("b", 20)
		c.Albums[albumID] = refs(albumIDs...)
		for _, id := range albumIDs {
			c.AddTrack(track(id))
		}
		c.Searches["indie pop Artist One"] = tracks(numbered("g", 15)...)

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		assertInvariants(t, resp, seedID)

		for _, key := range models.CategoryKeys {
			if got := len(resp.Category(key).Tracks); got != MaxCategoryTracks {
				t.Errorf("expected %s to hold %d tracks, got %d", key, MaxCategoryTracks, got)
			}
		}

		// seed plus ten upgrades
		if got := len(c.CallsTo("track")); got != 11 {
			t.Errorf("expected album upgrades to stop at ten, got %d track calls", got)
		}
	})

	t.Run("genre category empty without error", func(t *testing.T) {
		c := newIndiePopCatalog()
		delete(c.Searches, "indie pop Artist One")

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		assertInvariants(t, resp, seedID)

		if got := len(resp.Category(models.CategoryGenre).Tracks); got != 0 {
			t.Errorf("expected empty genre category, got %d", got)
		}
		if got := len(c.CallsTo("search")); got != 3 {
			t.Errorf("expected all three levels to run, got %d", got)
		}
	})

	t.Run("all strategies failed", func(t *testing.T) {
		c := newIndiePopCatalog()
		cause := fmt.Errorf("%w: upstream down", shared.ErrServiceUnavailable)
		c.Errors["top:"+artistID] = cause
		c.Errors["album:"+albumID] = cause
		c.Errors["search:indie pop Artist One"] = cause
		c.Errors["search:indie pop"] = cause
		c.Errors["search:"+defaultPopularQuery] = cause

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if !errors.Is(err, shared.ErrAllStrategiesFailed) {
			t.Fatalf("expected ErrAllStrategiesFailed, got %v", err)
		}
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected last cause to be wrapped, got %v", err)
		}
		if resp != nil {
			t.Error("expected no response on failure")
		}
	})

	t.Run("one surviving strategy is enough", func(t *testing.T) {
		c := newIndiePopCatalog()
		c.Errors["top:"+artistID] = shared.ErrRateLimited
		c.Errors["album:"+albumID] = shared.ErrServiceUnavailable

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected best-effort response, got %v", err)
		}
		if got := len(resp.Category(models.CategoryGenre).Tracks); got != 4 {
			t.Errorf("expected genre tracks to survive, got %d", got)
		}
		if got := len(resp.Category(models.CategoryArtist).Tracks); got != 0 {
			t.Errorf("expected empty artist category, got %d", got)
		}
	})

	t.Run("album failure keeps collected tracks", func(t *testing.T) {
		c := newIndiePopCatalog()
		c.Errors["track:b3"] = shared.ErrTimeout

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := categoryIDs(resp, models.CategoryAlbum); !reflect.DeepEqual(got, []string{"b1", "b2"}) {
			t.Errorf("expected album category [b1 b2], got %v", got)
		}
	})

	t.Run("seed not found", func(t *testing.T) {
		c := newIndiePopCatalog()

		_, err := newEngine(c).SimilarTracks(ctx, "missing")
		if !errors.Is(err, shared.ErrSeedNotFound) {
			t.Fatalf("expected ErrSeedNotFound, got %v", err)
		}
		if len(c.Calls()) != 1 {
			t.Errorf("expected no strategy calls after seed failure, got %+v", c.Calls())
		}
	})

	t.Run("seed lookup rate limited", func(t *testing.T) {
		c := newIndiePopCatalog()
		c.Errors["track:"+seedID] = shared.ErrRateLimited

		_, err := newEngine(c).SimilarTracks(ctx, seedID)
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if errors.Is(err, shared.ErrSeedNotFound) {
			t.Error("a throttled seed lookup is not a missing seed")
		}
	})

	t.Run("empty track id", func(t *testing.T) {
		c := newIndiePopCatalog()
		_, err := newEngine(c).SimilarTracks(ctx, "")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
		if len(c.Calls()) != 0 {
			t.Errorf("expected no catalog calls, got %+v", c.Calls())
		}
	})

	t.Run("artist lookup failure falls back to style label", func(t *testing.T) {
		c := newIndiePopCatalog()
		c.Errors["artist:"+artistID] = shared.ErrServiceUnavailable
		c.Searches["similar to Artist One"] = tracks("s1", "s2", "s3")

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := resp.Category(models.CategoryGenre).Name; got != "Artist One Style Tracks" {
			t.Errorf("expected style label, got %q", got)
		}
		if got := categoryIDs(resp, models.CategoryGenre); !reflect.DeepEqual(got, []string{"s1", "s2", "s3"}) {
			t.Errorf("unexpected genre category %v", got)
		}
	})

	t.Run("all empty without errors is a valid response", func(t *testing.T) {
		c := tu.NewFakeCatalog()
		c.AddTrack(models.Track{ID: seedID, Title: "Lonely"})

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		assertInvariants(t, resp, seedID)
		if resp.TotalTracks() != 0 {
			t.Errorf("expected no tracks, got %d", resp.TotalTracks())
		}
		if got := resp.Category(models.CategoryArtist).Name; got != "Unknown Artist's Top Tracks" {
			t.Errorf("unexpected artist label %q", got)
		}
	})

	t.Run("idempotent with a deterministic catalog", func(t *testing.T) {
		c := newIndiePopCatalog()
		engine := newEngine(c)

		first, err := engine.SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := engine.SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("expected identical responses\nfirst:  %+v\nsecond: %+v", first, second)
		}
	})

	t.Run("concurrent strategies hold invariants", func(t *testing.T) {
		c := newIndiePopCatalog()
		c.TopTracks[artistID] = tracks(seedID, "x1", "b1", "g1", "b2")
		c.Searches["indie pop Artist One"] = tracks(seedID, "x1", "b1", "b2", "g1", "g2", "g3")

		engine := NewRecommendationEngine(c, Options{}, quietLogger())
		for range 20 {
			resp, err := engine.SimilarTracks(ctx, seedID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			assertInvariants(t, resp, seedID)
			if resp.TotalTracks() != 9 {
				t.Errorf("expected 9 distinct tracks across categories, got %d", resp.TotalTracks())
			}
		}
	})
}

func TestRecommendationEngine_GenreCascade(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		level1   []models.Track
		level2   []models.Track
		level3   []models.Track
		wantRuns int
		wantIDs  []string
	}{
		{
			name:     "level one meets the floor",
			level1:   tracks("g1", "g2", "g3"),
			level2:   tracks("h1"),
			wantRuns: 1,
			wantIDs:  []string{"g1", "g2", "g3"},
		},
		{
			name:     "level two tops up a sparse level one",
			level1:   tracks("g1", "g2"),
			level2:   tracks("g2", "h1", "h2"),
			level3:   tracks("p1"),
			wantRuns: 2,
			wantIDs:  []string{"g1", "g2", "h1", "h2"},
		},
		{
			name:     "duplicates do not count toward the floor",
			level1:   tracks("x1", "x2", "x3", "g1"),
			level2:   tracks("x4", "b1"),
			level3:   tracks("p1", "p2"),
			wantRuns: 3,
			wantIDs:  []string{"g1", "p1", "p2"},
		},
		{
			name:     "cascade stops at ten",
			level1:   tracks("g1"),
			level2:   tracks(numbered("h", 20)...),
			level3:   tracks("p1"),
			wantRuns: 2,
			wantIDs:  append([]string{"g1"}, numbered("h", 9)...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newIndiePopCatalog()
			c.Searches["indie pop Artist One"] = tt.level1
			c.Searches["indie pop"] = tt.level2
			c.Searches[defaultPopularQuery] = tt.level3

			resp, err := newEngine(c).SimilarTracks(ctx, seedID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			assertInvariants(t, resp, seedID)

			searches := c.CallsTo("search")
			if len(searches) != tt.wantRuns {
				t.Errorf("expected %d levels to run, got %d: %+v", tt.wantRuns, len(searches), searches)
			}
			limits := []int{15, 20, 10}
			for i, s := range searches {
				if s.Limit != limits[i] {
					t.Errorf("level %d: expected limit %d, got %d", i+1, limits[i], s.Limit)
				}
			}
			if got := categoryIDs(resp, models.CategoryGenre); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("expected genre %v, got %v", tt.wantIDs, got)
			}
		})
	}

	t.Run("failed level moves on", func(t *testing.T) {
		c := newIndiePopCatalog()
		c.Errors["search:indie pop Artist One"] = shared.ErrRateLimited
		c.Searches["indie pop"] = tracks("h1", "h2", "h3")

		resp, err := newEngine(c).SimilarTracks(ctx, seedID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := categoryIDs(resp, models.CategoryGenre); !reflect.DeepEqual(got, []string{"h1", "h2", "h3"}) {
			t.Errorf("unexpected genre category %v", got)
		}
	})

	t.Run("floor is tunable", func(t *testing.T) {
		c := newIndiePopCatalog()

		engine := NewRecommendationEngine(c, Options{Sequential: true, GenreFloor: 5}, quietLogger())
		if _, err := engine.SimilarTracks(ctx, seedID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := len(c.CallsTo("search")); got != 3 {
			t.Errorf("expected a floor of 5 to run all levels, got %d", got)
		}
	})
}

// stallingCatalog holds Search until the caller's context ends.
type stallingCatalog struct {
	*tu.FakeCatalog
	once    sync.Once
	started chan struct{}
}

func (s *stallingCatalog) Search(ctx context.Context, q, market string, limit int) ([]models.Track, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRecommendationEngine_Cancellation(t *testing.T) {
	t.Run("cancelled request returns no partial response", func(t *testing.T) {
		c := &stallingCatalog{FakeCatalog: newIndiePopCatalog(), started: make(chan struct{})}
		engine := NewRecommendationEngine(c, Options{}, quietLogger())

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-c.started
			cancel()
		}()

		resp, err := engine.SimilarTracks(ctx, seedID)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if resp != nil {
			t.Errorf("expected nil response, got %+v", resp)
		}
	})

	t.Run("cancelled before start", func(t *testing.T) {
		c := newIndiePopCatalog()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newEngine(c).SimilarTracks(ctx, seedID)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("call timeout fails only its strategy", func(t *testing.T) {
		c := &stallingCatalog{FakeCatalog: newIndiePopCatalog(), started: make(chan struct{})}
		engine := NewRecommendationEngine(c, Options{Sequential: true, CallTimeout: 20 * time.Millisecond}, quietLogger())

		resp, err := engine.SimilarTracks(context.Background(), seedID)
		if err != nil {
			t.Fatalf("expected best-effort response, got %v", err)
		}
		if got := len(resp.Category(models.CategoryGenre).Tracks); got != 0 {
			t.Errorf("expected timed-out genre category to be empty, got %d", got)
		}
		if got := len(resp.Category(models.CategoryArtist).Tracks); got != 7 {
			t.Errorf("expected artist category to survive, got %d", got)
		}
	})
}

func TestRecommendationEngine_Progress(t *testing.T) {
	t.Run("reports every phase", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 32)
		_, err := newEngine(newIndiePopCatalog()).Run(context.Background(), seedID, progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		phases := map[Phase]bool{}
		for u := range progress {
			phases[u.Phase] = true
		}
		for _, p := range []Phase{ResolveSeed, ArtistStrategy, AlbumStrategy, GenreStrategy, Assemble} {
			if !phases[p] {
				t.Errorf("expected an update for phase %s", p)
			}
		}
	})

	t.Run("marks only the failed strategy", func(t *testing.T) {
		c := newIndiePopCatalog()
		c.Errors["album:"+albumID] = shared.ErrServiceUnavailable

		progress := make(chan ProgressUpdate, 32)
		if _, err := newEngine(c).Run(context.Background(), seedID, progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		done := map[Phase]ProgressUpdate{}
		for u := range progress {
			if u.Step == u.Total {
				done[u.Phase] = u
			}
		}
		if err := done[AlbumStrategy].Err; !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected the album update to carry its failure, got %v", err)
		}
		if !strings.HasPrefix(done[AlbumStrategy].Message, "✗") {
			t.Errorf("expected a failure message, got %q", done[AlbumStrategy].Message)
		}
		for _, p := range []Phase{ArtistStrategy, GenreStrategy} {
			if err := done[p].Err; err != nil {
				t.Errorf("%s: expected no failure, got %v", p, err)
			}
		}
	})

	t.Run("never blocks on a full channel", func(t *testing.T) {
		progress := make(chan ProgressUpdate)

		done := make(chan error, 1)
		go func() {
			_, err := newEngine(newIndiePopCatalog()).Run(context.Background(), seedID, progress)
			done <- err
		}()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run blocked on an unread progress channel")
		}
	})

	t.Run("phase names", func(t *testing.T) {
		tests := []struct {
			phase Phase
			want  string
		}{
			{ResolveSeed, "resolve_seed"},
			{ArtistStrategy, "artist_strategy"},
			{AlbumStrategy, "album_strategy"},
			{GenreStrategy, "genre_strategy"},
			{Assemble, "assemble"},
			{Favorites, "favorites"},
			{Phase(99), ""},
		}
		for _, tt := range tests {
			if got := tt.phase.String(); got != tt.want {
				t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
			}
		}
	})
}
