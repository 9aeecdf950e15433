package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/desertthunder/songsim/internal/tasks"
	th "github.com/desertthunder/songsim/internal/testing"
)

const seedID = "4uLU6hMCjMI75M1A2tKUQC"

type fakeEngine struct {
	resp *models.AggregateResponse
	err  error

	mu  sync.Mutex
	ids []string
}

func (e *fakeEngine) Run(ctx context.Context, trackID string, progress chan<- tasks.ProgressUpdate) (*models.AggregateResponse, error) {
	e.mu.Lock()
	e.ids = append(e.ids, trackID)
	e.mu.Unlock()

	seed := &tasks.SeedContext{Track: models.Track{ID: trackID, Title: "Seed"}}
	progress <- tasks.ProgressUpdate{Phase: tasks.ResolveSeed, Step: 1, Total: 1, Message: "Seed: Seed by Someone", Data: seed}
	progress <- tasks.ProgressUpdate{Phase: tasks.ArtistStrategy, Step: 1, Total: 1, Message: "Artist: 2 tracks"}
	return e.resp, e.err
}

func (e *fakeEngine) runs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ids...)
}

type fakeFavorites struct {
	err   error
	added []string
}

func (f *fakeFavorites) Add(_ context.Context, trackID string) error {
	f.added = append(f.added, trackID)
	return f.err
}

func sampleResponse() *models.AggregateResponse {
	return &models.AggregateResponse{
		Categories: map[string]models.CategoryResult{
			models.CategoryArtist: {Name: "Someone's Top Tracks", Tracks: []models.Track{{ID: "t1", Title: "One"}, {ID: "t2", Title: "Two"}}},
			models.CategoryAlbum:  {Name: "From Album: Debut", Tracks: []models.Track{}},
			models.CategoryGenre:  {Name: "indie Tracks", Tracks: []models.Track{{ID: "t3", Title: "Three"}}},
		},
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// drain feeds progress into the model until the run finishes.
func drain(t *testing.T, m *Model) {
	t.Helper()
	for m.view == RunningView {
		if m.progress == nil {
			t.Fatal("running without a progress channel")
		}
		m.Update(waitForProgress(m.progress, m.done)())
	}
}

func submit(m *Model, value string) tea.Cmd {
	m.input.SetValue(value)
	_, cmd := m.Update(keyPress("enter"))
	return cmd
}

func TestModel(t *testing.T) {
	t.Run("track id runs recommendations", func(t *testing.T) {
		engine := &fakeEngine{resp: sampleResponse()}
		m := NewModel(context.Background(), Deps{Engine: engine})

		if cmd := submit(m, "https://open.spotify.com/track/"+seedID+"?si=x"); cmd == nil {
			t.Fatal("expected a command")
		}
		if m.view != RunningView {
			t.Fatalf("expected RunningView, got %v", m.view)
		}

		drain(t, m)

		if m.view != ResultView {
			t.Fatalf("expected ResultView, got %v", m.view)
		}
		if runs := engine.runs(); len(runs) != 1 || runs[0] != seedID {
			t.Errorf("expected one run for %s, got %v", seedID, runs)
		}
		if m.seedLine != "Seed: Seed by Someone" {
			t.Errorf("expected seed line from progress, got %q", m.seedLine)
		}
		if len(m.categories) != 3 {
			t.Fatalf("expected 3 categories, got %d", len(m.categories))
		}
		if got := len(m.categories[0].Items()); got != 2 {
			t.Errorf("expected 2 artist tracks, got %d", got)
		}

		view := m.View()
		for _, want := range []string{"Someone's Top Tracks (2)", "From Album: Debut (0)", "indie Tracks (1)"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q", want)
			}
		}
	})

	t.Run("engine error returns to input", func(t *testing.T) {
		engine := &fakeEngine{err: shared.ErrSeedNotFound}
		m := NewModel(context.Background(), Deps{Engine: engine})

		submit(m, seedID)
		drain(t, m)

		if m.view != InputView {
			t.Fatalf("expected InputView, got %v", m.view)
		}
		if !errors.Is(m.err, shared.ErrSeedNotFound) {
			t.Errorf("expected ErrSeedNotFound, got %v", m.err)
		}
		if !strings.Contains(m.View(), "Error:") {
			t.Error("expected error in view")
		}
	})

	t.Run("cancelled run is not an error", func(t *testing.T) {
		engine := &fakeEngine{err: context.Canceled}
		m := NewModel(context.Background(), Deps{Engine: engine})

		submit(m, seedID)
		m.Update(keyPress("esc"))
		drain(t, m)

		if m.view != InputView || m.err != nil {
			t.Errorf("expected clean InputView, got %v with %v", m.view, m.err)
		}
	})

	t.Run("free text searches", func(t *testing.T) {
		catalog := th.NewFakeCatalog()
		catalog.Searches["river"] = []models.Track{{ID: "r1", Title: "River"}, {ID: "r2", Title: "River II"}}
		engine := &fakeEngine{resp: sampleResponse()}
		m := NewModel(context.Background(), Deps{Engine: engine, Catalog: catalog, Market: "GB"})

		cmd := submit(m, "river")
		if cmd == nil {
			t.Fatal("expected a search command")
		}
		m.Update(cmd())

		if m.view != SearchView {
			t.Fatalf("expected SearchView, got %v", m.view)
		}
		if calls := catalog.CallsTo("search"); len(calls) != 1 || calls[0].Market != "GB" || calls[0].Limit != searchLimit {
			t.Errorf("unexpected search calls %+v", calls)
		}

		m.Update(keyPress("enter"))
		drain(t, m)

		if runs := engine.runs(); len(runs) != 1 || runs[0] != "r1" {
			t.Errorf("expected run for selected track r1, got %v", runs)
		}
	})

	t.Run("search with no results", func(t *testing.T) {
		m := NewModel(context.Background(), Deps{Engine: &fakeEngine{}, Catalog: th.NewFakeCatalog()})

		m.Update(submit(m, "nothing")())

		if m.view != InputView {
			t.Errorf("expected InputView, got %v", m.view)
		}
		if !strings.Contains(m.status, "No tracks found") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("free text without catalog", func(t *testing.T) {
		m := NewModel(context.Background(), Deps{Engine: &fakeEngine{}})

		if cmd := submit(m, "river"); cmd != nil {
			t.Error("expected no command")
		}
		if m.err == nil {
			t.Error("expected an error")
		}
	})
}

func TestResultView(t *testing.T) {
	setup := func(deps Deps) *Model {
		m := NewModel(context.Background(), deps)
		m.showResults(sampleResponse())
		return m
	}

	t.Run("tabs cycle", func(t *testing.T) {
		m := setup(Deps{})

		tests := []struct {
			key  string
			want int
		}{
			{"tab", 1},
			{"l", 2},
			{"tab", 0},
			{"shift+tab", 2},
			{"h", 1},
		}

		for _, tt := range tests {
			m.Update(keyPress(tt.key))
			if m.active != tt.want {
				t.Errorf("after %s expected tab %d, got %d", tt.key, tt.want, m.active)
			}
		}
	})

	t.Run("favorite marks the track", func(t *testing.T) {
		favorites := &fakeFavorites{}
		m := setup(Deps{Favorites: favorites})

		_, cmd := m.Update(keyPress("f"))
		if cmd == nil {
			t.Fatal("expected a favorite command")
		}
		m.Update(cmd())

		if len(favorites.added) != 1 || favorites.added[0] != "t1" {
			t.Errorf("expected t1 added, got %v", favorites.added)
		}
		item := m.categories[0].Items()[0].(trackItem)
		if !item.favorited || !strings.HasPrefix(item.Title(), "♥") {
			t.Errorf("expected favorited item, got %+v", item)
		}
	})

	t.Run("favorite failure", func(t *testing.T) {
		m := setup(Deps{Favorites: &fakeFavorites{err: shared.ErrUnauthorized}})

		_, cmd := m.Update(keyPress("f"))
		m.Update(cmd())

		if !strings.Contains(m.status, "Could not add favorite") {
			t.Errorf("unexpected status %q", m.status)
		}
		if m.categories[0].Items()[0].(trackItem).favorited {
			t.Error("expected item not favorited")
		}
	})

	t.Run("favorite without login", func(t *testing.T) {
		m := setup(Deps{})

		if _, cmd := m.Update(keyPress("f")); cmd != nil {
			t.Error("expected no command")
		}
		if !strings.Contains(m.status, "spotify auth") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("esc returns to input", func(t *testing.T) {
		m := setup(Deps{})
		m.Update(keyPress("esc"))

		if m.view != InputView {
			t.Errorf("expected InputView, got %v", m.view)
		}
	})
}
