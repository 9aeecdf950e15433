package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/shared"
	"golang.org/x/oauth2"
)

// Call is one recorded catalog request.
type Call struct {
	Method string // track, artist, top, album, search
	Arg    string // id or query
	Market string
	Limit  int
}

// FakeCatalog is a deterministic, map-backed test double for [services.Catalog].
//
// Errors are keyed "<method>:<arg>" (for example "search:indie pop") or "*" to fail every call.
// Unknown tracks and artists fail with [shared.ErrNotFound]; unknown searches return no results.
type FakeCatalog struct {
	Tracks    map[string]models.Track
	Artists   map[string]models.Artist
	TopTracks map[string][]models.Track
	Albums    map[string][]models.TrackRef
	Searches  map[string][]models.Track
	Errors    map[string]error

	// Block, when set, holds every call until it is closed or the call's context ends.
	Block chan struct{}

	mu    sync.Mutex
	calls []Call
}

// NewFakeCatalog returns an empty catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Tracks:    make(map[string]models.Track),
		Artists:   make(map[string]models.Artist),
		TopTracks: make(map[string][]models.Track),
		Albums:    make(map[string][]models.TrackRef),
		Searches:  make(map[string][]models.Track),
		Errors:    make(map[string]error),
	}
}

// AddTrack stores t for Track lookups.
func (f *FakeCatalog) AddTrack(t models.Track) {
	f.Tracks[t.ID] = t
}

// Calls returns a copy of the recorded calls in order.
func (f *FakeCatalog) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns the recorded calls for method.
func (f *FakeCatalog) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeCatalog) enter(ctx context.Context, c Call) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err, ok := f.Errors["*"]; ok {
		return err
	}
	if err, ok := f.Errors[c.Method+":"+c.Arg]; ok {
		return err
	}
	return nil
}

func (f *FakeCatalog) Track(ctx context.Context, id string) (*models.Track, error) {
	if err := f.enter(ctx, Call{Method: "track", Arg: id}); err != nil {
		return nil, err
	}
	t, ok := f.Tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}
	return &t, nil
}

func (f *FakeCatalog) Artist(ctx context.Context, id string) (*models.Artist, error) {
	if err := f.enter(ctx, Call{Method: "artist", Arg: id}); err != nil {
		return nil, err
	}
	a, ok := f.Artists[id]
	if !ok {
		return nil, fmt.Errorf("%w: artist %s", shared.ErrNotFound, id)
	}
	return &a, nil
}

func (f *FakeCatalog) ArtistTopTracks(ctx context.Context, id, market string) ([]models.Track, error) {
	if err := f.enter(ctx, Call{Method: "top", Arg: id, Market: market}); err != nil {
		return nil, err
	}
	return slices.Clone(f.TopTracks[id]), nil
}

func (f *FakeCatalog) AlbumTracks(ctx context.Context, id, market string) ([]models.TrackRef, error) {
	if err := f.enter(ctx, Call{Method: "album", Arg: id, Market: market}); err != nil {
		return nil, err
	}
	return slices.Clone(f.Albums[id]), nil
}

func (f *FakeCatalog) Search(ctx context.Context, q, market string, limit int) ([]models.Track, error) {
	if err := f.enter(ctx, Call{Method: "search", Arg: q, Market: market, Limit: limit}); err != nil {
		return nil, err
	}
	results := f.Searches[q]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return slices.Clone(results), nil
}

// FakeLibrary is an in-memory test double for [services.Library].
type FakeLibrary struct {
	User      models.User
	Err       error // Returned by every call when set
	AuthToken *oauth2.Token

	mu        sync.Mutex
	playlists []models.Playlist
	items     map[string][]models.PlaylistItem
	nextID    int
}

// NewFakeLibrary returns an empty library for userID.
func NewFakeLibrary(userID string) *FakeLibrary {
	return &FakeLibrary{
		User:  models.User{ID: userID, DisplayName: userID},
		items: make(map[string][]models.PlaylistItem),
	}
}

// Seed adds an existing playlist with trackIDs.
func (l *FakeLibrary) Seed(p models.Playlist, trackIDs ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.playlists = append(l.playlists, p)
	for _, id := range trackIDs {
		l.items[p.ID] = append(l.items[p.ID], models.PlaylistItem{Track: models.Track{ID: id}})
	}
}

// Snapshot returns the playlists in creation order.
func (l *FakeLibrary) Snapshot() []models.Playlist {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.playlists)
}

// ItemIDs returns the track ids in playlistID in order.
func (l *FakeLibrary) ItemIDs(playlistID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := []string{}
	for _, item := range l.items[playlistID] {
		ids = append(ids, item.Track.ID)
	}
	return ids
}

func (l *FakeLibrary) CurrentUser(ctx context.Context) (*models.User, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	u := l.User
	return &u, nil
}

func (l *FakeLibrary) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Snapshot(), nil
}

func (l *FakeLibrary) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	if l.Err != nil {
		return nil, l.Err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	p := models.Playlist{
		ID:          fmt.Sprintf("pl-%d", l.nextID),
		Name:        name,
		Description: description,
		OwnerID:     userID,
		Public:      public,
	}
	l.playlists = append(l.playlists, p)
	return &p, nil
}

func (l *FakeLibrary) PlaylistTracks(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	if l.Err != nil {
		return nil, l.Err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.exists(playlistID) {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, playlistID)
	}
	return slices.Clone(l.items[playlistID]), nil
}

func (l *FakeLibrary) AddItems(ctx context.Context, playlistID string, trackIDs []string) error {
	if l.Err != nil {
		return l.Err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.exists(playlistID) {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, playlistID)
	}
	for _, id := range trackIDs {
		l.items[playlistID] = append(l.items[playlistID], models.PlaylistItem{Track: models.Track{ID: id}})
	}
	return nil
}

func (l *FakeLibrary) RemoveItems(ctx context.Context, playlistID string, trackIDs []string) error {
	if l.Err != nil {
		return l.Err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.exists(playlistID) {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, playlistID)
	}
	l.items[playlistID] = slices.DeleteFunc(l.items[playlistID], func(item models.PlaylistItem) bool {
		return slices.Contains(trackIDs, item.Track.ID)
	})
	return nil
}

func (l *FakeLibrary) exists(playlistID string) bool {
	return slices.ContainsFunc(l.playlists, func(p models.Playlist) bool { return p.ID == playlistID })
}

// FakeUserService combines [FakeCatalog] and [FakeLibrary] into a user-authenticated client.
type FakeUserService struct {
	*FakeCatalog
	*FakeLibrary
	Top []models.Track
}

// NewFakeUserService returns a user service for userID.
func NewFakeUserService(userID string) *FakeUserService {
	return &FakeUserService{
		FakeCatalog: NewFakeCatalog(),
		FakeLibrary: NewFakeLibrary(userID),
	}
}

func (s *FakeUserService) TopTracks(ctx context.Context, limit int, timeRange string) ([]models.Track, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if limit > 0 && len(s.Top) > limit {
		return slices.Clone(s.Top[:limit]), nil
	}
	return slices.Clone(s.Top), nil
}

func (s *FakeUserService) Token() (*oauth2.Token, error) {
	if s.AuthToken == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.AuthToken, nil
}
