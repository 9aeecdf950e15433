package models

// Image is an artwork resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// ArtistRef identifies an artist credited on a track.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlbumRef identifies the album a track belongs to.
type AlbumRef struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images,omitempty"`
}

// Track is a catalog track snapshot.
//
// JSON field names follow the catalog's own track object so API consumers see a familiar shape.
type Track struct {
	ID               string            `json:"id"`
	Title            string            `json:"name"`
	Artists          []ArtistRef       `json:"artists"`
	Album            AlbumRef          `json:"album"`
	AvailableMarkets []string          `json:"available_markets,omitempty"`
	DurationMS       int               `json:"duration_ms,omitempty"`
	Popularity       int               `json:"popularity,omitempty"`
	PreviewURL       string            `json:"preview_url,omitempty"`
	ExternalURLs     map[string]string `json:"external_urls,omitempty"`
	URI              string            `json:"uri,omitempty"`
}

// PrimaryArtist returns the first credited artist, or false when the track has none.
func (t Track) PrimaryArtist() (ArtistRef, bool) {
	if len(t.Artists) == 0 {
		return ArtistRef{}, false
	}
	return t.Artists[0], true
}

// ArtistNames returns the credited artist names in order.
func (t Track) ArtistNames() []string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return names
}

// TrackRef is the light projection returned by album listings; a full [Track] needs a follow-up fetch.
type TrackRef struct {
	ID    string `json:"id"`
	Title string `json:"name"`
}

// Artist is a catalog artist with its ordered genres.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}
