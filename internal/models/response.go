package models

// Category keys used in [AggregateResponse.Categories].
const (
	CategoryArtist = "artist"
	CategoryAlbum  = "album"
	CategoryGenre  = "genre"
)

// CategoryKeys lists the category keys in reference order.
var CategoryKeys = []string{CategoryArtist, CategoryAlbum, CategoryGenre}

// CategoryResult is one labelled group of similar tracks.
type CategoryResult struct {
	Name   string  `json:"name"`
	Tracks []Track `json:"tracks"`
}

// AggregateResponse is the categorized similar-tracks result for one seed.
//
// Every key in [CategoryKeys] is present; an empty category has an empty, non-nil track list.
type AggregateResponse struct {
	Categories map[string]CategoryResult `json:"categories"`
}

// Category returns the category stored under key.
func (r *AggregateResponse) Category(key string) CategoryResult {
	return r.Categories[key]
}

// TotalTracks counts tracks across all categories.
func (r *AggregateResponse) TotalTracks() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.Tracks)
	}
	return n
}
