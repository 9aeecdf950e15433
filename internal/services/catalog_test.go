package services

import "testing"

func TestParseTrackID(t *testing.T) {
	const id = "4uLU6hMCjMI75M1A2tKUQC"

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare id", id, id, true},
		{"padded id", "  " + id + "\n", id, true},
		{"uri", "spotify:track:" + id, id, true},
		{"url", "https://open.spotify.com/track/" + id, id, true},
		{"url with query", "https://open.spotify.com/track/" + id + "?si=abc", id, true},
		{"localized url", "https://open.spotify.com/intl-de/track/" + id, id, true},
		{"album url", "https://open.spotify.com/album/" + id, "", false},
		{"other host", "https://example.com/track/" + id, "", false},
		{"search text", "bohemian rhapsody", "", false},
		{"short id", "abc123", "", false},
		{"bad characters", "4uLU6hMCjMI75M1A2tKU-C", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTrackID(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseTrackID(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
