// package formatter renders similar-track results as plain text, Markdown or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatMarkdown, FormatCSV}

// ParseFormat resolves a format name; "md" and "txt" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, markdown or csv)", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	default:
		return "txt"
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1DB954"))
	categoryStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	indexStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(4).Align(lipgloss.Right)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	emptyStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
)

// Render formats resp as f. title heads the text and Markdown output.
func Render(f Format, title string, resp *models.AggregateResponse) ([]byte, error) {
	switch f {
	case FormatText:
		return ExportToText(title, resp)
	case FormatMarkdown:
		return ExportToMarkdown(title, resp)
	case FormatCSV:
		return ExportToCSV(resp)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// ExportToText renders each category as a styled numbered list.
func ExportToText(title string, resp *models.AggregateResponse) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		buf.WriteString(titleStyle.Render(title) + "\n\n")
	}

	for _, key := range models.CategoryKeys {
		cat := resp.Category(key)
		buf.WriteString(categoryStyle.Render(cat.Name))
		buf.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d)", len(cat.Tracks))) + "\n")

		if len(cat.Tracks) == 0 {
			buf.WriteString(emptyStyle.Render("    no tracks found") + "\n\n")
			continue
		}

		for i, track := range cat.Tracks {
			line := fmt.Sprintf("%s - %s", strings.Join(track.ArtistNames(), ", "), track.Title)
			if track.DurationMS > 0 {
				line += mutedStyle.Render(" [" + shared.FormatDuration(track.DurationMS) + "]")
			}
			buf.WriteString(indexStyle.Render(strconv.Itoa(i+1)+".") + " " + line + "\n")
		}
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "%s\n", mutedStyle.Render(fmt.Sprintf("%d tracks", resp.TotalTracks())))
	return buf.Bytes(), nil
}

// ExportToMarkdown renders each category as a section with a numbered list linking to the track.
func ExportToMarkdown(title string, resp *models.AggregateResponse) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", title)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", resp.TotalTracks())

	for _, key := range models.CategoryKeys {
		cat := resp.Category(key)
		fmt.Fprintf(&buf, "## %s\n\n", cat.Name)

		if len(cat.Tracks) == 0 {
			buf.WriteString("_No tracks found._\n\n")
			continue
		}

		for i, track := range cat.Tracks {
			name := track.Title
			if url := track.ExternalURLs["spotify"]; url != "" {
				name = fmt.Sprintf("[%s](%s)", track.Title, url)
			}

			albumPart := ""
			if track.Album.Name != "" {
				albumPart = fmt.Sprintf(" (%s)", track.Album.Name)
			}
			fmt.Fprintf(&buf, "%d. %s - %s%s", i+1, strings.Join(track.ArtistNames(), ", "), name, albumPart)
			if track.DurationMS > 0 {
				fmt.Fprintf(&buf, " [%s]", shared.FormatDuration(track.DurationMS))
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToCSV writes one row per track with columns: Category, Label, Position, ID, Title, Artist, Album,
// Duration, URI.
func ExportToCSV(resp *models.AggregateResponse) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Category", "Label", "Position", "ID", "Title", "Artist", "Album", "Duration", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, key := range models.CategoryKeys {
		cat := resp.Category(key)
		for i, track := range cat.Tracks {
			record := []string{
				key,
				cat.Name,
				strconv.Itoa(i + 1),
				track.ID,
				track.Title,
				strings.Join(track.ArtistNames(), "; "),
				track.Album.Name,
				strconv.Itoa(track.DurationMS / 1000),
				track.URI,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteExport renders resp as f and writes it to path.
//
// Defaults to similar_{seedID}.{ext} when path is empty.
func WriteExport(f Format, title, seedID string, resp *models.AggregateResponse, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("similar_%s.%s", seedID, f.Extension())
	}

	data, err := Render(f, title, resp)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}
