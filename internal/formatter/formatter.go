// package formatter renders track lists as plain text, JSON, CSV or Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/jammming/internal/models"
	"github.com/desertthunder/jammming/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
)

// Formats lists every supported format, in help-text order.
var Formats = []Format{Text, JSON, CSV, Markdown}

// ParseFormat resolves a --format value. "md" is accepted for Markdown.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, name)
}

// Render encodes tracks in format f. title heads the text and Markdown outputs.
func Render(f Format, title string, tracks []models.Track) ([]byte, error) {
	switch f {
	case Text, "":
		return ToText(title, tracks), nil
	case JSON:
		return ToJSON(tracks)
	case CSV:
		return ToCSV(tracks)
	case Markdown:
		return ToMarkdown(title, tracks), nil
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
}

// Write renders tracks to w.
func Write(w io.Writer, f Format, title string, tracks []models.Track) error {
	data, err := Render(f, title, tracks)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile renders tracks into path.
func WriteFile(path string, f Format, title string, tracks []models.Track) error {
	data, err := Render(f, title, tracks)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ToCSV encodes tracks with columns: ID, Name, Artist, Album, URI
func ToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Artist", "Album", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range tracks {
		if err := writer.Write([]string{t.ID, t.Name, t.Artist, t.Album, t.URI}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToJSON encodes tracks as an indented array. An empty list is "[]", never "null".
func ToJSON(tracks []models.Track) ([]byte, error) {
	if tracks == nil {
		tracks = []models.Track{}
	}
	data, err := shared.MarshalJSON(tracks, true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tracks: %w", err)
	}
	return append(data, '\n'), nil
}

// ToMarkdown renders a heading and a table of tracks.
func ToMarkdown(title string, tracks []models.Track) []byte {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", title)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(tracks))

	if len(tracks) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("| # | Name | Artist | Album | URI |\n")
	buf.WriteString("|---|------|--------|-------|-----|\n")
	for i, t := range tracks {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | `%s` |\n", i+1, cell(t.Name), cell(t.Artist), cell(t.Album), t.URI)
	}

	return buf.Bytes()
}

// ToText renders a numbered list.
func ToText(title string, tracks []models.Track) []byte {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "%s\n", title)
	}
	if len(tracks) == 0 {
		buf.WriteString("No tracks found.\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(tracks))
	for i, t := range tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, t.Artist, t.Name)
		fmt.Fprintf(&buf, "   Album: %s\n", t.Album)
		fmt.Fprintf(&buf, "   URI: %s\n", t.URI)
	}

	return buf.Bytes()
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
