// package formatter renders curation results as text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/desertthunder/kurator/internal/tasks"
	"github.com/samber/lo"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its common short form (md, txt).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Extension is the file extension used by [WriteExport].
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	}
	return ".txt"
}

// Render writes result to w in format.
func Render(w io.Writer, result *tasks.AnalyzeResult, format Format, palette *Palette) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatMarkdown:
		data, err = ExportToMarkdown(result)
	case FormatCSV:
		data, err = ExportToCSV(result)
	case FormatJSON:
		data, err = ExportToJSON(result)
	default:
		data, err = ExportToText(result, palette)
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ExportToCSV writes the curated tracks with columns: ID, Name, Artists, Year, BPM, Energy, Danceability, Duration, Genres
func ExportToCSV(result *tasks.AnalyzeResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artists", "Year", "BPM", "Energy", "Danceability", "Duration", "Genres"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range result.Curated {
		record := []string{
			track.ID,
			track.Name,
			strings.Join(track.ArtistNames, "; "),
			track.Year,
			optional(track.BPM, 0),
			optional(track.Energy, 2),
			optional(track.Danceability, 2),
			strconv.Itoa(track.DurationMs / 1000),
			strings.Join(track.Genres, "; "),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the curated playlist, the model's summary and its trivia cards.
func ExportToMarkdown(result *tasks.AnalyzeResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(result))

	if desc := lo.FromPtr(result.LLMDescription); desc != "" {
		fmt.Fprintf(&buf, "%s\n\n", desc)
	}

	fmt.Fprintf(&buf, "**Source**: %s (%s)\n", result.PlaylistMeta.Name, result.PlaylistMeta.Owner)
	fmt.Fprintf(&buf, "**Tracks**: %d of %d (candidates: %d)\n", result.Counts.Curated, result.Counts.Original, result.Counts.Candidates)
	fmt.Fprintf(&buf, "**Duration**: %s\n", shared.FormatDuration(totalDuration(result.Curated)))
	if result.NewPlaylist != nil && result.NewPlaylist.ExternalURL != "" {
		fmt.Fprintf(&buf, "**Playlist**: [%s](%s)\n", result.NewPlaylist.ID, result.NewPlaylist.ExternalURL)
	}
	buf.WriteString("\n")

	if result.Analysis.Summary != "" {
		fmt.Fprintf(&buf, "## Summary\n\n%s\n\n", result.Analysis.Summary)
	}

	if len(result.Analysis.Cards) > 0 {
		buf.WriteString("## Cards\n\n")
		for _, card := range result.Analysis.Cards {
			fmt.Fprintf(&buf, "### %s\n\n%s\n", strings.TrimSpace(card.Emoji+" "+card.Title), card.Body)
			if card.WhyItMatters != "" {
				fmt.Fprintf(&buf, "\n> %s\n", card.WhyItMatters)
			}
			buf.WriteString("\n")
		}
	}

	buf.WriteString("## Tracks\n\n")
	for i, track := range result.Curated {
		yearPart := ""
		if track.Year != "" {
			yearPart = fmt.Sprintf(" (%s)", track.Year)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, artists(track), track.Name, yearPart, shared.FormatDuration(track.DurationMs))
	}

	return buf.Bytes(), nil
}

// ExportToText renders a terminal summary. A nil palette uses [DefaultPalette].
func ExportToText(result *tasks.AnalyzeResult, palette *Palette) ([]byte, error) {
	if palette == nil {
		palette = DefaultPalette
	}
	var buf bytes.Buffer

	buf.WriteString(palette.title.Render(title(result)) + "\n")
	if desc := lo.FromPtr(result.LLMDescription); desc != "" {
		buf.WriteString(palette.body.Render(desc) + "\n")
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "Source:   %s (%s)\n", result.PlaylistMeta.Name, result.PlaylistMeta.Owner)
	fmt.Fprintf(&buf, "Tracks:   %d of %d, %d candidates\n", result.Counts.Curated, result.Counts.Original, result.Counts.Candidates)
	fmt.Fprintf(&buf, "Duration: %s\n", shared.FormatDuration(totalDuration(result.Curated)))

	switch {
	case result.NewPlaylist != nil:
		fmt.Fprintf(&buf, "Playlist: %s\n", palette.accent.Render(lo.CoalesceOrEmpty(result.NewPlaylist.ExternalURL, result.NewPlaylist.ID)))
	case len(result.CuratedIDs) == 0:
		buf.WriteString(palette.warn.Render("Nothing matched; no playlist created.") + "\n")
	}
	buf.WriteString("\n")

	if result.Analysis.Summary != "" {
		buf.WriteString(palette.body.Render(result.Analysis.Summary) + "\n\n")
	}
	for _, card := range result.Analysis.Cards {
		buf.WriteString(palette.accent.Render(strings.TrimSpace(card.Emoji+" "+card.Title)) + "\n")
		buf.WriteString(palette.body.Render(card.Body) + "\n")
		if card.WhyItMatters != "" {
			buf.WriteString(palette.muted.Render(card.WhyItMatters) + "\n")
		}
		buf.WriteString("\n")
	}

	for i, track := range result.Curated {
		fmt.Fprintf(&buf, "%3d. %s - %s %s\n", i+1, artists(track), track.Name,
			palette.muted.Render("["+shared.FormatDuration(track.DurationMs)+"]"))
	}

	return buf.Bytes(), nil
}

// ExportToJSON returns the result exactly as POST /analyze would, indented.
func ExportToJSON(result *tasks.AnalyzeResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport writes result to path in format.
//
// Defaults to kurator_{playlist id or "result"}{ext} as the filename.
func WriteExport(result *tasks.AnalyzeResult, format Format, path string) (string, error) {
	if path == "" {
		base := "result"
		if result.NewPlaylist != nil && result.NewPlaylist.ID != "" {
			base = result.NewPlaylist.ID
		}
		path = "kurator_" + base + format.Extension()
	}

	var buf bytes.Buffer
	if err := Render(&buf, result, format, PlainPalette); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

func title(result *tasks.AnalyzeResult) string {
	return lo.CoalesceOrEmpty(lo.FromPtr(result.LLMTitle), "Kurator • "+result.PlaylistMeta.Name)
}

func artists(t models.TrackProfile) string {
	if len(t.ArtistNames) == 0 {
		return "Unknown"
	}
	return strings.Join(t.ArtistNames, ", ")
}

func totalDuration(tracks []models.TrackProfile) int {
	return lo.SumBy(tracks, func(t models.TrackProfile) int { return t.DurationMs })
}

func optional(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
