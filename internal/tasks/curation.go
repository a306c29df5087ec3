package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/services"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/samber/lo"
)

const (
	maxTitleLen       = 90
	maxDescriptionLen = 300
	maxPromptGenres   = 3
	defaultLanguage   = "English"
	unknownOwner      = "unknown"
)

const systemPromptTemplate = `You are a music curator. Choose 30-60 tracks ONLY from "candidates" (by track id). ` +
	`Order them dramaturgically (opening, build to a peak, landing). Write "playlist_title" (at most 90 characters), ` +
	`"playlist_description" (at most 300 characters) and 4-5 trivia cards. ` +
	`Reply ONLY with JSON: {"playlist_title":"","playlist_description":"","curated_tracks":["id",...],"summary":"",` +
	`"cards":[{"title":"","emoji":"","body":"","why_it_matters":""}]}. ` +
	`Write in %s.`

// CurationRequest is the input to [Curator.Curate].
type CurationRequest struct {
	Criteria     models.Criteria
	Candidates   []models.TrackProfile
	PlaylistName string
	OwnerName    string
}

// promptCandidate is the reduced track sent to the model.
type promptCandidate struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Artists      []string `json:"artists"`
	Year         string   `json:"year"`
	BPM          *float64 `json:"bpm"`
	Energy       *float64 `json:"energy"`
	Danceability *float64 `json:"danceability"`
	Valence      *float64 `json:"valence"`
	Genres       []string `json:"genres"`
	DurationMs   int      `json:"duration_ms"`
}

// Curator asks a language model to pick and order tracks from a candidate set.
type Curator struct {
	completer services.Completer
	language  string
	logger    *log.Logger
}

// NewCurator creates a Curator. An empty language means English.
func NewCurator(c services.Completer, language string, logger *log.Logger) *Curator {
	if language == "" {
		language = defaultLanguage
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Curator{completer: c, language: language, logger: logger}
}

// Curate returns the model's selection, restricted to the candidate ids.
//
// Upstream failures are returned as errors. A reply that cannot be parsed yields an empty
// [models.CurationResult] and no error, so one bad generation does not fail the run.
func (c *Curator) Curate(ctx context.Context, req CurationRequest) (models.CurationResult, error) {
	user, err := buildUserPrompt(req)
	if err != nil {
		return models.CurationResult{}, fmt.Errorf("build prompt: %w", err)
	}

	content, err := c.completer.Complete(ctx, c.SystemPrompt(), user)
	if err != nil {
		if errors.Is(err, shared.ErrMalformedModelOutput) {
			c.logger.Warn("model reply unreadable, continuing without curation", "err", err)
			return emptyCuration(), nil
		}
		return models.CurationResult{}, err
	}

	result, err := parseCuration(content)
	if err != nil {
		c.logger.Warn("model reply unreadable, continuing without curation", "err", err)
		return emptyCuration(), nil
	}

	before := len(result.CuratedTrackIDs)
	result = validateCuration(result, req.Candidates)
	if dropped := before - len(result.CuratedTrackIDs); dropped > 0 {
		c.logger.Debug("dropped ids outside candidate set", "dropped", dropped)
	}
	return result, nil
}

// SystemPrompt returns the instruction sent with every request.
func (c *Curator) SystemPrompt() string {
	return fmt.Sprintf(systemPromptTemplate, c.language)
}

func buildUserPrompt(req CurationRequest) (string, error) {
	criteria, err := json.MarshalIndent(req.Criteria, "", "  ")
	if err != nil {
		return "", err
	}

	reduced := lo.Map(req.Candidates, func(p models.TrackProfile, _ int) promptCandidate {
		genres := p.Genres
		if len(genres) > maxPromptGenres {
			genres = genres[:maxPromptGenres]
		}
		return promptCandidate{
			ID:           p.ID,
			Name:         p.Name,
			Artists:      p.ArtistNames,
			Year:         p.Year,
			BPM:          p.BPM,
			Energy:       p.Energy,
			Danceability: p.Danceability,
			Valence:      p.Valence,
			Genres:       genres,
			DurationMs:   p.DurationMs,
		}
	})
	candidates, err := json.MarshalIndent(reduced, "", "  ")
	if err != nil {
		return "", err
	}

	owner := req.OwnerName
	if owner == "" {
		owner = unknownOwner
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CRITERIA:\n%s\n\n", criteria)
	fmt.Fprintf(&b, "CANDIDATES:\n%s\n", candidates)
	fmt.Fprintf(&b, "Playlist: %s (owner: %s)", req.PlaylistName, owner)
	return b.String(), nil
}

// parseCuration decodes the model's JSON, tolerating a surrounding markdown code fence.
func parseCuration(content string) (models.CurationResult, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var result models.CurationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return models.CurationResult{}, fmt.Errorf("%w: %v", shared.ErrMalformedModelOutput, err)
	}
	return result, nil
}

// validateCuration keeps only candidate ids (first occurrence, model order) and truncates text fields.
func validateCuration(r models.CurationResult, candidates []models.TrackProfile) models.CurationResult {
	allowed := lo.SliceToMap(candidates, func(p models.TrackProfile) (string, struct{}) { return p.ID, struct{}{} })

	ids := lo.FilterMap(r.CuratedTrackIDs, func(id string, _ int) (string, bool) {
		id = strings.TrimPrefix(strings.TrimSpace(id), "spotify:track:")
		_, ok := allowed[id]
		return id, ok
	})

	r.CuratedTrackIDs = lo.Uniq(ids)
	r.PlaylistTitle = shared.Truncate(strings.TrimSpace(r.PlaylistTitle), maxTitleLen)
	r.PlaylistDescription = shared.Truncate(strings.TrimSpace(r.PlaylistDescription), maxDescriptionLen)
	if r.Cards == nil {
		r.Cards = []models.Card{}
	}
	return r
}

func emptyCuration() models.CurationResult {
	return models.CurationResult{CuratedTrackIDs: []string{}, Cards: []models.Card{}}
}
