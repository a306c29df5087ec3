package tasks

import (
	"slices"
	"strings"

	"github.com/desertthunder/kurator/internal/models"
)

const (
	defaultFallbackThreshold = 10
	defaultFallbackSize      = 100

	minLLMLimit     = 50
	maxLLMLimit     = 400
	defaultLLMLimit = 300
)

// FilterOptions controls the fallback of [Filter].
//
// When fewer than FallbackThreshold tracks survive, the first FallbackSize tracks of the unfiltered
// input are returned instead.
type FilterOptions struct {
	FallbackThreshold int
	FallbackSize      int
}

// DefaultFilterOptions returns the 10/100 fallback.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{FallbackThreshold: defaultFallbackThreshold, FallbackSize: defaultFallbackSize}
}

// Filter applies tempo, genre and mood constraints to profiles, then trims to a minimum total duration.
//
// Order is preserved except by the duration step, which ranks by danceability+energy before accumulating.
// With no constraints the input is returned unchanged.
func Filter(profiles []models.TrackProfile, c models.ParsedCriteria, opts FilterOptions) []models.TrackProfile {
	filtered := make([]models.TrackProfile, 0, len(profiles))
	for _, p := range profiles {
		if inTempo(p, c.BPM) && genreHit(p, c.Genres) && moodHit(p, c.Moods) {
			filtered = append(filtered, p)
		}
	}

	if minMs := c.MinDuration.Milliseconds(); minMs > 0 {
		filtered = takeDuration(filtered, minMs)
	}

	if len(filtered) < opts.FallbackThreshold {
		n := min(max(opts.FallbackSize, 0), len(profiles))
		return slices.Clone(profiles[:n])
	}
	return filtered
}

// SelectCandidates bounds the filtered set to llmLimit, clamped to [50, 400].
func SelectCandidates(filtered []models.TrackProfile, llmLimit int) []models.TrackProfile {
	n := min(ClampLLMLimit(llmLimit), len(filtered))
	return filtered[:n]
}

// ClampLLMLimit resolves a requested candidate limit.
func ClampLLMLimit(limit int) int {
	return max(minLLMLimit, min(limit, maxLLMLimit))
}

func inTempo(p models.TrackProfile, r *models.Range) bool {
	if r == nil {
		return true
	}
	return p.BPM != nil && r.Contains(*p.BPM)
}

func genreHit(p models.TrackProfile, genres []string) bool {
	if len(genres) == 0 {
		return true
	}
	for _, want := range genres {
		for _, tag := range p.Genres {
			if strings.Contains(strings.ToLower(tag), want) {
				return true
			}
		}
	}
	return false
}

func moodHit(p models.TrackProfile, moods []string) bool {
	if len(moods) == 0 {
		return true
	}
	return MatchesAnyMood(p, moods)
}

func score(p models.TrackProfile) float64 {
	return models.Value(p.Danceability) + models.Value(p.Energy)
}

func takeDuration(profiles []models.TrackProfile, minMs int64) []models.TrackProfile {
	ranked := slices.Clone(profiles)
	slices.SortStableFunc(ranked, func(a, b models.TrackProfile) int {
		sa, sb := score(a), score(b)
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		default:
			return 0
		}
	})

	var sum int64
	taken := make([]models.TrackProfile, 0, len(ranked))
	for _, p := range ranked {
		if sum >= minMs {
			break
		}
		sum += int64(p.DurationMs)
		taken = append(taken, p)
	}
	return taken
}
