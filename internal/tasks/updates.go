package tasks

import (
	"fmt"

	"github.com/desertthunder/kurator/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI or server log for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline state entered
	Step    int    // Current step number
	Total   int    // Total steps in a successful run
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase is a pipeline state. States only move forward; [Failed] is terminal.
type Phase int

const (
	Start Phase = iota
	MetaFetched
	ProfilesBuilt
	CandidatesSelected
	Curated
	PlaylistCreated
	Skipped
	Responded
	Failed
)

// totalSteps counts the states of a successful run, where exactly one of PlaylistCreated/Skipped is taken.
const totalSteps = 7

func (p Phase) String() string {
	switch p {
	case Start:
		return "start"
	case MetaFetched:
		return "meta_fetched"
	case ProfilesBuilt:
		return "profiles_built"
	case CandidatesSelected:
		return "candidates_selected"
	case Curated:
		return "curated"
	case PlaylistCreated:
		return "playlist_created"
	case Skipped:
		return "skipped"
	case Responded:
		return "responded"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether no transition leaves p.
func (p Phase) Terminal() bool {
	return p == Responded || p == Failed
}

func startUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Start,
		Step:    1,
		Total:   totalSteps,
		Message: fmt.Sprintf("Fetching playlist %s...", playlistID),
	}
}

func metaFetchedUpdate(meta models.PlaylistMeta) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MetaFetched,
		Step:    2,
		Total:   totalSteps,
		Message: fmt.Sprintf("Found playlist: %s by %s (%d tracks)", meta.Name, meta.Owner, meta.Total),
		Data:    meta,
	}
}

func profilesBuiltUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProfilesBuilt,
		Step:    3,
		Total:   totalSteps,
		Message: fmt.Sprintf("Built %d track profiles", count),
	}
}

func candidatesSelectedUpdate(candidates, original int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CandidatesSelected,
		Step:    4,
		Total:   totalSteps,
		Message: fmt.Sprintf("Selected %d of %d tracks as candidates", candidates, original),
	}
}

func curatedUpdate(result models.CurationResult) ProgressUpdate {
	title := result.PlaylistTitle
	if title == "" {
		title = "(untitled)"
	}
	return ProgressUpdate{
		Phase:   Curated,
		Step:    5,
		Total:   totalSteps,
		Message: fmt.Sprintf("Curated %d tracks: %s", len(result.CuratedTrackIDs), title),
	}
}

func playlistCreatedUpdate(ref *models.NewPlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlaylistCreated,
		Step:    6,
		Total:   totalSteps,
		Message: fmt.Sprintf("Playlist created (ID: %s)", ref.ID),
		Data:    ref,
	}
}

// skippedUpdate reports why no playlist was written: reason is "not requested" or "nothing curated".
func skippedUpdate(reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Skipped,
		Step:    6,
		Total:   totalSteps,
		Message: "Skipping playlist creation: " + reason,
	}
}

func respondedUpdate(curated int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Responded,
		Step:    7,
		Total:   totalSteps,
		Message: fmt.Sprintf("Done: %d curated tracks", curated),
	}
}

func failedUpdate(from Phase, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Total:   totalSteps,
		Message: fmt.Sprintf("✗ failed after %s: %v", from, err),
	}
}
