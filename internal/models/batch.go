package models

import (
	"sort"
	"time"
)

// BatchSummary accumulates per-session statistics for the two-phase /batch protocol.
//
// Batches are folded in arrival order; [BatchSummary.Received] records that order.
type BatchSummary struct {
	UserID          string         `json:"userId"`
	TotalBatches    int            `json:"totalBatches"`
	Received        []int          `json:"received"`
	TrackCount      int            `json:"trackCount"`
	TotalDurationMs int64          `json:"totalDurationMs"`
	GenreCounts     map[string]int `json:"genreCounts"`
	EnergySum       float64        `json:"energySum"`
	ValenceSum      float64        `json:"valenceSum"`
	DanceSum        float64        `json:"danceabilitySum"`
	FeatureCount    int            `json:"featureCount"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// NewBatchSummary starts an empty summary for userID.
func NewBatchSummary(userID string, totalBatches int, now time.Time) *BatchSummary {
	return &BatchSummary{
		UserID:       userID,
		TotalBatches: totalBatches,
		GenreCounts:  map[string]int{},
		CreatedAt:    now,
	}
}

// Add folds one batch of tracks into the summary.
func (s *BatchSummary) Add(batchNumber int, tracks []TrackProfile) {
	if s.GenreCounts == nil {
		s.GenreCounts = map[string]int{}
	}
	s.Received = append(s.Received, batchNumber)
	for _, t := range tracks {
		s.TrackCount++
		s.TotalDurationMs += int64(t.DurationMs)
		for _, g := range t.Genres {
			s.GenreCounts[g]++
		}
		if t.Energy != nil || t.Valence != nil || t.Danceability != nil {
			s.FeatureCount++
			s.EnergySum += Value(t.Energy)
			s.ValenceSum += Value(t.Valence)
			s.DanceSum += Value(t.Danceability)
		}
	}
}

// Complete reports whether every batch number 1..TotalBatches has arrived.
func (s *BatchSummary) Complete() bool {
	if s.TotalBatches <= 0 {
		return false
	}
	seen := make(map[int]bool, len(s.Received))
	for _, n := range s.Received {
		if n >= 1 && n <= s.TotalBatches {
			seen[n] = true
		}
	}
	return len(seen) == s.TotalBatches
}

// GenreCount is one row of [BatchReport.TopGenres].
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// BatchReport is the read-only view returned when a session is analysed.
type BatchReport struct {
	UserID          string       `json:"userId"`
	Batches         int          `json:"batches"`
	TotalBatches    int          `json:"totalBatches"`
	Complete        bool         `json:"complete"`
	TrackCount      int          `json:"trackCount"`
	TotalDurationMs int64        `json:"totalDurationMs"`
	AvgEnergy       *float64     `json:"avgEnergy"`
	AvgValence      *float64     `json:"avgValence"`
	AvgDanceability *float64     `json:"avgDanceability"`
	TopGenres       []GenreCount `json:"topGenres"`
}

// Report computes averages and the ten most frequent genres.
func (s *BatchSummary) Report() BatchReport {
	r := BatchReport{
		UserID:          s.UserID,
		Batches:         len(s.Received),
		TotalBatches:    s.TotalBatches,
		Complete:        s.Complete(),
		TrackCount:      s.TrackCount,
		TotalDurationMs: s.TotalDurationMs,
		TopGenres:       []GenreCount{},
	}
	if s.FeatureCount > 0 {
		n := float64(s.FeatureCount)
		r.AvgEnergy = Float(s.EnergySum / n)
		r.AvgValence = Float(s.ValenceSum / n)
		r.AvgDanceability = Float(s.DanceSum / n)
	}

	for g, c := range s.GenreCounts {
		r.TopGenres = append(r.TopGenres, GenreCount{Genre: g, Count: c})
	}
	sort.Slice(r.TopGenres, func(i, j int) bool {
		if r.TopGenres[i].Count != r.TopGenres[j].Count {
			return r.TopGenres[i].Count > r.TopGenres[j].Count
		}
		return r.TopGenres[i].Genre < r.TopGenres[j].Genre
	})
	if len(r.TopGenres) > 10 {
		r.TopGenres = r.TopGenres[:10]
	}
	return r
}
