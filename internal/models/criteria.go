package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/kurator/internal/shared"
)

// Criteria is the caller's filter request as received on the wire.
type Criteria struct {
	Genre    string  `json:"genre,omitempty"`
	Mood     string  `json:"mood,omitempty"`
	BPMRange string  `json:"bpmRange,omitempty"`
	Length   Minutes `json:"length,omitempty"`
}

// Minutes accepts a JSON number or numeric string; anything else decodes to 0.
type Minutes int

func (m *Minutes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*m = 0
			return nil
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil || n < 0 {
		*m = 0
		return nil
	}
	*m = Minutes(int(n))
	return nil
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ParsedCriteria is [Criteria] after parsing. Zero values mean "unconstrained".
type ParsedCriteria struct {
	Genres      []string
	Moods       []string
	BPM         *Range
	MinDuration time.Duration
}

// Empty reports whether no constraint is set.
func (p ParsedCriteria) Empty() bool {
	return len(p.Genres) == 0 && len(p.Moods) == 0 && p.BPM == nil && p.MinDuration <= 0
}

// ParseCriteria parses c, degrading invalid sub-fields to "no constraint".
func ParseCriteria(c Criteria) ParsedCriteria {
	parsed := ParsedCriteria{
		Genres: shared.SplitList(c.Genre),
		Moods:  shared.SplitList(c.Mood),
		BPM:    parseBPMRange(c.BPMRange),
	}
	if c.Length > 0 {
		parsed.MinDuration = time.Duration(c.Length) * time.Minute
	}
	return parsed
}

// parseBPMRange reads "min-max". Both ends must be integers; a reversed range is normalised.
func parseBPMRange(s string) *Range {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return nil
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return &Range{Min: float64(lo), Max: float64(hi)}
}
