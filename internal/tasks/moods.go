package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/kurator/internal/models"
)

// Feature names a numeric audio feature on a [models.TrackProfile].
type Feature string

const (
	FeatureEnergy           Feature = "energy"
	FeatureValence          Feature = "valence"
	FeatureDanceability     Feature = "danceability"
	FeatureAcousticness     Feature = "acousticness"
	FeatureInstrumentalness Feature = "instrumentalness"
	FeatureMode             Feature = "mode"
)

// Comparison is the operator of a [Condition].
type Comparison int

const (
	Above Comparison = iota // value > threshold
	Below                   // value < threshold
	Equals                  // value == threshold, never true for a missing feature
)

// Condition is one threshold test over a feature.
//
// For Above and Below a missing feature compares as 0.
type Condition struct {
	Feature   Feature
	Op        Comparison
	Threshold float64
}

func (c Condition) String() string {
	op := map[Comparison]string{Above: ">", Below: "<", Equals: "="}[c.Op]
	return fmt.Sprintf("%s %s %g", c.Feature, op, c.Threshold)
}

// Holds evaluates c against p.
func (c Condition) Holds(p models.TrackProfile) bool {
	v, ok := featureValue(p, c.Feature)
	switch c.Op {
	case Above:
		return v > c.Threshold
	case Below:
		return v < c.Threshold
	case Equals:
		return ok && v == c.Threshold
	default:
		return false
	}
}

// Mood is a named predicate over audio features. Conditions are ANDed unless AnyOf is set.
type Mood struct {
	Name       string
	Aliases    []string
	AnyOf      bool
	Conditions []Condition
}

// Matches reports whether p satisfies the mood.
func (m Mood) Matches(p models.TrackProfile) bool {
	if len(m.Conditions) == 0 {
		return false
	}
	for _, c := range m.Conditions {
		held := c.Holds(p)
		if m.AnyOf && held {
			return true
		}
		if !m.AnyOf && !held {
			return false
		}
	}
	return !m.AnyOf
}

func (m Mood) String() string {
	parts := make([]string, len(m.Conditions))
	for i, c := range m.Conditions {
		parts[i] = c.String()
	}
	join := " AND "
	if m.AnyOf {
		join = " OR "
	}
	return m.Name + ": " + strings.Join(parts, join)
}

// MoodTableVersion changes whenever a threshold in [MoodTable] does.
const MoodTableVersion = 1

// MoodTable is the canonical mood mapping. The Swedish aliases are the keywords older clients send.
var MoodTable = []Mood{
	{Name: "happy", Aliases: []string{"glad"}, Conditions: []Condition{
		{FeatureValence, Above, 0.6},
	}},
	{Name: "energetic", Aliases: []string{"energisk"}, Conditions: []Condition{
		{FeatureEnergy, Above, 0.6},
	}},
	{Name: "focus", Aliases: []string{"fokus"}, Conditions: []Condition{
		{FeatureEnergy, Below, 0.5},
		{FeatureValence, Below, 0.6},
	}},
	{Name: "relaxed", Aliases: []string{"avslappnad"}, Conditions: []Condition{
		{FeatureEnergy, Below, 0.4},
	}},
	{Name: "sad", Aliases: []string{"ledsen"}, Conditions: []Condition{
		{FeatureValence, Below, 0.3},
	}},
	{Name: "romantic", Aliases: []string{"romantisk"}, Conditions: []Condition{
		{FeatureValence, Above, 0.6},
		{FeatureAcousticness, Above, 0.3},
	}},
	{Name: "workout", Aliases: []string{"träning"}, Conditions: []Condition{
		{FeatureEnergy, Above, 0.7},
		{FeatureDanceability, Above, 0.6},
	}},
	{Name: "party", Aliases: []string{"fest"}, Conditions: []Condition{
		{FeatureDanceability, Above, 0.7},
	}},
	{Name: "cozy", Aliases: []string{"mysig"}, Conditions: []Condition{
		{FeatureAcousticness, Above, 0.4},
	}},
	{Name: "dramatic", Aliases: []string{"dramatisk"}, AnyOf: true, Conditions: []Condition{
		{FeatureInstrumentalness, Above, 0.3},
		{FeatureMode, Equals, 0},
	}},
	{Name: "melancholic", Aliases: []string{"melankolisk"}, Conditions: []Condition{
		{FeatureValence, Below, 0.4},
	}},
	{Name: "hopeful", Aliases: []string{"hoppfull"}, Conditions: []Condition{
		{FeatureValence, Above, 0.6},
		{FeatureEnergy, Above, 0.5},
	}},
}

var moodIndex = buildMoodIndex(MoodTable)

func buildMoodIndex(table []Mood) map[string]Mood {
	idx := make(map[string]Mood, len(table)*2)
	for _, m := range table {
		idx[m.Name] = m
		for _, a := range m.Aliases {
			idx[a] = m
		}
	}
	return idx
}

// LookupMood finds a mood by name or alias, case-insensitively.
func LookupMood(keyword string) (Mood, bool) {
	m, ok := moodIndex[strings.ToLower(strings.TrimSpace(keyword))]
	return m, ok
}

// MatchesAnyMood reports whether p matches at least one keyword. Unknown keywords never match.
func MatchesAnyMood(p models.TrackProfile, keywords []string) bool {
	for _, k := range keywords {
		if m, ok := LookupMood(k); ok && m.Matches(p) {
			return true
		}
	}
	return false
}

func featureValue(p models.TrackProfile, f Feature) (float64, bool) {
	var ptr *float64
	switch f {
	case FeatureEnergy:
		ptr = p.Energy
	case FeatureValence:
		ptr = p.Valence
	case FeatureDanceability:
		ptr = p.Danceability
	case FeatureAcousticness:
		ptr = p.Acousticness
	case FeatureInstrumentalness:
		ptr = p.Instrumentalness
	case FeatureMode:
		if p.Mode == nil {
			return 0, false
		}
		return float64(*p.Mode), true
	}
	return models.Value(ptr), ptr != nil
}
