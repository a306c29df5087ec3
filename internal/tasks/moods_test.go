package tasks

import (
	"testing"

	"github.com/desertthunder/kurator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type featureSet struct {
	energy, valence, dance, acoustic, instrumental *float64
	mode                                           *int
}

func (f featureSet) profile() models.TrackProfile {
	return models.TrackProfile{
		ID:               "x",
		Energy:           f.energy,
		Valence:          f.valence,
		Danceability:     f.dance,
		Acousticness:     f.acoustic,
		Instrumentalness: f.instrumental,
		Mode:             f.mode,
	}
}

func TestMoodTable(t *testing.T) {
	f := models.Float

	t.Run("Twelve Moods With Aliases", func(t *testing.T) {
		assert.Len(t, MoodTable, 12)
		for _, m := range MoodTable {
			assert.NotEmpty(t, m.Aliases, m.Name)
			byAlias, ok := LookupMood(m.Aliases[0])
			require.True(t, ok)
			assert.Equal(t, m.Name, byAlias.Name)
		}
	})

	tests := []struct {
		name  string
		mood  string
		feats featureSet
		want  bool
	}{
		{"happy above", "happy", featureSet{valence: f(0.61)}, true},
		{"glad boundary", "glad", featureSet{valence: f(0.6)}, false},
		{"glad rejects high energy", "glad", featureSet{valence: f(0.59), energy: f(0.9)}, false},
		{"energetic", "energisk", featureSet{energy: f(0.61)}, true},
		{"focus", "fokus", featureSet{energy: f(0.3), valence: f(0.5)}, true},
		{"focus too bright", "focus", featureSet{energy: f(0.3), valence: f(0.6)}, false},
		{"relaxed", "avslappnad", featureSet{energy: f(0.39)}, true},
		{"sad", "ledsen", featureSet{valence: f(0.29)}, true},
		{"romantic", "romantisk", featureSet{valence: f(0.7), acoustic: f(0.31)}, true},
		{"romantic not acoustic", "romantic", featureSet{valence: f(0.7), acoustic: f(0.3)}, false},
		{"workout", "träning", featureSet{energy: f(0.71), dance: f(0.61)}, true},
		{"workout low dance", "workout", featureSet{energy: f(0.9), dance: f(0.6)}, false},
		{"party", "fest", featureSet{dance: f(0.71)}, true},
		{"cozy", "mysig", featureSet{acoustic: f(0.41)}, true},
		{"dramatic instrumental", "dramatisk", featureSet{instrumental: f(0.31), mode: models.Int(1)}, true},
		{"dramatic minor", "dramatic", featureSet{instrumental: f(0.0), mode: models.Int(0)}, true},
		{"dramatic major", "dramatic", featureSet{instrumental: f(0.1), mode: models.Int(1)}, false},
		{"dramatic missing mode", "dramatic", featureSet{}, false},
		{"melancholic", "melankolisk", featureSet{valence: f(0.39)}, true},
		{"hopeful", "hoppfull", featureSet{valence: f(0.61), energy: f(0.51)}, true},
		{"hopeful flat", "hopeful", featureSet{valence: f(0.61), energy: f(0.5)}, false},
		{"missing features compare as zero", "sad", featureSet{}, true},
		{"missing features fail above", "happy", featureSet{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := LookupMood(tt.mood)
			require.True(t, ok)
			assert.Equal(t, tt.want, m.Matches(tt.feats.profile()))
		})
	}
}

func TestMatchesAnyMood(t *testing.T) {
	p := featureSet{valence: models.Float(0.7), energy: models.Float(0.2)}.profile()

	t.Run("Any Keyword", func(t *testing.T) {
		assert.True(t, MatchesAnyMood(p, []string{"sad", "happy"}))
	})

	t.Run("Unknown Keyword Never Matches", func(t *testing.T) {
		assert.False(t, MatchesAnyMood(p, []string{"euphoric"}))
	})

	t.Run("Case Insensitive", func(t *testing.T) {
		assert.True(t, MatchesAnyMood(p, []string{"HAPPY"}))
	})
}

func TestMoodString(t *testing.T) {
	m, ok := LookupMood("dramatic")
	require.True(t, ok)
	assert.Equal(t, "dramatic: instrumentalness > 0.3 OR mode = 0", m.String())
}
