package tasks

import (
	"testing"

	"github.com/desertthunder/kurator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinFixture() ([]models.TrackStub, map[string]models.AudioFeatures, map[string][]string) {
	tracks := []models.TrackStub{
		{
			ID: "t1", URI: "spotify:track:t1", Name: "One", DurationMs: 200_000, ReleaseDate: "2019-05-01",
			Artists: []models.Artist{{ID: "a1", Name: "Ada"}, {ID: "a2", Name: "Bo"}},
		},
		{
			ID: "t2", URI: "spotify:track:t2", Name: "Two", DurationMs: -5, ReleaseDate: "98",
			Artists: []models.Artist{{ID: "a3", Name: "Cy"}},
		},
	}
	features := map[string]models.AudioFeatures{
		"t1": {ID: "t1", Tempo: 124, Energy: 0.8, Danceability: 0.7, Valence: 0.5, Acousticness: 0.1, Instrumentalness: 0.2, Mode: 0},
	}
	genres := map[string][]string{
		"a1": {"deep house", "house", "tech house", "minimal"},
		"a2": {"house", "disco", "nu disco", "italo", "electro"},
	}
	return tracks, features, genres
}

func TestJoinProfiles(t *testing.T) {
	tracks, features, genres := joinFixture()
	profiles := JoinProfiles(tracks, features, genres)
	require.Len(t, profiles, 2)

	t.Run("Joins Features", func(t *testing.T) {
		p := profiles[0]
		assert.Equal(t, "t1", p.ID)
		assert.Equal(t, []string{"Ada", "Bo"}, p.ArtistNames)
		assert.Equal(t, "2019", p.Year)
		require.NotNil(t, p.BPM)
		assert.Equal(t, 124.0, *p.BPM)
		require.NotNil(t, p.Mode)
		assert.Equal(t, 0, *p.Mode)
	})

	t.Run("Unions Genres Capped At Six", func(t *testing.T) {
		assert.Equal(t, []string{"deep house", "house", "tech house", "minimal", "disco", "nu disco"}, profiles[0].Genres)
	})

	t.Run("Missing Features Are Nil", func(t *testing.T) {
		p := profiles[1]
		assert.Nil(t, p.BPM)
		assert.Nil(t, p.Energy)
		assert.Nil(t, p.Mode)
		assert.Empty(t, p.Genres)
		assert.NotNil(t, p.Genres)
		assert.Equal(t, "98", p.Year)
		assert.Equal(t, 0, p.DurationMs)
	})

	t.Run("Idempotent", func(t *testing.T) {
		again := JoinProfiles(tracks, features, genres)
		assert.Equal(t, profiles, again)
	})

	t.Run("JoinCatalog", func(t *testing.T) {
		got := JoinCatalog(&Catalog{Tracks: tracks, Features: features, Genres: genres})
		assert.Equal(t, profiles, got)
	})
}

func TestReleaseYear(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2019-05-01", "2019"},
		{"2019", "2019"},
		{"", ""},
		{"19", "19"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, releaseYear(tt.in))
		})
	}
}
