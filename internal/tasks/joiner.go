package tasks

import (
	"github.com/desertthunder/kurator/internal/models"
	"github.com/samber/lo"
)

const maxGenresPerTrack = 6

// JoinProfiles merges track stubs with their audio features and artist genres.
//
// Tracks without features get nil numerics. Genres are the union of the track's artists' genres in
// first-seen order, deduplicated and capped at six. The result has one profile per stub, in order.
func JoinProfiles(tracks []models.TrackStub, features map[string]models.AudioFeatures, genres map[string][]string) []models.TrackProfile {
	profiles := make([]models.TrackProfile, 0, len(tracks))
	for _, t := range tracks {
		profiles = append(profiles, joinProfile(t, features, genres))
	}
	return profiles
}

// JoinCatalog is [JoinProfiles] over a fetched [Catalog].
func JoinCatalog(c *Catalog) []models.TrackProfile {
	return JoinProfiles(c.Tracks, c.Features, c.Genres)
}

func joinProfile(t models.TrackStub, features map[string]models.AudioFeatures, genres map[string][]string) models.TrackProfile {
	p := models.TrackProfile{
		ID:          t.ID,
		URI:         t.URI,
		Name:        t.Name,
		ArtistNames: lo.Map(t.Artists, func(a models.Artist, _ int) string { return a.Name }),
		DurationMs:  max(t.DurationMs, 0),
		Year:        releaseYear(t.ReleaseDate),
		Genres:      trackGenres(t.Artists, genres),
	}

	if f, ok := features[t.ID]; ok {
		p.BPM = models.Float(f.Tempo)
		p.Energy = models.Float(f.Energy)
		p.Danceability = models.Float(f.Danceability)
		p.Valence = models.Float(f.Valence)
		p.Acousticness = models.Float(f.Acousticness)
		p.Instrumentalness = models.Float(f.Instrumentalness)
		p.Mode = models.Int(f.Mode)
	}
	return p
}

func trackGenres(artists []models.Artist, genres map[string][]string) []string {
	all := lo.Uniq(lo.FlatMap(artists, func(a models.Artist, _ int) []string { return genres[a.ID] }))
	if len(all) > maxGenresPerTrack {
		all = all[:maxGenresPerTrack]
	}
	return all
}

// releaseYear keeps the first four characters of a release date ("2019-05-01", "2019", "").
func releaseYear(date string) string {
	r := []rune(date)
	if len(r) > 4 {
		r = r[:4]
	}
	return string(r)
}
