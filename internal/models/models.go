package models

import "encoding/json"

// Artist is a track's artist reference.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TrackStub is a playlist track as returned by the provider, before features are joined.
type TrackStub struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	DurationMs  int      `json:"duration_ms"`
	ReleaseDate string   `json:"release_date"`
	Artists     []Artist `json:"artists"`
}

// AudioFeatures holds the provider's numeric descriptors for a single track.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Tempo            float64 `json:"tempo"`
	Energy           float64 `json:"energy"`
	Danceability     float64 `json:"danceability"`
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Mode             int     `json:"mode"`
}

// TrackProfile is the unified per-track record used by filtering and curation.
type TrackProfile struct {
	ID               string   `json:"id"`
	URI              string   `json:"uri"`
	Name             string   `json:"name"`
	ArtistNames      []string `json:"artists"`
	DurationMs       int      `json:"duration_ms"`
	Year             string   `json:"year"`
	BPM              *float64 `json:"bpm"`
	Energy           *float64 `json:"energy"`
	Danceability     *float64 `json:"danceability"`
	Valence          *float64 `json:"valence"`
	Acousticness     *float64 `json:"acousticness"`
	Instrumentalness *float64 `json:"instrumentalness"`
	Mode             *int     `json:"mode"`
	Genres           []string `json:"genres"`
}

// PlaylistMeta is the source playlist header.
type PlaylistMeta struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Total int    `json:"total"`
}

// Card is one trivia card written by the LLM.
type Card struct {
	Title        string `json:"title"`
	Emoji        string `json:"emoji"`
	Body         string `json:"body"`
	WhyItMatters string `json:"why_it_matters"`
}

// CurationResult is the validated LLM output.
type CurationResult struct {
	PlaylistTitle       string   `json:"playlist_title"`
	PlaylistDescription string   `json:"playlist_description"`
	CuratedTrackIDs     []string `json:"curated_tracks"`
	Summary             string   `json:"summary"`
	Cards               []Card   `json:"cards"`
}

// NewPlaylistRef identifies a playlist created on the provider.
type NewPlaylistRef struct {
	ID          string `json:"id"`
	ExternalURL string `json:"externalUrl"`
}

// MarshalJSON adds Spotify's external_urls object next to externalUrl for clients that read the provider shape.
func (r NewPlaylistRef) MarshalJSON() ([]byte, error) {
	type ref NewPlaylistRef
	out := struct {
		ref
		ExternalURLs map[string]string `json:"external_urls,omitempty"`
	}{ref: ref(r)}
	if r.ExternalURL != "" {
		out.ExternalURLs = map[string]string{"spotify": r.ExternalURL}
	}
	return json.Marshal(out)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Value dereferences p, treating nil as zero.
func Value[T int | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}
