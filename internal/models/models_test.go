package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseCriteria(t *testing.T) {
	tc := []struct {
		name      string
		criteria  Criteria
		wantEmpty bool
		wantBPM   *Range
		wantMin   time.Duration
		genres    int
		moods     int
	}{
		{name: "zero value is unconstrained", criteria: Criteria{}, wantEmpty: true},
		{
			name:     "all fields",
			criteria: Criteria{Genre: "house, techno", Mood: "glad", BPMRange: "120-130", Length: 45},
			wantBPM:  &Range{Min: 120, Max: 130},
			wantMin:  45 * time.Minute,
			genres:   2,
			moods:    1,
		},
		{name: "garbage bpm degrades", criteria: Criteria{BPMRange: "fast"}, wantEmpty: true},
		{name: "half open bpm degrades", criteria: Criteria{BPMRange: "120-"}, wantEmpty: true},
		{
			name:     "reversed bpm is normalised",
			criteria: Criteria{BPMRange: "130-120"},
			wantBPM:  &Range{Min: 120, Max: 130},
		},
		{name: "whitespace-only lists", criteria: Criteria{Genre: " , ", Mood: ","}, wantEmpty: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCriteria(tt.criteria)
			if got.Empty() != tt.wantEmpty {
				t.Errorf("Empty() = %v, want %v (%+v)", got.Empty(), tt.wantEmpty, got)
			}
			if (got.BPM == nil) != (tt.wantBPM == nil) || (got.BPM != nil && *got.BPM != *tt.wantBPM) {
				t.Errorf("BPM = %v, want %v", got.BPM, tt.wantBPM)
			}
			if got.MinDuration != tt.wantMin {
				t.Errorf("MinDuration = %v, want %v", got.MinDuration, tt.wantMin)
			}
			if len(got.Genres) != tt.genres || len(got.Moods) != tt.moods {
				t.Errorf("genres/moods = %v/%v", got.Genres, got.Moods)
			}
		})
	}
}

func TestMinutesUnmarshal(t *testing.T) {
	tc := []struct {
		input string
		want  Minutes
	}{
		{input: `{"length":45}`, want: 45},
		{input: `{"length":"30"}`, want: 30},
		{input: `{"length":"long"}`, want: 0},
		{input: `{"length":-5}`, want: 0},
		{input: `{"length":null}`, want: 0},
		{input: `{}`, want: 0},
	}

	for _, tt := range tc {
		var c Criteria
		if err := json.Unmarshal([]byte(tt.input), &c); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.input, err)
		}
		if c.Length != tt.want {
			t.Errorf("%s: Length = %d, want %d", tt.input, c.Length, tt.want)
		}
	}
}

func TestTrackProfileJSONNulls(t *testing.T) {
	p := TrackProfile{ID: "t1", Energy: Float(0.5)}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["bpm"] != nil {
		t.Errorf("expected bpm null, got %v", raw["bpm"])
	}
	if raw["energy"] != 0.5 {
		t.Errorf("expected energy 0.5, got %v", raw["energy"])
	}
}

func TestNewPlaylistRefJSON(t *testing.T) {
	t.Run("with link", func(t *testing.T) {
		data, err := json.Marshal(NewPlaylistRef{ID: "p1", ExternalURL: "https://open.spotify.com/playlist/p1"})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		want := `{"id":"p1","externalUrl":"https://open.spotify.com/playlist/p1","external_urls":{"spotify":"https://open.spotify.com/playlist/p1"}}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})

	t.Run("without link", func(t *testing.T) {
		data, err := json.Marshal(&NewPlaylistRef{ID: "p1"})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(data) != `{"id":"p1","externalUrl":""}` {
			t.Errorf("unexpected json %s", data)
		}
	})

	t.Run("decodes externalUrl", func(t *testing.T) {
		var ref NewPlaylistRef
		if err := json.Unmarshal([]byte(`{"id":"p1","externalUrl":"u"}`), &ref); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ref.ExternalURL != "u" {
			t.Errorf("expected externalUrl u, got %q", ref.ExternalURL)
		}
	})
}

func TestBatchSummary(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := NewBatchSummary("u1", 2, now)

	s.Add(1, []TrackProfile{
		{ID: "a", DurationMs: 1000, Genres: []string{"house", "deep house"}, Energy: Float(0.8), Valence: Float(0.4)},
		{ID: "b", DurationMs: 2000, Genres: []string{"house"}},
	})
	if s.Complete() {
		t.Fatal("summary should not be complete after one of two batches")
	}

	s.Add(2, []TrackProfile{{ID: "c", DurationMs: 3000, Energy: Float(0.4), Valence: Float(0.2), Danceability: Float(0.6)}})
	if !s.Complete() {
		t.Fatal("summary should be complete after both batches")
	}

	r := s.Report()
	if r.TrackCount != 3 || r.TotalDurationMs != 6000 {
		t.Errorf("unexpected totals %+v", r)
	}
	if r.AvgEnergy == nil || *r.AvgEnergy < 0.5999 || *r.AvgEnergy > 0.6001 {
		t.Errorf("expected avg energy 0.6, got %v", r.AvgEnergy)
	}
	if len(r.TopGenres) != 2 || r.TopGenres[0].Genre != "house" || r.TopGenres[0].Count != 2 {
		t.Errorf("unexpected top genres %+v", r.TopGenres)
	}
}
