// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/services"
)

// Method names understood by [FakeProvider.Fail].
const (
	OpMeta     = "meta"
	OpTracks   = "tracks"
	OpFeatures = "features"
	OpArtists  = "artists"
	OpUser     = "user"
	OpCreate   = "create"
	OpAdd      = "add"
	OpDelete   = "delete"
)

// FakeProvider is an in-memory [services.CatalogProvider].
//
// Tracks are served in pages exactly as a real provider would, so callers exercise their pagination.
type FakeProvider struct {
	mu sync.Mutex

	Meta     models.PlaylistMeta
	Tracks   []models.TrackStub
	Features map[string]models.AudioFeatures
	Genres   map[string][]string
	UserID   string

	errs      map[string]error
	failAddAt int // 1-based batch number, 0 disables

	Calls   map[string]int
	Created []string // playlist names
	Added   [][]string
	Deleted []string
}

// NewFakeProvider returns a provider with n generated tracks. features (optional) customises each track.
func NewFakeProvider(name string, n int, features func(i int) (models.AudioFeatures, []string)) *FakeProvider {
	f := &FakeProvider{
		Meta:     models.PlaylistMeta{Name: name, Owner: "owner", Total: n},
		Features: make(map[string]models.AudioFeatures, n),
		Genres:   make(map[string][]string, n),
		UserID:   "user-1",
		errs:     map[string]error{},
		Calls:    map[string]int{},
	}

	for i := range n {
		id := fmt.Sprintf("t%03d", i)
		artistID := fmt.Sprintf("a%03d", i)
		f.Tracks = append(f.Tracks, models.TrackStub{
			ID:          id,
			URI:         "spotify:track:" + id,
			Name:        fmt.Sprintf("Track %d", i),
			DurationMs:  180_000,
			ReleaseDate: "2020-01-01",
			Artists:     []models.Artist{{ID: artistID, Name: fmt.Sprintf("Artist %d", i)}},
		})

		if features == nil {
			continue
		}
		af, genres := features(i)
		af.ID = id
		f.Features[id] = af
		f.Genres[artistID] = genres
	}
	return f
}

// Fail makes every call to op return err.
func (f *FakeProvider) Fail(op string, err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
	return f
}

// FailAddAt makes the nth AddTracks call (1-based) fail with err.
func (f *FakeProvider) FailAddAt(n int, err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAddAt = n
	f.errs[OpAdd] = err
	return f
}

// CallCount returns how many times op was invoked.
func (f *FakeProvider) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *FakeProvider) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[op]++
	if op == OpAdd && f.failAddAt > 0 && f.Calls[op] != f.failAddAt {
		return nil
	}
	return f.errs[op]
}

func (f *FakeProvider) PlaylistMeta(ctx context.Context, playlistID string) (models.PlaylistMeta, error) {
	if err := f.record(OpMeta); err != nil {
		return models.PlaylistMeta{}, err
	}
	return f.Meta, nil
}

func (f *FakeProvider) PlaylistTracks(ctx context.Context, playlistID string, offset, limit int) ([]models.TrackStub, error) {
	if err := f.record(OpTracks); err != nil {
		return nil, err
	}
	if offset >= len(f.Tracks) {
		return []models.TrackStub{}, nil
	}
	end := min(offset+limit, len(f.Tracks))
	return append([]models.TrackStub(nil), f.Tracks[offset:end]...), nil
}

func (f *FakeProvider) AudioFeatures(ctx context.Context, ids []string) ([]models.AudioFeatures, error) {
	if err := f.record(OpFeatures); err != nil {
		return nil, err
	}
	out := make([]models.AudioFeatures, 0, len(ids))
	for _, id := range ids {
		if af, ok := f.Features[id]; ok {
			out = append(out, af)
		}
	}
	return out, nil
}

func (f *FakeProvider) ArtistGenres(ctx context.Context, ids []string) (map[string][]string, error) {
	if err := f.record(OpArtists); err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(ids))
	for _, id := range ids {
		if g, ok := f.Genres[id]; ok {
			out[id] = g
		}
	}
	return out, nil
}

func (f *FakeProvider) CurrentUserID(ctx context.Context) (string, error) {
	if err := f.record(OpUser); err != nil {
		return "", err
	}
	return f.UserID, nil
}

func (f *FakeProvider) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (models.NewPlaylistRef, error) {
	if err := f.record(OpCreate); err != nil {
		return models.NewPlaylistRef{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Created = append(f.Created, name)
	id := fmt.Sprintf("new%d", len(f.Created))
	return models.NewPlaylistRef{ID: id, ExternalURL: "https://open.spotify.com/playlist/" + id}, nil
}

func (f *FakeProvider) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if err := f.record(OpAdd); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Added = append(f.Added, append([]string(nil), trackIDs...))
	return nil
}

func (f *FakeProvider) DeletePlaylist(ctx context.Context, playlistID string) error {
	if err := f.record(OpDelete); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, playlistID)
	return nil
}

func (f *FakeProvider) Name() string { return "fake" }

// Factory returns a [services.ProviderFactory] that always yields f.
func (f *FakeProvider) Factory() services.ProviderFactory {
	return func(context.Context, string) services.CatalogProvider { return f }
}

// FakeCompleter is a [services.Completer] with a canned reply.
type FakeCompleter struct {
	mu         sync.Mutex
	Reply      string
	Err        error
	ReplyFunc  func(system, user string) (string, error)
	Calls      int
	LastSystem string
	LastUser   string
}

func (c *FakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	c.LastSystem, c.LastUser = system, user
	if c.ReplyFunc != nil {
		return c.ReplyFunc(system, user)
	}
	return c.Reply, c.Err
}

var (
	_ services.CatalogProvider = (*FakeProvider)(nil)
	_ services.Completer       = (*FakeCompleter)(nil)
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
