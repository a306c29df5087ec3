// package services defines the upstream provider interfaces used by the curation pipeline
//
// Spotify (catalog + playlist writes), OpenAI (chat completions)
package services

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/models"
)

// CatalogProvider reads playlists, audio features and artist genres from a streaming service and writes new playlists.
type CatalogProvider interface {
	// PlaylistMeta fetches the playlist's name, owner and declared track total.
	PlaylistMeta(ctx context.Context, playlistID string) (models.PlaylistMeta, error)

	// PlaylistTracks fetches one page of track stubs starting at offset.
	PlaylistTracks(ctx context.Context, playlistID string, offset, limit int) ([]models.TrackStub, error)

	// AudioFeatures fetches features for at most 100 track ids.
	AudioFeatures(ctx context.Context, ids []string) ([]models.AudioFeatures, error)

	// ArtistGenres fetches genres for at most 50 artist ids.
	ArtistGenres(ctx context.Context, ids []string) (map[string][]string, error)

	// CurrentUserID returns the id of the authenticated user.
	CurrentUserID(ctx context.Context) (string, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (models.NewPlaylistRef, error)

	// AddTracks appends at most 100 tracks, in order.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// DeletePlaylist removes a playlist created by this service.
	DeletePlaylist(ctx context.Context, playlistID string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Completer sends a system and user prompt to a language model and returns its raw text reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ProviderFactory builds a [CatalogProvider] for one caller's bearer token.
type ProviderFactory func(ctx context.Context, token string) CatalogProvider

// NewSpotifyFactory returns a [ProviderFactory] whose providers share httpClient and therefore its rate limiter.
func NewSpotifyFactory(httpClient *http.Client, baseURL string, logger *log.Logger) ProviderFactory {
	return func(ctx context.Context, token string) CatalogProvider {
		return NewSpotifyService(ctx, token, httpClient, baseURL, logger)
	}
}

var (
	_ CatalogProvider = (*SpotifyService)(nil)
	_ Completer       = (*OpenAIService)(nil)
)
