// Spotify Web API implementation of [CatalogProvider]
//
// Response types come from github.com/zmb3/spotify/v2; see https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const (
	spotifyProvider = "spotify"
	spotifyBaseURL  = "https://api.spotify.com/v1/"
)

// SpotifyService calls the Spotify Web API on behalf of one user's bearer token.
type SpotifyService struct {
	client     *spotify.Client
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// NewSpotifyService builds a client for token. Requests go through base (a [Transport] client in production).
func NewSpotifyService(ctx context.Context, token string, base *http.Client, baseURL string, logger *log.Logger) *SpotifyService {
	if base == nil {
		base = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	authed := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), src)

	return &SpotifyService{
		client:     spotify.New(authed, spotify.WithBaseURL(baseURL)),
		httpClient: authed,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Name returns the provider name used in errors and logs.
func (s *SpotifyService) Name() string { return "Spotify" }

// PlaylistMeta fetches the playlist name, owner display name and track total.
func (s *SpotifyService) PlaylistMeta(ctx context.Context, playlistID string) (models.PlaylistMeta, error) {
	pl, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID),
		spotify.Fields("name,owner(display_name,id),tracks.total"))
	if err != nil {
		return models.PlaylistMeta{}, wrapSpotifyError("playlist", err)
	}

	owner := pl.Owner.DisplayName
	if owner == "" {
		owner = pl.Owner.ID
	}
	return models.PlaylistMeta{Name: pl.Name, Owner: owner, Total: int(pl.Tracks.Total)}, nil
}

// PlaylistTracks fetches one page of playlist items. Local files, episodes and removed tracks are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, offset, limit int) ([]models.TrackStub, error) {
	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, wrapSpotifyError("playlist items", err)
	}

	stubs := make([]models.TrackStub, 0, len(page.Items))
	for _, item := range page.Items {
		track := item.Track.Track
		if track == nil || track.ID == "" {
			continue
		}

		artists := make([]models.Artist, 0, len(track.Artists))
		for _, a := range track.Artists {
			artists = append(artists, models.Artist{ID: a.ID.String(), Name: a.Name})
		}

		stubs = append(stubs, models.TrackStub{
			ID:          track.ID.String(),
			URI:         string(track.URI),
			Name:        track.Name,
			DurationMs:  int(track.Duration),
			ReleaseDate: track.Album.ReleaseDate,
			Artists:     artists,
		})
	}
	return stubs, nil
}

// AudioFeatures fetches features for up to 100 track ids. Tracks without analysis are absent from the result.
func (s *SpotifyService) AudioFeatures(ctx context.Context, ids []string) ([]models.AudioFeatures, error) {
	features, err := s.client.GetAudioFeatures(ctx, toIDs(ids)...)
	if err != nil {
		return nil, wrapSpotifyError("audio features", err)
	}

	out := make([]models.AudioFeatures, 0, len(features))
	for _, f := range features {
		if f == nil || f.ID == "" {
			continue
		}
		out = append(out, models.AudioFeatures{
			ID:               f.ID.String(),
			Tempo:            float64(f.Tempo),
			Energy:           float64(f.Energy),
			Danceability:     float64(f.Danceability),
			Valence:          float64(f.Valence),
			Acousticness:     float64(f.Acousticness),
			Instrumentalness: float64(f.Instrumentalness),
			Mode:             int(f.Mode),
		})
	}
	return out, nil
}

// ArtistGenres fetches genre lists for up to 50 artist ids, keyed by artist id.
func (s *SpotifyService) ArtistGenres(ctx context.Context, ids []string) (map[string][]string, error) {
	artists, err := s.client.GetArtists(ctx, toIDs(ids)...)
	if err != nil {
		return nil, wrapSpotifyError("artists", err)
	}

	genres := make(map[string][]string, len(artists))
	for _, a := range artists {
		if a == nil {
			continue
		}
		genres[a.ID.String()] = a.Genres
	}
	return genres, nil
}

// CurrentUserID returns the id of the token's owner.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return "", wrapSpotifyError("current user", err)
	}
	return user.ID, nil
}

// CreatePlaylist creates a playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (models.NewPlaylistRef, error) {
	pl, err := s.client.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return models.NewPlaylistRef{}, wrapSpotifyError("create playlist", err)
	}

	s.logger.Debug("created playlist", "id", pl.ID, "user", userID)
	return models.NewPlaylistRef{ID: pl.ID.String(), ExternalURL: pl.ExternalURLs["spotify"]}, nil
}

// AddTracks appends up to 100 tracks to a playlist.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), toIDs(trackIDs)...); err != nil {
		return wrapSpotifyError("add tracks", err)
	}
	return nil
}

// DeletePlaylist unfollows a playlist, which is how Spotify deletes one the user owns.
func (s *SpotifyService) DeletePlaylist(ctx context.Context, playlistID string) error {
	url := fmt.Sprintf("%splaylists/%s/followers", s.baseURL, playlistID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return shared.NewProviderError(spotifyProvider, "delete playlist", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return shared.NewProviderError(spotifyProvider, "delete playlist", resp.StatusCode, errors.New(strings.TrimSpace(string(body))))
	}
	return nil
}

func toIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}

func wrapSpotifyError(op string, err error) error {
	status := 0
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		status = apiErr.Status
	}
	return shared.NewProviderError(spotifyProvider, op, status, err)
}
