package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/services"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/samber/lo"
)

const (
	addBatchSize     = 100
	maxWrittenTracks = 500
)

// MaterializeRequest describes the playlist to create.
type MaterializeRequest struct {
	Title       string
	Description string
	SourceName  string   // used for the fallback title and description
	TrackIDs    []string // in playlist order
	Public      bool
}

// Materializer writes a curated track list to a new playlist.
type Materializer struct {
	logger *log.Logger
}

// NewMaterializer creates a Materializer.
func NewMaterializer(logger *log.Logger) *Materializer {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Materializer{logger: logger}
}

// Materialize creates a playlist for the token's user and adds tracks in batches of 100.
//
// At most 500 tracks are written. If a batch fails the new playlist is deleted again and an error
// wrapping [shared.ErrPartialWrite] is returned; a failed delete is logged.
func (m *Materializer) Materialize(ctx context.Context, p services.CatalogProvider, req MaterializeRequest) (*models.NewPlaylistRef, error) {
	title := req.Title
	if title == "" {
		title = "Kurator • " + req.SourceName
	}
	description := req.Description
	if description == "" {
		description = "Auto-generated from " + req.SourceName
	}
	title = shared.Truncate(title, maxTitleLen)
	description = shared.Truncate(description, maxDescriptionLen)

	userID, err := p.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := p.CreatePlaylist(ctx, userID, title, description, req.Public)
	if err != nil {
		return nil, err
	}

	ids := req.TrackIDs
	if len(ids) > maxWrittenTracks {
		ids = ids[:maxWrittenTracks]
	}

	for i, batch := range lo.Chunk(ids, addBatchSize) {
		if err := p.AddTracks(ctx, ref.ID, batch); err != nil {
			m.compensate(ctx, p, ref.ID)
			return nil, fmt.Errorf("%w: batch %d of playlist %s: %w", shared.ErrPartialWrite, i+1, ref.ID, err)
		}
	}

	m.logger.Info("playlist materialized", "id", ref.ID, "tracks", len(ids))
	return &ref, nil
}

func (m *Materializer) compensate(ctx context.Context, p services.CatalogProvider, playlistID string) {
	if err := p.DeletePlaylist(context.WithoutCancel(ctx), playlistID); err != nil {
		m.logger.Error("failed to delete partially written playlist", "id", playlistID, "err", err)
		return
	}
	m.logger.Warn("deleted partially written playlist", "id", playlistID)
}
