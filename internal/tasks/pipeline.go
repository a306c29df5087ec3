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

// AnalyzeMode is reported with every result.
const AnalyzeMode = "full_ai"

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Token      string          `json:"token"`
	PlaylistID string          `json:"playlistId"`
	Criteria   models.Criteria `json:"criteria"`
	CreateNew  *bool           `json:"createNew,omitempty"` // default true
	LLMLimit   *int            `json:"llmLimit,omitempty"`  // default 300
}

// Validate checks the required fields.
func (r AnalyzeRequest) Validate() error {
	if r.Token == "" || r.PlaylistID == "" {
		return &shared.ValidationError{Message: "Missing token or playlistId"}
	}
	return nil
}

func (r AnalyzeRequest) createNew() bool {
	return r.CreateNew == nil || *r.CreateNew
}

func (r AnalyzeRequest) llmLimit() int {
	if r.LLMLimit == nil {
		return defaultLLMLimit
	}
	return *r.LLMLimit
}

// Counts are the sizes at each narrowing stage.
type Counts struct {
	Original   int `json:"original"`
	Candidates int `json:"candidates"`
	Curated    int `json:"curated"`
}

// Analysis is the model's commentary.
type Analysis struct {
	Summary string        `json:"summary"`
	Cards   []models.Card `json:"cards"`
}

// AnalyzeResult is the 200 body of POST /analyze.
type AnalyzeResult struct {
	OK             bool                   `json:"ok"`
	PlaylistMeta   models.PlaylistMeta    `json:"playlistMeta"`
	Mode           string                 `json:"mode"`
	Counts         Counts                 `json:"counts"`
	LLMTitle       *string                `json:"llm_title"`
	LLMDescription *string                `json:"llm_description"`
	Analysis       Analysis               `json:"analysis"`
	Curated        []models.TrackProfile  `json:"curated"`
	CuratedIDs     []string               `json:"curated_ids"`
	NewPlaylist    *models.NewPlaylistRef `json:"newPlaylist"`
}

// PipelineOptions tunes the fetch and filter stages.
type PipelineOptions struct {
	Fetch  FetchOptions
	Filter FilterOptions
}

// PipelineOptionsFromConfig reads the [fetch] and [filter] sections.
func PipelineOptionsFromConfig(cfg *shared.Config) PipelineOptions {
	return PipelineOptions{
		Fetch:  FetchOptions{Concurrency: cfg.Fetch.Concurrency, ArtistCap: cfg.Fetch.ArtistCap},
		Filter: FilterOptions{FallbackThreshold: cfg.Filter.FallbackThreshold, FallbackSize: cfg.Filter.FallbackSize},
	}
}

// Analyzer runs the curation pipeline for a single request.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest, progress chan<- ProgressUpdate) (*AnalyzeResult, error)
}

// Pipeline implements [Analyzer].
// Each run is sequential and shares nothing with other runs except the injected clients.
type Pipeline struct {
	providers    services.ProviderFactory
	curator      *Curator
	materializer *Materializer
	opts         PipelineOptions
	logger       *log.Logger
}

// NewPipeline creates a Pipeline. providers builds a catalog client for each request's token.
func NewPipeline(providers services.ProviderFactory, curator *Curator, materializer *Materializer, opts PipelineOptions, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	if materializer == nil {
		materializer = NewMaterializer(logger)
	}
	return &Pipeline{
		providers:    providers,
		curator:      curator,
		materializer: materializer,
		opts:         opts,
		logger:       logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (p *Pipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	p.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step)
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (p *Pipeline) fail(progress chan<- ProgressUpdate, from Phase, err error) error {
	p.sendProgress(progress, failedUpdate(from, err))
	return fmt.Errorf("%s: %w", from, err)
}

// Analyze runs Start → MetaFetched → ProfilesBuilt → CandidatesSelected → Curated → PlaylistCreated|Skipped → Responded.
// Any failure moves to Failed and is returned; nothing is retried here.
func (p *Pipeline) Analyze(ctx context.Context, req AnalyzeRequest, progress chan<- ProgressUpdate) (*AnalyzeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	provider := p.providers(ctx, req.Token)
	p.sendProgress(progress, startUpdate(req.PlaylistID))

	meta, err := provider.PlaylistMeta(ctx, req.PlaylistID)
	if err != nil {
		return nil, p.fail(progress, Start, err)
	}
	p.sendProgress(progress, metaFetchedUpdate(meta))

	catalog, err := FetchCatalog(ctx, provider, req.PlaylistID, meta.Total, p.opts.Fetch)
	if err != nil {
		return nil, p.fail(progress, MetaFetched, err)
	}
	profiles := JoinCatalog(catalog)
	p.sendProgress(progress, profilesBuiltUpdate(len(profiles)))

	filtered := Filter(profiles, models.ParseCriteria(req.Criteria), p.opts.Filter)
	candidates := SelectCandidates(filtered, req.llmLimit())
	p.sendProgress(progress, candidatesSelectedUpdate(len(candidates), len(profiles)))

	curation, err := p.curator.Curate(ctx, CurationRequest{
		Criteria:     req.Criteria,
		Candidates:   candidates,
		PlaylistName: meta.Name,
		OwnerName:    meta.Owner,
	})
	if err != nil {
		return nil, p.fail(progress, CandidatesSelected, err)
	}
	p.sendProgress(progress, curatedUpdate(curation))

	byID := lo.KeyBy(candidates, func(t models.TrackProfile) string { return t.ID })
	curated := lo.Map(curation.CuratedTrackIDs, func(id string, _ int) models.TrackProfile { return byID[id] })

	var newPlaylist *models.NewPlaylistRef
	switch {
	case !req.createNew():
		p.sendProgress(progress, skippedUpdate("not requested"))
	case len(curated) == 0:
		p.logger.Info("nothing curated, no playlist created", "playlist", req.PlaylistID)
		p.sendProgress(progress, skippedUpdate("nothing curated"))
	default:
		newPlaylist, err = p.materializer.Materialize(ctx, provider, MaterializeRequest{
			Title:       curation.PlaylistTitle,
			Description: curation.PlaylistDescription,
			SourceName:  meta.Name,
			TrackIDs:    curation.CuratedTrackIDs,
		})
		if err != nil {
			return nil, p.fail(progress, Curated, err)
		}
		p.sendProgress(progress, playlistCreatedUpdate(newPlaylist))
	}

	result := &AnalyzeResult{
		OK:             true,
		PlaylistMeta:   meta,
		Mode:           AnalyzeMode,
		Counts:         Counts{Original: len(profiles), Candidates: len(candidates), Curated: len(curated)},
		LLMTitle:       nonEmpty(curation.PlaylistTitle),
		LLMDescription: nonEmpty(curation.PlaylistDescription),
		Analysis:       Analysis{Summary: curation.Summary, Cards: curation.Cards},
		Curated:        curated,
		CuratedIDs:     curation.CuratedTrackIDs,
		NewPlaylist:    newPlaylist,
	}
	p.sendProgress(progress, respondedUpdate(len(curated)))
	return result, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
