package tasks

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/repositories"
	"github.com/desertthunder/kurator/internal/shared"
)

// BatchRequest is the body of POST /batch.
type BatchRequest struct {
	UserID       string                `json:"userId"`
	BatchNumber  int                   `json:"batchNumber"`
	TotalBatches int                   `json:"totalBatches"`
	Tracks       []models.TrackProfile `json:"tracks"`
}

// Validate checks the fields that do not depend on session state.
func (r BatchRequest) Validate() error {
	if r.UserID == "" {
		return &shared.ValidationError{Field: "userId", Message: "missing userId"}
	}
	if r.BatchNumber < 1 {
		return &shared.ValidationError{Field: "batchNumber", Message: "batchNumber must be at least 1"}
	}
	return nil
}

// BatchReceipt is the 200 body of POST /batch.
type BatchReceipt struct {
	OK           bool               `json:"ok"`
	UserID       string             `json:"userId"`
	Received     int                `json:"received"`
	TotalBatches int                `json:"totalBatches"`
	Complete     bool               `json:"complete"`
	Summary      models.BatchReport `json:"summary"`
}

// BatchAnalysis is the 200 body of POST /batch/analyze.
type BatchAnalysis struct {
	OK      bool               `json:"ok"`
	Summary models.BatchReport `json:"summary"`
}

// BatchCollector owns the lifecycle of /batch sessions: created by batch 1, extended by later
// batches, removed by [BatchCollector.Analyze] or the store's TTL.
type BatchCollector struct {
	store  repositories.SessionStore
	now    func() time.Time
	logger *log.Logger
}

// NewBatchCollector creates a collector over store.
func NewBatchCollector(store repositories.SessionStore, logger *log.Logger) *BatchCollector {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &BatchCollector{store: store, now: time.Now, logger: logger}
}

// Receive folds one batch into the caller's session.
//
// Batch 1 always starts a fresh session. Later batches fail with [shared.ErrSessionNotFound] when none is active.
func (c *BatchCollector) Receive(ctx context.Context, req BatchRequest) (*BatchReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		summary *models.BatchSummary
		err     error
	)
	if req.BatchNumber == 1 {
		summary = models.NewBatchSummary(req.UserID, req.TotalBatches, c.now().UTC())
		summary.Add(req.BatchNumber, req.Tracks)
		err = c.store.Create(ctx, summary)
	} else {
		summary, err = c.store.Update(ctx, req.UserID, func(s *models.BatchSummary) {
			if req.TotalBatches > 0 {
				s.TotalBatches = req.TotalBatches
			}
			s.Add(req.BatchNumber, req.Tracks)
		})
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("batch received", "user", req.UserID, "batch", req.BatchNumber, "of", summary.TotalBatches, "tracks", len(req.Tracks))

	report := summary.Report()
	return &BatchReceipt{
		OK:           true,
		UserID:       req.UserID,
		Received:     len(summary.Received),
		TotalBatches: summary.TotalBatches,
		Complete:     report.Complete,
		Summary:      report,
	}, nil
}

// Analyze returns the session's report and ends the session.
func (c *BatchCollector) Analyze(ctx context.Context, userID string) (*BatchAnalysis, error) {
	if userID == "" {
		return nil, &shared.ValidationError{Field: "userId", Message: "missing userId"}
	}

	summary, err := c.store.Take(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.logger.Info("batch session analysed", "user", userID, "batches", len(summary.Received), "tracks", summary.TrackCount)
	return &BatchAnalysis{OK: true, Summary: summary.Report()}, nil
}
