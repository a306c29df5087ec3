package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/kurator/internal/formatter"
	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/tasks"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

// Curate runs the pipeline once for --playlist and renders the result.
func (r *Runner) Curate(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	pipeline, err := r.pipeline(config)
	if err != nil {
		return err
	}

	req := curateRequest(cmd)

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Info(update.Message, "step", fmt.Sprintf("%d/%d", update.Step, update.Total), "phase", update.Phase)
		}
	}()

	result, err := pipeline.Analyze(ctx, req, progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("curation failed: %w", err)
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(result, format, path)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %s\n", written)
	}
	return formatter.Render(r.output, result, format, nil)
}

func curateRequest(cmd *cli.Command) tasks.AnalyzeRequest {
	req := tasks.AnalyzeRequest{
		Token:      cmd.String("token"),
		PlaylistID: cmd.String("playlist"),
		Criteria: models.Criteria{
			Genre:    cmd.String("genre"),
			Mood:     cmd.String("mood"),
			BPMRange: cmd.String("bpm"),
			Length:   models.Minutes(int(cmd.Int("length"))),
		},
		CreateNew: lo.ToPtr(!cmd.Bool("no-create")),
	}
	if cmd.IsSet("limit") {
		req.LLMLimit = lo.ToPtr(int(cmd.Int("limit")))
	}
	return req
}
