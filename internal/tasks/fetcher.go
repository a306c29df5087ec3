package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/services"
	"github.com/samber/lo"
)

const (
	pageSize          = 100
	featureChunkSize  = 100
	artistChunkSize   = 50
	defaultArtistCap  = 300
	defaultNumWorkers = 4
)

// Catalog is everything fetched for one playlist.
type Catalog struct {
	Tracks   []models.TrackStub
	Features map[string]models.AudioFeatures // by track id
	Genres   map[string][]string             // by artist id
}

// FetchOptions bounds the Catalog Fetcher.
type FetchOptions struct {
	Concurrency int // pages or chunks in flight
	ArtistCap   int // unique artists looked up
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = defaultNumWorkers
	}
	if o.ArtistCap <= 0 {
		o.ArtistCap = defaultArtistCap
	}
	return o
}

// FetchCatalog reads all tracks of playlistID, their audio features and their artists' genres.
//
// Stages run in order (tracks, features, artists). Within a stage pages are fetched concurrently
// and reassembled by index, so the result keeps the playlist's order. Any failed page aborts the stage.
func FetchCatalog(ctx context.Context, p services.CatalogProvider, playlistID string, total int, opts FetchOptions) (*Catalog, error) {
	opts = opts.withDefaults()

	tracks, err := fetchTracks(ctx, p, playlistID, total, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	trackIDs := lo.Uniq(lo.Map(tracks, func(t models.TrackStub, _ int) string { return t.ID }))
	features, err := fetchFeatures(ctx, p, trackIDs, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	artistIDs := lo.Uniq(lo.FlatMap(tracks, func(t models.TrackStub, _ int) []string {
		return lo.FilterMap(t.Artists, func(a models.Artist, _ int) (string, bool) { return a.ID, a.ID != "" })
	}))
	if len(artistIDs) > opts.ArtistCap {
		artistIDs = artistIDs[:opts.ArtistCap]
	}
	genres, err := fetchGenres(ctx, p, artistIDs, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	return &Catalog{Tracks: tracks, Features: features, Genres: genres}, nil
}

func fetchTracks(ctx context.Context, p services.CatalogProvider, playlistID string, total, workers int) ([]models.TrackStub, error) {
	pages := (total + pageSize - 1) / pageSize
	results, err := fanOut(ctx, pages, workers, func(ctx context.Context, i int) ([]models.TrackStub, error) {
		page, err := p.PlaylistTracks(ctx, playlistID, i*pageSize, pageSize)
		if err != nil {
			return nil, fmt.Errorf("tracks page %d: %w", i, err)
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}

	tracks := lo.Flatten(results)
	return lo.Filter(tracks, func(t models.TrackStub, _ int) bool { return t.ID != "" }), nil
}

func fetchFeatures(ctx context.Context, p services.CatalogProvider, ids []string, workers int) (map[string]models.AudioFeatures, error) {
	chunks := lo.Chunk(ids, featureChunkSize)
	results, err := fanOut(ctx, len(chunks), workers, func(ctx context.Context, i int) ([]models.AudioFeatures, error) {
		features, err := p.AudioFeatures(ctx, chunks[i])
		if err != nil {
			return nil, fmt.Errorf("audio features chunk %d: %w", i, err)
		}
		return features, nil
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.AudioFeatures, len(ids))
	for _, f := range lo.Flatten(results) {
		if f.ID == "" {
			continue
		}
		byID[f.ID] = f
	}
	return byID, nil
}

func fetchGenres(ctx context.Context, p services.CatalogProvider, ids []string, workers int) (map[string][]string, error) {
	chunks := lo.Chunk(ids, artistChunkSize)
	results, err := fanOut(ctx, len(chunks), workers, func(ctx context.Context, i int) (map[string][]string, error) {
		genres, err := p.ArtistGenres(ctx, chunks[i])
		if err != nil {
			return nil, fmt.Errorf("artists chunk %d: %w", i, err)
		}
		return genres, nil
	})
	if err != nil {
		return nil, err
	}

	return lo.Assign(results...), nil
}

// fanOut runs fn for every index in [0, n) on at most workers goroutines and returns results by index.
// The first error cancels the remaining work.
func fanOut[T any](parent context.Context, n, workers int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	jobs := make(chan int)

	for range min(workers, n) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := fn(ctx, i)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				results[i] = res
			}
		}()
	}

feed:
	for i := range n {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
