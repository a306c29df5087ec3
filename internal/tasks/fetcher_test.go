package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/shared"
	kt "github.com/desertthunder/kurator/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCatalog(t *testing.T) {
	ctx := context.Background()
	withGenre := func(i int) (models.AudioFeatures, []string) {
		return models.AudioFeatures{Tempo: 120, Energy: 0.5}, []string{"house"}
	}

	t.Run("Paginates 250 Tracks In Order", func(t *testing.T) {
		fake := kt.NewFakeProvider("Big", 250, withGenre)

		catalog, err := FetchCatalog(ctx, fake, "p1", 250, FetchOptions{Concurrency: 3})
		require.NoError(t, err)
		require.Len(t, catalog.Tracks, 250)

		seen := map[string]bool{}
		for i, tr := range catalog.Tracks {
			assert.Equal(t, fake.Tracks[i].ID, tr.ID, "position %d", i)
			assert.False(t, seen[tr.ID], "duplicate %s", tr.ID)
			seen[tr.ID] = true
		}
		assert.Equal(t, 3, fake.CallCount(kt.OpTracks))
		assert.Equal(t, 3, fake.CallCount(kt.OpFeatures))
		assert.Len(t, catalog.Features, 250)
	})

	t.Run("Caps Artists At 300 In Chunks Of 50", func(t *testing.T) {
		fake := kt.NewFakeProvider("Many Artists", 320, withGenre)

		catalog, err := FetchCatalog(ctx, fake, "p1", 320, FetchOptions{})
		require.NoError(t, err)
		assert.Equal(t, 6, fake.CallCount(kt.OpArtists))
		assert.Len(t, catalog.Genres, 300)
		assert.NotContains(t, catalog.Genres, "a300")
	})

	t.Run("Custom Artist Cap", func(t *testing.T) {
		fake := kt.NewFakeProvider("Few", 20, withGenre)

		catalog, err := FetchCatalog(ctx, fake, "p1", 20, FetchOptions{ArtistCap: 5})
		require.NoError(t, err)
		assert.Len(t, catalog.Genres, 5)
	})

	t.Run("Skips Id-less Items", func(t *testing.T) {
		fake := kt.NewFakeProvider("Local", 3, nil)
		fake.Tracks[1].ID = ""

		catalog, err := FetchCatalog(ctx, fake, "p1", 3, FetchOptions{})
		require.NoError(t, err)
		assert.Len(t, catalog.Tracks, 2)
	})

	t.Run("Empty Playlist", func(t *testing.T) {
		fake := kt.NewFakeProvider("Empty", 0, nil)

		catalog, err := FetchCatalog(ctx, fake, "p1", 0, FetchOptions{})
		require.NoError(t, err)
		assert.Empty(t, catalog.Tracks)
		assert.Equal(t, 0, fake.CallCount(kt.OpTracks))
		assert.Equal(t, 0, fake.CallCount(kt.OpFeatures))
	})

	t.Run("Page Error Aborts", func(t *testing.T) {
		upstream := shared.NewProviderError("spotify", "playlist items", 502, errors.New("bad gateway"))
		fake := kt.NewFakeProvider("Broken", 250, nil).Fail(kt.OpTracks, upstream)

		_, err := FetchCatalog(ctx, fake, "p1", 250, FetchOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrUpstreamProvider)
		assert.Equal(t, 0, fake.CallCount(kt.OpFeatures))
	})

	t.Run("Feature Error Aborts", func(t *testing.T) {
		fake := kt.NewFakeProvider("Broken", 10, nil).Fail(kt.OpFeatures, errors.New("boom"))

		_, err := FetchCatalog(ctx, fake, "p1", 10, FetchOptions{})
		assert.Error(t, err)
		assert.Equal(t, 0, fake.CallCount(kt.OpArtists))
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		fake := kt.NewFakeProvider("Any", 500, nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := FetchCatalog(cctx, fake, "p1", 500, FetchOptions{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFanOut(t *testing.T) {
	t.Run("Results By Index", func(t *testing.T) {
		got, err := fanOut(context.Background(), 10, 3, func(_ context.Context, i int) (int, error) {
			return i * i, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, got)
	})

	t.Run("First Error Wins", func(t *testing.T) {
		wantErr := errors.New("page 4")
		_, err := fanOut(context.Background(), 8, 2, func(_ context.Context, i int) (int, error) {
			if i == 4 {
				return 0, wantErr
			}
			return i, nil
		})
		assert.ErrorIs(t, err, wantErr)
	})
}
