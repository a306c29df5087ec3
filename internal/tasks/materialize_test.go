package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/kurator/internal/shared"
	kt "github.com/desertthunder/kurator/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackIDs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("t%03d", i)
	}
	return out
}

func TestMaterializer(t *testing.T) {
	ctx := context.Background()

	t.Run("Batches Of 100 Preserve Order", func(t *testing.T) {
		fake := kt.NewFakeProvider("Source", 0, nil)
		want := trackIDs(250)

		ref, err := NewMaterializer(nil).Materialize(ctx, fake, MaterializeRequest{
			Title:       "Mix",
			Description: "desc",
			SourceName:  "Source",
			TrackIDs:    want,
		})
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, "new1", ref.ID)

		require.Len(t, fake.Added, 3)
		assert.Len(t, fake.Added[0], 100)
		assert.Len(t, fake.Added[2], 50)

		var got []string
		for _, batch := range fake.Added {
			got = append(got, batch...)
		}
		assert.Equal(t, want, got)
		assert.Equal(t, []string{"Mix"}, fake.Created)
	})

	t.Run("Caps At 500 Tracks", func(t *testing.T) {
		fake := kt.NewFakeProvider("Source", 0, nil)

		_, err := NewMaterializer(nil).Materialize(ctx, fake, MaterializeRequest{TrackIDs: trackIDs(620)})
		require.NoError(t, err)
		assert.Len(t, fake.Added, 5)
	})

	t.Run("Fallback Title", func(t *testing.T) {
		fake := kt.NewFakeProvider("Source", 0, nil)

		_, err := NewMaterializer(nil).Materialize(ctx, fake, MaterializeRequest{SourceName: "Road Trip", TrackIDs: trackIDs(1)})
		require.NoError(t, err)
		assert.Equal(t, []string{"Kurator • Road Trip"}, fake.Created)
	})

	t.Run("Failed Batch Deletes Playlist", func(t *testing.T) {
		upstream := shared.NewProviderError("spotify", "add tracks", 500, errors.New("boom"))
		fake := kt.NewFakeProvider("Source", 0, nil).FailAddAt(2, upstream)

		ref, err := NewMaterializer(nil).Materialize(ctx, fake, MaterializeRequest{TrackIDs: trackIDs(250)})
		require.Error(t, err)
		assert.Nil(t, ref)
		assert.ErrorIs(t, err, shared.ErrPartialWrite)
		assert.ErrorIs(t, err, shared.ErrUpstreamProvider)
		assert.Equal(t, []string{"new1"}, fake.Deleted)
		assert.Equal(t, 2, fake.CallCount(kt.OpAdd))
	})

	t.Run("Failed Compensation Still Returns Partial Write", func(t *testing.T) {
		fake := kt.NewFakeProvider("Source", 0, nil).
			FailAddAt(1, errors.New("add failed")).
			Fail(kt.OpDelete, errors.New("delete failed"))

		_, err := NewMaterializer(nil).Materialize(ctx, fake, MaterializeRequest{TrackIDs: trackIDs(10)})
		assert.ErrorIs(t, err, shared.ErrPartialWrite)
		assert.Equal(t, 1, fake.CallCount(kt.OpDelete))
	})

	t.Run("Create Failure", func(t *testing.T) {
		fake := kt.NewFakeProvider("Source", 0, nil).Fail(kt.OpCreate, errors.New("forbidden"))

		_, err := NewMaterializer(nil).Materialize(ctx, fake, MaterializeRequest{TrackIDs: trackIDs(10)})
		require.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrPartialWrite)
		assert.Equal(t, 0, fake.CallCount(kt.OpAdd))
	})
}
