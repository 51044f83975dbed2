package dynamo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hupe1980/seqpack/collective"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newGatherers(t *testing.T, client DDBClient, world int) []*Gatherer {
	t.Helper()
	gs := make([]*Gatherer, world)
	for r := range gs {
		g, err := NewGatherer(client, "rendezvous", "run-1", r, world, WithPollInterval(time.Millisecond))
		require.NoError(t, err)
		gs[r] = g
	}
	return gs
}

func TestGatherer_Min(t *testing.T) {
	client := newMockDDBClient()
	client.pageSize = 2

	values := []float64{1.8, 1.1, 2.4, 1.5, 3}
	gs := newGatherers(t, client, len(values))

	for round := range 2 {
		got := make([]float64, len(gs))
		var eg errgroup.Group
		for i, g := range gs {
			eg.Go(func() error {
				v, err := collective.Min(context.Background(), g, values[i]+float64(round))
				got[i] = v
				return err
			})
		}
		require.NoError(t, eg.Wait())

		for _, v := range got {
			assert.Equal(t, 1.1+float64(round), v)
		}
	}

	assert.Len(t, client.items, 2)
	assert.Len(t, client.items["run-1#000001"], len(values))
}

func TestGatherer_AllGatherIndexedByRank(t *testing.T) {
	client := newMockDDBClient()
	client.put("run-1#000000", 1, "0.25")

	g, err := NewGatherer(client, "rendezvous", "run-1", 0, 2)
	require.NoError(t, err)

	got, err := g.AllGather(context.Background(), 1e-3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1e-3, 0.25}, got)
	assert.Equal(t, 0, g.Rank())
	assert.Equal(t, 2, g.WorldSize())
}

func TestGatherer_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid construction", func(t *testing.T) {
		_, err := NewGatherer(newMockDDBClient(), "t", "run", -1, 2)
		assert.ErrorIs(t, err, collective.ErrParticipantMismatch)
		_, err = NewGatherer(newMockDDBClient(), "", "run", 0, 2)
		assert.ErrorIs(t, err, collective.ErrCollective)
	})

	t.Run("rank conflict", func(t *testing.T) {
		client := newMockDDBClient()
		client.put("run#000000", 0, "1")

		g, err := NewGatherer(client, "t", "run", 0, 2)
		require.NoError(t, err)
		_, err = g.AllGather(ctx, 1)
		assert.ErrorIs(t, err, collective.ErrRankConflict)
		assert.Zero(t, client.queries)
	})

	t.Run("foreign rank", func(t *testing.T) {
		client := newMockDDBClient()
		client.put("run#000000", 5, "1")

		g, err := NewGatherer(client, "t", "run", 0, 2)
		require.NoError(t, err)
		_, err = g.AllGather(ctx, 1)
		assert.ErrorIs(t, err, collective.ErrParticipantMismatch)
	})

	t.Run("non-finite value", func(t *testing.T) {
		g, err := NewGatherer(newMockDDBClient(), "t", "run", 0, 1)
		require.NoError(t, err)
		_, err = g.AllGather(ctx, math.Inf(1))
		assert.ErrorIs(t, err, collective.ErrCollective)
	})

	t.Run("query failure", func(t *testing.T) {
		client := newMockDDBClient()
		client.queryErr = errors.New("throttled")

		g, err := NewGatherer(client, "t", "run", 0, 2)
		require.NoError(t, err)
		_, err = g.AllGather(ctx, 1)
		assert.ErrorIs(t, err, collective.ErrCollective)
		assert.ErrorContains(t, err, "throttled")
	})

	t.Run("timeout", func(t *testing.T) {
		g, err := NewGatherer(newMockDDBClient(), "t", "run", 0, 2, WithPollInterval(time.Millisecond))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		defer cancel()
		_, err = g.AllGather(ctx, 1)
		assert.ErrorIs(t, err, collective.ErrCollective)
	})
}
