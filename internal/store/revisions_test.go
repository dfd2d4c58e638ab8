package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wfgraph/pkg/schema"
)

func TestRevisions_AppendOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"draft", "review", "final"} {
		require.NoError(t, s.SaveGraph(ctx, &GraphRecord{Snapshot: chainSnapshot("g1", name)}))
	}

	revs, err := s.ListRevisions(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, revs, 3)
	for i, r := range revs {
		assert.Equal(t, i+1, r.Version)
		assert.Equal(t, "g1", r.GraphID)
		assert.Nil(t, r.Snapshot)
	}

	first, err := s.GetRevision(ctx, "g1", 1)
	require.NoError(t, err)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, "draft", first.Snapshot.Name)

	latest, err := s.GetGraph(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "final", latest.Name)
}

func TestGetRevision_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveGraph(ctx, &GraphRecord{Snapshot: chainSnapshot("g1", "x")}))

	_, err := s.GetRevision(ctx, "g1", 9)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
	assert.Contains(t, err.Error(), "g1@9")
}
