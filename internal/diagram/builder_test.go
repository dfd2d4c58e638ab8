package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wfgraph/internal/demo"
	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/layout"
)

// linearGraph is start -> review -> end.
func linearGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, n := range []graph.Node{
		{ID: "start", Kind: graph.KindStart, Name: "Start"},
		{ID: "review", Kind: graph.KindTask, Name: "Review", Attributes: graph.Attributes{Assignee: "legal", Status: graph.StatusCompleted}},
		{ID: "end", Kind: graph.KindEnd, Name: "End"},
	} {
		_, err := g.AddNode(n)
		require.NoError(t, err)
	}
	_, err := g.AddConnection("start", "review", "")
	require.NoError(t, err)
	_, err = g.AddConnection("review", "end", "done")
	require.NoError(t, err)
	return g
}

func dispatchModel(t *testing.T, o layout.Orientation) *DiagramModel {
	t.Helper()
	g, err := demo.DispatchGraph()
	require.NoError(t, err)
	model, err := FromGraph("Document dispatch approval", g, o)
	require.NoError(t, err)
	return model
}

func TestBuildLinear(t *testing.T) {
	g := linearGraph(t)
	model, err := FromGraph("", g, layout.Horizontal)
	require.NoError(t, err)

	assert.Equal(t, "Workflow", model.Title)
	assert.Equal(t, layout.Horizontal, model.Orientation)
	require.Len(t, model.Nodes, 3)
	assert.Equal(t, [][]string{{"start"}, {"review"}, {"end"}}, model.Levels)

	review := model.node("review")
	require.NotNil(t, review)
	assert.Equal(t, NodeKindTask, review.Kind)
	assert.Equal(t, "Review\n(legal)", review.Label)
	assert.Equal(t, 1, review.Level)
	assert.Equal(t, graph.Point{X: 320, Y: 300}, review.Position)
	require.NotNil(t, review.Status)
	assert.Equal(t, "completed", review.Status.Status)
	assert.Nil(t, model.node("start").Status)

	require.Len(t, model.Edges, 2)
	assert.Equal(t, "done", model.Edges[1].Label)
	assert.Equal(t, "review", model.Edges[1].Path.From)
	assert.InDelta(t, 488, model.Bounds.Width(), 1e-9)

	n, _ := g.Node("review")
	assert.Equal(t, graph.Point{}, n.Position, "FromGraph lays out a copy")
}

func TestBuildDispatch_BackEdge(t *testing.T) {
	model := dispatchModel(t, layout.Horizontal)

	var back []string
	for _, e := range model.Edges {
		if e.Back(model) {
			back = append(back, e.From+">"+e.To)
		}
	}
	assert.Equal(t, []string{"return>register"}, back)
	assert.Equal(t, []string{"dispatch", "return"}, model.Levels[4])
}
