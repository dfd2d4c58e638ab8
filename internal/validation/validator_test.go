package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rendis/wfgraph/internal/expressions"
	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/pkg/schema"
)

func addNode(t *testing.T, g *graph.Graph, id string, kind graph.Kind, name string) {
	t.Helper()
	_, err := g.AddNode(graph.Node{ID: id, Kind: kind, Name: name})
	require.NoError(t, err)
}

func connect(t *testing.T, g *graph.Graph, from, to string) {
	t.Helper()
	_, err := g.AddConnection(from, to, "")
	require.NoError(t, err)
}

func codes(issues schema.Issues) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func TestValidate_LinearChainIsValid(t *testing.T) {
	g := graph.New()
	addNode(t, g, "start", graph.KindStart, "Start")
	addNode(t, g, "taskA", graph.KindTask, "Review request")
	addNode(t, g, "end", graph.KindEnd, "End")
	connect(t, g, "start", "taskA")
	connect(t, g, "taskA", "end")

	issues := Validate(g)

	assert.True(t, issues.Valid(), "got %v", issues.Messages())
	assert.NoError(t, issues.ToError())
}

func TestValidate_StartOnly(t *testing.T) {
	g := graph.New()
	addNode(t, g, "start", graph.KindStart, "Start")

	issues := Validate(g)

	assert.Equal(t, []string{schema.IssueMissingEnd}, codes(issues))
	assert.Equal(t, []string{"missing end"}, issues.Messages())
}

func TestValidate_TwoStartsNoConnections(t *testing.T) {
	g := graph.New()
	addNode(t, g, "start1", graph.KindStart, "Start")
	addNode(t, g, "start2", graph.KindStart, "Start")

	issues := Validate(g)

	require.True(t, issues.Has(schema.IssueMultipleStarts))
	require.True(t, issues.Has(schema.IssueDisconnected))
	for _, is := range issues {
		if is.Code == schema.IssueDisconnected {
			assert.Equal(t, []string{"start1", "start2"}, is.NodeIDs)
			assert.Equal(t, "2 disconnected nodes", is.Message)
		}
		if is.Code == schema.IssueMultipleStarts {
			assert.Equal(t, []string{"start1", "start2"}, is.NodeIDs)
		}
	}
}

func TestValidate_RuleOrder(t *testing.T) {
	g := graph.New()
	addNode(t, g, "a", graph.KindTask, "")
	addNode(t, g, "b", graph.KindGateway, "New Gateway")

	issues := Validate(g)

	assert.Equal(t, []string{
		schema.IssueMissingStart,
		schema.IssueMissingEnd,
		schema.IssueDisconnected,
		schema.IssueUnnamedNode,
		schema.IssueUnnamedNode,
	}, codes(issues))
	assert.Equal(t, "missing start", issues[0].Message)
}

func TestValidate_EmptyGraph(t *testing.T) {
	issues := Validate(graph.New())
	assert.Equal(t, []string{schema.IssueMissingStart, schema.IssueMissingEnd}, codes(issues))
}

func TestValidate_PlaceholderNameThenRename(t *testing.T) {
	g := graph.New()
	addNode(t, g, "s", graph.KindStart, "")
	n, err := graph.NewNode(graph.KindTask, "", graph.Attributes{})
	require.NoError(t, err)
	n.ID = "t"
	_, err = g.AddNode(n)
	require.NoError(t, err)
	addNode(t, g, "e", graph.KindEnd, "")
	connect(t, g, "s", "t")
	connect(t, g, "t", "e")

	issues := Validate(g)
	require.Equal(t, []string{schema.IssueUnnamedNode}, codes(issues))
	assert.Equal(t, []string{"t"}, issues[0].NodeIDs)

	require.NoError(t, g.UpdateNode("t", func(n *graph.Node) { n.Name = "Approve dispatch" }))
	assert.Empty(t, Validate(g))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	g := graph.New()
	addNode(t, g, "s", graph.KindStart, "")
	addNode(t, g, "x", graph.KindTask, "")
	before := g.Snapshot()

	Validate(g)

	assert.Equal(t, before, g.Snapshot())
}

func TestValidate_ConditionRule(t *testing.T) {
	g := graph.New()
	addNode(t, g, "s", graph.KindStart, "")
	_, err := g.AddNode(graph.Node{ID: "ok", Kind: graph.KindGateway, Name: "Approved?",
		Attributes: graph.Attributes{Condition: "vars.approved == true"}})
	require.NoError(t, err)
	_, err = g.AddNode(graph.Node{ID: "bad", Kind: graph.KindGateway, Name: "Amount?",
		Attributes: graph.Attributes{Condition: "vars.amount >"}})
	require.NoError(t, err)
	addNode(t, g, "e", graph.KindEnd, "")
	connect(t, g, "s", "ok")
	connect(t, g, "ok", "bad")
	connect(t, g, "bad", "e")

	assert.Empty(t, Validate(g), "conditions are ignored without a checker")

	cel, err := expressions.NewCELEngine()
	require.NoError(t, err)
	issues := Validate(g, WithConditionChecker(cel))

	require.Equal(t, []string{schema.IssueInvalidCondition}, codes(issues))
	assert.Equal(t, []string{"bad"}, issues[0].NodeIDs)
	assert.Contains(t, issues[0].Message, "cel")
}

func TestIssuesToError(t *testing.T) {
	g := graph.New()
	addNode(t, g, "a", graph.KindTask, "")

	err := Validate(g).ToError()
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	assert.Contains(t, err.Error(), "validation failed with 3 issues")
}

// Two start nodes always yield a multiple-starts issue, whatever else the
// graph contains.
func TestValidate_MultipleStarts_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := graph.New()
		starts := rapid.IntRange(2, 4).Draw(rt, "starts")
		others := rapid.IntRange(0, 6).Draw(rt, "others")
		var ids []string
		for i := 0; i < starts+others; i++ {
			kind := graph.KindStart
			if i >= starts {
				kind = rapid.SampledFrom([]graph.Kind{graph.KindTask, graph.KindGateway, graph.KindEnd}).Draw(rt, "kind")
			}
			id := fmt.Sprintf("n%d", i)
			if _, err := g.AddNode(graph.Node{ID: id, Kind: kind, Name: id}); err != nil {
				rt.Fatalf("add node: %v", err)
			}
			ids = append(ids, id)
		}
		edges := rapid.IntRange(0, 10).Draw(rt, "edges")
		for i := 0; i < edges; i++ {
			from := rapid.IntRange(0, len(ids)-1).Draw(rt, "from")
			to := rapid.IntRange(0, len(ids)-1).Draw(rt, "to")
			if from != to {
				if _, err := g.AddConnection(ids[from], ids[to], ""); err != nil {
					rt.Fatalf("add connection: %v", err)
				}
			}
		}

		issues := Validate(g)
		if !issues.Has(schema.IssueMultipleStarts) {
			rt.Fatalf("missing multiple-starts issue: %v", issues.Messages())
		}
		if issues.Has(schema.IssueMissingStart) {
			rt.Fatalf("reported missing start with %d starts", starts)
		}
	})
}
