package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wfgraph/internal/layout"
)

func TestRenderASCIILinear(t *testing.T) {
	model, err := FromGraph("Approval", linearGraph(t), layout.Horizontal)
	require.NoError(t, err)

	output := RenderASCII(model)

	assert.Contains(t, output, "=== Approval ===")
	assert.Contains(t, output, "┌")
	assert.Contains(t, output, "┘")
	assert.Contains(t, output, "╭", "start and end are rounded")
	assert.Contains(t, output, "▼")
	assert.Contains(t, output, "Review")
	assert.NotContains(t, output, "(legal)", "only the first label line is drawn")
	assert.Contains(t, output, "[OK]")
	assert.NotContains(t, output, "other connections")
}

func TestRenderASCIIWithStatus(t *testing.T) {
	sla := 3
	model := &DiagramModel{
		Title: "Test",
		Nodes: []*Node{
			{ID: "s", Label: "Start", Kind: NodeKindStart},
			{ID: "a", Label: "step-a", Kind: NodeKindTask, Status: &StatusOverlay{Status: "completed", SLADays: &sla}},
			{ID: "b", Label: "step-b", Kind: NodeKindTask, Status: &StatusOverlay{Status: "in_progress"}},
			{ID: "c", Label: "step-c", Kind: NodeKindTask, Status: &StatusOverlay{Status: "pending"}},
			{ID: "d", Label: "ok?", Kind: NodeKindGateway, Status: &StatusOverlay{Status: "rejected"}},
			{ID: "end", Label: "End", Kind: NodeKindEnd},
		},
		Levels: [][]string{{"s"}, {"a", "b", "c"}, {"d"}, {"end"}},
	}

	output := RenderASCII(model)

	assert.Contains(t, output, "[OK]")
	assert.Contains(t, output, "[RUN]")
	assert.Contains(t, output, "[PEND]")
	assert.Contains(t, output, "[REJ]")
	assert.Contains(t, output, "sla 3d")
	assert.Contains(t, output, "<?> ok?")
}

func TestRenderASCIIListsBackEdges(t *testing.T) {
	output := RenderASCII(dispatchModel(t, layout.Horizontal))

	assert.Contains(t, output, "--- other connections ---")
	assert.Contains(t, output, "return ─→ register [resubmit]")
	assert.NotContains(t, output, "start ─→ register")
}
