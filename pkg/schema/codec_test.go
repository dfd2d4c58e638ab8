package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const approvalJSON = `{
  "id": "proc-1",
  "name": "Approval",
  "orientation": "vertical",
  "nodes": [
    {"id": "s", "kind": "start", "name": "Start"},
    {"id": "t", "kind": "task", "name": "Review", "assignee": "legal", "sla_days": 3},
    {"id": "e", "kind": "end", "name": "End", "position": {"x": 10, "y": 20}}
  ],
  "connections": [
    {"id": "c1", "from": "s", "to": "t"},
    {"id": "c2", "from": "t", "to": "e", "label": "ok"}
  ]
}`

const approvalYAML = `
id: proc-1
name: Approval
nodes:
  - id: s
    kind: start
    outgoing: [t]
  - id: t
    kind: task
    name: Review
    outgoing: [e]
  - id: e
    kind: end
`

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("graph.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("/tmp/GRAPH.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("graph.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("graph"))
}

func TestDecodeSnapshot_JSON(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(approvalJSON), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "proc-1", snap.ID)
	assert.Equal(t, "vertical", snap.Orientation)
	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, "legal", snap.Nodes[1].Assignee)
	require.NotNil(t, snap.Nodes[1].SLADays)
	assert.Equal(t, 3, *snap.Nodes[1].SLADays)
	require.NotNil(t, snap.Nodes[2].Position)
	assert.Equal(t, Point{X: 10, Y: 20}, *snap.Nodes[2].Position)
	require.Len(t, snap.Connections, 2)
	assert.Equal(t, "ok", snap.Connections[1].Label)
}

func TestDecodeSnapshot_YAMLOutgoing(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(approvalYAML), FormatYAML)
	require.NoError(t, err)

	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, []string{"t"}, snap.Nodes[0].Outgoing)
	assert.Empty(t, snap.Connections)
}

func TestDecodeSnapshot_RejectsUnknownFields(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`{"nodes": [], "edges": []}`), FormatJSON)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeDecode))

	_, err = DecodeSnapshot([]byte("nodes: []\nedges: []\n"), FormatYAML)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeDecode))
}

func TestEncodeSnapshot_BothFormats(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(approvalJSON), FormatJSON)
	require.NoError(t, err)

	for _, f := range []Format{FormatJSON, FormatYAML} {
		data, err := EncodeSnapshot(snap, f)
		require.NoError(t, err, f)

		back, err := DecodeSnapshot(data, f)
		require.NoError(t, err, f)
		assert.Equal(t, snap, back, f)
	}
}

func TestEncodeSnapshot_Nil(t *testing.T) {
	_, err := EncodeSnapshot(nil, FormatJSON)
	require.Error(t, err)
}
