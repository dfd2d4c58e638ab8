package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wfgraph/internal/store"
	"github.com/rendis/wfgraph/internal/streaming"
	"github.com/rendis/wfgraph/internal/viewer"
	"github.com/rendis/wfgraph/pkg/schema"
)

// --- Mock Store ---

type mockStore struct {
	store.Store // embed for unimplemented methods

	mu        sync.Mutex
	revisions map[string][]*schema.Snapshot
	records   map[string]*store.GraphRecord
}

func newMockStore() *mockStore {
	return &mockStore{
		revisions: make(map[string][]*schema.Snapshot),
		records:   make(map[string]*store.GraphRecord),
	}
}

func (m *mockStore) SaveGraph(_ context.Context, rec *store.GraphRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = rec.Snapshot.ID
	}
	if rec.ID == "" {
		rec.ID = "generated"
	}
	rec.Snapshot.ID = rec.ID
	rec.Name = rec.Snapshot.Name
	rec.Nodes = len(rec.Snapshot.Nodes)
	rec.Connections = len(rec.Snapshot.Connections)
	m.revisions[rec.ID] = append(m.revisions[rec.ID], rec.Snapshot)
	rec.Version = len(m.revisions[rec.ID])
	rec.UpdatedAt = time.Now().UTC()
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockStore) GetGraph(_ context.Context, id string) (*store.GraphRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "graph %q not found", id)
	}
	cp := *rec
	return &cp, nil
}

func (m *mockStore) GetRevision(_ context.Context, id string, version int) (*store.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	revs := m.revisions[id]
	if version < 1 || version > len(revs) {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "revision %s@%d not found", id, version)
	}
	return &store.Revision{GraphID: id, Version: version, Snapshot: revs[version-1]}, nil
}

func (m *mockStore) ListGraphs(_ context.Context, filter store.GraphFilter) ([]*store.GraphRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*store.GraphRecord, 0)
	for _, rec := range m.records {
		if filter.NamePrefix != "" && !strings.HasPrefix(rec.Name, filter.NamePrefix) {
			continue
		}
		cp := *rec
		cp.Snapshot = nil
		result = append(result, &cp)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// --- Fake session ---

type fakeSession struct {
	id    string
	notes chan mcp.JSONRPCNotification
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id, notes: make(chan mcp.JSONRPCNotification, 4)}
}

func (f *fakeSession) Initialize()       {}
func (f *fakeSession) Initialized() bool { return true }
func (f *fakeSession) SessionID() string { return f.id }
func (f *fakeSession) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return f.notes
}

// --- Helpers ---

const chainJSON = `{
  "id": "proc-1",
  "name": "Approval",
  "nodes": [
    {"id": "start", "kind": "start"},
    {"id": "review", "kind": "task", "name": "Review", "status": "in_progress", "sla_days": 2},
    {"id": "end", "kind": "end"}
  ],
  "connections": [
    {"id": "c1", "from": "start", "to": "review"},
    {"id": "c2", "from": "review", "to": "end", "label": "done"}
  ]
}`

func snapshotArg(t *testing.T, doc string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	return m
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func newTestServer(t *testing.T, st store.Store) *GraphServer {
	t.Helper()
	s, err := NewGraphServer(ServerDeps{Store: st})
	require.NoError(t, err)
	return s
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}

// --- Layout ---

func TestLayoutTool(t *testing.T) {
	s := newTestServer(t, nil)

	req := buildRequest("wfgraph.layout", map[string]any{"snapshot": snapshotArg(t, chainJSON)})
	result, err := s.handleLayout(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var scene viewer.Scene
	unmarshalResult(t, result, &scene)
	assert.Equal(t, "proc-1", scene.ID)
	assert.Equal(t, "horizontal", scene.Orientation)
	require.Len(t, scene.Nodes, 3)
	assert.Equal(t, schema.Point{X: 100, Y: 300}, scene.Nodes[0].Position)
	assert.Equal(t, schema.Point{X: 320, Y: 300}, scene.Nodes[1].Position)
	assert.Equal(t, schema.Point{X: 540, Y: 300}, scene.Nodes[2].Position)
	require.Len(t, scene.Connections, 2)
	assert.Equal(t, "M 124 300 C 192 300, 192 300, 260 300", scene.Connections[0].Path)
}

func TestLayoutToolVertical(t *testing.T) {
	s := newTestServer(t, nil)

	req := buildRequest("wfgraph.layout", map[string]any{
		"snapshot":    snapshotArg(t, chainJSON),
		"orientation": "vertical",
	})
	result, err := s.handleLayout(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var scene viewer.Scene
	unmarshalResult(t, result, &scene)
	assert.Equal(t, "vertical", scene.Orientation)
	assert.Equal(t, schema.Point{X: 400, Y: 210}, scene.Nodes[1].Position)
}

func TestLayoutToolErrors(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
	}{
		{"no input", map[string]any{}},
		{"unknown kind", map[string]any{"snapshot": snapshotArg(t, `{"nodes":[{"id":"a","kind":"loop"}]}`)}},
		{"dangling connection", map[string]any{"snapshot": snapshotArg(t,
			`{"nodes":[{"id":"a","kind":"start"}],"connections":[{"from":"a","to":"ghost"}]}`)}},
		{"bad orientation", map[string]any{"snapshot": snapshotArg(t, chainJSON), "orientation": "diagonal"}},
		{"graph_id without store", map[string]any{"graph_id": "proc-1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := s.handleLayout(ctx, buildRequest("wfgraph.layout", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}

// --- Validate ---

func TestValidateTool(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleValidate(context.Background(),
		buildRequest("wfgraph.validate", map[string]any{"snapshot": snapshotArg(t, chainJSON)}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Valid  bool          `json:"valid"`
		Issues schema.Issues `json:"issues"`
	}
	unmarshalResult(t, result, &out)
	assert.True(t, out.Valid)
	assert.Empty(t, out.Issues)
}

func TestValidateToolReportsIssues(t *testing.T) {
	s := newTestServer(t, nil)

	doc := `{
	  "nodes": [
	    {"id": "s", "kind": "start"},
	    {"id": "g", "kind": "gateway", "name": "Approved?", "condition": "vars.approved ==="},
	    {"id": "orphan", "kind": "task", "name": "Archive"}
	  ],
	  "connections": [{"from": "s", "to": "g"}]
	}`
	result, err := s.handleValidate(context.Background(),
		buildRequest("wfgraph.validate", map[string]any{"snapshot": snapshotArg(t, doc)}))
	require.NoError(t, err)
	require.False(t, result.IsError, "issues are data, not a tool failure")

	var out struct {
		Valid  bool          `json:"valid"`
		Issues schema.Issues `json:"issues"`
	}
	unmarshalResult(t, result, &out)
	assert.False(t, out.Valid)
	assert.True(t, out.Issues.Has(schema.IssueMissingEnd))
	assert.True(t, out.Issues.Has(schema.IssueDisconnected))
	assert.True(t, out.Issues.Has(schema.IssueInvalidCondition))
}

// --- Diagram ---

func TestDiagramTool(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	tests := []struct {
		format string
		want   string
	}{
		{"ascii", "Review"},
		{"mermaid", "graph LR"},
		{"svg", "<svg"},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			result, err := s.handleDiagram(ctx, buildRequest("wfgraph.diagram", map[string]any{
				"snapshot": snapshotArg(t, chainJSON),
				"format":   tc.format,
			}))
			require.NoError(t, err)
			require.False(t, result.IsError)
			assert.Contains(t, extractText(t, result), tc.want)
		})
	}
}

func TestDiagramToolImage(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleDiagram(context.Background(), buildRequest("wfgraph.diagram", map[string]any{
		"snapshot": snapshotArg(t, chainJSON),
		"format":   "image",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 2)

	img, ok := result.Content[1].(mcp.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	png, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestDiagramToolBadFormat(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, err := s.handleDiagram(ctx, buildRequest("wfgraph.diagram", map[string]any{
		"snapshot": snapshotArg(t, chainJSON),
		"format":   "pdf",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleDiagram(ctx, buildRequest("wfgraph.diagram", map[string]any{
		"snapshot": snapshotArg(t, chainJSON),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Save / load / list ---

func TestSaveLoadRoundTrip(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)
	ctx := context.Background()

	result, err := s.handleSave(ctx, buildRequest("wfgraph.save", map[string]any{
		"snapshot": snapshotArg(t, chainJSON),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var saved struct {
		Saved   bool   `json:"saved"`
		GraphID string `json:"graph_id"`
		Version int    `json:"version"`
		Nodes   int    `json:"nodes"`
	}
	unmarshalResult(t, result, &saved)
	assert.True(t, saved.Saved)
	assert.Equal(t, "proc-1", saved.GraphID)
	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, 3, saved.Nodes)

	result, err = s.handleLoad(ctx, buildRequest("wfgraph.load", map[string]any{"graph_id": "proc-1"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var loaded struct {
		GraphID  string          `json:"graph_id"`
		Version  int             `json:"version"`
		Snapshot schema.Snapshot `json:"snapshot"`
	}
	unmarshalResult(t, result, &loaded)
	assert.Equal(t, 1, loaded.Version)
	assert.Equal(t, "Approval", loaded.Snapshot.Name)
	require.Len(t, loaded.Snapshot.Nodes, 3)
	require.NotNil(t, loaded.Snapshot.Nodes[1].SLADays)
	assert.Equal(t, 2, *loaded.Snapshot.Nodes[1].SLADays)
}

func TestSavePublishesToHub(t *testing.T) {
	hub := streaming.NewMemoryHub()
	s, err := NewGraphServer(ServerDeps{Store: newMockStore(), Hub: hub})
	require.NoError(t, err)
	ctx := context.Background()

	events, cancel, err := hub.Subscribe(ctx, streaming.EventFilter{GraphID: "proc-1"})
	require.NoError(t, err)
	defer cancel()

	result, err := s.handleSave(ctx, buildRequest("wfgraph.save", map[string]any{
		"snapshot": snapshotArg(t, chainJSON),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	select {
	case ev := <-events:
		assert.Equal(t, streaming.EventGraphSaved, ev.EventType)
		assert.Equal(t, 1, ev.Version)
		assert.Equal(t, "mcp", ev.Source)
	case <-time.After(time.Second):
		t.Fatal("no graph_saved event")
	}
}

func TestSaveRejectsInvalidGraph(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)
	ctx := context.Background()
	doc := `{"id": "draft", "nodes": [{"id": "t", "kind": "task", "name": "Review"}]}`

	result, err := s.handleSave(ctx, buildRequest("wfgraph.save", map[string]any{
		"snapshot": snapshotArg(t, doc),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), schema.IssueMissingStart)
	assert.Empty(t, ms.records)

	result, err = s.handleSave(ctx, buildRequest("wfgraph.save", map[string]any{
		"snapshot":      snapshotArg(t, doc),
		"allow_invalid": true,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, ms.records, "draft")
}

func TestLoadVersion(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)
	ctx := context.Background()

	for _, name := range []string{"First", "Second"} {
		snap := snapshotArg(t, chainJSON)
		snap["name"] = name
		result, err := s.handleSave(ctx, buildRequest("wfgraph.save", map[string]any{"snapshot": snap}))
		require.NoError(t, err)
		require.False(t, result.IsError)
	}

	result, err := s.handleLoad(ctx, buildRequest("wfgraph.load", map[string]any{
		"graph_id": "proc-1",
		"version":  float64(1),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var loaded struct {
		Version  int             `json:"version"`
		Snapshot schema.Snapshot `json:"snapshot"`
	}
	unmarshalResult(t, result, &loaded)
	assert.Equal(t, 1, loaded.Version)
	assert.Equal(t, "First", loaded.Snapshot.Name)

	result, err = s.handleLoad(ctx, buildRequest("wfgraph.load", map[string]any{
		"graph_id": "proc-1",
		"version":  float64(7),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), schema.ErrCodeNotFound)
}

func TestListTool(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		snap := snapshotArg(t, chainJSON)
		snap["id"] = id
		_, err := s.handleSave(ctx, buildRequest("wfgraph.save", map[string]any{"snapshot": snap}))
		require.NoError(t, err)
	}

	result, err := s.handleList(ctx, buildRequest("wfgraph.list", map[string]any{"name_prefix": "Appr"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Graphs []store.GraphRecord `json:"graphs"`
	}
	unmarshalResult(t, result, &out)
	assert.Len(t, out.Graphs, 2)
}

func TestStoreToolsWithoutStore(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, err := s.handleSave(ctx, buildRequest("wfgraph.save", map[string]any{"snapshot": snapshotArg(t, chainJSON)}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleLoad(ctx, buildRequest("wfgraph.load", map[string]any{"graph_id": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleList(ctx, buildRequest("wfgraph.list", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Sessions ---

func TestSessionCurrentGraph(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)
	ctx := s.mcpServer.WithContext(context.Background(), newFakeSession("s1"))

	result, err := s.handleSave(ctx, buildRequest("wfgraph.save", map[string]any{"snapshot": snapshotArg(t, chainJSON)}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	gid, ok := s.Sessions().GraphFor("s1")
	require.True(t, ok)
	assert.Equal(t, "proc-1", gid)

	// No snapshot and no graph_id: the session's current graph is used.
	result, err = s.handleLayout(ctx, buildRequest("wfgraph.layout", map[string]any{}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var scene viewer.Scene
	unmarshalResult(t, result, &scene)
	assert.Equal(t, "proc-1", scene.ID)
	assert.Len(t, scene.Nodes, 3)
}

func TestSaveNotifiesWatchingSessions(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)

	writer := newFakeSession("writer")
	watcher := newFakeSession("watcher")
	bg := context.Background()
	require.NoError(t, s.mcpServer.RegisterSession(bg, writer))
	require.NoError(t, s.mcpServer.RegisterSession(bg, watcher))
	s.Sessions().Register("watcher", "proc-1")
	s.Sessions().Register("gone", "proc-1")

	ctx := s.mcpServer.WithContext(bg, writer)
	result, err := s.handleSave(ctx, buildRequest("wfgraph.save", map[string]any{"snapshot": snapshotArg(t, chainJSON)}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	select {
	case n := <-watcher.notes:
		assert.Equal(t, graphChangedMethod, n.Method)
		assert.Equal(t, "proc-1", n.Params.AdditionalFields["graph_id"])
		assert.Equal(t, 1, n.Params.AdditionalFields["version"])
	default:
		t.Fatal("watcher was not notified")
	}
	assert.Empty(t, writer.notes, "the saving session is not notified")
	assert.Equal(t, []string{"watcher", "writer"}, s.Sessions().SessionsFor("proc-1"),
		"unknown sessions are dropped")

	s.mcpServer.UnregisterSession(bg, "watcher")
	assert.Equal(t, []string{"writer"}, s.Sessions().SessionsFor("proc-1"))
}
