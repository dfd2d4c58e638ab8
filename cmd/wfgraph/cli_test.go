package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wfgraph/internal/viewer"
	"github.com/rendis/wfgraph/pkg/schema"
)

type cliEnv struct {
	t    *testing.T
	home string
	db   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	home := isolateHome(t)
	return &cliEnv{t: t, home: home, db: filepath.Join(home, "data", "graphs.db")}
}

// run executes the CLI with the env's store and returns stdout and stderr.
func (e *cliEnv) run(stdin string, args ...string) (string, string, error) {
	e.t.Helper()
	cmd := newRootCmd()
	var out, errb bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", e.db, "--log-level", "warn"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func (e *cliEnv) write(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.home, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sceneNode(t *testing.T, s *viewer.Scene, id string) viewer.SceneNode {
	t.Helper()
	for _, n := range s.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %q not in scene", id)
	return viewer.SceneNode{}
}

func TestCLI_LayoutDemo(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "layout", "--demo")
	require.NoError(t, err)
	var scene viewer.Scene
	require.NoError(t, json.Unmarshal([]byte(out), &scene))
	assert.Equal(t, "horizontal", scene.Orientation)
	assert.Len(t, scene.Nodes, 7)
	assert.Len(t, scene.Connections, 7)
	assert.Equal(t, schema.Point{X: 100, Y: 300}, sceneNode(t, &scene, "start").Position)

	out, _, err = e.run("", "layout", "--demo", "-o", "vertical")
	require.NoError(t, err)
	scene = viewer.Scene{}
	require.NoError(t, json.Unmarshal([]byte(out), &scene))
	assert.Equal(t, "vertical", scene.Orientation)
	assert.Equal(t, schema.Point{X: 400, Y: 80}, sceneNode(t, &scene, "start").Position)
}

func TestCLI_LayoutApplyFromStdin(t *testing.T) {
	e := newCLIEnv(t)
	in := `
name: Chain
nodes:
  - {id: s, kind: start, name: Start}
  - {id: t, kind: task, name: Review}
connections:
  - {from: s, to: t}
`
	out, _, err := e.run(in, "layout", "--apply", "-")
	require.NoError(t, err)

	snap, err := schema.DecodeSnapshot([]byte(out), schema.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "Chain", snap.Name)
	require.Len(t, snap.Nodes, 2)
	require.NotNil(t, snap.Nodes[1].Position)
	assert.Equal(t, schema.Point{X: 320, Y: 300}, *snap.Nodes[1].Position)
}

func TestCLI_Validate(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "validate", "--demo")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	bad := e.write("bad.yaml", `
nodes:
  - {id: a, kind: task, name: Lonely}
`)
	out, _, err = e.run("", "validate", bad)
	assert.ErrorIs(t, err, errInvalidGraph)
	assert.Contains(t, out, "MISSING_START")
	assert.Contains(t, out, "MISSING_END")

	out, _, err = e.run("", "validate", "--json", bad)
	assert.ErrorIs(t, err, errInvalidGraph)
	var res struct {
		Valid  bool          `json:"valid"`
		Issues schema.Issues `json:"issues"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	assert.True(t, res.Issues.Has(schema.IssueMissingStart))
}

func TestCLI_ValidateRejectsSchemaViolations(t *testing.T) {
	e := newCLIEnv(t)
	bad := e.write("bad.json", `{"nodes": [{"id": "a", "kind": "loop"}]}`)

	_, _, err := e.run("", "validate", bad)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errInvalidGraph)
}

func TestCLI_RenderMermaid(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "render", "--demo", "-f", "mermaid")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph LR\n"), out)
	assert.Contains(t, out, "Legal review")

	target := filepath.Join(e.home, "demo.svg")
	_, stderr, err := e.run("", "render", "--demo", "-f", "svg", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	_, _, err = e.run("", "render", "--demo", "-f", "gif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestCLI_Query(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "query", "--demo", `[.nodes[] | select(.kind == "gateway") | .id]`)
	require.NoError(t, err)
	assert.Equal(t, "[\"approved\"]\n", out)

	out, _, err = e.run("", "query", "--demo", `.connections[] | select(.label != null) | .label`)
	require.NoError(t, err)
	assert.Equal(t, "\"approved\"\n\"rejected\"\n\"resubmit\"\n", out)
}

func TestCLI_StoreCommands(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "save", "--demo")
	require.NoError(t, err)
	assert.Equal(t, "document-dispatch v1\n", out)
	out, _, err = e.run("", "save", "--demo")
	require.NoError(t, err)
	assert.Equal(t, "document-dispatch v2\n", out)

	out, _, err = e.run("", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "document-dispatch")
	assert.Contains(t, out, "Document dispatch approval")

	out, _, err = e.run("", "list", "--json", "--prefix", "Nothing")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	out, _, err = e.run("", "load", "document-dispatch", "-f", "yaml")
	require.NoError(t, err)
	snap, err := schema.DecodeSnapshot([]byte(out), schema.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "Document dispatch approval", snap.Name)
	assert.Len(t, snap.Nodes, 7)

	_, _, err = e.run("", "load", "document-dispatch", "--version", "1")
	require.NoError(t, err)
	_, _, err = e.run("", "load", "document-dispatch", "--version", "7")
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))

	out, _, err = e.run("", "list", "history", "document-dispatch")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3, "header plus two revisions")

	out, _, err = e.run("", "list", "delete", "document-dispatch")
	require.NoError(t, err)
	assert.Equal(t, "deleted document-dispatch\n", out)
	_, _, err = e.run("", "load", "document-dispatch")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestCLI_SaveRejectsInvalid(t *testing.T) {
	e := newCLIEnv(t)
	bad := e.write("bad.yaml", "nodes:\n  - {id: a, kind: task}\n")

	_, stderr, err := e.run("", "save", bad)
	require.ErrorIs(t, err, errInvalidGraph)
	assert.Contains(t, err.Error(), "--allow-invalid")
	assert.Contains(t, stderr, "UNNAMED_NODE")

	out, _, err := e.run("", "save", "--allow-invalid", bad)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, " v1\n"), out)
}

const replayScript = `
session: cli-build
steps:
  - drop: {kind: start, x: 60, y: 200}
  - drop: {kind: task, x: 260, y: 200}
  - update: {name: Review request, assignee: legal}
  - drop: {kind: end, x: 460, y: 200}
  - tool: connect
  - down: {node: n-1}
  - down: {x: 260, y: 200}
  - down: {node: n-2}
  - down: {node: n-3}
`

func TestCLI_Replay(t *testing.T) {
	e := newCLIEnv(t)
	script := e.write("build.yaml", replayScript)

	out, stderr, err := e.run("", "replay", script, "--id-prefix", "n", "--name", "Built", "--save")
	require.NoError(t, err)
	assert.Contains(t, stderr, "session cli-build: 9 steps, 6 effects, 0 issues")

	snap, err := schema.DecodeSnapshot([]byte(out), schema.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "Built", snap.Name)
	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, "Review request", snap.Nodes[1].Name)
	require.Len(t, snap.Connections, 2)
	assert.Equal(t, "n-1", snap.Connections[0].From)
	assert.Equal(t, "n-2", snap.Connections[0].To)

	listed, _, err := e.run("", "list")
	require.NoError(t, err)
	assert.Contains(t, listed, "Built")
}

func TestCLI_ReplayReportsIssues(t *testing.T) {
	e := newCLIEnv(t)
	script := e.write("partial.json", `{"steps": [{"drop": {"kind": "task", "x": 10, "y": 10}}]}`)

	_, stderr, err := e.run("", "replay", script)
	require.NoError(t, err)
	assert.Contains(t, stderr, "MISSING_START")
	assert.Contains(t, stderr, "UNNAMED_NODE")
}

func TestCLI_Examples(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "validate", filepath.Join("..", "..", "examples", "contract-review.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	out, stderr, err := e.run("", "replay", filepath.Join("..", "..", "examples", "build-contract-review.yaml"), "--id-prefix", "n")
	require.NoError(t, err)
	assert.Contains(t, stderr, "session build-contract-review: 11 steps")
	assert.Contains(t, stderr, " 0 issues")
	snap, err := schema.DecodeSnapshot([]byte(out), schema.FormatJSON)
	require.NoError(t, err)
	require.Len(t, snap.Connections, 2)
	require.NotNil(t, snap.Nodes[1].SLADays)
	assert.Equal(t, 3, *snap.Nodes[1].SLADays)
}

func TestCLI_InstallWritesSettings(t *testing.T) {
	e := newCLIEnv(t)
	cfgPath := filepath.Join(e.home, "conf", "settings.yaml")

	out, _, err := e.run("", "--config", cfgPath, "install", "--skip-tools",
		"--orientation", "vertical", "--dialect", "expr")
	require.NoError(t, err)
	assert.Contains(t, out, "Config written to "+cfgPath)
	assert.FileExists(t, e.db)

	cfg, err := loadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "vertical", cfg.Orientation)
	assert.Equal(t, "expr", cfg.ConditionDialect)
	assert.Equal(t, e.db, cfg.DBPath)
}

func TestCLI_BadConfig(t *testing.T) {
	e := newCLIEnv(t)
	_, _, err := e.run("", "--config", filepath.Join(e.home, "missing.yaml"), "layout", "--demo")
	require.Error(t, err)

	out, _, err := e.run("", "--config", filepath.Join(e.home, "missing.yaml"), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}
