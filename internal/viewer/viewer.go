// Package viewer is the read-only side of the workflow graph: it lays a
// graph out automatically, routes its connections and reports activations
// back to the host through a callback.
package viewer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/interact"
	"github.com/rendis/wfgraph/internal/layout"
	"github.com/rendis/wfgraph/internal/logging"
	"github.com/rendis/wfgraph/internal/route"
	"github.com/rendis/wfgraph/pkg/schema"
)

// ActivateFunc receives the full node record when a node is activated.
type ActivateFunc func(ctx context.Context, n graph.Node)

// Viewer is one read-only session. Like the builder controller it is owned
// by a single goroutine.
type Viewer struct {
	graph      *graph.Graph
	graphID    string
	title      string
	opts       layout.Options
	view       interact.View
	result     *layout.Result
	paths      []route.Path
	onActivate ActivateFunc
	sessionID  string
	logger     *slog.Logger
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithOrientation sets the layout direction. Defaults to horizontal.
func WithOrientation(o layout.Orientation) Option {
	return func(v *Viewer) { v.opts = withOrientation(v.opts, o) }
}

// WithLayoutOptions replaces the spacing used for auto-layout.
func WithLayoutOptions(opts layout.Options) Option {
	return func(v *Viewer) { v.opts = opts }
}

// OnActivate sets the selection callback.
func OnActivate(fn ActivateFunc) Option {
	return func(v *Viewer) { v.onActivate = fn }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Viewer) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option {
	return func(v *Viewer) {
		if id != "" {
			v.sessionID = id
		}
	}
}

// WithView sets the initial zoom/pan. Defaults to the viewer zoom limits.
func WithView(view interact.View) Option {
	return func(v *Viewer) { v.view = view }
}

// New lays g out and routes its connections. The viewer takes ownership of
// g: node positions are overwritten by the layout.
func New(g *graph.Graph, opts ...Option) (*Viewer, error) {
	if g == nil {
		g = graph.New()
	}
	v := &Viewer{
		graph:     g,
		opts:      layout.DefaultOptions(layout.Horizontal),
		view:      interact.ViewerView(),
		sessionID: uuid.NewString(),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.Relayout(); err != nil {
		return nil, err
	}
	return v, nil
}

// FromSnapshot builds a viewer over a decoded snapshot. The snapshot's
// orientation is used unless an option overrides it.
func FromSnapshot(snap *schema.Snapshot, opts ...Option) (*Viewer, error) {
	g, err := graph.FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	o, err := layout.ParseOrientation(snap.Orientation)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeDecode, err.Error()).WithCause(err)
	}
	v, err := New(g, append([]Option{WithOrientation(o)}, opts...)...)
	if err != nil {
		return nil, err
	}
	v.graphID = snap.ID
	v.title = snap.Name
	return v, nil
}

func withOrientation(opts layout.Options, o layout.Orientation) layout.Options {
	if opts.Orientation == o {
		return opts
	}
	return layout.DefaultOptions(o)
}

// Relayout recomputes positions and routes from the current graph.
func (v *Viewer) Relayout() error {
	res := layout.ComputeWith(v.graph, v.opts)
	if err := res.Apply(v.graph); err != nil {
		return err
	}
	v.result = res
	v.paths = route.RouteAll(v.graph, v.opts.Orientation)
	v.logger.DebugContext(v.context(context.Background()), "layout computed",
		slog.String("orientation", string(v.opts.Orientation)),
		slog.Int("nodes", v.graph.Len()),
		slog.Int("levels", len(res.Buckets)))
	return nil
}

// SetOrientation switches the layout direction and lays the graph out again.
func (v *Viewer) SetOrientation(o layout.Orientation) error {
	v.opts = withOrientation(v.opts, o)
	return v.Relayout()
}

// Graph returns the laid-out graph.
func (v *Viewer) Graph() *graph.Graph { return v.graph }

// Orientation returns the current layout direction.
func (v *Viewer) Orientation() layout.Orientation { return v.opts.Orientation }

// Layout returns the last layout result.
func (v *Viewer) Layout() *layout.Result { return v.result }

// Paths returns the routed connections in connection order.
func (v *Viewer) Paths() []route.Path { return v.paths }

// Title returns the snapshot name, if the viewer was built from one.
func (v *Viewer) Title() string { return v.title }

// View returns the current zoom/pan transform.
func (v *Viewer) View() interact.View { return v.view }

// SessionID identifies this session in logs.
func (v *Viewer) SessionID() string { return v.sessionID }

func (v *Viewer) context(ctx context.Context) context.Context {
	ctx = logging.WithSessionID(ctx, v.sessionID)
	if v.graphID != "" {
		ctx = logging.WithGraphID(ctx, v.graphID)
	}
	return ctx
}

// ZoomIn zooms in one step, up to the viewer maximum.
func (v *Viewer) ZoomIn() { v.view = v.view.ZoomIn() }

// ZoomOut zooms out one step, down to the viewer minimum.
func (v *Viewer) ZoomOut() { v.view = v.view.ZoomOut() }

// ResetView restores zoom 1 and pan (0, 0).
func (v *Viewer) ResetView() { v.view = v.view.Reset() }

// PanBy shifts the view by a screen-space delta.
func (v *Viewer) PanBy(d graph.Point) { v.view.Pan = v.view.Pan.Add(d) }

// Activate looks up a node and hands its record to the selection callback.
func (v *Viewer) Activate(ctx context.Context, id string) (graph.Node, error) {
	n, ok := v.graph.Node(id)
	if !ok {
		return graph.Node{}, schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	ctx = logging.WithNodeID(v.context(ctx), id)
	v.logger.InfoContext(ctx, "node activated", slog.String("kind", string(n.Kind)))
	if v.onActivate != nil {
		v.onActivate(ctx, n)
	}
	return n, nil
}

// ActivateAt hit-tests a screen point and activates the topmost node under
// it. It reports false for empty canvas.
func (v *Viewer) ActivateAt(ctx context.Context, at graph.Point) (graph.Node, bool) {
	id := v.HitTest(at)
	if id == "" {
		return graph.Node{}, false
	}
	n, err := v.Activate(ctx, id)
	return n, err == nil
}

// HitTest returns the topmost node under a screen point, or "".
func (v *Viewer) HitTest(at graph.Point) string {
	world := v.view.ToWorld(at)
	nodes := v.graph.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if route.Box(nodes[i]).Contains(world) {
			return nodes[i].ID
		}
	}
	return ""
}
