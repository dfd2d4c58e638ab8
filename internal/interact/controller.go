package interact

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/logging"
	"github.com/rendis/wfgraph/internal/route"
	"github.com/rendis/wfgraph/internal/validation"
	"github.com/rendis/wfgraph/pkg/schema"
)

// Controller is one builder session: it owns the graph and the interaction
// state. It is not safe for concurrent use; events are dispatched one at a
// time in arrival order.
type Controller struct {
	graph     *graph.Graph
	state     State
	sessionID string
	logger    *slog.Logger
	validate  []validation.Option
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) ControllerOption {
	return func(c *Controller) {
		if id != "" {
			c.sessionID = id
		}
	}
}

// WithView sets the initial view. Defaults to BuilderView.
func WithView(v View) ControllerOption {
	return func(c *Controller) { c.state.View = v }
}

// WithValidation sets the options used by Diagnostics.
func WithValidation(opts ...validation.Option) ControllerOption {
	return func(c *Controller) { c.validate = opts }
}

// NewController starts a session on g. A nil g starts from an empty graph.
func NewController(g *graph.Graph, opts ...ControllerOption) *Controller {
	if g == nil {
		g = graph.New()
	}
	c := &Controller{
		graph:     g,
		state:     NewState(BuilderView()),
		sessionID: uuid.NewString(),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Graph returns the live graph.
func (c *Controller) Graph() *graph.Graph { return c.graph }

// State returns the current interaction state.
func (c *Controller) State() State { return c.state }

// View returns the current zoom/pan transform.
func (c *Controller) View() View { return c.state.View }

// SessionID identifies this session in logs.
func (c *Controller) SessionID() string { return c.sessionID }

// Context returns ctx tagged with the session ID for log correlation.
func (c *Controller) Context(ctx context.Context) context.Context {
	return logging.WithSessionID(ctx, c.sessionID)
}

// Dispatch runs one event through Transition and applies its effects. If an
// effect fails the graph and the state are left as they were and the error
// is returned.
func (c *Controller) Dispatch(ctx context.Context, ev Event) ([]Effect, error) {
	ctx = c.Context(ctx)
	ev = c.withNewID(ev)
	next, effects := Transition(c.state, ev, c.graph)

	for _, eff := range effects {
		if err := c.apply(eff); err != nil {
			c.logger.WarnContext(ctx, "effect rejected",
				slog.String("event", ev.eventName()),
				slog.String("effect", eff.effectName()),
				slog.String("error", err.Error()))
			return nil, err
		}
		c.logEffect(ctx, ev, eff)
	}

	if next.Tool != c.state.Tool || next.Armed != c.state.Armed || next.Drag.Kind != c.state.Drag.Kind {
		c.logger.DebugContext(ctx, "interaction state changed",
			slog.String("event", ev.eventName()),
			slog.String("tool", string(next.Tool)),
			slog.String("drag", next.Drag.Kind.String()),
			slog.String("armed", next.Armed))
	}
	c.state = next
	return effects, nil
}

// withNewID fills the ID of a node-creating event from the graph's ID
// source. An ID is drawn only when the event will create a node, so
// sequential generators stay gap-free.
func (c *Controller) withNewID(ev Event) Event {
	switch e := ev.(type) {
	case PaletteDrop:
		if e.ID == "" && e.Kind.Valid() {
			e.ID = c.graph.NewID()
		}
		return e
	case DuplicateInspected:
		if e.ID == "" && c.graph.Has(c.state.Inspected) {
			e.ID = c.graph.NewID()
		}
		return e
	}
	return ev
}

// apply performs one effect on the graph.
func (c *Controller) apply(eff Effect) error {
	switch e := eff.(type) {
	case CreateNode:
		_, err := c.graph.AddNode(e.Node)
		return err
	case MoveNode:
		return c.graph.MoveNode(e.ID, e.To)
	case CreateConnection:
		_, err := c.graph.AddConnection(e.From, e.To, "")
		return err
	case DeleteNode:
		c.graph.RemoveNode(e.ID)
		return nil
	case PatchNode:
		return c.graph.UpdateNode(e.ID, e.Patch.Apply)
	default:
		return schema.NewErrorf(schema.ErrCodeInvalidTransition, "unknown effect %T", eff)
	}
}

func (c *Controller) logEffect(ctx context.Context, ev Event, eff Effect) {
	var nodeID string
	switch e := eff.(type) {
	case CreateNode:
		nodeID = e.Node.ID
	case MoveNode:
		// Moves fire on every pointer event.
		return
	case CreateConnection:
		nodeID = e.From
	case DeleteNode:
		nodeID = e.ID
	case PatchNode:
		nodeID = e.ID
	}
	c.logger.DebugContext(logging.WithNodeID(ctx, nodeID), "graph updated",
		slog.String("event", ev.eventName()),
		slog.String("effect", eff.effectName()),
		slog.Int("nodes", c.graph.Len()),
		slog.Int("connections", c.graph.ConnectionCount()))
}

// HitTest returns the topmost node under a screen point, or "" for empty
// canvas. Later nodes are drawn on top of earlier ones.
func (c *Controller) HitTest(at graph.Point) string {
	world := c.state.View.ToWorld(at)
	nodes := c.graph.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if route.Box(nodes[i]).Contains(world) {
			return nodes[i].ID
		}
	}
	return ""
}

// PointerDownAt hit-tests a screen point and dispatches the pointer-down.
func (c *Controller) PointerDownAt(ctx context.Context, at graph.Point) ([]Effect, error) {
	return c.Dispatch(ctx, PointerDown{At: at, NodeID: c.HitTest(at)})
}

// Diagnostics validates the live graph.
func (c *Controller) Diagnostics() schema.Issues {
	return validation.Validate(c.graph, c.validate...)
}

// Inspected returns the node shown in the property panel, if any.
func (c *Controller) Inspected() (graph.Node, bool) {
	if c.state.Inspected == "" {
		return graph.Node{}, false
	}
	return c.graph.Node(c.state.Inspected)
}
