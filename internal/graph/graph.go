package graph

import (
	"github.com/google/uuid"

	"github.com/rendis/wfgraph/pkg/schema"
)

// Graph is the in-memory workflow graph. Every edge is stored once and
// indexed by source and target. Node and connection order is insertion
// order, which the layout relies on for deterministic tie-breaks.
//
// A Graph is owned by a single session and is not safe for concurrent use.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder *orderedIDs

	conns     map[string]*Connection
	connOrder *orderedIDs

	out map[string][]string // node ID → outgoing connection IDs, in creation order
	in  map[string][]string // node ID → incoming connection IDs, in creation order

	newID func() string
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator overrides the ID source used for nodes and connections
// added without an explicit ID.
func WithIDGenerator(fn func() string) Option {
	return func(g *Graph) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// New creates an empty Graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:     make(map[string]*Node),
		nodeOrder: newOrderedIDs(),
		conns:     make(map[string]*Connection),
		connOrder: newOrderedIDs(),
		out:       make(map[string][]string),
		in:        make(map[string][]string),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewID draws a fresh identifier from the graph's ID source.
func (g *Graph) NewID() string {
	return g.newID()
}

// AddNode inserts a node and returns its ID. A fresh ID is assigned when
// node.ID is empty.
func (g *Graph) AddNode(node Node) (string, error) {
	n := node.clone()
	if n.ID == "" {
		n.ID = g.newID()
	}
	if _, exists := g.nodes[n.ID]; exists {
		return "", schema.NewErrorf(schema.ErrCodeDuplicateID, "duplicate node id %q", n.ID).WithNode(n.ID)
	}
	if err := n.Check(); err != nil {
		return "", err
	}
	g.nodes[n.ID] = n
	g.nodeOrder.add(n.ID)
	return n.ID, nil
}

// RemoveNode deletes a node together with every connection touching it.
// Removing an unknown ID is a no-op.
func (g *Graph) RemoveNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	touching := make([]string, 0, len(g.out[id])+len(g.in[id]))
	touching = append(touching, g.out[id]...)
	touching = append(touching, g.in[id]...)
	for _, cid := range touching {
		g.RemoveConnection(cid)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
	g.nodeOrder.remove(id)
}

// AddConnection creates a directed edge and returns its ID. Both endpoints
// must exist; on failure nothing is mutated.
func (g *Graph) AddConnection(fromID, toID, label string) (string, error) {
	return g.addConnection(Connection{From: fromID, To: toID, Label: label})
}

func (g *Graph) addConnection(c Connection) (string, error) {
	if _, ok := g.nodes[c.From]; !ok {
		return "", schema.NewErrorf(schema.ErrCodeInvalidReference, "connection source %q does not exist", c.From).
			WithDetails(map[string]any{"from": c.From, "to": c.To})
	}
	if _, ok := g.nodes[c.To]; !ok {
		return "", schema.NewErrorf(schema.ErrCodeInvalidReference, "connection target %q does not exist", c.To).
			WithDetails(map[string]any{"from": c.From, "to": c.To})
	}
	if c.From == c.To {
		return "", schema.NewErrorf(schema.ErrCodeInvalidReference, "connection from %q to itself", c.From).
			WithNode(c.From)
	}
	if c.ID == "" {
		c.ID = g.newID()
	}
	if _, exists := g.conns[c.ID]; exists {
		return "", schema.NewErrorf(schema.ErrCodeDuplicateID, "duplicate connection id %q", c.ID)
	}
	g.conns[c.ID] = &c
	g.connOrder.add(c.ID)
	g.out[c.From] = append(g.out[c.From], c.ID)
	g.in[c.To] = append(g.in[c.To], c.ID)
	return c.ID, nil
}

// RemoveConnection deletes an edge. Removing an unknown ID is a no-op.
func (g *Graph) RemoveConnection(id string) {
	c, ok := g.conns[id]
	if !ok {
		return
	}
	g.out[c.From] = removeFrom(g.out[c.From], id)
	g.in[c.To] = removeFrom(g.in[c.To], id)
	delete(g.conns, id)
	g.connOrder.remove(id)
}

// Node returns a copy of the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return g.view(n), true
}

// Has reports whether a node exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Connection returns a copy of the connection with the given ID.
func (g *Graph) Connection(id string) (Connection, bool) {
	c, ok := g.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	ids := g.nodeOrder.list()
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = g.view(g.nodes[id])
	}
	return out
}

// NodeIDs returns all node IDs in insertion order.
func (g *Graph) NodeIDs() []string {
	return g.nodeOrder.list()
}

// Connections returns copies of all connections in insertion order.
func (g *Graph) Connections() []Connection {
	ids := g.connOrder.list()
	out := make([]Connection, len(ids))
	for i, id := range ids {
		out[i] = *g.conns[id]
	}
	return out
}

// Outgoing returns the connections leaving a node, in creation order.
func (g *Graph) Outgoing(id string) []Connection {
	return g.resolve(g.out[id])
}

// Incoming returns the connections entering a node, in creation order.
func (g *Graph) Incoming(id string) []Connection {
	return g.resolve(g.in[id])
}

// Degree returns the number of connections touching a node.
func (g *Graph) Degree(id string) int {
	return len(g.out[id]) + len(g.in[id])
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return g.nodeOrder.len()
}

// ConnectionCount returns the number of connections.
func (g *Graph) ConnectionCount() int {
	return g.connOrder.len()
}

// MoveNode sets a node's position.
func (g *Graph) MoveNode(id string, p Point) error {
	n, ok := g.nodes[id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	n.Position = p
	return nil
}

// UpdateNode applies fn to a copy of the node and stores the result if the
// attributes are still valid. ID and Kind cannot be changed.
func (g *Graph) UpdateNode(id string, fn func(n *Node)) error {
	n, ok := g.nodes[id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	cp := n.clone()
	fn(cp)
	if cp.ID != n.ID || cp.Kind != n.Kind {
		return schema.NewError(schema.ErrCodeInvalidAttribute, "node id and kind are immutable").WithNode(id)
	}
	if err := cp.Check(); err != nil {
		return err
	}
	cp.Outgoing = nil
	g.nodes[id] = cp
	return nil
}

// Clone returns a deep copy of the graph, preserving IDs and order.
func (g *Graph) Clone() *Graph {
	cp := New(WithIDGenerator(g.newID))
	for _, id := range g.nodeOrder.list() {
		n := g.nodes[id].clone()
		cp.nodes[id] = n
		cp.nodeOrder.add(id)
	}
	for _, id := range g.connOrder.list() {
		c := *g.conns[id]
		cp.conns[id] = &c
		cp.connOrder.add(id)
		cp.out[c.From] = append(cp.out[c.From], id)
		cp.in[c.To] = append(cp.in[c.To], id)
	}
	return cp
}

func (g *Graph) view(n *Node) Node {
	v := *n.clone()
	if ids := g.out[n.ID]; len(ids) > 0 {
		v.Outgoing = append([]string(nil), ids...)
	}
	return v
}

func (g *Graph) resolve(ids []string) []Connection {
	out := make([]Connection, len(ids))
	for i, id := range ids {
		out[i] = *g.conns[id]
	}
	return out
}
