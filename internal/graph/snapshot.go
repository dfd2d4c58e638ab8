package graph

import (
	"maps"

	"github.com/rendis/wfgraph/pkg/schema"
)

// FromSnapshot builds a Graph from its serialized form, preserving node and
// connection order. Connections and node Outgoing lists describe the same edge
// set: explicit connections come first, then every Outgoing target that no
// connection already links from that node.
//
// Positions are copied when present; the viewer overwrites them on layout.
func FromSnapshot(snap *schema.Snapshot, opts ...Option) (*Graph, error) {
	if snap == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "snapshot is nil")
	}
	g := New(opts...)

	for i := range snap.Nodes {
		sn := &snap.Nodes[i]
		kind, err := ParseKind(sn.Kind)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeInvalidAttribute, "nodes[%d]: unknown kind %q", i, sn.Kind).
				WithNode(sn.ID).WithCause(err)
		}
		name := sn.Name
		if name == "" {
			name = DefaultName(kind)
		}
		n := Node{
			ID:   sn.ID,
			Kind: kind,
			Name: name,
			Attributes: Attributes{
				Assignee:  sn.Assignee,
				Condition: sn.Condition,
				TaskType:  sn.TaskType,
				Status:    Status(sn.Status),
				Metadata:  sn.Metadata,
			},
		}
		if sn.SLADays != nil {
			v := *sn.SLADays
			n.SLADays = &v
		}
		if sn.Position != nil {
			n.Position = Point{X: sn.Position.X, Y: sn.Position.Y}
		}
		if _, err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	// explicit counts connections per (from, to) so an Outgoing entry that
	// repeats one is not added twice.
	explicit := make(map[[2]string]int, len(snap.Connections))
	for _, sc := range snap.Connections {
		if _, err := g.addConnection(Connection{ID: sc.ID, From: sc.From, To: sc.To, Label: sc.Label}); err != nil {
			return nil, err
		}
		explicit[[2]string{sc.From, sc.To}]++
	}

	for _, sn := range snap.Nodes {
		for _, target := range sn.Outgoing {
			key := [2]string{sn.ID, target}
			if explicit[key] > 0 {
				explicit[key]--
				continue
			}
			if _, err := g.AddConnection(sn.ID, target, ""); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Snapshot serializes the graph. Connections are always written explicitly;
// node Outgoing lists are left empty.
func (g *Graph) Snapshot() *schema.Snapshot {
	snap := &schema.Snapshot{
		Nodes: make([]schema.SnapshotNode, 0, g.Len()),
	}
	for _, id := range g.nodeOrder.list() {
		n := g.nodes[id]
		pos := schema.Point{X: n.Position.X, Y: n.Position.Y}
		sn := schema.SnapshotNode{
			ID:        n.ID,
			Kind:      string(n.Kind),
			Name:      n.Name,
			Position:  &pos,
			Assignee:  n.Assignee,
			Condition: n.Condition,
			TaskType:  n.TaskType,
			Status:    string(n.Status),
		}
		if n.SLADays != nil {
			v := *n.SLADays
			sn.SLADays = &v
		}
		if n.Metadata != nil {
			sn.Metadata = maps.Clone(n.Metadata)
		}
		snap.Nodes = append(snap.Nodes, sn)
	}
	for _, id := range g.connOrder.list() {
		c := g.conns[id]
		snap.Connections = append(snap.Connections, schema.SnapshotConnection{
			ID: c.ID, From: c.From, To: c.To, Label: c.Label,
		})
	}
	return snap
}
