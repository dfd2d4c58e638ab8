// Package layout assigns canvas coordinates to workflow nodes for read-only
// viewing. Nodes are layered by breadth-first depth from the start node and
// centered on a fixed axis within each layer.
package layout

import (
	"fmt"
	"strings"

	"github.com/rendis/wfgraph/internal/graph"
)

// Orientation selects the primary (flow) axis.
type Orientation string

const (
	Horizontal Orientation = "horizontal" // levels advance along X
	Vertical   Orientation = "vertical"   // levels advance along Y
)

// ParseOrientation converts a config/wire string. Empty means Horizontal.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(strings.ToLower(strings.TrimSpace(s))) {
	case "", Horizontal:
		return Horizontal, nil
	case Vertical:
		return Vertical, nil
	default:
		return "", fmt.Errorf("layout: unknown orientation %q", s)
	}
}

// Fallback decides how levels are seeded when the graph has no start node.
type Fallback int

const (
	// FallbackFlat makes every node its own level-0 root, in insertion order.
	FallbackFlat Fallback = iota
	// FallbackSources seeds the BFS with every node that has no incoming
	// connection. If there are none (a pure cycle) it degrades to FallbackFlat.
	FallbackSources
)

// Options holds the spacing constants for one orientation.
type Options struct {
	Orientation  Orientation
	BaseOffset   float64 // primary-axis coordinate of level 0
	LevelSpacing float64 // primary-axis distance between levels
	Centerline   float64 // cross-axis coordinate lanes are centered on
	LaneSpacing  float64 // cross-axis distance between siblings of a level
	Fallback     Fallback
}

// DefaultOptions returns the fixed spacing for an orientation. Lanes are
// wider in horizontal mode than in vertical mode.
func DefaultOptions(o Orientation) Options {
	if o == Vertical {
		return Options{
			Orientation:  Vertical,
			BaseOffset:   80,
			LevelSpacing: 130,
			Centerline:   400,
			LaneSpacing:  140,
		}
	}
	return Options{
		Orientation:  Horizontal,
		BaseOffset:   100,
		LevelSpacing: 220,
		Centerline:   300,
		LaneSpacing:  160,
	}
}

// Result is the output of a layout pass. Positions are node centers.
type Result struct {
	Orientation Orientation
	Positions   map[string]graph.Point
	Levels      map[string]int
	Buckets     [][]string // node IDs per level, in placement order
	Roots       []string
}

// Position returns the computed center of a node.
func (r *Result) Position(id string) (graph.Point, bool) {
	p, ok := r.Positions[id]
	return p, ok
}

// Level returns the layer index of a node, or -1 if it was not laid out.
func (r *Result) Level(id string) int {
	if l, ok := r.Levels[id]; ok {
		return l
	}
	return -1
}

// Apply writes the computed positions into g.
func (r *Result) Apply(g *graph.Graph) error {
	for _, id := range g.NodeIDs() {
		p, ok := r.Positions[id]
		if !ok {
			continue
		}
		if err := g.MoveNode(id, p); err != nil {
			return err
		}
	}
	return nil
}

// Compute lays g out with the default spacing for o.
func Compute(g *graph.Graph, o Orientation) *Result {
	return ComputeWith(g, DefaultOptions(o))
}

// ComputeWith lays g out in O(N+E). The output depends only on the graph's
// nodes, their connection order and the options, so repeated calls on an
// unchanged graph return identical coordinates.
func ComputeWith(g *graph.Graph, opts Options) *Result {
	res := &Result{
		Orientation: opts.Orientation,
		Positions:   make(map[string]graph.Point, g.Len()),
		Levels:      make(map[string]int, g.Len()),
	}
	if g.Len() == 0 {
		return res
	}

	ids := g.NodeIDs()
	adj := adjacency(g, ids)

	res.Roots = roots(g, ids, opts.Fallback)
	if res.Roots == nil {
		// No start node, and either the flat fallback or no sources: every node is a level-0 root.
		res.Roots = ids
		res.Buckets = [][]string{append([]string(nil), ids...)}
		for _, id := range ids {
			res.Levels[id] = 0
		}
		place(res, opts)
		return res
	}

	maxLevel := bfs(res, adj, res.Roots)

	// Unreached nodes share one trailing level, in insertion order.
	var rest []string
	for _, id := range ids {
		if _, seen := res.Levels[id]; !seen {
			rest = append(rest, id)
		}
	}
	if len(rest) > 0 {
		level := maxLevel + 1
		for _, id := range rest {
			res.Levels[id] = level
		}
		res.Buckets = append(res.Buckets, rest)
	}

	place(res, opts)
	return res
}

// adjacency builds node ID → successor IDs once per pass, keeping the
// connection order of each node.
func adjacency(g *graph.Graph, ids []string) map[string][]string {
	adj := make(map[string][]string, len(ids))
	for _, id := range ids {
		out := g.Outgoing(id)
		if len(out) == 0 {
			continue
		}
		next := make([]string, len(out))
		for i, c := range out {
			next[i] = c.To
		}
		adj[id] = next
	}
	return adj
}

// roots picks the BFS seeds: the first start node in insertion order, or per
// the fallback policy when there is none. A nil result means "every node is a
// level-0 root".
func roots(g *graph.Graph, ids []string, fb Fallback) []string {
	for _, id := range ids {
		if n, _ := g.Node(id); n.Kind == graph.KindStart {
			return []string{id}
		}
	}
	if fb != FallbackSources {
		return nil
	}
	var sources []string
	for _, id := range ids {
		if len(g.Incoming(id)) == 0 {
			sources = append(sources, id)
		}
	}
	return sources
}

// bfs assigns levels by breadth-first depth from seeds and returns the
// deepest level reached.
func bfs(res *Result, adj map[string][]string, seeds []string) int {
	queue := make([]string, 0, len(res.Levels)+len(seeds))
	for _, id := range seeds {
		res.Levels[id] = 0
		queue = append(queue, id)
	}
	res.Buckets = append(res.Buckets, append([]string(nil), seeds...))

	maxLevel := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		level := res.Levels[id]
		for _, next := range adj[id] {
			if _, seen := res.Levels[next]; seen {
				continue
			}
			res.Levels[next] = level + 1
			if level+1 >= len(res.Buckets) {
				res.Buckets = append(res.Buckets, nil)
			}
			res.Buckets[level+1] = append(res.Buckets[level+1], next)
			if level+1 > maxLevel {
				maxLevel = level + 1
			}
			queue = append(queue, next)
		}
	}
	return maxLevel
}

// place converts levels into coordinates, centering each bucket on the
// centerline.
func place(res *Result, opts Options) {
	for level, bucket := range res.Buckets {
		primary := opts.BaseOffset + float64(level)*opts.LevelSpacing
		count := len(bucket)
		for i, id := range bucket {
			offset := (float64(i) - float64(count-1)/2) * opts.LaneSpacing
			cross := opts.Centerline + offset
			if opts.Orientation == Vertical {
				res.Positions[id] = graph.Point{X: cross, Y: primary}
			} else {
				res.Positions[id] = graph.Point{X: primary, Y: cross}
			}
		}
	}
}
