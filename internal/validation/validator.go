// Package validation reports structural problems in a workflow graph.
// Validation is a pure read of the graph: it never mutates it and its
// output is data, not a failure.
package validation

import (
	"fmt"

	"github.com/rendis/wfgraph/internal/expressions"
	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/pkg/schema"
)

// ConditionChecker compiles a gateway condition. expressions.Engine
// satisfies it.
type ConditionChecker interface {
	Name() string
	Check(expression string) error
}

var _ ConditionChecker = (expressions.Engine)(nil)

type config struct {
	checker ConditionChecker
}

// Option configures a validation pass.
type Option func(*config)

// WithConditionChecker enables the gateway condition rule.
func WithConditionChecker(c ConditionChecker) Option {
	return func(cfg *config) { cfg.checker = c }
}

// Validate runs every rule in order and returns the issues found. An empty
// result means the graph is structurally valid.
func Validate(g *graph.Graph, opts ...Option) schema.Issues {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	nodes := g.Nodes()
	var issues schema.Issues
	checkStart(nodes, &issues)
	checkEnd(nodes, &issues)
	checkConnected(g, nodes, &issues)
	checkNames(nodes, &issues)
	if cfg.checker != nil {
		checkConditions(nodes, cfg.checker, &issues)
	}
	return issues
}

// checkStart requires exactly one start node.
func checkStart(nodes []graph.Node, issues *schema.Issues) {
	starts := idsOfKind(nodes, graph.KindStart)
	switch {
	case len(starts) == 0:
		issues.Add(schema.IssueMissingStart, "missing start")
	case len(starts) > 1:
		issues.Add(schema.IssueMultipleStarts,
			fmt.Sprintf("multiple starts (%d)", len(starts)), starts...)
	}
}

// checkEnd requires at least one end node.
func checkEnd(nodes []graph.Node, issues *schema.Issues) {
	if len(idsOfKind(nodes, graph.KindEnd)) == 0 {
		issues.Add(schema.IssueMissingEnd, "missing end")
	}
}

// checkConnected flags nodes that touch no connection. A single-node graph
// is exempt.
func checkConnected(g *graph.Graph, nodes []graph.Node, issues *schema.Issues) {
	if len(nodes) <= 1 {
		return
	}
	var lonely []string
	for _, n := range nodes {
		if g.Degree(n.ID) == 0 {
			lonely = append(lonely, n.ID)
		}
	}
	if len(lonely) == 0 {
		return
	}
	noun := "node"
	if len(lonely) > 1 {
		noun = "nodes"
	}
	issues.Add(schema.IssueDisconnected,
		fmt.Sprintf("%d disconnected %s", len(lonely), noun), lonely...)
}

// checkNames flags task and gateway nodes whose name is blank or still the
// palette placeholder.
func checkNames(nodes []graph.Node, issues *schema.Issues) {
	for _, n := range nodes {
		if n.Kind != graph.KindTask && n.Kind != graph.KindGateway {
			continue
		}
		if n.HasDefaultName() {
			issues.Add(schema.IssueUnnamedNode,
				fmt.Sprintf("%s %s has no name", n.Kind, n.ID), n.ID)
		}
	}
}

// checkConditions compiles every non-empty gateway condition.
func checkConditions(nodes []graph.Node, c ConditionChecker, issues *schema.Issues) {
	for _, n := range nodes {
		if n.Kind != graph.KindGateway || n.Condition == "" {
			continue
		}
		if err := c.Check(n.Condition); err != nil {
			issues.Add(schema.IssueInvalidCondition,
				fmt.Sprintf("gateway %q: condition does not compile as %s: %v", n.Name, c.Name(), err), n.ID)
		}
	}
}

func idsOfKind(nodes []graph.Node, k graph.Kind) []string {
	var ids []string
	for _, n := range nodes {
		if n.Kind == k {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
