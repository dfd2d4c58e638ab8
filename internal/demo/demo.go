// Package demo holds the document-dispatch approval process used by the
// viewer demo, the diagram generator and tests.
package demo

import (
	_ "embed"

	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/pkg/schema"
)

//go:embed dispatch.yaml
var dispatchYAML []byte

// DispatchYAML returns the raw fixture document.
func DispatchYAML() []byte {
	return append([]byte(nil), dispatchYAML...)
}

// Dispatch decodes a fresh copy of the fixture snapshot.
func Dispatch() (*schema.Snapshot, error) {
	return schema.DecodeSnapshot(dispatchYAML, schema.FormatYAML)
}

// DispatchGraph builds the fixture as a graph.
func DispatchGraph(opts ...graph.Option) (*graph.Graph, error) {
	snap, err := Dispatch()
	if err != nil {
		return nil, err
	}
	return graph.FromSnapshot(snap, opts...)
}
