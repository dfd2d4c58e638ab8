// gen-diagrams renders the document dispatch demo process in every diagram
// format for the README.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/wfgraph/internal/demo"
	"github.com/rendis/wfgraph/internal/diagram"
	"github.com/rendis/wfgraph/internal/layout"
)

func main() {
	if err := run(context.Background(), filepath.Join("docs", "assets")); err != nil {
		fmt.Fprintf(os.Stderr, "gen-diagrams: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, outDir string) error {
	snap, err := demo.Dispatch()
	if err != nil {
		return err
	}
	g, err := demo.DispatchGraph()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	home, _ := os.UserHomeDir()
	binDir := filepath.Join(home, ".wfgraph", "bin")

	for _, o := range []layout.Orientation{layout.Horizontal, layout.Vertical} {
		model, err := diagram.FromGraph(snap.Name, g, o)
		if err != nil {
			return err
		}

		ascii := diagram.RenderASCIIAuto(ctx, model, binDir)
		if err := write(outDir, o, "ascii.txt", []byte(ascii)); err != nil {
			return err
		}
		fmt.Printf("=== ASCII (%s) ===\n%s\n", o, ascii)

		mermaid := diagram.RenderMermaid(model)
		if err := write(outDir, o, "mermaid.md", []byte("```mermaid\n"+mermaid+"```\n")); err != nil {
			return err
		}
		if err := write(outDir, o, "layout.svg", []byte(diagram.RenderSVG(model))); err != nil {
			return err
		}

		// A graphviz failure skips the PNG only.
		png, err := diagram.RenderImage(ctx, model, diagram.ImagePNG)
		if err != nil {
			fmt.Fprintf(os.Stderr, "image error (%s): %v\n", o, err)
			continue
		}
		if err := write(outDir, o, "dot.png", png); err != nil {
			return err
		}
	}
	return nil
}

func write(dir string, o layout.Orientation, suffix string, data []byte) error {
	path := filepath.Join(dir, fmt.Sprintf("dispatch-%s-%s", o, suffix))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Written: %s (%d bytes)\n", path, len(data))
	return nil
}
