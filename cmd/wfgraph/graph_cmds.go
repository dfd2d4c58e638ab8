package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/wfgraph/internal/demo"
	"github.com/rendis/wfgraph/internal/diagram"
	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/validation"
	"github.com/rendis/wfgraph/internal/viewer"
	"github.com/rendis/wfgraph/pkg/schema"
)

// errInvalidGraph makes validate exit non-zero after printing issues.
var errInvalidGraph = errors.New("graph has structural issues")

// inputFlags selects the graph a command reads.
type inputFlags struct {
	demo bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.demo, "demo", false, "use the built-in document dispatch process instead of FILE")
}

// snapshot reads FILE ("-" for stdin) or the demo fixture.
func (f *inputFlags) snapshot(cmd *cobra.Command, args []string) (*schema.Snapshot, []byte, error) {
	if f.demo {
		snap, err := demo.Dispatch()
		return snap, nil, err
	}
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("a snapshot FILE (or - for stdin) is required unless --demo is set")
	}
	return readSnapshot(cmd, args[0])
}

// viewerFor lays out snap in the requested orientation, or the snapshot's
// own, or the configured default.
func (a *app) viewerFor(snap *schema.Snapshot, orientation string) (*viewer.Viewer, error) {
	if orientation == "" {
		orientation = snap.Orientation
	}
	o, err := a.orientation(orientation)
	if err != nil {
		return nil, err
	}
	return viewer.FromSnapshot(snap, viewer.WithOrientation(o), viewer.WithLogger(a.logger))
}

func newLayoutCmd(a *app) *cobra.Command {
	var (
		in          inputFlags
		orientation string
		apply       bool
	)
	cmd := &cobra.Command{
		Use:   "layout [FILE]",
		Short: "Compute node positions and connection paths",
		Long: `Lay out a graph snapshot and print the scene as JSON: node centers and
boxes, connection curves, and the canvas bounds.

With --apply the input snapshot is printed back with positions filled in.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, _, err := in.snapshot(cmd, args)
			if err != nil {
				return err
			}
			v, err := a.viewerFor(snap, orientation)
			if err != nil {
				return err
			}
			if apply {
				out := v.Graph().Snapshot()
				out.ID, out.Name, out.Metadata = snap.ID, snap.Name, snap.Metadata
				out.Orientation = string(v.Orientation())
				return writeSnapshot(cmd, out, "json")
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v.Scene())
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&orientation, "orientation", "o", "", "horizontal or vertical (default: snapshot, then config)")
	cmd.Flags().BoolVar(&apply, "apply", false, "print the snapshot with computed positions instead of the scene")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		in      inputFlags
		asJSON  bool
		dialect string
	)
	cmd := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a graph snapshot for structural issues",
		Long: `Validate a graph snapshot. JSON input is first checked against the snapshot
JSON Schema; then the graph rules run: exactly one start, at least one end,
no disconnected nodes, named tasks and gateways, and gateway conditions that
compile in the configured dialect.

Exits with status 1 when issues are found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, raw, err := in.snapshot(cmd, args)
			if err != nil {
				return err
			}
			sv, err := validation.NewSnapshotValidator()
			if err != nil {
				return err
			}
			if raw != nil && len(args) > 0 && schema.FormatFromPath(args[0]) == schema.FormatJSON && args[0] != "-" {
				err = sv.ValidateJSON(raw)
			} else {
				err = sv.ValidateSnapshot(snap)
			}
			if err != nil {
				return err
			}

			if dialect != "" {
				a.cfg.ConditionDialect = dialect
			}
			checker, err := a.conditionEngine()
			if err != nil {
				return err
			}
			g, err := graph.FromSnapshot(snap)
			if err != nil {
				return err
			}
			issues := validation.Validate(g, validation.WithConditionChecker(checker))

			out := cmd.OutOrStdout()
			if asJSON {
				if issues == nil {
					issues = schema.Issues{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{"valid": issues.Valid(), "issues": issues}); err != nil {
					return err
				}
			} else if issues.Valid() {
				fmt.Fprintln(out, "ok")
			} else {
				for _, is := range issues {
					line := fmt.Sprintf("%s: %s", is.Code, is.Message)
					if len(is.NodeIDs) > 0 {
						line += " [" + strings.Join(is.NodeIDs, ", ") + "]"
					}
					fmt.Fprintln(out, line)
				}
			}
			if !issues.Valid() {
				return errInvalidGraph
			}
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print issues as JSON")
	cmd.Flags().StringVar(&dialect, "dialect", "", "condition dialect: cel, expr or jq (default: config)")
	return cmd
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		in          inputFlags
		orientation string
		format      string
		outPath     string
	)
	cmd := &cobra.Command{
		Use:   "render [FILE]",
		Short: "Render a graph as ASCII, Mermaid, SVG or PNG",
		Long: `Render a graph snapshot.

Formats:
  ascii    text diagram (uses ~/.wfgraph/bin/mermaid-ascii when installed)
  mermaid  Mermaid flowchart syntax
  svg      SVG at the computed layout coordinates
  png      graphviz PNG image
  dot-svg  graphviz SVG image`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, _, err := in.snapshot(cmd, args)
			if err != nil {
				return err
			}
			v, err := a.viewerFor(snap, orientation)
			if err != nil {
				return err
			}
			model := diagram.Build(v.Title(), v.Graph(), v.Layout(), v.Paths())

			var data []byte
			switch format {
			case "ascii":
				data = []byte(diagram.RenderASCIIAuto(cmd.Context(), model, filepath.Join(wfgraphDir(), "bin")))
			case "mermaid":
				data = []byte(diagram.RenderMermaid(model))
			case "svg":
				data = []byte(diagram.RenderSVG(model))
			case "png":
				data, err = diagram.RenderImage(cmd.Context(), model, diagram.ImagePNG)
			case "dot-svg":
				data, err = diagram.RenderImage(cmd.Context(), model, diagram.ImageSVG)
			default:
				return fmt.Errorf("unknown format %q (want ascii, mermaid, svg, png or dot-svg)", format)
			}
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", outPath)
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&orientation, "orientation", "o", "", "horizontal or vertical (default: snapshot, then config)")
	cmd.Flags().StringVarP(&format, "format", "f", "ascii", "ascii, mermaid, svg, png or dot-svg")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default: stdout)")
	return cmd
}
