package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rendis/wfgraph/internal/expressions"
	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/interact"
	"github.com/rendis/wfgraph/internal/store"
	"github.com/rendis/wfgraph/internal/validation"
)

func newReplayCmd(a *app) *cobra.Command {
	var (
		from   string
		name   string
		format string
		save   bool
		prefix string
	)
	cmd := &cobra.Command{
		Use:   "replay SCRIPT",
		Short: "Replay a recorded builder session and print the resulting graph",
		Long: `Replay a builder event script (YAML or JSON) against an empty graph, or the
graph in --graph, and print the resulting snapshot. A summary with the
validator diagnostics goes to stderr.

Script steps: drop, down, move, up, tool, zoom, update, delete, duplicate,
cancel. Exactly one per step. With --id-prefix new nodes and connections get
sequential IDs (review-1, review-2, ...) that later steps can refer to.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, f, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			script, err := interact.ParseScript(data, f)
			if err != nil {
				return err
			}

			var gopts []graph.Option
			if prefix != "" {
				gopts = append(gopts, graph.WithIDGenerator(sequentialIDs(prefix)))
			}
			g := graph.New(gopts...)
			var id string
			if from != "" {
				snap, _, err := readSnapshot(cmd, from)
				if err != nil {
					return err
				}
				if g, err = graph.FromSnapshot(snap, gopts...); err != nil {
					return err
				}
				id = snap.ID
				if name == "" {
					name = snap.Name
				}
			}

			checker, err := a.conditionEngine()
			if err != nil {
				return err
			}
			c := interact.NewController(g,
				interact.WithLogger(a.logger),
				interact.WithSessionID(script.Session),
				interact.WithView(a.cfg.builderView()),
				interact.WithValidation(validation.WithConditionChecker(checker)),
			)
			res, err := c.Replay(cmd.Context(), script)
			if err != nil {
				return err
			}

			snap := c.Graph().Snapshot()
			snap.ID, snap.Name = id, name
			fmt.Fprintf(cmd.ErrOrStderr(), "session %s: %d steps, %d effects, %d issues\n",
				c.SessionID(), res.Steps, res.Effects, len(res.Issues))
			for _, is := range res.Issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", is.Code, is.Message)
			}

			if save {
				s, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Close()
				rec := &store.GraphRecord{Snapshot: snap}
				if err := s.SaveGraph(cmd.Context(), rec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved %s v%d\n", rec.ID, rec.Version)
			}
			return writeSnapshot(cmd, snap, format)
		},
	}
	cmd.Flags().StringVar(&from, "graph", "", "snapshot to start from (default: empty graph)")
	cmd.Flags().StringVar(&name, "name", "", "name of the resulting graph")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().BoolVar(&save, "save", false, "store the resulting graph")
	cmd.Flags().StringVar(&prefix, "id-prefix", "", "generate IDs as PREFIX-1, PREFIX-2, ... instead of UUIDs")
	return cmd
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newQueryCmd(_ *app) *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "query EXPR [FILE]",
		Short: "Run a jq expression over a graph snapshot",
		Long: `Run a jq expression over a snapshot and print each result as a JSON line.

Examples:
  wfgraph query '.nodes[] | select(.kind == "gateway") | .condition' process.yaml
  wfgraph query --demo '[.nodes[] | select(.status == "pending") | .id]'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, _, err := in.snapshot(cmd, args[1:])
			if err != nil {
				return err
			}
			raw, err := json.Marshal(snap)
			if err != nil {
				return err
			}
			var doc any
			if err := json.Unmarshal(raw, &doc); err != nil {
				return err
			}

			results, err := expressions.NewGoJQEngine().EvaluateAll(cmd.Context(), args[0], doc)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range results {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	in.register(cmd)
	return cmd
}
