package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/store"
	"github.com/rendis/wfgraph/internal/validation"
)

func newSaveCmd(a *app) *cobra.Command {
	var (
		in           inputFlags
		allowInvalid bool
	)
	cmd := &cobra.Command{
		Use:   "save [FILE]",
		Short: "Store a graph snapshot as a new revision",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, _, err := in.snapshot(cmd, args)
			if err != nil {
				return err
			}
			g, err := graph.FromSnapshot(snap)
			if err != nil {
				return err
			}
			checker, err := a.conditionEngine()
			if err != nil {
				return err
			}
			if issues := validation.Validate(g, validation.WithConditionChecker(checker)); !issues.Valid() {
				for _, is := range issues {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", is.Code, is.Message)
				}
				if !allowInvalid {
					return fmt.Errorf("%w (use --allow-invalid to store anyway)", errInvalidGraph)
				}
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rec := &store.GraphRecord{Snapshot: snap}
			if err := s.SaveGraph(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%d\n", rec.ID, rec.Version)
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&allowInvalid, "allow-invalid", false, "store even when the validator reports issues")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var (
		version int
		format  string
	)
	cmd := &cobra.Command{
		Use:   "load ID",
		Short: "Print a stored graph snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if version > 0 {
				rev, err := s.GetRevision(cmd.Context(), args[0], version)
				if err != nil {
					return err
				}
				return writeSnapshot(cmd, rev.Snapshot, format)
			}
			rec, err := s.GetGraph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeSnapshot(cmd, rec.Snapshot, format)
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "revision to load (default: latest)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		filter store.GraphFilter
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored graphs, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.ListGraphs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				if recs == nil {
					recs = []*store.GraphRecord{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tVERSION\tNODES\tCONNECTIONS\tUPDATED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
					r.ID, r.Name, r.Version, r.Nodes, r.Connections, r.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.NamePrefix, "prefix", "", "only graphs whose name starts with this prefix")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of graphs (0: all)")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "number of graphs to skip (with --limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.AddCommand(newHistoryCmd(a), newDeleteCmd(a))
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "List the stored revisions of a graph, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			revs, err := s.ListRevisions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSAVED")
			for _, r := range revs {
				fmt.Fprintf(tw, "%d\t%s\n", r.Version, r.SavedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored graph and all its revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.DeleteGraph(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
