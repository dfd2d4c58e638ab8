package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rendis/wfgraph/internal/expressions"
	"github.com/rendis/wfgraph/internal/layout"
	"github.com/rendis/wfgraph/internal/logging"
	"github.com/rendis/wfgraph/internal/store"
	"github.com/rendis/wfgraph/pkg/schema"
)

// app is the state shared by every command: loaded config and logger.
type app struct {
	cfgFile  string
	logLevel string
	dbPath   string

	cfg    Config
	logger *slog.Logger
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:           "wfgraph",
		Short:         "Lay out, validate, render and store workflow process graphs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ~/.wfgraph/settings.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "",
		"graph store path (overrides config db_path)")

	root.AddCommand(
		newLayoutCmd(a),
		newValidateCmd(a),
		newRenderCmd(a),
		newReplayCmd(a),
		newQueryCmd(a),
		newSaveCmd(a),
		newLoadCmd(a),
		newListCmd(a),
		newServeCmd(a),
		newInstallCmd(a),
		newVersionCmd(),
	)
	return root
}

// configOptional marks commands that run before a settings file exists.
const configOptional = "config-optional"

func (a *app) init(cmd *cobra.Command) error {
	path, mustExist := a.cfgFile, a.cfgFile != ""
	if path == "" {
		path = settingsPath()
	}
	if _, ok := cmd.Annotations[configOptional]; ok {
		mustExist = false
	}
	cfg, err := readConfig(path, mustExist)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.stderr = cmd.ErrOrStderr()
	a.logger = logging.New(a.stderr, level)
	return nil
}

// orientation resolves the --orientation flag against the config default.
func (a *app) orientation(flag string) (layout.Orientation, error) {
	if flag == "" {
		flag = a.cfg.Orientation
	}
	return layout.ParseOrientation(flag)
}

func (a *app) conditionEngine() (expressions.Engine, error) {
	return expressions.New(a.cfg.ConditionDialect)
}

// openStore opens and migrates the configured graph store.
func (a *app) openStore(ctx context.Context) (*store.LibSQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(trimFileScheme(a.cfg.DBPath)), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s, err := store.NewLibSQLStore(a.cfg.dsn(), store.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func trimFileScheme(p string) string {
	if len(p) > 5 && p[:5] == "file:" {
		return p[5:]
	}
	return p
}

// readSnapshot decodes a snapshot file, or stdin when path is "-". The
// format follows the file extension; stdin is read as YAML, which also
// accepts JSON.
func readSnapshot(cmd *cobra.Command, path string) (*schema.Snapshot, []byte, error) {
	data, format, err := readInput(cmd, path)
	if err != nil {
		return nil, nil, err
	}
	snap, err := schema.DecodeSnapshot(data, format)
	if err != nil {
		return nil, nil, err
	}
	return snap, data, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, schema.Format, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		return data, schema.FormatYAML, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, schema.FormatFromPath(path), nil
}

// writeSnapshot encodes snap to the command's stdout.
func writeSnapshot(cmd *cobra.Command, snap *schema.Snapshot, format string) error {
	f := schema.FormatJSON
	if format == "yaml" || format == "yml" {
		f = schema.FormatYAML
	}
	data, err := schema.EncodeSnapshot(snap, f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(out, "\n")
	}
	return err
}
