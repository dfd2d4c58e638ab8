package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/wfgraph/internal/panel"
	"github.com/rendis/wfgraph/internal/scheduler"
	"github.com/rendis/wfgraph/internal/store"
	"github.com/rendis/wfgraph/internal/streaming"
	"github.com/rendis/wfgraph/pkg/mcp"
)

const panelShutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var panelAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Serve the wfgraph MCP tools (layout, validate, diagram, save, load, list)
over stdio, backed by the configured graph store. When vacuum_schedule is set
the store is compacted on that cron schedule while the server runs.

With panel_addr (or --panel-addr) set, an HTTP graph viewer listens there as
well. Saves made through MCP or the viewer are pushed to open viewer pages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("panel-addr") {
				a.cfg.PanelAddr = panelAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&panelAddr, "panel-addr", "", "listen address for the HTTP graph viewer (overrides panel_addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sched := scheduler.New(a.logger)
	if a.cfg.VacuumSchedule != "" {
		if err := sched.Add("vacuum", a.cfg.VacuumSchedule, scheduler.VacuumTask(st)); err != nil {
			return err
		}
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			a.logger.Warn("scheduler stop failed", slog.String("error", err.Error()))
		}
	}()

	hub := streaming.NewMemoryHub()
	defer hub.Close()

	srv, err := mcp.NewGraphServer(mcp.ServerDeps{
		Store:   st,
		Hub:     hub,
		Dialect: a.cfg.ConditionDialect,
		Version: version,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	if a.cfg.PanelAddr != "" {
		stopPanel, err := a.startPanel(ctx, st, hub)
		if err != nil {
			return err
		}
		defer stopPanel()
	}
	a.logger.Info("wfgraph serving",
		slog.String("db", a.cfg.DBPath),
		slog.String("dialect", a.cfg.ConditionDialect),
		slog.String("vacuum_schedule", a.cfg.VacuumSchedule),
		slog.String("panel_addr", a.cfg.PanelAddr),
	)
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("wfgraph stopped")
	return nil
}

// startPanel binds PanelAddr and serves the graph viewer in the background.
// The returned func shuts it down.
func (a *app) startPanel(ctx context.Context, st store.Store, hub streaming.EventHub) (func(), error) {
	ps, err := panel.NewPanelServer(panel.PanelDeps{
		Store:   st,
		Hub:     hub,
		Dialect: a.cfg.ConditionDialect,
		Logger:  a.logger,
	})
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", a.cfg.PanelAddr)
	if err != nil {
		return nil, err
	}
	httpSrv := &http.Server{
		Handler:           ps.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("panel server failed", slog.String("error", err.Error()))
		}
	}()
	a.logger.Info("panel listening", slog.String("addr", ln.Addr().String()))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), panelShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("panel shutdown failed", slog.String("error", err.Error()))
		}
	}, nil
}
