package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pilgrimwatch/internal/api"
	"pilgrimwatch/internal/conn"
	"pilgrimwatch/internal/dashboard"
)

var (
	watchPlain  bool
	watchJSON   bool
	watchRecord string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live simulation",
	Long:  "watch connects to the simulation backend and renders the dashboard until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(rootConfigPath, rootSchemaPath, rootServerURL)
		if err != nil {
			return err
		}
		mode := selectMode(watchPlain, watchJSON, isTerminal(os.Stdout))
		log, closeLog, err := newLogger(cfg, mode, os.Stderr)
		if err != nil {
			return err
		}
		defer closeLog()

		client, err := api.New(cfg.Server.URL, api.WithLogger(log))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		mgr := conn.NewManager(managerOptions(cfg), log)
		var src conn.Source = mgr

		g, gctx := errgroup.WithContext(ctx)
		if watchRecord != "" {
			f, err := os.Create(watchRecord)
			if err != nil {
				return fmt.Errorf("create capture: %w", err)
			}
			defer f.Close()
			rec := conn.NewRecorder(mgr, f, log)
			src = rec
			g.Go(func() error {
				rec.Run(gctx)
				return nil
			})
		}
		g.Go(func() error { return mgr.Run(gctx) })
		g.Go(func() error {
			defer cancel()
			v := view{
				src:     src,
				backend: client,
				ctl:     client,
				mode:    mode,
				out:     cmd.OutOrStdout(),
				overview: dashboard.Overview{
					Source:    cfg.Server.URL,
					Namespace: cfg.Server.Namespace,
					Mode:      mode.String(),
				},
				opts: sessionOptions(cfg),
				log:  log,
			}
			return v.run(gctx)
		})
		return g.Wait()
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Print colored lines instead of the full-screen dashboard")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print one JSON object per update")
	watchCmd.Flags().StringVar(&watchRecord, "record", "", "Capture the event stream to a JSONL file")
}
