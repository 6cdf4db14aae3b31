package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pilgrimwatch/internal/conn"
	"pilgrimwatch/internal/dashboard"
)

var (
	replayInput string
	replaySpeed float64
	replayPlain bool
	replayJSON  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a captured event stream",
	Long:  "replay feeds a capture written by watch --record through the dashboard without a backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(rootConfigPath, rootSchemaPath, rootServerURL)
		if err != nil {
			return err
		}
		mode := selectMode(replayPlain, replayJSON, isTerminal(os.Stdout))
		log, closeLog, err := newLogger(cfg, mode, os.Stderr)
		if err != nil {
			return err
		}
		defer closeLog()

		rp, closeInput, err := conn.ReplayFile(replayInput, replaySpeed, log)
		if err != nil {
			return err
		}
		defer closeInput()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		v := view{
			src:      rp,
			mode:     mode,
			out:      cmd.OutOrStdout(),
			overview: dashboard.Overview{Source: replayInput, Mode: "replay"},
			opts:     sessionOptions(cfg),
			log:      log,
		}
		return runReplay(ctx, rp, v)
	},
}

// runReplay plays rp through v. The replayer stops once the view is done.
func runReplay(ctx context.Context, rp *conn.Replayer, v view) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rp.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return v.run(gctx)
	})
	return g.Wait()
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to a JSONL capture")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier, 0 for no delay")
	replayCmd.Flags().BoolVar(&replayPlain, "plain", false, "Print colored lines instead of the full-screen dashboard")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print one JSON object per update")
	replayCmd.MarkFlagRequired("input")
}
