package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"pilgrimwatch/internal/api"
	"pilgrimwatch/internal/dashboard"
	"pilgrimwatch/internal/logging"
	"pilgrimwatch/internal/telemetry"
)

var controlCmd = &cobra.Command{
	Use:   "control ACTION [VALUE]",
	Short: "Send one playback control request",
	Long:  "control sends START, PAUSE, RESET, NEXT_STEP or SPEED VALUE to the backend and prints the acknowledgement.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(rootConfigPath, rootSchemaPath, rootServerURL)
		if err != nil {
			return err
		}
		req, err := parseControl(args)
		if err != nil {
			return err
		}
		log, closeLog, err := logging.Open(cfg.Logging.File, os.Stderr, cfg.Logging.Format, cfg.Logging.Level)
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
		return runControl(ctx, client, req, cmd.OutOrStdout())
	},
}

func parseControl(args []string) (telemetry.ControlRequest, error) {
	action, ok := telemetry.ParseControlAction(args[0])
	if !ok {
		return telemetry.ControlRequest{}, fmt.Errorf("unknown action %q", args[0])
	}
	var value *int
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return telemetry.ControlRequest{}, fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		value = &n
	}
	return dashboard.NewControlRequest(action, value)
}

func runControl(ctx context.Context, ctl dashboard.Controller, req telemetry.ControlRequest, out io.Writer) error {
	ack, err := ctl.Control(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Action, err)
	}
	var resp telemetry.ControlResponse
	if err := json.Unmarshal(ack, &resp); err == nil && resp.Message != "" {
		fmt.Fprintf(out, "%s: %s\n", resp.Status, resp.Message)
		return nil
	}
	fmt.Fprintln(out, string(ack))
	return nil
}
