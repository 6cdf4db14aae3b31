package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pilgrimwatch/internal/logging"
	"pilgrimwatch/internal/simserver"
	"pilgrimwatch/internal/telemetry"
)

var (
	serveData    string
	serveAddr    string
	serveRecords int
	serveSeed    int64
	serveTick    time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development simulation backend",
	Long:  "serve replays a pilgrim dataset over Socket.IO and the REST API so the dashboard can run without the production backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(rootConfigPath, rootSchemaPath, rootServerURL)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		sc := cfg.SimServer
		if flags.Changed("data") {
			sc.Data = serveData
		}
		if flags.Changed("addr") {
			sc.Addr = serveAddr
		}
		if flags.Changed("records") {
			sc.Records = serveRecords
		}
		if flags.Changed("seed") {
			sc.Seed = serveSeed
		}

		log, closeLog, err := logging.Open(cfg.Logging.File, os.Stderr, cfg.Logging.Format, cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer closeLog()

		data, err := loadDataset(sc.Data, sc.Records, sc.Seed)
		if err != nil {
			return err
		}
		log.Info("dataset loaded", "records", len(data), "source", datasetSource(sc.Data))

		srv := simserver.New(data, simserver.Options{
			Namespace:    cfg.Server.Namespace,
			SocketPath:   cfg.Server.SocketPath,
			PingInterval: sc.PingInterval,
			Interval:     serveTick,
		}, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx, sc.Addr)
	},
}

// loadDataset reads path, or generates n readings when path is empty.
func loadDataset(path string, n int, seed int64) ([]telemetry.Reading, error) {
	if path != "" {
		return telemetry.LoadCSV(path)
	}
	return telemetry.NewGenerator(seed, time.Time{}).Generate(n), nil
}

func datasetSource(path string) string {
	if path == "" {
		return "generated"
	}
	return path
}

func init() {
	serveCmd.Flags().StringVar(&serveData, "data", "", "Dataset CSV (generated when empty)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":5000", "Listen address")
	serveCmd.Flags().IntVar(&serveRecords, "records", 300, "Records to generate when no dataset is given")
	serveCmd.Flags().Int64Var(&serveSeed, "seed", 1, "Generator seed")
	serveCmd.Flags().DurationVar(&serveTick, "tick", time.Second, "Delay between records at 1x speed")
}
