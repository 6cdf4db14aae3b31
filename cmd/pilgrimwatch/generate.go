package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pilgrimwatch/internal/telemetry"
)

var (
	generateCount int
	generateOut   string
	generateSeed  int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic pilgrim dataset",
	Long:  "generate writes a CSV of bracelet readings that serve can replay.",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := runGenerate(generateOut, generateCount, generateSeed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", n, generateOut)
		return nil
	},
}

func runGenerate(path string, count int, seed int64) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("count must be positive, got %d", count)
	}
	rows := telemetry.NewGenerator(seed, time.Time{}).Generate(count)
	if err := telemetry.SaveCSV(path, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func init() {
	generateCmd.Flags().IntVar(&generateCount, "count", 300, "Number of records")
	generateCmd.Flags().StringVar(&generateOut, "out", "pilgrims_data.csv", "Output CSV path")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 1, "Generator seed")
}
