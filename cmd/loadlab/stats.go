package main

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the job ledger",
	Long:  `Show job counts by kind and by status, and the mean job duration.`,
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	db, err := openLedger(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.GetJobStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if isJSONOutput() {
		return writeJSON(out, stats)
	}

	table := tablewriter.NewWriter(out)
	table.Header("Group", "Value", "Jobs")
	for _, k := range sortedKeys(stats.CountByKind) {
		if err := table.Append("kind", k, stats.CountByKind[k]); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(stats.CountByStatus) {
		if err := table.Append("status", k, stats.CountByStatus[k]); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal jobs: %d\n", stats.Total)
	fmt.Fprintf(out, "Mean duration: %.1fms\n", stats.AvgDurationMS)
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
