package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/seantiz/loadlab/internal/model"
)

var (
	jobsLimit  int
	jobsOffset int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the job ledger",
	Long:  `List recorded jobs, newest first, or show one job by ID.`,
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a single job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsShowCmd)

	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "maximum number of jobs to list")
	jobsCmd.Flags().IntVar(&jobsOffset, "offset", 0, "number of jobs to skip")
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	db, err := openLedger(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, total, err := db.ListJobs(cmd.Context(), jobsLimit, jobsOffset)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	out := cmd.OutOrStdout()
	if isJSONOutput() {
		if jobs == nil {
			jobs = []*model.Job{}
		}
		return writeJSON(out, map[string]any{"jobs": jobs, "total": total})
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs recorded")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header("ID", "Kind", "Status", "Duration", "Items", "Created")
	for _, j := range jobs {
		if err := table.Append(
			j.ID,
			j.Kind,
			j.Status,
			fmt.Sprintf("%dms", j.DurationMS),
			itemsCell(j.Items),
			j.CreatedAt.Format("2006-01-02 15:04:05"),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nShowing %d of %d jobs\n", len(jobs), total)
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	db, err := openLedger(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	j, err := db.GetJob(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get job %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if isJSONOutput() {
		return writeJSON(out, j)
	}

	fmt.Fprintf(out, "ID:        %s\n", j.ID)
	fmt.Fprintf(out, "Kind:      %s\n", j.Kind)
	fmt.Fprintf(out, "Status:    %s\n", j.Status)
	fmt.Fprintf(out, "Duration:  %dms\n", j.DurationMS)
	fmt.Fprintf(out, "Items:     %s\n", itemsCell(j.Items))
	if j.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", j.Error)
	}
	fmt.Fprintf(out, "Created:   %s\n", j.CreatedAt.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(out, "Finished:  %s\n", j.FinishedAt.Format("2006-01-02 15:04:05.000"))
	return nil
}

func itemsCell(items *int) string {
	if items == nil {
		return "-"
	}
	return strconv.Itoa(*items)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
