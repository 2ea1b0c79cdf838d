package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"watershed/pkg/pump"
)

func newCreateJobCmd(a *app) *cobra.Command {
	var (
		query        string
		stream       string
		showProgress bool
		replay       bool
		overwrite    bool
	)

	cmd := &cobra.Command{
		Use:   "create-job",
		Short: "Enqueue a job for Pump to work on",
		Long: "Submit a query whose rows Pump emits onto a stream. With --show-progress the\n" +
			"job is followed until it completes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trace := cmd.ErrOrStderr()
			_, _ = fmt.Fprintln(trace, "Creating job...")
			_, _ = fmt.Fprintf(trace, "Query: %s\n", query)
			_, _ = fmt.Fprintf(trace, "Stream: %s\n", stream)
			_, _ = fmt.Fprintf(trace, "Polling?: %t\n", showProgress)

			r := newJobRenderer(cmd.OutOrStdout(), getOutputFormat(cmd), showProgress, showProgress)
			opts := pump.GetOptions{Poll: showProgress}
			if showProgress {
				opts.OnSnapshot = r.render
			}

			job, err := a.client.CreateJob(cmd.Context(), pump.JobRequest{
				QueryIn:       query,
				StreamOut:     stream,
				ReplayFlag:    replay,
				OverwriteFlag: overwrite,
			}, opts)
			if finishErr := r.finish(); err == nil {
				err = finishErr
			}
			if err != nil {
				return err
			}
			if !showProgress {
				return r.render(job)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "SQL query whose rows are emitted (required)")
	cmd.Flags().StringVarP(&stream, "stream", "s", "", "Stream the rows are written to (required)")
	cmd.Flags().BoolVarP(&showProgress, "show-progress", "p", false, "Follow the job until it completes")
	cmd.Flags().BoolVarP(&replay, "replay", "r", false, "Set the replay flag on emitted rows")
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "o", false, "Set the overwrite flag on emitted rows")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("stream")

	return cmd
}

func newPreviewJobCmd(a *app) *cobra.Command {
	var (
		query      string
		numRecords int
	)

	cmd := &cobra.Command{
		Use:   "preview-job",
		Short: "Preview the rows a job query would emit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trace := cmd.ErrOrStderr()
			_, _ = fmt.Fprintln(trace, "Previewing job...")
			_, _ = fmt.Fprintf(trace, "Query: %s\n", query)
			_, _ = fmt.Fprintf(trace, "Num records: %d\n", numRecords)

			preview, err := a.client.PreviewJob(cmd.Context(), query, numRecords)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), preview)
			}
			return pump.WritePreview(cmd.OutOrStdout(), preview)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "SQL query to preview (required)")
	cmd.Flags().IntVarP(&numRecords, "num-records", "n", 0, "Number of rows to return (required)")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("num-records")

	return cmd
}

func newGetJobCmd(a *app) *cobra.Command {
	var (
		jobID        string
		showProgress bool
		summaryOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "get-job",
		Short: "Show a job",
		Long: "Fetch a job once, or with --show-progress keep fetching it until it reaches\n" +
			"COMPLETED_SUCCESS or COMPLETED_ERROR.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trace := cmd.ErrOrStderr()
			_, _ = fmt.Fprintln(trace, "Showing job...")
			_, _ = fmt.Fprintf(trace, "Job: %s\n", jobID)

			r := newJobRenderer(cmd.OutOrStdout(), getOutputFormat(cmd), summaryOnly, showProgress)
			_, err := a.client.GetJob(cmd.Context(), jobID, pump.GetOptions{
				Poll:       showProgress,
				OnSnapshot: r.render,
			})
			if finishErr := r.finish(); err == nil {
				err = finishErr
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&jobID, "job-id", "i", "", "Job id (required)")
	cmd.Flags().BoolVarP(&showProgress, "show-progress", "p", false, "Follow the job until it completes")
	cmd.Flags().BoolVarP(&summaryOnly, "summary-only", "t", false, "Print a one-line summary instead of the full job")
	_ = cmd.MarkFlagRequired("job-id")

	return cmd
}

func newGetAllJobsCmd(a *app) *cobra.Command {
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "get-all-jobs",
		Short: "List every job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Showing all jobs...")

			jobs, err := a.client.ListJobs(cmd.Context())
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				raws := make([]any, 0, len(jobs))
				for i := range jobs {
					raws = append(raws, jobs[i].Raw())
				}
				return PrintJSON(cmd.OutOrStdout(), raws)
			}

			r := newJobRenderer(cmd.OutOrStdout(), "text", summaryOnly, false)
			for i := range jobs {
				if err := r.render(&jobs[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&summaryOnly, "summary-only", "t", false, "Print one summary line per job")

	return cmd
}
