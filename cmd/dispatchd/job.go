package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/backoff"
	"github.com/viralclips/dispatch/client"
	"github.com/viralclips/dispatch/id"
)

func newJobCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Submit and inspect jobs",
	}
	cmd.AddCommand(newJobSubmitCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "get <job_id>",
		Short: "Print a job record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := id.ParseJobID(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			// Keep stdout for the record itself.
			cfg.Logging.Output = "stderr"
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck // read-only

			j, err := st.GetJob(cmd.Context(), jobID)
			if errors.Is(err, dispatch.ErrJobNotFound) {
				return fmt.Errorf("job %s not found (unknown or expired)", jobID)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(j)
		},
	})
	return cmd
}

func newJobSubmitCmd() *cobra.Command {
	var (
		server   string
		jobType  string
		payload  string
		wait     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job to a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !json.Valid([]byte(payload)) {
				return errors.New("payload is not valid JSON")
			}
			c := client.New(server)
			res, err := c.CreateJob(cmd.Context(), jobType, json.RawMessage(payload))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if !wait {
				return enc.Encode(res)
			}
			var poll backoff.Strategy
			if interval > 0 {
				poll = backoff.NewConstant(interval)
			}
			j, err := c.Wait(cmd.Context(), res.JobID, poll)
			if err != nil {
				return err
			}
			return enc.Encode(j)
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8000", "dispatchd base URL")
	cmd.Flags().StringVar(&jobType, "type", "download_video", "job type")
	cmd.Flags().StringVar(&payload, "payload", "{}", "job payload (JSON)")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the job is done")
	cmd.Flags().DurationVar(&interval, "interval", 0, "fixed poll interval with --wait (default: exponential)")
	return cmd
}
