package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/wfbench/pkg/benchstats"
	"github.com/iota-uz/wfbench/pkg/loadgen"
)

func newRunCmd() *cobra.Command {
	var skipHealth bool

	cmd := &cobra.Command{
		Use:   "run [--type chain|fanout] [--scenario latency|throughput]",
		Short: "Run a load scenario, write the JSON summary and print the report",
	}
	loadConfig := bindConfigFlags(cmd)
	cmd.Flags().BoolVar(&skipHealth, "skip-health", false, "skip the pre-flight GET /health")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		scenario, thresholds, err := resolvePlan(c)
		if err != nil {
			return err
		}
		log := newLogger(c)

		runner := &loadgen.Runner{
			Config:          c,
			Scenario:        scenario,
			Thresholds:      thresholds,
			Logger:          log,
			SkipHealthCheck: skipHealth,
		}
		summary, runErr := runner.Run(cmd.Context())
		if summary == nil {
			return runErr
		}

		if err := benchstats.WriteText(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
		if c.SummaryPath != "" {
			if err := benchstats.WriteJSON(c.SummaryPath, summary); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			log.WithField("path", c.SummaryPath).Info("summary written")
		}
		if summary.Interrupted {
			return withCode(exitInterrupted, fmt.Errorf("benchmark interrupted: %w", runErr))
		}
		if !summary.Passed {
			return withCode(exitThresholds, errThresholdsFailed)
		}
		return nil
	}
	return cmd
}
