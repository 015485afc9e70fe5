package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iota-uz/wfbench/pkg/benchstats"
	"github.com/iota-uz/wfbench/pkg/loadgen"
)

func newSmokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke [--base-url <url>] [--type chain|fanout]",
		Short: "Check /health and run a single benchmark iteration",
	}
	loadConfig := bindConfigFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(c)
		client := loadgen.NewHTTPClient(c.RequestTimeout, 1)

		ctx, cancel := context.WithTimeout(cmd.Context(), c.RequestTimeout+5*time.Second)
		defer cancel()

		if err := loadgen.SmokeCheck(ctx, client, c.HealthURL()); err != nil {
			return err
		}

		reg := benchstats.NewRegistry()
		outcome := loadgen.NewProbe(client, c.TriggerURL(), reg, log).Iterate(ctx, 0)
		if outcome != loadgen.OutcomeSuccess {
			return fmt.Errorf("benchmark smoke failed: %s", outcome)
		}
		st := benchstats.Summarize(mustStream(reg, loadgen.MetricWorkflowDuration), 0)
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s iteration took %.2fms\n", c.WorkflowType, st.Values["max"])
		return nil
	}
	return cmd
}

func mustStream(reg *benchstats.Registry, name string) benchstats.Snapshot {
	s, ok := reg.Get(name)
	if !ok {
		return benchstats.Snapshot{Name: name, Type: benchstats.Trend}
	}
	return s.Snapshot()
}
