package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newThresholdsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Print the scenario and thresholds a run would use",
	}
	loadConfig := bindConfigFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		scenario, thresholds, err := resolvePlan(c)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "scenario: %s (%s, %s, max %d VUs)\n", scenario.Name, scenario.Executor, scenario.TotalDuration(), scenario.MaxVUs())
		for _, t := range thresholds {
			fmt.Fprintf(out, "  %s\n", t)
		}
		return nil
	}
	return cmd
}
