package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/wfbench/pkg/benchstats"
	"github.com/iota-uz/wfbench/pkg/loadgen"
	"github.com/iota-uz/wfbench/pkg/logging"
)

// bindConfigFlags loads the environment and lets flags that were set on the command line
// override it.
func bindConfigFlags(cmd *cobra.Command) func() (loadgen.Config, error) {
	f := cmd.Flags()
	baseURL := f.String("base-url", "", "server base URL (env BASE_URL)")
	workflowType := f.String("type", "", "workflow type: chain|fanout (env WORKFLOW_TYPE)")
	scenario := f.String("scenario", "", "scenario: latency|throughput (env SCENARIO)")
	scenarioFile := f.String("scenario-file", "", "YAML file overriding scenarios and thresholds (env SCENARIO_FILE)")
	summaryPath := f.String("summary", "", "summary JSON path (env SUMMARY_PATH)")
	progress := f.Duration("progress", 0, "live progress interval, 0 keeps the env default (env PROGRESS_INTERVAL)")
	logLevel := f.String("log-level", "", "silent|error|warn|info|debug (env LOG_LEVEL)")

	return func() (loadgen.Config, error) {
		c, err := loadgen.LoadConfig()
		if err != nil {
			return loadgen.Config{}, err
		}
		if f.Changed("base-url") {
			c.BaseURL = *baseURL
		}
		if f.Changed("type") {
			c.WorkflowType = *workflowType
		}
		if f.Changed("scenario") {
			c.Scenario = *scenario
		}
		if f.Changed("scenario-file") {
			c.ScenarioFile = *scenarioFile
		}
		if f.Changed("summary") {
			c.SummaryPath = *summaryPath
		}
		if f.Changed("progress") {
			c.Progress = *progress
		}
		if f.Changed("log-level") {
			c.LogLevel = *logLevel
		}
		return c, c.Validate()
	}
}

// resolvePlan picks the scenario and thresholds for c, applying the scenario file if any.
func resolvePlan(c loadgen.Config) (loadgen.Scenario, []benchstats.Threshold, error) {
	if c.ScenarioFile == "" {
		return loadgen.ScenarioByName(c.Scenario), benchstats.DefaultThresholds(), nil
	}
	file, err := loadgen.LoadScenarioFile(c.ScenarioFile)
	if err != nil {
		return loadgen.Scenario{}, nil, err
	}
	s, err := file.Scenario(c.Scenario)
	if err != nil {
		return loadgen.Scenario{}, nil, err
	}
	thresholds, err := file.ThresholdList()
	if err != nil {
		return loadgen.Scenario{}, nil, err
	}
	if thresholds == nil {
		thresholds = benchstats.DefaultThresholds()
	}
	return s, thresholds, nil
}

func newLogger(c loadgen.Config) *logrus.Logger {
	return logging.ConsoleLogger(logging.ParseLevel(c.LogLevel))
}
