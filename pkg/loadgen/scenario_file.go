package loadgen

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iota-uz/wfbench/pkg/benchstats"
)

// ScenarioFile overrides the built-in scenarios and thresholds:
//
//	scenarios:
//	  latency:
//	    executor: ramping-vus
//	    startVUs: 1
//	    stages:
//	      - {duration: 10s, target: 3}
//	    gracefulRampDown: 5s
//	thresholds:
//	  http_req_duration: ["p(95)<2000"]
type ScenarioFile struct {
	Scenarios  map[string]scenarioSpec `yaml:"scenarios"`
	Thresholds map[string][]string     `yaml:"thresholds"`
}

type stageSpec struct {
	Duration string `yaml:"duration"`
	Target   int    `yaml:"target"`
}

type scenarioSpec struct {
	Executor         string      `yaml:"executor"`
	StartVUs         int         `yaml:"startVUs"`
	Stages           []stageSpec `yaml:"stages"`
	GracefulRampDown string      `yaml:"gracefulRampDown"`
	VUs              int         `yaml:"vus"`
	Duration         string      `yaml:"duration"`
	GracefulStop     string      `yaml:"gracefulStop"`
}

func LoadScenarioFile(path string) (*ScenarioFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f ScenarioFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// Scenario resolves name against the file, falling back to the built-in scenario of the
// same name when the file does not define it.
func (f *ScenarioFile) Scenario(name string) (Scenario, error) {
	spec, ok := f.Scenarios[name]
	if !ok {
		return ScenarioByName(name), nil
	}
	s := Scenario{
		Name:         name,
		Executor:     ExecutorType(spec.Executor),
		StartVUs:     spec.StartVUs,
		VUs:          spec.VUs,
		GracefulStop: DefaultGracefulStop,
	}
	var err error
	if s.Duration, err = parseDuration(spec.Duration); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s duration: %w", name, err)
	}
	if s.GracefulRampDown, err = parseDuration(spec.GracefulRampDown); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s gracefulRampDown: %w", name, err)
	}
	if spec.GracefulStop != "" {
		if s.GracefulStop, err = parseDuration(spec.GracefulStop); err != nil {
			return Scenario{}, fmt.Errorf("scenario %s gracefulStop: %w", name, err)
		}
	}
	for i, st := range spec.Stages {
		d, err := parseDuration(st.Duration)
		if err != nil {
			return Scenario{}, fmt.Errorf("scenario %s stage %d: %w", name, i, err)
		}
		s.Stages = append(s.Stages, Stage{Duration: d, Target: st.Target})
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// ThresholdList parses the file's thresholds. It returns nil when the file defines none.
func (f *ScenarioFile) ThresholdList() ([]benchstats.Threshold, error) {
	if len(f.Thresholds) == 0 {
		return nil, nil
	}
	metrics := make([]string, 0, len(f.Thresholds))
	for m := range f.Thresholds {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	return benchstats.ParseThresholds(metrics, f.Thresholds)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
