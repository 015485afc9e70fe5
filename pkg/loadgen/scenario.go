package loadgen

import (
	"fmt"
	"math"
	"time"
)

type ExecutorType string

const (
	RampingVUs  ExecutorType = "ramping-vus"
	ConstantVUs ExecutorType = "constant-vus"
)

const (
	ScenarioLatency    = "latency"
	ScenarioThroughput = "throughput"

	DefaultGracefulStop = 30 * time.Second
)

type Stage struct {
	Duration time.Duration
	Target   int
}

// Scenario describes how many virtual users run over time.
type Scenario struct {
	Name     string
	Executor ExecutorType

	// ramping-vus
	StartVUs         int
	Stages           []Stage
	GracefulRampDown time.Duration

	// constant-vus
	VUs      int
	Duration time.Duration

	GracefulStop time.Duration
}

func LatencyScenario() Scenario {
	return Scenario{
		Name:     ScenarioLatency,
		Executor: RampingVUs,
		StartVUs: 1,
		Stages: []Stage{
			{Duration: 30 * time.Second, Target: 5},
			{Duration: time.Minute, Target: 10},
			{Duration: 2 * time.Minute, Target: 10},
			{Duration: 30 * time.Second, Target: 0},
		},
		GracefulRampDown: 10 * time.Second,
		GracefulStop:     DefaultGracefulStop,
	}
}

func ThroughputScenario() Scenario {
	return Scenario{
		Name:         ScenarioThroughput,
		Executor:     ConstantVUs,
		VUs:          20,
		Duration:     2 * time.Minute,
		GracefulStop: DefaultGracefulStop,
	}
}

// ScenarioByName returns the built-in scenario for name. Unknown names get the latency
// scenario.
func ScenarioByName(name string) Scenario {
	switch name {
	case ScenarioThroughput:
		return ThroughputScenario()
	default:
		return LatencyScenario()
	}
}

func (s Scenario) Validate() error {
	switch s.Executor {
	case RampingVUs:
		if s.StartVUs < 0 {
			return fmt.Errorf("scenario %s: startVUs must be non-negative", s.Name)
		}
		if len(s.Stages) == 0 {
			return fmt.Errorf("scenario %s: ramping-vus needs at least one stage", s.Name)
		}
		for i, st := range s.Stages {
			if st.Duration < 0 || st.Target < 0 {
				return fmt.Errorf("scenario %s: stage %d must have non-negative duration and target", s.Name, i)
			}
		}
	case ConstantVUs:
		if s.VUs <= 0 {
			return fmt.Errorf("scenario %s: constant-vus needs vus > 0", s.Name)
		}
		if s.Duration <= 0 {
			return fmt.Errorf("scenario %s: constant-vus needs a positive duration", s.Name)
		}
	default:
		return fmt.Errorf("scenario %s: unknown executor %q", s.Name, s.Executor)
	}
	if s.GracefulStop < 0 || s.GracefulRampDown < 0 {
		return fmt.Errorf("scenario %s: graceful periods must be non-negative", s.Name)
	}
	return nil
}

// TotalDuration is the scheduled length of the scenario, excluding graceful periods.
func (s Scenario) TotalDuration() time.Duration {
	if s.Executor == ConstantVUs {
		return s.Duration
	}
	var d time.Duration
	for _, st := range s.Stages {
		d += st.Duration
	}
	return d
}

// TargetAt is the number of VUs that should be active elapsed into the scenario. Within a
// ramping stage the target moves linearly from the previous stage's target.
func (s Scenario) TargetAt(elapsed time.Duration) int {
	if s.Executor == ConstantVUs {
		if elapsed >= s.Duration {
			return 0
		}
		return s.VUs
	}
	prev := s.StartVUs
	for _, st := range s.Stages {
		if elapsed < st.Duration {
			frac := float64(elapsed) / float64(st.Duration)
			return int(math.Round(float64(prev) + float64(st.Target-prev)*frac))
		}
		elapsed -= st.Duration
		prev = st.Target
	}
	return prev
}

// MaxVUs is the largest number of VUs the scenario ever asks for.
func (s Scenario) MaxVUs() int {
	if s.Executor == ConstantVUs {
		return s.VUs
	}
	peak := s.StartVUs
	for _, st := range s.Stages {
		if st.Target > peak {
			peak = st.Target
		}
	}
	return peak
}
