// Package loadgen drives concurrent virtual users against the benchmark trigger endpoint
// and records every completed iteration into a benchstats.Registry.
package loadgen

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/wfbench/pkg/constants"
)

type Config struct {
	BaseURL        string        `env:"BASE_URL" envDefault:"http://localhost:3000" validate:"required,http_url"`
	WorkflowType   string        `env:"WORKFLOW_TYPE" envDefault:"chain"`
	Scenario       string        `env:"SCENARIO" envDefault:"latency"`
	ScenarioFile   string        `env:"SCENARIO_FILE"`
	SummaryPath    string        `env:"SUMMARY_PATH" envDefault:"benchmarks/summary.json"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s" validate:"gte=0"`
	Pause          time.Duration `env:"ITERATION_PAUSE" envDefault:"100ms" validate:"gte=0"`
	Progress       time.Duration `env:"PROGRESS_INTERVAL" envDefault:"10s" validate:"gte=0"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
}

func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	err := constants.Validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("invalid %s=%v (%s)", fe.Field(), fe.Value(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// TriggerURL is the endpoint each iteration posts to. The workflow type is passed through
// as given; the server picks the chain for anything it does not recognise.
func (c Config) TriggerURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/benchmark?type=" + url.QueryEscape(c.WorkflowType)
}

func (c Config) HealthURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/health"
}
