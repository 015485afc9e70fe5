package benchmark

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/wfbench/modules/benchmark/domain/workload"
	"github.com/iota-uz/wfbench/modules/benchmark/handlers"
	"github.com/iota-uz/wfbench/modules/benchmark/presentation/controllers"
	"github.com/iota-uz/wfbench/modules/benchmark/services"
	"github.com/iota-uz/wfbench/pkg/application"
	"github.com/iota-uz/wfbench/pkg/configuration"
	"github.com/iota-uz/wfbench/pkg/workflow"
)

func NewModule(engine *workflow.Engine, opts configuration.BenchmarkOptions, logger *logrus.Logger) application.Module {
	return &Module{engine: engine, opts: opts, logger: logger}
}

type Module struct {
	engine *workflow.Engine
	opts   configuration.BenchmarkOptions
	logger *logrus.Logger
}

func (m *Module) Register(app application.Application) error {
	if app.EventPublisher() == nil {
		return errors.New("benchmark module needs an event publisher")
	}
	if m.logger == nil {
		m.logger = logrus.StandardLogger()
	}
	app.RegisterServices(
		services.NewBenchmarkService(
			services.NewEngineBackend(m.engine),
			app.EventPublisher(),
			services.BenchmarkServiceOptions{
				Sizes: workload.Sizes{
					ChainSteps:  m.opts.ChainSteps,
					FanOutWidth: m.opts.FanOutWidth,
				},
				AwaitTimeout: m.opts.AwaitTimeout,
				Logger:       m.logger,
			},
		),
	)

	handlers.RegisterTriggerEventHandlers(app, m.logger)

	app.RegisterControllers(
		controllers.NewBenchmarkController(app),
	)

	return nil
}

func (m *Module) Name() string {
	return "benchmark"
}
