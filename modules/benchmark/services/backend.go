package services

import (
	"context"

	"github.com/iota-uz/wfbench/pkg/workflow"
)

// RunHandle is a submitted run that can be awaited.
type RunHandle interface {
	ID() string
	Await(ctx context.Context) (any, error)
}

// Backend submits workflow runs.
type Backend interface {
	Start(ctx context.Context, def workflow.Definition) (RunHandle, error)
}

type engineBackend struct {
	engine *workflow.Engine
}

func NewEngineBackend(engine *workflow.Engine) Backend {
	return &engineBackend{engine: engine}
}

func (b *engineBackend) Start(ctx context.Context, def workflow.Definition) (RunHandle, error) {
	run, err := b.engine.Start(ctx, def)
	if err != nil {
		return nil, err
	}
	return run, nil
}
