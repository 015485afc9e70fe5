package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/wfbench/pkg/eventbus"
	"github.com/iota-uz/wfbench/pkg/logging"
)

type Options struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	JitterMax   time.Duration

	// StoreTimeout bounds each persistence call made on behalf of a run.
	StoreTimeout time.Duration

	Store    Store
	EventBus eventbus.EventBus
	Logger   *logrus.Entry
	Rand     *rand.Rand
}

func (o *Options) setDefaults() {
	if o.Workers == 0 {
		o.Workers = 64
	}
	if o.QueueSize == 0 {
		o.QueueSize = 4096
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff == 0 {
		o.Backoff = 50 * time.Millisecond
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 2 * time.Second
	}
	if o.JitterMax == 0 {
		o.JitterMax = 20 * time.Millisecond
	}
	if o.StoreTimeout == 0 {
		o.StoreTimeout = 5 * time.Second
	}
	if o.Store == nil {
		o.Store = NewMemoryStore(0)
	}
	if o.Logger == nil {
		o.Logger = logging.NopLogger()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
}

// Engine executes workflow definitions. Steps run on a fixed pool of workers fed by a
// buffered queue; each completed step is recorded in the Store before the workflow can
// schedule the next one.
type Engine struct {
	opts Options
	m    *metrics

	queue chan *stepTask
	stop  chan struct{}

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu     sync.RWMutex
	closed bool
	live   map[string]*Run

	workers sync.WaitGroup
	runs    sync.WaitGroup

	randMu sync.Mutex
}

type stepTask struct {
	ctx     context.Context
	runID   string
	name    string
	seq     int64
	fn      StepFunc
	future  *Future
	attempt int
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Workers < 0 {
		return nil, invalidConfig("workers must be non-negative, got %d", opts.Workers)
	}
	if opts.QueueSize < 0 {
		return nil, invalidConfig("queue size must be non-negative, got %d", opts.QueueSize)
	}
	if opts.MaxAttempts < 0 {
		return nil, invalidConfig("max attempts must be non-negative, got %d", opts.MaxAttempts)
	}
	opts.setDefaults()

	baseCtx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		opts:       opts,
		m:          getMetrics(),
		queue:      make(chan *stepTask, opts.QueueSize),
		stop:       make(chan struct{}),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		live:       map[string]*Run{},
	}
	e.workers.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go e.worker()
	}
	return e, nil
}

// Start submits def for execution and returns without waiting for it. The run is detached
// from ctx: a caller that goes away does not cancel the run.
func (e *Engine) Start(ctx context.Context, def Definition) (*Run, error) {
	id := "wrun_" + uuid.NewString()
	if def.Fn == nil || def.Name == "" {
		return nil, submissionError(id, ErrInvalidDef)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, submissionError(id, ErrEngineClosed)
	}
	e.runs.Add(1)
	e.mu.Unlock()

	now := time.Now()
	storeCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	if err := e.opts.Store.CreateRun(storeCtx, RunRecord{
		ID:        id,
		Workflow:  def.Name,
		Status:    StatusRunning,
		CreatedAt: now,
	}); err != nil {
		e.runs.Done()
		return nil, submissionError(id, err)
	}
	if err := e.opts.Store.AppendEvent(storeCtx, Event{RunID: id, Type: EventRunStarted, At: now}); err != nil {
		e.opts.Logger.WithError(err).WithField("run_id", id).Warn("workflow: failed to record run start")
	}

	run := newRun(id, def.Name, now)
	e.mu.Lock()
	e.live[id] = run
	e.mu.Unlock()
	e.m.activeRuns.Inc()

	go e.execute(run, def)
	return run, nil
}

// GetRun returns the handle of a live run, or a resolved handle rebuilt from the store.
func (e *Engine) GetRun(ctx context.Context, id string) (*Run, error) {
	e.mu.RLock()
	run, ok := e.live[id]
	e.mu.RUnlock()
	if ok {
		return run, nil
	}

	rec, err := e.opts.Store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	run = newRun(rec.ID, rec.Workflow, rec.CreatedAt)
	switch rec.Status {
	case StatusCompleted:
		var value any
		if len(rec.Result) > 0 {
			if err := json.Unmarshal(rec.Result, &value); err != nil {
				return nil, err
			}
		}
		run.resolve(value, nil, rec.FinishedAt)
	case StatusFailed:
		run.resolve(nil, executionError(rec.ID, errors.New(rec.Error)), rec.FinishedAt)
	default:
		// Started by another process; this handle cannot observe its resolution.
		return nil, ErrRunNotFound
	}
	return run, nil
}

// Events returns the persisted history of a run.
func (e *Engine) Events(ctx context.Context, id string) ([]Event, error) {
	return e.opts.Store.ListEvents(ctx, id)
}

// Close stops accepting submissions, waits for in-flight runs until ctx is done, then
// cancels whatever remains and stops the workers.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		e.runs.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
		e.cancelBase()
		<-drained
	}
	e.cancelBase()
	close(e.stop)
	e.workers.Wait()
	return err
}

func (e *Engine) execute(run *Run, def Definition) {
	defer e.runs.Done()

	runCtx, cancel := context.WithCancel(e.baseCtx)
	defer cancel()

	wc := &Context{ctx: runCtx, run: run, engine: e}
	value, err := callWorkflow(wc, def.Fn)
	if err == nil {
		err = e.persistCompletion(run, value)
	} else {
		e.persistFailure(run, err)
	}

	finishedAt := time.Now()
	if err != nil {
		err = executionError(run.id, err)
		value = nil
	}
	run.resolve(value, err, finishedAt)

	e.mu.Lock()
	delete(e.live, run.id)
	e.mu.Unlock()

	result := "success"
	if err != nil {
		result = "failure"
	}
	duration := finishedAt.Sub(run.startedAt)
	e.m.activeRuns.Dec()
	e.m.runsTotal.WithLabelValues(run.workflow, result).Inc()
	e.m.runDuration.WithLabelValues(run.workflow, result).Observe(duration.Seconds())

	if err != nil {
		e.opts.Logger.WithError(err).WithFields(logrus.Fields{
			"run_id":   run.id,
			"workflow": run.workflow,
		}).Warn("workflow: run failed")
	}
	e.publish(run, duration, err)
}

func (e *Engine) persistCompletion(run *Run, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		e.persistFailure(run, err)
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.StoreTimeout)
	defer cancel()
	now := time.Now()
	if err := e.opts.Store.AppendEvent(ctx, Event{RunID: run.id, Type: EventRunCompleted, Payload: payload, At: now}); err != nil {
		return err
	}
	return e.opts.Store.FinishRun(ctx, run.id, StatusCompleted, payload, "", now)
}

func (e *Engine) persistFailure(run *Run, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.StoreTimeout)
	defer cancel()
	now := time.Now()
	if err := e.opts.Store.AppendEvent(ctx, Event{RunID: run.id, Type: EventRunFailed, Error: cause.Error(), At: now}); err != nil {
		e.opts.Logger.WithError(err).WithField("run_id", run.id).Warn("workflow: failed to record run failure")
	}
	if err := e.opts.Store.FinishRun(ctx, run.id, StatusFailed, nil, cause.Error(), now); err != nil {
		e.opts.Logger.WithError(err).WithField("run_id", run.id).Warn("workflow: failed to finish run")
	}
}

func (e *Engine) publish(run *Run, duration time.Duration, err error) {
	if e.opts.EventBus == nil {
		return
	}
	if err != nil {
		e.opts.EventBus.Publish(&RunFailed{RunID: run.id, Workflow: run.workflow, Duration: duration, Err: err})
		return
	}
	e.opts.EventBus.Publish(&RunCompleted{RunID: run.id, Workflow: run.workflow, Duration: duration})
}

func (e *Engine) enqueue(ctx context.Context, task *stepTask) {
	select {
	case e.queue <- task:
		e.m.queueDepth.Inc()
	case <-ctx.Done():
		task.future.resolve(nil, ctx.Err())
	case <-e.stop:
		task.future.resolve(nil, ErrEngineClosed)
	}
}

func (e *Engine) worker() {
	defer e.workers.Done()
	for {
		select {
		case <-e.stop:
			return
		case task := <-e.queue:
			e.m.queueDepth.Dec()
			e.runStep(task)
		}
	}
}

func (e *Engine) runStep(task *stepTask) {
	if err := task.ctx.Err(); err != nil {
		task.future.resolve(nil, err)
		return
	}

	task.attempt++
	start := time.Now()
	value, err := callStep(task.ctx, task.fn)
	if err == nil {
		err = e.recordStep(task, value)
	}
	latency := time.Since(start)

	if err == nil {
		e.m.stepsTotal.WithLabelValues(task.name, "success").Inc()
		e.m.stepLatency.WithLabelValues(task.name, "success").Observe(latency.Seconds())
		task.future.resolve(value, nil)
		return
	}

	e.m.stepsTotal.WithLabelValues(task.name, "failure").Inc()
	e.m.stepLatency.WithLabelValues(task.name, "failure").Observe(latency.Seconds())

	if task.attempt >= e.opts.MaxAttempts || task.ctx.Err() != nil {
		e.appendEvent(Event{
			RunID:    task.runID,
			Sequence: task.seq,
			Type:     EventStepFailed,
			Step:     task.name,
			Attempt:  task.attempt,
			Error:    err.Error(),
			At:       time.Now(),
		})
		task.future.resolve(nil, &StepError{Step: task.name, Attempts: task.attempt, Err: err})
		return
	}

	e.appendEvent(Event{
		RunID:    task.runID,
		Sequence: task.seq,
		Type:     EventStepRetrying,
		Step:     task.name,
		Attempt:  task.attempt,
		Error:    err.Error(),
		At:       time.Now(),
	})
	delay := backoff(task.attempt, e.opts.Backoff, e.opts.MaxBackoff) + e.jitter()
	time.AfterFunc(delay, func() { e.enqueue(task.ctx, task) })
}

func (e *Engine) recordStep(task *stepTask, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(task.ctx, e.opts.StoreTimeout)
	defer cancel()
	return e.opts.Store.AppendEvent(ctx, Event{
		RunID:    task.runID,
		Sequence: task.seq,
		Type:     EventStepCompleted,
		Step:     task.name,
		Attempt:  task.attempt,
		Payload:  payload,
		At:       time.Now(),
	})
}

func (e *Engine) appendEvent(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.StoreTimeout)
	defer cancel()
	if err := e.opts.Store.AppendEvent(ctx, ev); err != nil {
		e.opts.Logger.WithError(err).WithFields(logrus.Fields{
			"run_id": ev.RunID,
			"step":   ev.Step,
			"type":   ev.Type,
		}).Debug("workflow: failed to append event")
	}
}

func (e *Engine) jitter() time.Duration {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return jitter(e.opts.Rand, e.opts.JitterMax)
}

func callWorkflow(wc *Context, fn Func) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, &PanicError{Value: r}
		}
	}()
	return fn(wc)
}

func callStep(ctx context.Context, fn StepFunc) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, &PanicError{Value: r}
		}
	}()
	return fn(ctx)
}
