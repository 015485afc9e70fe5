package loadgen

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/iota-uz/wfbench/pkg/benchstats"
)

const (
	MetricHTTPReqs         = "http_reqs"
	MetricHTTPReqDuration  = "http_req_duration"
	MetricHTTPReqFailed    = "http_req_failed"
	MetricWorkflowDuration = "workflow_duration"
	MetricWorkflowSuccess  = "workflow_success"
	MetricWorkflowErrors   = "workflow_errors"
	MetricIterations       = "iterations"

	maxBodyBytes = 1 << 20
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeTransportFailure means no response was received.
	OutcomeTransportFailure
	// OutcomeValidationFailure means a response arrived but was not a 200 carrying a result.
	OutcomeValidationFailure
	// OutcomeInterrupted means the iteration was cut short by shutdown and recorded nothing.
	OutcomeInterrupted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeValidationFailure:
		return "validation_failure"
	default:
		return "interrupted"
	}
}

// Probe performs one timed trigger request per iteration.
type Probe struct {
	client *http.Client
	url    string
	logger *logrus.Logger

	reqs        *benchstats.Stream
	reqDuration *benchstats.Stream
	reqFailed   *benchstats.Stream
	wfDuration  *benchstats.Stream
	wfSuccess   *benchstats.Stream
	wfErrors    *benchstats.Stream
	iterations  *benchstats.Stream
}

func NewProbe(client *http.Client, url string, reg *benchstats.Registry, logger *logrus.Logger) *Probe {
	return &Probe{
		client:      client,
		url:         url,
		logger:      logger,
		reqs:        reg.Counter(MetricHTTPReqs),
		reqDuration: reg.Trend(MetricHTTPReqDuration),
		reqFailed:   reg.Rate(MetricHTTPReqFailed),
		wfDuration:  reg.Trend(MetricWorkflowDuration),
		wfSuccess:   reg.Rate(MetricWorkflowSuccess),
		wfErrors:    reg.Counter(MetricWorkflowErrors),
		iterations:  reg.Counter(MetricIterations),
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Iterate sends one request and records its samples. If ctx ends before the response has
// been read in full, nothing is recorded.
func (p *Probe) Iterate(ctx context.Context, vu int) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, nil)
	if err != nil {
		p.logger.WithError(err).Error("build request")
		return OutcomeInterrupted
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeInterrupted
		}
		p.reqs.Add(1)
		p.reqFailed.AddBool(true)
		p.fail(vu, 0, err.Error())
		return OutcomeTransportFailure
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	elapsed := time.Since(start)
	if ctx.Err() != nil {
		return OutcomeInterrupted
	}
	if readErr != nil {
		p.reqs.Add(1)
		p.reqFailed.AddBool(true)
		p.fail(vu, resp.StatusCode, readErr.Error())
		return OutcomeTransportFailure
	}

	p.reqs.Add(1)
	p.reqDuration.Add(millis(elapsed))
	p.reqFailed.AddBool(resp.StatusCode >= 400)

	if resp.StatusCode != http.StatusOK || !hasResult(body) {
		p.fail(vu, resp.StatusCode, string(body))
		return OutcomeValidationFailure
	}

	p.wfSuccess.AddBool(true)
	p.wfDuration.Add(millis(elapsed))
	p.iterations.Add(1)
	return OutcomeSuccess
}

func (p *Probe) fail(vu, status int, body string) {
	p.wfErrors.Add(1)
	p.wfSuccess.AddBool(false)
	p.iterations.Add(1)
	p.logger.WithField("vu", vu).Errorf("Request failed: %d - %s", status, body)
}

// hasResult reports whether body is a JSON document with a result member. A null result
// still counts as present.
func hasResult(body []byte) bool {
	return gjson.ValidBytes(body) && gjson.GetBytes(body, "result").Exists()
}
