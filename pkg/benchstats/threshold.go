package benchstats

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Operator string

const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
)

// Threshold is a pass/fail criterion on one statistic of one metric, e.g.
// http_req_duration p(95)<5000.
type Threshold struct {
	Metric string   `json:"metric" yaml:"metric"`
	Expr   string   `json:"expr" yaml:"expr"`
	Stat   string   `json:"-" yaml:"-"`
	Op     Operator `json:"-" yaml:"-"`
	Bound  float64  `json:"-" yaml:"-"`
}

var thresholdExpr = regexp.MustCompile(`^\s*(avg|min|max|med|count|rate|passes|fails|p\(\d+(?:\.\d+)?\))\s*(<=|>=|==|!=|<|>)\s*(-?\d+(?:\.\d+)?)\s*$`)

func ParseThreshold(metric, expr string) (Threshold, error) {
	m := thresholdExpr.FindStringSubmatch(expr)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold %q for %s", expr, metric)
	}
	bound, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold bound %q for %s: %w", m[3], metric, err)
	}
	return Threshold{
		Metric: metric,
		Expr:   strings.TrimSpace(expr),
		Stat:   m[1],
		Op:     Operator(m[2]),
		Bound:  bound,
	}, nil
}

// MustParseThreshold is ParseThreshold for expressions known at compile time.
func MustParseThreshold(metric, expr string) Threshold {
	t, err := ParseThreshold(metric, expr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseThresholds parses the expressions of each metric in order.
func ParseThresholds(order []string, exprs map[string][]string) ([]Threshold, error) {
	var out []Threshold
	for _, metric := range order {
		for _, e := range exprs[metric] {
			t, err := ParseThreshold(metric, e)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

func DefaultThresholds() []Threshold {
	return []Threshold{
		MustParseThreshold("http_req_duration", "p(95)<5000"),
		MustParseThreshold("http_req_duration", "p(99)<10000"),
		MustParseThreshold("workflow_duration", "p(95)<5000"),
		MustParseThreshold("workflow_duration", "p(99)<10000"),
		MustParseThreshold("workflow_success", "rate>0.95"),
		MustParseThreshold("http_req_failed", "rate<0.05"),
	}
}

func (t Threshold) String() string {
	return t.Metric + " " + t.Expr
}

func (o Operator) compare(actual, bound float64) bool {
	switch o {
	case OpLess:
		return actual < bound
	case OpLessEqual:
		return actual <= bound
	case OpGreater:
		return actual > bound
	case OpGreaterEqual:
		return actual >= bound
	case OpEqual:
		return actual == bound
	case OpNotEqual:
		return actual != bound
	default:
		return false
	}
}

type ThresholdResult struct {
	Metric string  `json:"metric"`
	Expr   string  `json:"expr"`
	Actual float64 `json:"actual"`
	OK     bool    `json:"ok"`
	Reason string  `json:"reason,omitempty"`
}

// Evaluate checks t against the reduced metrics. A metric that is missing or has no
// samples fails.
func (t Threshold) Evaluate(stats map[string]Stats) ThresholdResult {
	res := ThresholdResult{Metric: t.Metric, Expr: t.Expr}
	st, ok := stats[t.Metric]
	if !ok || st.Samples == 0 {
		res.Reason = "no samples"
		return res
	}
	actual, ok := st.Value(t.Stat)
	if !ok {
		res.Reason = fmt.Sprintf("%s is not defined for a %s metric", t.Stat, st.Type)
		return res
	}
	res.Actual = actual
	res.OK = t.Op.compare(actual, t.Bound)
	return res
}

// Verdict is the conjunction of every result. An empty set passes.
func Verdict(results []ThresholdResult) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}
