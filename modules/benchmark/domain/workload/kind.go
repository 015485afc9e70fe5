package workload

import "fmt"

// Kind selects one of the benchmark workloads. The zero value is KindChain.
type Kind int

const (
	KindChain Kind = iota
	KindFanOut
)

const (
	ChainWorkflowName  = "benchmarkChain"
	FanOutWorkflowName = "benchmarkFanOut"
)

// ParseKind maps a request's type parameter to a Kind. Anything that is not exactly
// "fanout", including the empty string and padded or differently cased variants, selects
// the chain.
func ParseKind(s string) Kind {
	switch s {
	case "fanout":
		return KindFanOut
	default:
		return KindChain
	}
}

func (k Kind) String() string {
	switch k {
	case KindFanOut:
		return "fanout"
	default:
		return "chain"
	}
}

func (k Kind) WorkflowName() string {
	switch k {
	case KindFanOut:
		return FanOutWorkflowName
	default:
		return ChainWorkflowName
	}
}

// Definition returns the workflow for k at its default size.
func (k Kind) Definition() Definition {
	return DefaultSizes.Definition(k)
}

// Sizes holds the parameters of both workloads.
type Sizes struct {
	ChainSteps  int
	FanOutWidth int
}

var DefaultSizes = Sizes{ChainSteps: ChainSteps, FanOutWidth: FanOutWidth}

func (s Sizes) Definition(k Kind) Definition {
	switch k {
	case KindFanOut:
		return FanOut(s.FanOutWidth)
	default:
		return Chain(s.ChainSteps)
	}
}

// Expected is the result a healthy run of k produces.
func (s Sizes) Expected(k Kind) int {
	switch k {
	case KindFanOut:
		return s.FanOutWidth
	default:
		return s.ChainSteps
	}
}

// ValidateResult checks that value is the integral count a run of k with sizes s
// resolves to.
func (s Sizes) ValidateResult(k Kind, value any) error {
	n, ok := asInt(value)
	if !ok {
		return fmt.Errorf("%s result must be an integer, got %T (%v)", k.WorkflowName(), value, value)
	}
	if want := s.Expected(k); n != want {
		return fmt.Errorf("%s result is %d, expected %d", k.WorkflowName(), n, want)
	}
	return nil
}

func ValidateResult(k Kind, value any) error {
	return DefaultSizes.ValidateResult(k, value)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
