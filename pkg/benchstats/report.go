package benchstats

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

const indent = " "

// WriteText renders the human-readable report. Sections for metrics that were never
// recorded are left out.
func WriteText(w io.Writer, s *Summary) error {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(indent + "Benchmark Results\n")
	b.WriteString(indent + "=================\n\n")
	if s.Workflow != "" || s.Scenario != "" {
		fmt.Fprintf(&b, "%sworkflow: %s  scenario: %s  duration: %.1fs\n\n", indent, s.Workflow, s.Scenario, s.Duration)
	}

	writeTrend(&b, "HTTP Request Duration", s.Metrics["http_req_duration"])
	writeTrend(&b, "Workflow Duration", s.Metrics["workflow_duration"])

	if reqs, ok := s.Metrics["http_reqs"]; ok && reqs.Samples > 0 {
		b.WriteString(indent + "Throughput:\n")
		fmt.Fprintf(&b, "%s  total requests: %s\n", indent, humanize.Comma(int64(reqs.Values["count"])))
		fmt.Fprintf(&b, "%s  rate: %s req/s\n\n", indent, humanize.CommafWithDigits(reqs.Values["rate"], 2))
	}

	if success, ok := s.Metrics["workflow_success"]; ok && success.Samples > 0 {
		fmt.Fprintf(&b, "%sSuccess Rate: %.2f%%\n\n", indent, success.Values["rate"]*100)
	}

	if len(s.Thresholds) > 0 {
		b.WriteString(indent + "Thresholds:\n")
		for _, t := range s.Thresholds {
			mark := "✓"
			if !t.OK {
				mark = "✗"
			}
			line := fmt.Sprintf("%s  %s %s %s", indent, mark, t.Metric, t.Expr)
			if t.Reason != "" {
				line += " (" + t.Reason + ")"
			} else {
				line += fmt.Sprintf(" (actual %.2f)", t.Actual)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	verdict := "PASSED"
	if !s.Passed {
		verdict = "FAILED"
	}
	if s.Interrupted {
		verdict += " (interrupted)"
	}
	fmt.Fprintf(&b, "%sVerdict: %s\n", indent, verdict)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeTrend(b *strings.Builder, title string, m MetricSummary) {
	if m.Samples == 0 {
		return
	}
	fmt.Fprintf(b, "%s%s:\n", indent, title)
	for _, stat := range []string{"avg", "min", "max", "p(95)", "p(99)"} {
		label := strings.NewReplacer("(", "", ")", "").Replace(stat)
		fmt.Fprintf(b, "%s  %s: %.2fms\n", indent, label, m.Values[stat])
	}
	b.WriteString("\n")
}
