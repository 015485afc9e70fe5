package benchstats

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
)

// Stats is the reduction of one stream. Values uses the statistic names thresholds refer
// to: count, avg, min, med, max, p(90), p(95), p(99) for trends; count and rate for
// counters; count, rate, passes and fails for rates. count is the sample count except on
// counters, where it is the sum.
type Stats struct {
	Type    MetricType         `json:"type"`
	Samples int                `json:"samples"`
	Values  map[string]float64 `json:"values"`

	sorted []float64
}

var percentileStat = regexp.MustCompile(`^p\((\d+(?:\.\d+)?)\)$`)

// Summarize reduces a snapshot. elapsed is the run's wall time and only affects the
// per-second rate of counters.
func Summarize(snap Snapshot, elapsed time.Duration) Stats {
	st := Stats{Type: snap.Type, Samples: len(snap.Samples), Values: map[string]float64{}}
	data := stats.Float64Data(snap.Samples)

	switch snap.Type {
	case Trend:
		if st.Samples == 0 {
			return st
		}
		sorted := append([]float64(nil), snap.Samples...)
		sort.Float64s(sorted)
		st.sorted = sorted

		st.Values["count"] = float64(st.Samples)
		st.Values["avg"], _ = stats.Mean(data)
		st.Values["min"], _ = stats.Min(data)
		st.Values["max"], _ = stats.Max(data)
		st.Values["med"], _ = stats.Median(data)
		st.Values["p(90)"] = Percentile(sorted, 90)
		st.Values["p(95)"] = Percentile(sorted, 95)
		st.Values["p(99)"] = Percentile(sorted, 99)
	case Counter:
		sum := sumOf(data)
		st.Values["count"] = sum
		if elapsed > 0 {
			st.Values["rate"] = sum / elapsed.Seconds()
		} else {
			st.Values["rate"] = 0
		}
	case Rate:
		// Rate samples are 1 for a pass and 0 for a fail.
		passes := sumOf(data)
		st.Values["count"] = float64(st.Samples)
		st.Values["passes"] = passes
		st.Values["fails"] = float64(st.Samples) - passes
		if st.Samples > 0 {
			st.Values["rate"] = passes / float64(st.Samples)
		}
	}
	return st
}

func sumOf(data stats.Float64Data) float64 {
	if data.Len() == 0 {
		return 0
	}
	sum, _ := stats.Sum(data)
	return sum
}

// Value looks up a statistic. Trend percentiles not precomputed by Summarize are computed
// on demand.
func (s Stats) Value(stat string) (float64, bool) {
	if s.Samples == 0 {
		return 0, false
	}
	if v, ok := s.Values[stat]; ok {
		return v, true
	}
	if s.Type != Trend {
		return 0, false
	}
	m := percentileStat.FindStringSubmatch(stat)
	if m == nil {
		return 0, false
	}
	p, err := strconv.ParseFloat(m[1], 64)
	if err != nil || p < 0 || p > 100 {
		return 0, false
	}
	return Percentile(s.sorted, p), true
}

// Percentile returns the p-th percentile (0..100) of ascending samples, interpolating
// linearly between the closest ranks. stats.Percentile averages neighbouring ranks instead,
// which gives different tail values on small samples.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := p / 100 * float64(n-1)
	lo := math.Floor(rank)
	hi := math.Ceil(rank)
	if lo == hi {
		return sorted[int(lo)]
	}
	return sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*(rank-lo)
}
