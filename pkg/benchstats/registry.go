// Package benchstats collects benchmark samples into named streams and reduces them into
// statistics, threshold verdicts and reports.
package benchstats

import (
	"fmt"
	"sort"
	"sync"
)

type MetricType string

const (
	Trend   MetricType = "trend"
	Counter MetricType = "counter"
	Rate    MetricType = "rate"
)

// Stream is an append-only sequence of samples for one metric. Rate samples are 1 for a
// pass and 0 for a fail.
type Stream struct {
	name    string
	typ     MetricType
	mu      sync.Mutex
	samples []float64
}

func (s *Stream) Name() string {
	return s.name
}

func (s *Stream) Type() MetricType {
	return s.typ
}

func (s *Stream) Add(v float64) {
	s.mu.Lock()
	s.samples = append(s.samples, v)
	s.mu.Unlock()
}

// AddBool records a pass or a fail on a rate stream.
func (s *Stream) AddBool(ok bool) {
	if ok {
		s.Add(1)
		return
	}
	s.Add(0)
}

func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

// Snapshot copies the samples recorded so far.
func (s *Stream) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Name:    s.name,
		Type:    s.typ,
		Samples: append([]float64(nil), s.samples...),
	}
}

type Snapshot struct {
	Name    string
	Type    MetricType
	Samples []float64
}

// Registry holds the streams of one benchmark run.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*Stream
}

func NewRegistry() *Registry {
	return &Registry{streams: map[string]*Stream{}}
}

func (r *Registry) Trend(name string) *Stream {
	return r.stream(name, Trend)
}

func (r *Registry) Counter(name string) *Stream {
	return r.stream(name, Counter)
}

func (r *Registry) Rate(name string) *Stream {
	return r.stream(name, Rate)
}

func (r *Registry) stream(name string, typ MetricType) *Stream {
	r.mu.RLock()
	s, ok := r.streams[name]
	r.mu.RUnlock()
	if !ok {
		r.mu.Lock()
		if s, ok = r.streams[name]; !ok {
			s = &Stream{name: name, typ: typ}
			r.streams[name] = s
		}
		r.mu.Unlock()
	}
	if s.typ != typ {
		panic(fmt.Sprintf("benchstats: metric %q is a %s, not a %s", name, s.typ, typ))
	}
	return s
}

func (r *Registry) Get(name string) (*Stream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[name]
	return s, ok
}

// Snapshot copies every stream, ordered by name.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	streams := make([]*Stream, 0, len(r.streams))
	for _, s := range r.streams {
		streams = append(streams, s)
	}
	r.mu.RUnlock()

	sort.Slice(streams, func(i, j int) bool { return streams[i].name < streams[j].name })
	out := make([]Snapshot, 0, len(streams))
	for _, s := range streams {
		out = append(out, s.Snapshot())
	}
	return out
}
