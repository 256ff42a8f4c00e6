// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metric records how long operations spend queued and running.
// A Metric is a named collection of spans; when it is done it is handed
// to the registered Saver, if any.
package metric // import "safeapp.io/metric"

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"safeapp.io/errors"
	"safeapp.io/log"
)

// Metric is a named collection of spans.
type Metric struct {
	Name errors.Op

	mu    sync.Mutex // protects all fields below
	spans []*Span
}

// Spans returns the Spans recorded under this Metric.
// The returned slice must not be modified.
func (m *Metric) Spans() []*Span {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spans
}

// A Span measures time from the beginning of an event until its completion.
type Span struct {
	Name       errors.Op
	StartTime  time.Time
	EndTime    time.Time
	Parent     *Metric // parent of this span.
	ParentSpan *Span   // may be nil.
	Annotation string  // optional.
}

// Duration returns the length of the span, or zero if it has not ended.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Saver stores finished metrics. Register is called once, with the
// queue from which the Saver must continuously receive.
type Saver interface {
	Register(queue chan *Metric)
}

// saveQueueLength is the size of the queue of metrics to be saved.
// Once it is full, further metrics are dropped rather than delaying
// the instrumented code.
const saveQueueLength = 1024

// saveQueue buffers metrics to be saved.
var saveQueue = make(chan *Metric, saveQueueLength)

// New creates a new named metric.
func New(name errors.Op) *Metric {
	return &Metric{
		Name: name,
	}
}

// NewSpan creates a new metric with a newly started span of the same name.
func NewSpan(name errors.Op) (*Metric, *Span) {
	m := New(name)
	return m, m.StartSpan(name)
}

var registered int32 // read/written atomically

// RegisterSaver registers the Saver for finished metrics.
// Only one Saver may be registered; a second call panics.
func RegisterSaver(saver Saver) {
	if !atomic.CompareAndSwapInt32(&registered, 0, 1) {
		panic("metric: saver already registered")
	}
	saver.Register(saveQueue)
}

// Enabled reports whether a Saver is registered.
func Enabled() bool {
	return atomic.LoadInt32(&registered) != 0
}

// StartSpan starts a new span of the metric at the current time.
func (m *Metric) StartSpan(name errors.Op) *Span {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Span{
		Name:      name,
		StartTime: time.Now(),
		Parent:    m,
	}
	m.spans = append(m.spans, s)
	return s
}

// Done ends any span still open and queues the metric for saving.
// The metric must not be used afterwards.
func (m *Metric) Done() {
	m.mu.Lock()
	for _, s := range m.spans {
		if s.EndTime.IsZero() {
			s.End()
		}
	}
	m.mu.Unlock()

	if !Enabled() {
		return
	}
	select {
	case saveQueue <- m:
	default:
		log.Error.Printf("metric: save queue is full; dropping metric %q", m.Name)
	}
}

// String formats the metric and its spans on one line.
func (m *Metric) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b strings.Builder
	b.WriteString(string(m.Name))
	for _, s := range m.spans {
		fmt.Fprintf(&b, " %s=%v", s.Name, s.Duration())
		if s.Annotation != "" {
			fmt.Fprintf(&b, "(%s)", s.Annotation)
		}
	}
	return b.String()
}

// End marks the end time of the span as the current time. It returns the
// parent metric for convenience.
func (s *Span) End() *Metric {
	s.EndTime = time.Now()
	return s.Parent
}

// StartSpan starts a new span as a child of s with start time set to the current time.
func (s *Span) StartSpan(name errors.Op) *Span {
	subSpan := s.Parent.StartSpan(name)
	subSpan.ParentSpan = s
	return subSpan
}

// SetAnnotation sets a custom annotation to the span s and returns it.
// If multiple annotations are set, the last one wins.
func (s *Span) SetAnnotation(annotation string) *Span {
	s.Annotation = annotation
	return s
}
