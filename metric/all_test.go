// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import (
	"fmt"
	"strings"
	"testing"
)

func TestAll(t *testing.T) {
	saver := &dummySaver{
		done: make(chan bool),
	}
	RegisterSaver(saver)
	if !Enabled() {
		t.Fatal("saver registered but metrics not enabled")
	}

	m := New("session.Call")
	m.StartSpan("queued").StartSpan("wake").End()
	m.StartSpan("run").SetAnnotation("hello").End().Done()

	spans := m.Spans()
	if len(spans) != 3 {
		t.Fatalf("Expected 3 spans, got %d", len(spans))
	}
	if spans[1].ParentSpan != spans[0] {
		t.Errorf("Expected parent span to be %q, got %v", spans[0].Name, spans[1].ParentSpan)
	}

	// Save one more metric.
	m, sp := NewSpan("session.Run")
	sp.End()
	m.Done()

	// Finish.
	saveQueue <- nil
	<-saver.done

	if len(saver.metricsReceived) != 2 {
		t.Fatalf("Expected 2 metrics processed, got %d", len(saver.metricsReceived))
	}
	err := verifyMetric(saver.metricsReceived[0], "session.Call", "queued", "wake", "run")
	if err != nil {
		t.Fatal(err)
	}
	err = verifyMetric(saver.metricsReceived[1], "session.Run", "session.Run")
	if err != nil {
		t.Fatal(err)
	}

	got := saver.metricsReceived[0].String()
	if !strings.HasPrefix(got, "session.Call queued=") || !strings.Contains(got, "run=") || !strings.Contains(got, "(hello)") {
		t.Errorf("String() = %q", got)
	}

	// A full queue drops metrics instead of blocking.
	for i := 0; i < saveQueueLength+3; i++ {
		New("session.Call").StartSpan("run").End().Done()
	}
}

func verifyMetric(m *Metric, expectedName string, expectedSpanNames ...string) error {
	if string(m.Name) != expectedName {
		return fmt.Errorf("Expected %q, got %q", expectedName, m.Name)
	}
	spans := m.Spans()
	if len(spans) != len(expectedSpanNames) {
		return fmt.Errorf("Expected %d spans, got %d", len(expectedSpanNames), len(spans))
	}
	for i, s := range spans {
		exp := expectedSpanNames[i]
		if string(s.Name) != exp {
			return fmt.Errorf("Expected span %d of metric %q to be named %q, got %q", i, m.Name, exp, s.Name)
		}
		if s.EndTime.IsZero() {
			return fmt.Errorf("Span %d (%v) of metric %q has zero time", i, s.Name, m.Name)
		}
	}
	return nil
}

type dummySaver struct {
	done            chan bool
	metricsReceived []*Metric
}

func (d *dummySaver) Register(queue chan *Metric) {
	go func() {
		for m := range queue {
			if m == nil {
				d.done <- true
				return
			}
			d.metricsReceived = append(d.metricsReceived, m)
		}
	}()
}
