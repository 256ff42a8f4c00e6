// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import (
	"sync/atomic"

	"safeapp.io/log"
)

// NewLogSaver returns a Saver that writes each metric to the debug log.
func NewLogSaver() *LogSaver {
	return &LogSaver{}
}

// LogSaver is a Saver that writes metrics to the debug log.
type LogSaver struct {
	processed int32
}

// Register implements Saver.
func (s *LogSaver) Register(queue chan *Metric) {
	go func() {
		for m := range queue {
			log.Debug.Println(m)
			atomic.AddInt32(&s.processed, 1)
		}
	}()
}

// NumProcessed returns the number of metrics written so far.
func (s *LogSaver) NumProcessed() int32 {
	return atomic.LoadInt32(&s.processed)
}
