// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log exports logging primitives that log to stderr and also to
// an optional external logger registered by the embedding application.
package log // import "safeapp.io/log"

import (
	"bytes"
	"fmt"
	"io"
	goLog "log"
	"os"
	"sync"
)

// Logger is the interface for logging messages.
type Logger interface {
	// Printf writes a formated message to the log.
	Printf(format string, v ...interface{})

	// Print writes a message to the log.
	Print(v ...interface{})

	// Println writes a line to the log.
	Println(v ...interface{})

	// Fatal writes a message to the log and aborts.
	Fatal(v ...interface{})

	// Fatalf writes a formated message to the log and aborts.
	Fatalf(format string, v ...interface{})
}

// ExternalLogger describes a service that processes logs. The
// application on the far side of the boundary usually supplies one
// so that library messages end up in its own log.
type ExternalLogger interface {
	Log(Level, string)
	Flush()
}

// Level represents the level of logging.
type Level int

// Different levels of logging.
const (
	DebugLevel Level = iota
	InfoLevel
	ErrorLevel
	DisabledLevel
)

// The set of default loggers for each log level.
var (
	Debug = &logger{DebugLevel}
	Info  = &logger{InfoLevel}
	Error = &logger{ErrorLevel}
)

type globalState struct {
	mu             sync.Mutex
	currentLevel   Level
	defaultLogger  Logger
	externalLogger ExternalLogger
}

var state = globalState{
	currentLevel:  InfoLevel,
	defaultLogger: newDefaultLogger(os.Stderr),
}

func globals() (Level, Logger, ExternalLogger) {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.currentLevel, state.defaultLogger, state.externalLogger
}

func newDefaultLogger(w io.Writer) Logger {
	return goLog.New(w, "", goLog.Ldate|goLog.Ltime|goLog.LUTC|goLog.Lmicroseconds)
}

// SetOutput sets the default loggers to write to w.
// If w is nil, the default loggers are disabled.
func SetOutput(w io.Writer) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if w == nil {
		state.defaultLogger = nil
	} else {
		state.defaultLogger = newDefaultLogger(w)
	}
}

// Register connects an ExternalLogger to the default logger.
// This may only be called once.
func Register(e ExternalLogger) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.externalLogger != nil {
		panic("cannot register second external logger")
	}
	state.externalLogger = e
}

type logger struct {
	level Level
}

var _ Logger = (*logger)(nil)

// Printf writes a formatted message to the log.
func (l *logger) Printf(format string, v ...interface{}) {
	current, def, ext := globals()
	if l.level < current {
		return // Don't log at lower levels.
	}
	if ext != nil {
		ext.Log(l.level, fmt.Sprintf(format, v...))
	}
	if def != nil {
		def.Printf(format, v...)
	}
}

// Print writes a message to the log.
func (l *logger) Print(v ...interface{}) {
	current, def, ext := globals()
	if l.level < current {
		return // Don't log at lower levels.
	}
	if ext != nil {
		ext.Log(l.level, fmt.Sprint(v...))
	}
	if def != nil {
		def.Print(v...)
	}
}

// Println writes a line to the log.
func (l *logger) Println(v ...interface{}) {
	current, def, ext := globals()
	if l.level < current {
		return // Don't log at lower levels.
	}
	if ext != nil {
		ext.Log(l.level, fmt.Sprintln(v...))
	}
	if def != nil {
		def.Println(v...)
	}
}

// Fatal writes a message to the log and aborts, regardless of the current log level.
func (l *logger) Fatal(v ...interface{}) {
	_, def, ext := globals()
	if ext != nil {
		ext.Log(l.level, fmt.Sprint(v...))
		// Make sure we get the Fatal recorded.
		ext.Flush()
	}
	if def != nil {
		def.Fatal(v...)
	} else {
		goLog.Fatal(v...)
	}
}

// Fatalf writes a formated message to the log and aborts, regardless of the current log level.
func (l *logger) Fatalf(format string, v ...interface{}) {
	_, def, ext := globals()
	if ext != nil {
		ext.Log(l.level, fmt.Sprintf(format, v...))
		// Make sure we get the Fatal recorded.
		ext.Flush()
	}
	if def != nil {
		def.Fatalf(format, v...)
	} else {
		goLog.Fatalf(format, v...)
	}
}

// String returns the name of the logger.
func (l *logger) String() string {
	return l.level.String()
}

func (l Level) String() string {
	switch l {
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	case ErrorLevel:
		return "error"
	case DisabledLevel:
		return "disabled"
	}
	return "unknown"
}

// ParseLevel returns the Level named by s.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	case "error":
		return ErrorLevel, nil
	case "disabled":
		return DisabledLevel, nil
	}
	return DisabledLevel, fmt.Errorf("invalid log level %q", s)
}

// GetLevel returns the name of the current logging level.
func GetLevel() string {
	current, _, _ := globals()
	return current.String()
}

// SetLevel sets the current level of logging.
func SetLevel(level string) error {
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	state.mu.Lock()
	state.currentLevel = l
	state.mu.Unlock()
	return nil
}

// At returns whether the level will be logged currently.
func At(level string) bool {
	l, err := ParseLevel(level)
	if err != nil {
		return false
	}
	current, _, _ := globals()
	return current <= l
}

// Printf writes a formatted message to the log.
func Printf(format string, v ...interface{}) {
	Info.Printf(format, v...)
}

// Print writes a message to the log.
func Print(v ...interface{}) {
	Info.Print(v...)
}

// Println writes a line to the log.
func Println(v ...interface{}) {
	Info.Println(v...)
}

// Fatal writes a message to the log and aborts.
func Fatal(v ...interface{}) {
	Info.Fatal(v...)
}

// Fatalf writes a formatted message to the log and aborts.
func Fatalf(format string, v ...interface{}) {
	Info.Fatalf(format, v...)
}

// Flush flushes the external logger, if any.
func Flush() {
	_, _, ext := globals()
	if ext != nil {
		ext.Flush()
	}
}

// Buffer is an io.Writer, safe for concurrent use, that collects log
// output in memory. Tests pass one to SetOutput to inspect what was logged.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
