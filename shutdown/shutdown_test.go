// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"safeapp.io/config"
	"safeapp.io/errors"
	"safeapp.io/objectcache"
	"safeapp.io/session"
)

const (
	childEnv = "SHUTDOWN_TEST_CHILD"
	timeout  = 10 * time.Second
)

// TestShutdown runs a child process that queues operations on a session
// registered with HandleClose and then shuts down. The child's output
// shows which operations ran, which were rejected, and whether the
// process was forced out by a stalled handler.
func TestShutdown(t *testing.T) {
	if mode := os.Getenv(childEnv); mode != "" {
		shutdownChild(mode)
		return
	}

	tests := []struct {
		mode  string
		want  []string
		clean bool
	}{
		{
			mode: "drain",
			want: []string{
				"ready",
				"op 0: ok",
				"op 1: ok",
				"op 2: ok",
				"op 3: ok",
				"op 4: disconnected",
			},
			clean: true,
		},
		{
			mode: "reject",
			want: []string{
				"ready",
				"op 0: ok",
				"op 1: disconnected",
				"op 2: disconnected",
				"op 3: disconnected",
				"op 4: disconnected",
			},
			clean: true,
		},
		{
			mode: "stall",
			want: []string{"ready", "stalling"},
		},
	}
	for _, test := range tests {
		t.Run(test.mode, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=^TestShutdown$")
			cmd.Env = append(os.Environ(), childEnv+"="+test.mode)
			out, err := cmd.Output()
			if ctx.Err() != nil {
				t.Fatalf("child did not exit within %v; output:\n%s", timeout, out)
			}
			if err != nil && test.clean {
				t.Errorf("child exited with %v; want success", err)
			} else if err == nil && !test.clean {
				t.Error("child exited cleanly; want non-zero status")
			}
			got := strings.Split(strings.TrimSpace(string(out)), "\n")
			if strings.Join(got, "|") != strings.Join(test.want, "|") {
				t.Errorf("child output:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(test.want, "\n"))
			}
		})
	}
}

func shutdownChild(mode string) {
	if mode == "stall" {
		stalled := make(chan bool)
		killSleep = func(time.Duration) { <-stalled }
		HandleClose("stalled", closer(func() error {
			fmt.Println("stalling")
			close(stalled)
			select {}
		}))
		fmt.Println("ready")
		Now(0)
	}

	teardown, err := config.ParseTeardown(mode)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	s := session.New(config.SetTeardown(config.New(), teardown))

	// Runs after the session is closed.
	Handle(func() {
		session.Call(s, cacheLen, report(4))
	})
	HandleClose("session", s)
	// Runs first. The operation holding the worker is released only
	// once Close has been called, so the operations queued behind it
	// meet the teardown policy.
	release := make(chan struct{})
	Handle(func() {
		go func() {
			for !s.Closed() {
				time.Sleep(time.Millisecond)
			}
			close(release)
		}()
	})

	started := make(chan struct{})
	session.Call(s, func(c *objectcache.Cache) (int, error) {
		close(started)
		<-release
		return c.Len(), nil
	}, report(0))
	for i := 1; i <= 3; i++ {
		session.Call(s, cacheLen, report(i))
	}
	<-started

	fmt.Println("ready")
	Now(0)
}

func cacheLen(c *objectcache.Cache) (int, error) {
	return c.Len(), nil
}

func report(i int) func(int, error) {
	return func(_ int, err error) {
		switch {
		case err == nil:
			fmt.Printf("op %d: ok\n", i)
		case errors.Is(errors.Disconnected, err):
			fmt.Printf("op %d: disconnected\n", i)
		default:
			fmt.Printf("op %d: %v\n", i, err)
		}
	}
}

type closer func() error

func (c closer) Close() error { return c() }
