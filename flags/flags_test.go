// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flags

import (
	"testing"

	"safeapp.io/log"
)

func TestLogLevel(t *testing.T) {
	saved := log.GetLevel()
	defer func() {
		log.SetLevel(saved)
		Log = logFlag{level: saved}
	}()

	for _, level := range []string{"debug", "error", "disabled", "info"} {
		if err := Log.Set(level); err != nil {
			t.Errorf("Set(%q): %v", level, err)
			continue
		}
		if got := Log.String(); got != level {
			t.Errorf("Log = %q; want %q", got, level)
		}
		if got := log.GetLevel(); got != level {
			t.Errorf("log.GetLevel() = %q; want %q", got, level)
		}
		if !Log.IsSet() {
			t.Errorf("Log.IsSet() = false after Set(%q)", level)
		}
	}

	if err := Log.Set("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
	if got := log.GetLevel(); got != "info" {
		t.Errorf("level changed by a bad Set: %q", got)
	}
}
