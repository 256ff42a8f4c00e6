// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subcmd

import (
	"bytes"
	"fmt"
	"os/user"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func testingUserLookup(who string) (*user.User, error) {
	switch who {
	case "ann":
		return &user.User{
			HomeDir: filepath.Join("/usr", "ann"),
		}, nil
	}
	return nil, fmt.Errorf("no such user")
}

var tildeTests = []struct{ in, out string }{
	{"", ""},
	{"~", filepath.Join("/usr", "default")},
	{"~/", filepath.Join("/usr", "default")},
	{"~/x", filepath.Join("/usr", "default", "x")},
	{"~ann", filepath.Join("/usr", "ann")},
	{"~ann/", filepath.Join("/usr", "ann")},
	{"~ann/x", filepath.Join("/usr", "ann", "x")},
	{"~xxx", "~xxx"},
	{"~xxx/", "~xxx"},
	{"~xxx/x", filepath.Join("~xxx", "x")},
	{"msgs.txt", "msgs.txt"},
}

func TestTilde(t *testing.T) {
	userLookup = testingUserLookup
	savedHome := home
	home = filepath.Join("/usr", "default")
	defer func() {
		userLookup = user.Lookup
		home = savedHome
	}()
	for _, test := range tildeTests {
		out := Tilde(test.in)
		if out != test.out {
			t.Errorf("Tilde(%q) = %q; expected %q", test.in, out, test.out)
		}
	}
}

func TestLines(t *testing.T) {
	s := NewState("test")
	s.SetIO(strings.NewReader("  bAAA \n\n\tbBBB\n"), new(bytes.Buffer), new(bytes.Buffer))
	if got, want := s.Lines(nil), []string{"bAAA", "bBBB"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines(nil) = %q; want %q", got, want)
	}
	args := []string{"bCCC"}
	if got := s.Lines(args); !reflect.DeepEqual(got, args) {
		t.Errorf("Lines(%q) = %q", args, got)
	}
}

func TestListFlag(t *testing.T) {
	var l ListFlag
	l.Set("_public:read")
	l.Set("_videos:read,insert")
	if len(l) != 2 || l[1] != "_videos:read,insert" {
		t.Errorf("ListFlag = %q", l)
	}
	if got := l.String(); got != "_public:read,_videos:read,insert" {
		t.Errorf("String() = %q", got)
	}
}
