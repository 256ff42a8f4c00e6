// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// I/O helpers.

package subcmd

import (
	"bufio"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

var userLookup = user.Lookup

var home string // Main user's home directory.

func homeDir(who string) string {
	if who == "" {
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return "~" // What else can we do?
			}
		}
		return home
	}
	u, err := userLookup(who)
	if err != nil {
		return "~" + who // Again, what else can we do?
	}
	return u.HomeDir
}

// Tilde processes a leading tilde, if any, in the local file name.
// If the file name does not begin with a tilde, Tilde returns the argument unchanged.
// If the target user does not exist, it returns the original string.
func Tilde(file string) string {
	if file == "" || file[0] != '~' {
		return file
	}
	if file == "~" {
		return homeDir("")
	}
	slash := strings.IndexByte(file, '/')
	if slash < 0 {
		return homeDir(file[1:])
	}
	return filepath.Join(homeDir(file[1:slash]), file[slash+1:])
}

// ReadAll reads all contents from a local input file or from stdin if
// the input file name is empty.
func (s *State) ReadAll(fileName string) []byte {
	var input *os.File
	var err error
	if fileName == "" {
		data, err := ioutil.ReadAll(s.Stdin)
		if err != nil {
			s.Exit(err)
		}
		return data
	}
	input, err = os.Open(Tilde(fileName))
	if err != nil {
		s.Exit(err)
	}
	defer input.Close()
	data, err := ioutil.ReadAll(input)
	if err != nil {
		s.Exit(err)
	}
	return data
}

// Lines returns args if there are any. Otherwise it returns the non-blank
// lines of standard input, with surrounding space trimmed.
func (s *State) Lines(args []string) []string {
	if len(args) > 0 {
		return args
	}
	var lines []string
	scanner := bufio.NewScanner(s.Stdin)
	scanner.Buffer(nil, 1<<24)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		s.Exit(err)
	}
	return lines
}
