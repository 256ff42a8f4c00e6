// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"safeapp.io/ffi"
	"safeapp.io/ipc"
	"safeapp.io/subcmd"
)

func decode(s *subcmd.State, args ...string) {
	const help = `
Decode decodes each message given as an argument, or each line of standard
input if there are no arguments, and prints one line per message, in order,
describing the outcome:

	auth <reqid> contacts=<addr,...> containers=<name:perms,...>
	unregistered <reqid> contacts=<addr,...>
	containers <reqid>
	sharemdata <reqid>
	revoked <appid>
	error <reqid> <code> <description>

Messages are decoded concurrently. The exit status is non-zero if any
message decodes to an error.
`
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	s.ParseFlags(fs, args, help, "decode [message...]")

	msgs := s.Lines(fs.Args())
	lines, failed := decodeAll(msgs)
	for _, line := range lines {
		fmt.Fprintln(s.Stdout, line)
	}
	if failed {
		s.ExitCode = 1
	}
}

// decodeAll decodes msgs concurrently and returns the description of each,
// in order, and whether any decoded to an error.
func decodeAll(msgs []string) ([]string, bool) {
	lines := make([]string, len(msgs))
	errs := make([]bool, len(msgs))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, msg := range msgs {
		i, msg := i, msg
		g.Go(func() error {
			lines[i], errs[i] = describe(msg)
			return nil
		})
	}
	g.Wait()
	failed := false
	for _, e := range errs {
		failed = failed || e
	}
	return lines, failed
}

// describe decodes msg and returns a one-line account of the outcome,
// and whether it was an error.
func describe(msg string) (line string, isErr bool) {
	ffi.DecodeIPCMsg(msg, ffi.DecodeCallbacks{
		OnAuth: func(reqID uint32, g *ffi.AuthGranted) {
			var containers []string
			for _, ca := range g.AccessContainer {
				containers = append(containers, ca.Container+":"+strings.ToLower(ca.Perms.String()))
			}
			line = fmt.Sprintf("auth %d contacts=%s containers=%s",
				reqID, contacts(g.BootstrapConfig), strings.Join(containers, ","))
		},
		OnUnregistered: func(reqID uint32, cfg []byte) {
			line = fmt.Sprintf("unregistered %d contacts=%s", reqID, contacts(cfg))
		},
		OnContainers: func(reqID uint32) {
			line = fmt.Sprintf("containers %d", reqID)
		},
		OnShareMData: func(reqID uint32) {
			line = fmt.Sprintf("sharemdata %d", reqID)
		},
		OnRevoked: func(appID string) {
			line = fmt.Sprintf("revoked %s", appID)
		},
		OnErr: func(res ffi.Result, reqID uint32) {
			line = fmt.Sprintf("error %d %d %s", reqID, res.ErrorCode, res.Description)
			isErr = true
		},
	})
	return line, isErr
}

// contacts returns the contacts of a serialized bootstrap config.
func contacts(cfg []byte) string {
	c, err := ipc.DeserializeBootstrapConfig(cfg)
	if err != nil {
		return "?"
	}
	return strings.Join(c.Contacts, ",")
}
