// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"safeapp.io/errors"
	"safeapp.io/ffi"
	"safeapp.io/ipc"
	"safeapp.io/subcmd"
)

func encode(s *subcmd.State, args ...string) {
	const help = `
Encode builds a request of the given kind and prints its request id
followed by the encoded message, ready to be passed to the authenticator.

Containers are requested with -container name:perms, where perms is a
list such as read,insert. Mutable data items are requested with
-mdata tag:name:allow[:deny], where name is 64 hex digits. Both flags
may be repeated. The unregistered request takes optional extra data
as a hex argument.
`
	const usage = "encode auth|containers|unregistered|sharemdata [flags] [extradata]"
	if len(args) < 1 {
		s.Exitf("usage: safeipc %s", usage)
	}
	kind := args[0]
	fs := flag.NewFlagSet("encode "+kind, flag.ExitOnError)
	id := fs.String("id", "", "application `id`")
	scope := fs.String("scope", "", "application `scope`")
	name := fs.String("name", "", "application `name`")
	vendor := fs.String("vendor", "", "application `vendor`")
	appContainer := fs.Bool("appcontainer", false, "request a dedicated container for the application")
	var containers, mdata subcmd.ListFlag
	fs.Var(&containers, "container", "`name:perms` of a container to request; may be repeated")
	fs.Var(&mdata, "mdata", "`tag:name:allow[:deny]` of a mutable data item to share; may be repeated")
	s.ParseFlags(fs, args[1:], help, usage)

	app := ipc.AppExchangeInfo{ID: *id, Scope: *scope, Name: *name, Vendor: *vendor}
	var (
		res   ffi.Result
		reqID uint32
		msg   string
	)
	switch kind {
	case "auth":
		cp, err := parseContainers(containers)
		if err != nil {
			s.Exit(err)
		}
		res, reqID, msg = ffi.EncodeAuthReq(&ipc.AuthReq{App: app, AppContainer: *appContainer, Containers: cp})
	case "containers":
		cp, err := parseContainers(containers)
		if err != nil {
			s.Exit(err)
		}
		res, reqID, msg = ffi.EncodeContainersReq(&ipc.ContainersReq{App: app, Containers: cp})
	case "unregistered":
		var extra []byte
		if fs.NArg() > 0 {
			var err error
			extra, err = hex.DecodeString(fs.Arg(0))
			if err != nil {
				s.Exitf("extra data: %v", err)
			}
		}
		res, reqID, msg = ffi.EncodeUnregisteredReq(extra)
	case "sharemdata":
		var items []ipc.ShareMData
		for _, m := range mdata {
			item, err := parseShareMData(m)
			if err != nil {
				s.Exit(err)
			}
			items = append(items, item)
		}
		res, reqID, msg = ffi.EncodeShareMDataReq(&ipc.ShareMDataReq{App: app, MData: items})
	default:
		s.Exitf("unknown request kind %q", kind)
	}
	if !res.OK() {
		s.Exitf("%s", res)
	}
	fmt.Fprintf(s.Stdout, "%d %s\n", reqID, msg)
}

// parseContainers parses a list of name:perms pairs.
func parseContainers(list []string) (ipc.ContainerPermissions, error) {
	const op errors.Op = "parseContainers"
	if len(list) == 0 {
		return nil, nil
	}
	cp := make(ipc.ContainerPermissions, len(list))
	for _, c := range list {
		name, perms, ok := strings.Cut(c, ":")
		if !ok || name == "" {
			return nil, errors.E(op, errors.Invalid, errors.Errorf("container %q: want name:perms", c))
		}
		p, ok := ipc.ParsePermissions(perms)
		if !ok {
			return nil, errors.E(op, errors.Invalid, errors.Errorf("container %q: bad permissions %q", name, perms))
		}
		if _, dup := cp[name]; dup {
			return nil, errors.E(op, errors.Invalid, errors.Errorf("container %q listed twice", name))
		}
		cp[name] = p
	}
	return cp, nil
}

// parseShareMData parses tag:name:allow[:deny].
func parseShareMData(s string) (ipc.ShareMData, error) {
	const op errors.Op = "parseShareMData"
	var item ipc.ShareMData
	fields := strings.Split(s, ":")
	if len(fields) != 3 && len(fields) != 4 {
		return item, errors.E(op, errors.Invalid, errors.Errorf("mdata %q: want tag:name:allow[:deny]", s))
	}
	tag, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return item, errors.E(op, errors.Invalid, errors.Errorf("mdata %q: bad type tag", s))
	}
	name, err := hex.DecodeString(fields[1])
	if err != nil || len(name) != len(item.Name) {
		return item, errors.E(op, errors.Invalid, errors.Errorf("mdata %q: name must be %d hex digits", s, 2*len(item.Name)))
	}
	allow, ok := ipc.ParsePermissions(fields[2])
	if !ok {
		return item, errors.E(op, errors.Invalid, errors.Errorf("mdata %q: bad permissions %q", s, fields[2]))
	}
	var deny ipc.Permissions
	if len(fields) == 4 {
		if deny, ok = ipc.ParsePermissions(fields[3]); !ok {
			return item, errors.E(op, errors.Invalid, errors.Errorf("mdata %q: bad permissions %q", s, fields[3]))
		}
	}
	item.TypeTag = tag
	copy(item.Name[:], name)
	item.Perms = ipc.PermissionSet{Allow: allow, Deny: deny}
	return item, nil
}
