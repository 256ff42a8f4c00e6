// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ipc defines the messages an application exchanges with the
// authenticator to obtain credentials and capability grants, and the
// text encoding used to carry them between processes.
//
// A message is one of *ReqMsg, *RespMsg, *RevokedMsg or *ErrMsg. An
// application encodes a ReqMsg, hands the text to the authenticator by
// whatever means the platform offers, and later decodes the RespMsg
// that carries the same request id.
package ipc // import "safeapp.io/ipc"

import (
	"sort"
	"strings"

	"golang.org/x/crypto/ed25519"
)

// Permissions is a set of container or mutable data permissions.
type Permissions uint8

// Individual permissions.
const (
	Read Permissions = 1 << iota
	Insert
	Update
	Delete
	ManagePermissions

	allPermissions = Read | Insert | Update | Delete | ManagePermissions
)

var permissionNames = []struct {
	p    Permissions
	name string
}{
	{Read, "Read"},
	{Insert, "Insert"},
	{Update, "Update"},
	{Delete, "Delete"},
	{ManagePermissions, "ManagePermissions"},
}

// Has reports whether every permission in q is in p.
func (p Permissions) Has(q Permissions) bool {
	return p&q == q
}

func (p Permissions) String() string {
	if p == 0 {
		return "none"
	}
	var names []string
	for _, pn := range permissionNames {
		if p.Has(pn.p) {
			names = append(names, pn.name)
		}
	}
	if p&^allPermissions != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, "|")
}

// ParsePermissions parses a list of permission names such as "Read|Insert".
// Names are case-insensitive and may be separated by '|' or ','.
func ParsePermissions(s string) (Permissions, bool) {
	var p Permissions
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		f = strings.TrimSpace(f)
		found := false
		for _, pn := range permissionNames {
			if strings.EqualFold(f, pn.name) {
				p |= pn.p
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return p, true
}

// AppExchangeInfo identifies an application to the authenticator.
type AppExchangeInfo struct {
	// ID is the application's unique identifier.
	ID string
	// Scope, if not empty, distinguishes several instances of one application.
	Scope string
	// Name is the human-readable application name.
	Name string
	// Vendor is the application vendor.
	Vendor string
}

// ContainerPermissions maps container names to the permissions requested on them.
type ContainerPermissions map[string]Permissions

// names returns the container names in sorted order.
func (c ContainerPermissions) names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PermissionSet allows or denies actions on a mutable data item.
// An action in neither set is left to the item's defaults.
type PermissionSet struct {
	Allow Permissions
	Deny  Permissions
}

// XorName is a 256-bit network address.
type XorName [32]byte

// Nonce is a secretbox nonce.
type Nonce [24]byte

// Request is one of *AuthReq, *ContainersReq, *UnregisteredReq or *ShareMDataReq.
type Request interface {
	isRequest()
}

// AuthReq asks the authenticator to register and authorise an application.
type AuthReq struct {
	App AppExchangeInfo
	// AppContainer requests a dedicated container for the application.
	AppContainer bool
	Containers   ContainerPermissions
}

// ContainersReq asks for additional access to the user's containers.
type ContainersReq struct {
	App        AppExchangeInfo
	Containers ContainerPermissions
}

// UnregisteredReq asks for the bootstrap configuration needed to
// reach the network without an account.
type UnregisteredReq struct {
	ExtraData []byte
}

// ShareMData is one mutable data item an application wants access to.
type ShareMData struct {
	TypeTag uint64
	Name    XorName
	Perms   PermissionSet
}

// ShareMDataReq asks the owner to share mutable data with an application.
type ShareMDataReq struct {
	App   AppExchangeInfo
	MData []ShareMData
}

func (*AuthReq) isRequest()         {}
func (*ContainersReq) isRequest()   {}
func (*UnregisteredReq) isRequest() {}
func (*ShareMDataReq) isRequest()   {}

// AppKeys is the key material issued to an authorised application.
// Encryption keys are kept as byte slices; their sizes are checked
// when the keys are laid out for the boundary.
type AppKeys struct {
	// OwnerKey is the public signing key of the account owner.
	OwnerKey ed25519.PublicKey
	// EncKey is the application's symmetric (secretbox) key.
	EncKey []byte
	SignPk ed25519.PublicKey
	SignSk ed25519.PrivateKey
	// EncPk and EncSk are the application's box key pair.
	EncPk []byte
	EncSk []byte
}

// BootstrapConfig lists network contacts, as host:port addresses.
type BootstrapConfig struct {
	Contacts []string
}

// AccessContInfo locates the access container holding the
// application's container grants.
type AccessContInfo struct {
	ID    XorName
	Tag   uint64
	Nonce Nonce
}

// ContainerAccess describes a granted container.
type ContainerAccess struct {
	Name    XorName
	TypeTag uint64
	Perms   Permissions
}

// AccessContainerEntry maps container names to the access granted on them.
type AccessContainerEntry map[string]ContainerAccess

// Names returns the container names in sorted order.
func (e AccessContainerEntry) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AuthGranted is the credential bundle of a successful authorisation.
type AuthGranted struct {
	AppKeys              AppKeys
	BootstrapConfig      BootstrapConfig
	AccessContainerInfo  AccessContInfo
	AccessContainerEntry AccessContainerEntry
}

// Response is one of *AuthResp, *ContainersResp, *UnregisteredResp or
// *ShareMDataResp. Each carries either its payload or an error.
type Response interface {
	// Result returns the refusal carried by the response, or nil
	// if the request was granted.
	Result() error
	isResponse()
}

// AuthResp answers an AuthReq.
type AuthResp struct {
	Granted *AuthGranted
	Err     error
}

// ContainersResp answers a ContainersReq. Success carries no payload.
type ContainersResp struct {
	Err error
}

// UnregisteredResp answers an UnregisteredReq.
type UnregisteredResp struct {
	Config *BootstrapConfig
	Err    error
}

// ShareMDataResp answers a ShareMDataReq. Success carries no payload.
type ShareMDataResp struct {
	Err error
}

func (r *AuthResp) Result() error         { return r.Err }
func (r *ContainersResp) Result() error   { return r.Err }
func (r *UnregisteredResp) Result() error { return r.Err }
func (r *ShareMDataResp) Result() error   { return r.Err }

func (*AuthResp) isResponse()         {}
func (*ContainersResp) isResponse()   {}
func (*UnregisteredResp) isResponse() {}
func (*ShareMDataResp) isResponse()   {}

// Msg is one of *ReqMsg, *RespMsg, *RevokedMsg or *ErrMsg.
type Msg interface {
	isMsg()
}

// ReqMsg is a request with its correlation id.
type ReqMsg struct {
	ReqID uint32
	Req   Request
}

// RespMsg is a response to the request with the same ReqID.
type RespMsg struct {
	ReqID uint32
	Resp  Response
}

// RevokedMsg notifies an application that its authorisation was revoked.
// It is not correlated with any request.
type RevokedMsg struct {
	AppID string
}

// ErrMsg reports a failure that could not be tied to a request.
type ErrMsg struct {
	Err error
}

func (*ReqMsg) isMsg()     {}
func (*RespMsg) isMsg()    {}
func (*RevokedMsg) isMsg() {}
func (*ErrMsg) isMsg()     {}
