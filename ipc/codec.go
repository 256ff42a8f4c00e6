// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ipc

import (
	"encoding/base64"
	"unicode/utf8"

	pb "github.com/golang/protobuf/proto"
	"golang.org/x/text/unicode/norm"

	"safeapp.io/errors"
	"safeapp.io/ipc/proto"
)

// msgPrefix marks the text encoding of a message: URL-safe,
// unpadded base64 of the protocol buffer bytes.
const msgPrefix = 'b'

var encoding = base64.RawURLEncoding

// EncodeMsg encodes msg for transmission. Strings in request payloads
// are carried unchanged; a string that is not valid UTF-8, is not in
// Unicode normal form C, or contains a NUL byte cannot cross the
// boundary and is an Encoding error. So are permission bits outside
// the known set. On error the returned text is always empty.
func EncodeMsg(msg Msg) (string, error) {
	const op errors.Op = "ipc.EncodeMsg"
	m, err := msgToProto(msg)
	if err != nil {
		return "", errors.E(op, errors.Encoding, err)
	}
	b, err := pb.Marshal(m)
	if err != nil {
		return "", errors.E(op, errors.Encoding, err)
	}
	return string(msgPrefix) + encoding.EncodeToString(b), nil
}

// DecodeMsg decodes a message produced by EncodeMsg.
//
// A response whose payload cannot be converted is not a decoding
// failure: it is returned as a response carrying an Encoding error so
// that the request id still reaches the caller.
func DecodeMsg(text string) (Msg, error) {
	const op errors.Op = "ipc.DecodeMsg"
	if len(text) == 0 || text[0] != msgPrefix {
		return nil, errors.E(op, errors.Encoding, errors.Str("missing message prefix"))
	}
	b, err := encoding.DecodeString(text[1:])
	if err != nil {
		return nil, errors.E(op, errors.Encoding, err)
	}
	var m proto.Msg
	if err := pb.Unmarshal(b, &m); err != nil {
		return nil, errors.E(op, errors.Encoding, err)
	}
	msg, err := msgFromProto(&m)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return msg, nil
}

// SerializeBootstrapConfig returns the wire form of cfg, as handed to
// an unregistered application. Every contact must be a non-empty,
// valid UTF-8 string.
func SerializeBootstrapConfig(cfg *BootstrapConfig) ([]byte, error) {
	const op errors.Op = "ipc.SerializeBootstrapConfig"
	if cfg == nil {
		return nil, errors.E(op, errors.Encoding, errors.Str("nil bootstrap config"))
	}
	for _, c := range cfg.Contacts {
		if c == "" || !utf8.ValidString(c) {
			return nil, errors.E(op, errors.Encoding, errors.Errorf("bad contact %q", c))
		}
	}
	b, err := pb.Marshal(bootstrapToProto(cfg))
	if err != nil {
		return nil, errors.E(op, errors.Encoding, err)
	}
	return b, nil
}

// DeserializeBootstrapConfig is the inverse of SerializeBootstrapConfig.
func DeserializeBootstrapConfig(b []byte) (*BootstrapConfig, error) {
	const op errors.Op = "ipc.DeserializeBootstrapConfig"
	var p proto.BootstrapConfig
	if err := pb.Unmarshal(b, &p); err != nil {
		return nil, errors.E(op, errors.Encoding, err)
	}
	return bootstrapFromProto(&p), nil
}

// canonical returns s if it can be carried across the boundary.
// Strings must already be in normal form C so that distinct names
// stay distinct on the wire and decode to what was encoded.
func canonical(field, s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", errors.Errorf("%s: invalid UTF-8", field)
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return "", errors.Errorf("%s: contains NUL byte", field)
		}
	}
	if !norm.NFC.IsNormalString(s) {
		return "", errors.Errorf("%s %+q: not in normal form C", field, s)
	}
	return s, nil
}

// permsFromWire narrows a permission set read from the wire.
func permsFromWire(field string, u uint32) (Permissions, error) {
	if u&^uint32(allPermissions) != 0 {
		return 0, errors.Errorf("%s: unknown permission bits %#x", field, u)
	}
	return Permissions(u), nil
}

func permsToWire(field string, p Permissions) (uint32, error) {
	if p&^allPermissions != 0 {
		return 0, errors.Errorf("%s: unknown permission bits %#x", field, uint8(p))
	}
	return uint32(p), nil
}

func msgToProto(msg Msg) (*proto.Msg, error) {
	switch msg := msg.(type) {
	case *ReqMsg:
		req, err := reqToProto(msg.Req)
		if err != nil {
			return nil, err
		}
		return &proto.Msg{Kind: proto.MsgReq, ReqId: msg.ReqID, Req: req}, nil
	case *RespMsg:
		resp, err := respToProto(msg.Resp)
		if err != nil {
			return nil, err
		}
		return &proto.Msg{Kind: proto.MsgResp, ReqId: msg.ReqID, Resp: resp}, nil
	case *RevokedMsg:
		id, err := canonical("app id", msg.AppID)
		if err != nil {
			return nil, err
		}
		return &proto.Msg{Kind: proto.MsgRevoked, AppId: id}, nil
	case *ErrMsg:
		return &proto.Msg{Kind: proto.MsgErr, Error: errors.MarshalError(msg.Err)}, nil
	}
	return nil, errors.Errorf("unknown message type %T", msg)
}

func msgFromProto(m *proto.Msg) (Msg, error) {
	switch m.Kind {
	case proto.MsgReq:
		if m.Req == nil {
			return nil, errors.E(errors.Encoding, errors.Str("request message without payload"))
		}
		req, err := reqFromProto(m.Req)
		if err != nil {
			return nil, errors.E(errors.Encoding, err)
		}
		return &ReqMsg{ReqID: m.ReqId, Req: req}, nil
	case proto.MsgResp:
		if m.Resp == nil {
			return nil, errors.E(errors.Encoding, errors.Str("response message without payload"))
		}
		resp, err := respFromProto(m.Resp)
		if err != nil {
			return nil, errors.E(errors.Encoding, err)
		}
		return &RespMsg{ReqID: m.ReqId, Resp: resp}, nil
	case proto.MsgRevoked:
		return &RevokedMsg{AppID: m.AppId}, nil
	case proto.MsgErr:
		return &ErrMsg{Err: unmarshalError(m.Error)}, nil
	}
	return nil, errors.E(errors.InvalidMessage, errors.Errorf("unknown message kind %d", m.Kind))
}

func appToProto(a *AppExchangeInfo) (*proto.AppExchangeInfo, error) {
	var p proto.AppExchangeInfo
	var err error
	if p.Id, err = canonical("app id", a.ID); err != nil {
		return nil, err
	}
	if p.Scope, err = canonical("app scope", a.Scope); err != nil {
		return nil, err
	}
	if p.Name, err = canonical("app name", a.Name); err != nil {
		return nil, err
	}
	if p.Vendor, err = canonical("app vendor", a.Vendor); err != nil {
		return nil, err
	}
	return &p, nil
}

func appFromProto(p *proto.AppExchangeInfo) AppExchangeInfo {
	if p == nil {
		return AppExchangeInfo{}
	}
	return AppExchangeInfo{ID: p.Id, Scope: p.Scope, Name: p.Name, Vendor: p.Vendor}
}

func containersToProto(c ContainerPermissions) ([]*proto.ContainerPermissions, error) {
	if len(c) == 0 {
		return nil, nil
	}
	out := make([]*proto.ContainerPermissions, 0, len(c))
	for _, name := range c.names() {
		cname, err := canonical("container name", name)
		if err != nil {
			return nil, err
		}
		perms, err := permsToWire("container "+cname, c[name])
		if err != nil {
			return nil, err
		}
		out = append(out, &proto.ContainerPermissions{Name: cname, Perms: perms})
	}
	return out, nil
}

func containersFromProto(ps []*proto.ContainerPermissions) (ContainerPermissions, error) {
	if len(ps) == 0 {
		return nil, nil
	}
	c := make(ContainerPermissions, len(ps))
	for _, p := range ps {
		if _, dup := c[p.Name]; dup {
			return nil, errors.Errorf("duplicate container %q", p.Name)
		}
		perms, err := permsFromWire("container "+p.Name, p.Perms)
		if err != nil {
			return nil, err
		}
		c[p.Name] = perms
	}
	return c, nil
}

func reqToProto(req Request) (*proto.Req, error) {
	switch req := req.(type) {
	case *AuthReq:
		app, err := appToProto(&req.App)
		if err != nil {
			return nil, err
		}
		cs, err := containersToProto(req.Containers)
		if err != nil {
			return nil, err
		}
		return &proto.Req{Kind: proto.KindAuth, App: app, AppContainer: req.AppContainer, Containers: cs}, nil
	case *ContainersReq:
		app, err := appToProto(&req.App)
		if err != nil {
			return nil, err
		}
		cs, err := containersToProto(req.Containers)
		if err != nil {
			return nil, err
		}
		return &proto.Req{Kind: proto.KindContainers, App: app, Containers: cs}, nil
	case *UnregisteredReq:
		return &proto.Req{Kind: proto.KindUnregistered, ExtraData: req.ExtraData}, nil
	case *ShareMDataReq:
		app, err := appToProto(&req.App)
		if err != nil {
			return nil, err
		}
		p := &proto.Req{Kind: proto.KindShareMData, App: app}
		for _, md := range req.MData {
			name := md.Name
			allow, err := permsToWire("allow", md.Perms.Allow)
			if err != nil {
				return nil, err
			}
			deny, err := permsToWire("deny", md.Perms.Deny)
			if err != nil {
				return nil, err
			}
			p.Mdata = append(p.Mdata, &proto.ShareMData{
				TypeTag: md.TypeTag,
				Name:    name[:],
				Allow:   allow,
				Deny:    deny,
			})
		}
		return p, nil
	case nil:
		return nil, errors.Str("nil request")
	}
	return nil, errors.Errorf("unknown request type %T", req)
}

func reqFromProto(p *proto.Req) (Request, error) {
	switch p.Kind {
	case proto.KindAuth:
		cs, err := containersFromProto(p.Containers)
		if err != nil {
			return nil, err
		}
		return &AuthReq{App: appFromProto(p.App), AppContainer: p.AppContainer, Containers: cs}, nil
	case proto.KindContainers:
		cs, err := containersFromProto(p.Containers)
		if err != nil {
			return nil, err
		}
		return &ContainersReq{App: appFromProto(p.App), Containers: cs}, nil
	case proto.KindUnregistered:
		return &UnregisteredReq{ExtraData: p.ExtraData}, nil
	case proto.KindShareMData:
		req := &ShareMDataReq{App: appFromProto(p.App)}
		for _, md := range p.Mdata {
			var name XorName
			if len(md.Name) != len(name) {
				return nil, errors.Errorf("mutable data name is %d bytes", len(md.Name))
			}
			copy(name[:], md.Name)
			allow, err := permsFromWire("allow", md.Allow)
			if err != nil {
				return nil, err
			}
			deny, err := permsFromWire("deny", md.Deny)
			if err != nil {
				return nil, err
			}
			req.MData = append(req.MData, ShareMData{
				TypeTag: md.TypeTag,
				Name:    name,
				Perms:   PermissionSet{Allow: allow, Deny: deny},
			})
		}
		return req, nil
	}
	return nil, errors.Errorf("unknown request kind %d", p.Kind)
}

func respToProto(resp Response) (*proto.Resp, error) {
	var p proto.Resp
	switch resp := resp.(type) {
	case *AuthResp:
		p.Kind = proto.KindAuth
		if resp.Err == nil {
			if resp.Granted == nil {
				return nil, errors.Str("auth response without credentials")
			}
			p.AuthGranted = authGrantedToProto(resp.Granted)
		}
	case *ContainersResp:
		p.Kind = proto.KindContainers
	case *UnregisteredResp:
		p.Kind = proto.KindUnregistered
		if resp.Err == nil {
			if resp.Config == nil {
				return nil, errors.Str("unregistered response without bootstrap config")
			}
			p.BootstrapConfig = bootstrapToProto(resp.Config)
		}
	case *ShareMDataResp:
		p.Kind = proto.KindShareMData
	case nil:
		return nil, errors.Str("nil response")
	default:
		return nil, errors.Errorf("unknown response type %T", resp)
	}
	p.Error = errors.MarshalError(resp.Result())
	return &p, nil
}

func respFromProto(p *proto.Resp) (Response, error) {
	var err error
	if len(p.Error) > 0 {
		err = unmarshalError(p.Error)
	}
	switch p.Kind {
	case proto.KindAuth:
		if err != nil {
			return &AuthResp{Err: err}, nil
		}
		g, cerr := authGrantedFromProto(p.AuthGranted)
		if cerr != nil {
			return &AuthResp{Err: errors.E(errors.Encoding, cerr)}, nil
		}
		return &AuthResp{Granted: g}, nil
	case proto.KindContainers:
		return &ContainersResp{Err: err}, nil
	case proto.KindUnregistered:
		if err != nil {
			return &UnregisteredResp{Err: err}, nil
		}
		if p.BootstrapConfig == nil {
			return &UnregisteredResp{Err: errors.E(errors.Encoding, errors.Str("missing bootstrap config"))}, nil
		}
		return &UnregisteredResp{Config: bootstrapFromProto(p.BootstrapConfig)}, nil
	case proto.KindShareMData:
		return &ShareMDataResp{Err: err}, nil
	}
	return nil, errors.Errorf("unknown response kind %d", p.Kind)
}

// unmarshalError decodes an error carried in a message. Refusals from
// the authenticator are *errors.Error values; anything else is
// reported as Other. Corrupt error data yields an Encoding error.
func unmarshalError(b []byte) error {
	err := errors.UnmarshalError(b)
	if err == nil {
		return errors.E(errors.Other, errors.Str("unspecified error"))
	}
	if _, ok := err.(*errors.Error); ok {
		return err
	}
	return errors.E(errors.Other, err)
}

func bootstrapToProto(cfg *BootstrapConfig) *proto.BootstrapConfig {
	return &proto.BootstrapConfig{Contacts: cfg.Contacts}
}

func bootstrapFromProto(p *proto.BootstrapConfig) *BootstrapConfig {
	if p == nil {
		return &BootstrapConfig{}
	}
	return &BootstrapConfig{Contacts: p.Contacts}
}

func authGrantedToProto(g *AuthGranted) *proto.AuthGranted {
	k := &g.AppKeys
	id, nonce := g.AccessContainerInfo.ID, g.AccessContainerInfo.Nonce
	p := &proto.AuthGranted{
		AppKeys: &proto.AppKeys{
			OwnerKey: k.OwnerKey,
			EncKey:   k.EncKey,
			SignPk:   k.SignPk,
			SignSk:   k.SignSk,
			EncPk:    k.EncPk,
			EncSk:    k.EncSk,
		},
		BootstrapConfig: bootstrapToProto(&g.BootstrapConfig),
		AccessContainerInfo: &proto.AccessContInfo{
			Id:    id[:],
			Tag:   g.AccessContainerInfo.Tag,
			Nonce: nonce[:],
		},
	}
	for _, name := range g.AccessContainerEntry.Names() {
		ca := g.AccessContainerEntry[name]
		caName := ca.Name
		p.AccessContainer = append(p.AccessContainer, &proto.ContainerAccess{
			Container: name,
			Name:      caName[:],
			TypeTag:   ca.TypeTag,
			Perms:     uint32(ca.Perms),
		})
	}
	return p
}

func authGrantedFromProto(p *proto.AuthGranted) (*AuthGranted, error) {
	if p == nil {
		return nil, errors.Str("missing credentials")
	}
	g := &AuthGranted{
		BootstrapConfig: *bootstrapFromProto(p.BootstrapConfig),
	}
	if k := p.AppKeys; k != nil {
		g.AppKeys = AppKeys{
			OwnerKey: k.OwnerKey,
			EncKey:   k.EncKey,
			SignPk:   k.SignPk,
			SignSk:   k.SignSk,
			EncPk:    k.EncPk,
			EncSk:    k.EncSk,
		}
	}
	if ci := p.AccessContainerInfo; ci != nil {
		if len(ci.Id) != len(g.AccessContainerInfo.ID) {
			return nil, errors.Errorf("access container id is %d bytes", len(ci.Id))
		}
		if len(ci.Nonce) != len(g.AccessContainerInfo.Nonce) {
			return nil, errors.Errorf("access container nonce is %d bytes", len(ci.Nonce))
		}
		copy(g.AccessContainerInfo.ID[:], ci.Id)
		copy(g.AccessContainerInfo.Nonce[:], ci.Nonce)
		g.AccessContainerInfo.Tag = ci.Tag
	}
	for _, ca := range p.AccessContainer {
		var name XorName
		if len(ca.Name) != len(name) {
			return nil, errors.Errorf("container %q: name is %d bytes", ca.Container, len(ca.Name))
		}
		copy(name[:], ca.Name)
		perms, err := permsFromWire("container "+ca.Container, ca.Perms)
		if err != nil {
			return nil, err
		}
		if g.AccessContainerEntry == nil {
			g.AccessContainerEntry = make(AccessContainerEntry, len(p.AccessContainer))
		}
		g.AccessContainerEntry[ca.Container] = ContainerAccess{
			Name:    name,
			TypeTag: ca.TypeTag,
			Perms:   perms,
		}
	}
	return g, nil
}
