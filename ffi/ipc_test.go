// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffi

import (
	"bytes"
	"encoding/base64"
	"reflect"
	"testing"

	pb "github.com/golang/protobuf/proto"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	"safeapp.io/config"
	"safeapp.io/errors"
	"safeapp.io/ipc"
	"safeapp.io/ipc/ipctest"
	"safeapp.io/ipc/proto"
	"safeapp.io/log"
)

// outcomes records every callback made by DecodeIPCMsg.
type outcomes struct {
	auth, unregistered, containers, share, revoked, err int

	reqID   uint32
	res     Result
	granted *AuthGranted
	config  []byte
	appID   string
}

func (o *outcomes) callbacks() DecodeCallbacks {
	return DecodeCallbacks{
		OnAuth: func(reqID uint32, g *AuthGranted) {
			o.auth++
			o.reqID, o.granted = reqID, g
		},
		OnUnregistered: func(reqID uint32, cfg []byte) {
			o.unregistered++
			o.reqID, o.config = reqID, append([]byte(nil), cfg...)
		},
		OnContainers: func(reqID uint32) {
			o.containers++
			o.reqID = reqID
		},
		OnShareMData: func(reqID uint32) {
			o.share++
			o.reqID = reqID
		},
		OnRevoked: func(appID string) {
			o.revoked++
			o.appID = appID
		},
		OnErr: func(res Result, reqID uint32) {
			o.err++
			o.res, o.reqID = res, reqID
		},
	}
}

func (o *outcomes) total() int {
	return o.auth + o.unregistered + o.containers + o.share + o.revoked + o.err
}

func decode(t *testing.T, msg string) *outcomes {
	t.Helper()
	o := new(outcomes)
	DecodeIPCMsg(msg, o.callbacks())
	if n := o.total(); n != 1 {
		t.Fatalf("%d callbacks fired; want 1: %+v", n, o)
	}
	return o
}

func encodeResp(t *testing.T, reqID uint32, resp ipc.Response) string {
	t.Helper()
	msg, err := ipc.EncodeMsg(&ipc.RespMsg{ReqID: reqID, Resp: resp})
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestEncodeRequests(t *testing.T) {
	app := ipctest.AppExchangeInfo()
	containers := ipc.ContainerPermissions{"_public": ipc.Read, "_videos": ipc.Read | ipc.Insert}
	tests := []struct {
		name   string
		encode func() (Result, uint32, string)
		want   ipc.Request
	}{
		{
			"auth",
			func() (Result, uint32, string) {
				return EncodeAuthReq(&ipc.AuthReq{App: app, AppContainer: true, Containers: containers})
			},
			&ipc.AuthReq{App: app, AppContainer: true, Containers: containers},
		},
		{
			"containers",
			func() (Result, uint32, string) {
				return EncodeContainersReq(&ipc.ContainersReq{App: app, Containers: containers})
			},
			&ipc.ContainersReq{App: app, Containers: containers},
		},
		{
			"unregistered",
			func() (Result, uint32, string) { return EncodeUnregisteredReq([]byte{1, 10}) },
			&ipc.UnregisteredReq{ExtraData: []byte{1, 10}},
		},
		{
			"share mdata",
			func() (Result, uint32, string) {
				return EncodeShareMDataReq(&ipc.ShareMDataReq{App: app, MData: []ipc.ShareMData{{
					TypeTag: 15001,
					Name:    ipctest.XorName(),
					Perms:   ipc.PermissionSet{Allow: ipc.Read, Deny: ipc.Delete},
				}}})
			},
			nil, // Checked for success only; the name is random.
		},
	}
	for _, test := range tests {
		res, reqID, encoded := test.encode()
		if !res.OK() {
			t.Errorf("%s: %v", test.name, res)
			continue
		}
		if reqID == 0 || encoded == "" {
			t.Errorf("%s: reqID %d, encoded %q", test.name, reqID, encoded)
			continue
		}
		if !ipc.ReqIDInFlight(reqID) {
			t.Errorf("%s: request id %d not in flight", test.name, reqID)
		}
		msg, err := ipc.DecodeMsg(encoded)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		req, ok := msg.(*ipc.ReqMsg)
		if !ok {
			t.Errorf("%s: decoded %T", test.name, msg)
			continue
		}
		if req.ReqID != reqID {
			t.Errorf("%s: decoded id %d; want %d", test.name, req.ReqID, reqID)
		}
		if test.want != nil && !reflect.DeepEqual(req.Req, test.want) {
			t.Errorf("%s: decoded %#v; want %#v", test.name, req.Req, test.want)
		}
	}
}

func TestEncodeUniqueIDs(t *testing.T) {
	const n = 200
	seen := make(map[uint32]bool)
	for i := 0; i < n; i++ {
		res, reqID, _ := EncodeUnregisteredReq(nil)
		if !res.OK() {
			t.Fatal(res)
		}
		if seen[reqID] {
			t.Fatalf("request id %d issued twice", reqID)
		}
		seen[reqID] = true
	}
}

func TestEncodeFailure(t *testing.T) {
	res, reqID, encoded := EncodeAuthReq(&ipc.AuthReq{App: ipc.AppExchangeInfo{ID: "bad\x00id"}})
	expectCode(t, "NUL in app id", res, errors.CodeEncoding)
	if reqID != 0 || encoded != "" {
		t.Errorf("failed encode returned id %d and %q", reqID, encoded)
	}
	res, _, encoded = EncodeContainersReq(&ipc.ContainersReq{App: ipc.AppExchangeInfo{ID: "\xff"}})
	expectCode(t, "invalid UTF-8", res, errors.CodeEncoding)
	if encoded != "" {
		t.Errorf("failed encode returned %q", encoded)
	}
	res, _, encoded = EncodeAuthReq(&ipc.AuthReq{App: ipc.AppExchangeInfo{ID: "e\u0301"}})
	expectCode(t, "decomposed app id", res, errors.CodeEncoding)
	if encoded != "" {
		t.Errorf("failed encode returned %q", encoded)
	}
	res, _, encoded = EncodeContainersReq(&ipc.ContainersReq{
		App:        ipctest.AppExchangeInfo(),
		Containers: ipc.ContainerPermissions{"caf\u00e9": ipc.Read, "cafe\u0301": ipc.Insert},
	})
	expectCode(t, "equivalent container names", res, errors.CodeEncoding)
	if encoded != "" {
		t.Errorf("failed encode returned %q", encoded)
	}
}

func TestDecodeAuthGranted(t *testing.T) {
	g := ipctest.AuthGranted()
	_, reqID, _ := EncodeAuthReq(&ipc.AuthReq{App: ipctest.AppExchangeInfo()})
	o := decode(t, encodeResp(t, reqID, &ipc.AuthResp{Granted: g}))
	if o.auth != 1 {
		t.Fatalf("auth callback not called: %+v", o)
	}
	if o.reqID != reqID {
		t.Errorf("req id %d; want %d", o.reqID, reqID)
	}
	if ipc.ReqIDInFlight(reqID) {
		t.Errorf("request id %d still in flight after its response", reqID)
	}

	r := o.granted
	if !bytes.Equal(r.AppKeys.SignPk[:], g.AppKeys.SignPk) || !bytes.Equal(r.AppKeys.EncSk[:], g.AppKeys.EncSk) {
		t.Error("keys not carried over")
	}
	if r.AccessContainerInfo.ID != g.AccessContainerInfo.ID || r.AccessContainerInfo.Nonce != g.AccessContainerInfo.Nonce {
		t.Error("access container info not carried over")
	}
	if len(r.AccessContainer) != 2 || r.AccessContainer[0].Container != "_public" || r.AccessContainer[1].Container != "_videos" {
		t.Fatalf("access container = %+v", r.AccessContainer)
	}
	if r.AccessContainer[1].Perms != ipc.Read|ipc.Insert {
		t.Errorf("_videos perms = %v", r.AccessContainer[1].Perms)
	}
	cfg, err := ipc.DeserializeBootstrapConfig(r.BootstrapConfig)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Contacts, g.BootstrapConfig.Contacts) {
		t.Errorf("contacts = %q; want %q", cfg.Contacts, g.BootstrapConfig.Contacts)
	}
}

func TestBoundaryKeysUsable(t *testing.T) {
	g := ipctest.AuthGranted()
	o := decode(t, encodeResp(t, 5, &ipc.AuthResp{Granted: g}))
	k := &o.granted.AppKeys

	var nonce [24]byte
	sealed := secretbox.Seal(nil, []byte("hello"), &nonce, &k.EncKey)
	if opened, ok := secretbox.Open(nil, sealed, &nonce, &k.EncKey); !ok || string(opened) != "hello" {
		t.Error("secretbox round trip with boundary key failed")
	}

	peerPk, peerSk, err := box.GenerateKey(bytes.NewReader(ipctest.RandomBytes(64)))
	if err != nil {
		t.Fatal(err)
	}
	sealed = box.Seal(nil, []byte("hi"), &nonce, peerPk, &k.EncSk)
	if opened, ok := box.Open(nil, sealed, &nonce, &k.EncPk, peerSk); !ok || string(opened) != "hi" {
		t.Error("box round trip with boundary keys failed")
	}

	sig := ed25519.Sign(ed25519.PrivateKey(k.SignSk[:]), []byte("msg"))
	if !ed25519.Verify(ed25519.PublicKey(k.SignPk[:]), []byte("msg"), sig) {
		t.Error("signature with boundary keys does not verify")
	}
}

func TestDecodeBadAuthGranted(t *testing.T) {
	short := ipctest.AuthGranted()
	short.AppKeys.EncKey = short.AppKeys.EncKey[:16]
	mismatched := ipctest.AuthGranted()
	mismatched.AppKeys.EncPk = ipctest.RandomBytes(32)

	for _, g := range []*ipc.AuthGranted{short, mismatched} {
		o := decode(t, encodeResp(t, 42, &ipc.AuthResp{Granted: g}))
		if o.err != 1 {
			t.Fatalf("error callback not called: %+v", o)
		}
		if o.reqID != 42 {
			t.Errorf("req id %d; want 42", o.reqID)
		}
		expectCode(t, "bad credentials", o.res, errors.CodeEncoding)
	}
}

// A refusal whose error field is corrupt is reported as an Encoding
// error against its request.
func TestDecodeCorruptRefusal(t *testing.T) {
	m := &proto.Msg{
		Kind:  proto.MsgResp,
		ReqId: 42,
		Resp: &proto.Resp{
			Kind:  proto.KindContainers,
			Error: []byte{'e', 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
		},
	}
	b, err := pb.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	o := decode(t, "b"+base64.RawURLEncoding.EncodeToString(b))
	if o.err != 1 {
		t.Fatalf("error callback not called: %+v", o)
	}
	if o.reqID != 42 {
		t.Errorf("req id %d; want 42", o.reqID)
	}
	expectCode(t, "corrupt refusal", o.res, errors.CodeEncoding)
}

func TestDecodeUnregistered(t *testing.T) {
	cfg := &ipc.BootstrapConfig{Contacts: []string{"192.0.2.1:5483"}}
	o := decode(t, encodeResp(t, 7, &ipc.UnregisteredResp{Config: cfg}))
	if o.unregistered != 1 || o.reqID != 7 {
		t.Fatalf("outcome %+v", o)
	}
	got, err := ipc.DeserializeBootstrapConfig(o.config)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("config = %+v; want %+v", got, cfg)
	}

	// A config that cannot be serialized is reported with the request id.
	o = decode(t, encodeResp(t, 8, &ipc.UnregisteredResp{Config: &ipc.BootstrapConfig{Contacts: []string{""}}}))
	if o.err != 1 || o.reqID != 8 {
		t.Fatalf("outcome %+v", o)
	}
	expectCode(t, "bad bootstrap config", o.res, errors.CodeEncoding)
}

func TestDecodeExclusivity(t *testing.T) {
	o := decode(t, encodeResp(t, 11, &ipc.ContainersResp{}))
	if o.containers != 1 || o.reqID != 11 {
		t.Errorf("containers granted: %+v", o)
	}
	o = decode(t, encodeResp(t, 12, &ipc.ContainersResp{Err: errors.E(errors.ContainersDenied)}))
	if o.err != 1 || o.reqID != 12 {
		t.Errorf("containers denied: %+v", o)
	}
	expectCode(t, "containers denied", o.res, errors.CodeContainersDenied)

	o = decode(t, encodeResp(t, 13, &ipc.ShareMDataResp{}))
	if o.share != 1 || o.reqID != 13 {
		t.Errorf("share granted: %+v", o)
	}
	o = decode(t, encodeResp(t, 14, &ipc.ShareMDataResp{Err: errors.E(errors.ShareMDataDenied)}))
	expectCode(t, "share denied", o.res, errors.CodeShareMDataDenied)

	o = decode(t, encodeResp(t, 15, &ipc.AuthResp{Err: errors.E(errors.AuthDenied)}))
	if o.err != 1 || o.reqID != 15 {
		t.Errorf("auth denied: %+v", o)
	}
	expectCode(t, "auth denied", o.res, errors.CodeAuthDenied)
}

func TestDecodeRevoked(t *testing.T) {
	msg, err := ipc.EncodeMsg(&ipc.RevokedMsg{AppID: "net.example.app"})
	if err != nil {
		t.Fatal(err)
	}
	o := decode(t, msg)
	if o.revoked != 1 || o.appID != "net.example.app" {
		t.Errorf("outcome %+v", o)
	}
}

func TestDecodeInvalidMessages(t *testing.T) {
	_, reqID, encoded := EncodeUnregisteredReq([]byte{1, 10})
	o := decode(t, encoded)
	if o.err != 1 || o.reqID != reqID {
		t.Errorf("request envelope: %+v", o)
	}
	expectCode(t, "request envelope", o.res, errors.CodeInvalidMessage)

	msg, err := ipc.EncodeMsg(&ipc.ErrMsg{Err: errors.E(errors.Other, errors.Str("oops"))})
	if err != nil {
		t.Fatal(err)
	}
	o = decode(t, msg)
	expectCode(t, "error envelope", o.res, errors.CodeInvalidMessage)

	for _, garbage := range []string{"", "not a message", "b!!!", "b" + "AAAA"} {
		o = decode(t, garbage)
		if o.err != 1 || o.reqID != 0 {
			t.Errorf("%q: %+v", garbage, o)
		}
		if o.res.OK() {
			t.Errorf("%q: decoded successfully", garbage)
		}
	}
}

func TestDecodeCallbackPanic(t *testing.T) {
	o := new(outcomes)
	cb := o.callbacks()
	cb.OnContainers = func(uint32) {
		o.containers++
		panic("callback")
	}
	DecodeIPCMsg(encodeResp(t, 21, &ipc.ContainersResp{}), cb)
	if o.containers != 1 || o.err != 0 {
		t.Errorf("outcome %+v; want containers only", o)
	}
}

func TestResult(t *testing.T) {
	if !ResultOK.OK() || ResultOK.String() != "ok" {
		t.Errorf("ResultOK = %+v", ResultOK)
	}
	res := catchUnwind("ffi.test", func() error { panic("boom") })
	expectCode(t, "panic", res, errors.CodeInternal)
	res = catchUnwind("ffi.test", func() error { return errors.E(errors.NoSuchEntry) })
	expectCode(t, "error", res, errors.CodeNoSuchEntry)
	if res.Description == "" {
		t.Error("empty description")
	}
}

func TestInit(t *testing.T) {
	defer ipc.SetDefaultRegistry(ipc.NewRegistry(ipc.DefaultInFlight))
	defer log.SetLevel(log.GetLevel())

	cfg := config.SetInFlight(config.SetLogLevel(config.New(), "error"), 8)
	if res := Init(cfg); !res.OK() {
		t.Fatal(res)
	}
	if got := log.GetLevel(); got != "error" {
		t.Errorf("log level %q; want error", got)
	}
	res := Init(config.SetLogLevel(config.New(), "loud"))
	expectCode(t, "bad log level", res, errors.CodeInvalidArgument)
}
