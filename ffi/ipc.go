// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffi

import (
	"safeapp.io/errors"
	"safeapp.io/ipc"
	"safeapp.io/log"
)

// encodeReq allocates a request id, wraps req in a request envelope and
// encodes it. On failure the id is released and no output is returned.
func encodeReq(op errors.Op, req ipc.Request) (Result, uint32, string) {
	var (
		reqID   uint32
		encoded string
	)
	res := catchUnwind(op, func() error {
		id := ipc.GenReqID()
		s, err := ipc.EncodeMsg(&ipc.ReqMsg{ReqID: id, Req: req})
		if err != nil {
			ipc.CompleteReqID(id)
			return errors.E(op, err)
		}
		reqID, encoded = id, s
		return nil
	})
	if !res.OK() {
		return res, 0, ""
	}
	return res, reqID, encoded
}

// EncodeAuthReq encodes an authorisation request. It returns the request
// id to match against the response and the encoded message.
func EncodeAuthReq(req *ipc.AuthReq) (Result, uint32, string) {
	return encodeReq("ffi.EncodeAuthReq", req)
}

// EncodeContainersReq encodes a request for access to further containers.
func EncodeContainersReq(req *ipc.ContainersReq) (Result, uint32, string) {
	return encodeReq("ffi.EncodeContainersReq", req)
}

// EncodeUnregisteredReq encodes a request for unregistered access to the
// network. The extra data is passed to the authenticator verbatim.
func EncodeUnregisteredReq(extraData []byte) (Result, uint32, string) {
	return encodeReq("ffi.EncodeUnregisteredReq", &ipc.UnregisteredReq{ExtraData: extraData})
}

// EncodeShareMDataReq encodes a request to share mutable data items.
func EncodeShareMDataReq(req *ipc.ShareMDataReq) (Result, uint32, string) {
	return encodeReq("ffi.EncodeShareMDataReq", req)
}

// DecodeCallbacks are the outcomes of DecodeIPCMsg. Exactly one of them is
// called per decode, provided it is non-nil. Byte slices and pointers
// passed to a callback are valid only for the duration of the call.
type DecodeCallbacks struct {
	// OnAuth receives the credentials of a granted authorisation.
	OnAuth func(reqID uint32, granted *AuthGranted)
	// OnUnregistered receives the serialized bootstrap config of a
	// granted unregistered access request.
	OnUnregistered func(reqID uint32, bootstrapConfig []byte)
	// OnContainers reports a granted containers request.
	OnContainers func(reqID uint32)
	// OnShareMData reports a granted share request.
	OnShareMData func(reqID uint32)
	// OnRevoked reports that the app's access has been revoked.
	OnRevoked func(appID string)
	// OnErr reports a refused request or a message that could not be
	// decoded or delivered. The request id is zero when the message
	// was too malformed to carry one.
	OnErr func(res Result, reqID uint32)
}

// DecodeIPCMsg decodes an encoded message received from the authenticator
// and dispatches it to the matching callback. Only responses and
// revocations are valid here; a request or error envelope is reported
// through OnErr as InvalidMessage. A successfully decoded response
// completes its request id.
func DecodeIPCMsg(msg string, cb DecodeCallbacks) {
	const op errors.Op = "ffi.DecodeIPCMsg"

	var (
		reqID uint32
		fired bool
	)
	onErr := func(err error) {
		fired = true
		if cb.OnErr != nil {
			cb.OnErr(resultOf(err), reqID)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			err := panicked(op, r)
			if fired {
				// A callback panicked; it has had its turn.
				return
			}
			onErr(err)
		}
	}()

	m, err := ipc.DecodeMsg(msg)
	if err != nil {
		onErr(errors.E(op, err))
		return
	}
	switch m := m.(type) {
	case *ipc.RespMsg:
		reqID = m.ReqID
		ipc.CompleteReqID(reqID)
		dispatchResp(op, reqID, m.Resp, &cb, &fired, onErr)
	case *ipc.RevokedMsg:
		fired = true
		if cb.OnRevoked != nil {
			cb.OnRevoked(m.AppID)
		}
	case *ipc.ReqMsg:
		reqID = m.ReqID
		onErr(errors.E(op, errors.InvalidMessage, errors.Str("request received where a response was expected")))
	case *ipc.ErrMsg:
		log.Debug.Printf("%s: error envelope: %v", op, m.Err)
		onErr(errors.E(op, errors.InvalidMessage, m.Err))
	default:
		onErr(errors.E(op, errors.InvalidMessage, errors.Errorf("unexpected message %T", m)))
	}
}

// dispatchResp delivers a decoded response to its callback, converting
// the payload to its boundary layout first. Conversion failures go to
// onErr with the request id.
func dispatchResp(op errors.Op, reqID uint32, resp ipc.Response, cb *DecodeCallbacks, fired *bool, onErr func(error)) {
	if err := resp.Result(); err != nil {
		onErr(err)
		return
	}
	switch resp := resp.(type) {
	case *ipc.AuthResp:
		g, err := authGrantedToRepr(resp.Granted)
		if err != nil {
			onErr(errors.E(op, err))
			return
		}
		*fired = true
		if cb.OnAuth != nil {
			cb.OnAuth(reqID, g)
		}
	case *ipc.UnregisteredResp:
		b, err := ipc.SerializeBootstrapConfig(resp.Config)
		if err != nil {
			onErr(errors.E(op, err))
			return
		}
		*fired = true
		if cb.OnUnregistered != nil {
			cb.OnUnregistered(reqID, b)
		}
	case *ipc.ContainersResp:
		*fired = true
		if cb.OnContainers != nil {
			cb.OnContainers(reqID)
		}
	case *ipc.ShareMDataResp:
		*fired = true
		if cb.OnShareMData != nil {
			cb.OnShareMData(reqID)
		}
	default:
		onErr(errors.E(op, errors.InvalidMessage, errors.Errorf("unexpected response %T", resp)))
	}
}
