// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

// Error codes reported across the boundary. Zero means success.
// IPC grant refusals occupy the -200 block; object cache errors
// the -1000 block.
const (
	CodeOK                     int32 = 0
	CodeUnexpected             int32 = -1
	CodeInvalidArgument        int32 = -2
	CodeIO                     int32 = -3
	CodeEncoding               int32 = -4
	CodeDisconnected           int32 = -5
	CodeInternal               int32 = -6
	CodeAuthDenied             int32 = -200
	CodeContainersDenied       int32 = -201
	CodeInvalidMessage         int32 = -202
	CodeAlreadyAuthorised      int32 = -203
	CodeUnknownApp             int32 = -204
	CodeShareMDataDenied       int32 = -206
	CodeInvalidOwner           int32 = -207
	CodeIncompatibleMockStatus int32 = -208
	CodeInvalidHandle          int32 = -1001
	CodeNoSuchEntry            int32 = -1002
)

var codes = map[Kind]int32{
	Other:                  CodeUnexpected,
	Invalid:                CodeInvalidArgument,
	IO:                     CodeIO,
	Encoding:               CodeEncoding,
	InvalidMessage:         CodeInvalidMessage,
	InvalidHandle:          CodeInvalidHandle,
	NoSuchEntry:            CodeNoSuchEntry,
	Disconnected:           CodeDisconnected,
	Internal:               CodeInternal,
	AuthDenied:             CodeAuthDenied,
	ContainersDenied:       CodeContainersDenied,
	ShareMDataDenied:       CodeShareMDataDenied,
	AlreadyAuthorised:      CodeAlreadyAuthorised,
	UnknownApp:             CodeUnknownApp,
	InvalidOwner:           CodeInvalidOwner,
	IncompatibleMockStatus: CodeIncompatibleMockStatus,
}

// Code returns the boundary error code for err.
// A nil error has code CodeOK; an error that is not an *Error,
// or whose Kind is unknown, has code CodeUnexpected.
func Code(err error) int32 {
	if err == nil {
		return CodeOK
	}
	if c, ok := codes[KindOf(err)]; ok {
		return c
	}
	return CodeUnexpected
}

// KindForCode is the inverse of Code. Unknown codes map to Other.
func KindForCode(code int32) Kind {
	for k, c := range codes {
		if c == code {
			return k
		}
	}
	return Other
}
