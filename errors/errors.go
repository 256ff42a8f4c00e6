// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error handling used by all safeapp software.
// Every error that crosses the application boundary is reduced to a
// numeric code and a description; see Code.
package errors // import "safeapp.io/errors"

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"
	"runtime"

	"safeapp.io/log"
)

// Error is the type that implements the error interface.
// It contains a number of fields, each of different type.
// An Error value may leave some values unset.
type Error struct {
	// Op is the operation being performed, usually the name of the
	// function being invoked (EncodeMsg, Get, Free, etc.).
	Op Op
	// Kind is the class of error, such as an invalid handle,
	// or "Other" if its class is unknown or irrelevant.
	Kind Kind
	// The underlying error that triggered this one, if any.
	Err error
}

var (
	_       error                      = (*Error)(nil)
	_       encoding.BinaryUnmarshaler = (*Error)(nil)
	_       encoding.BinaryMarshaler   = (*Error)(nil)
	zeroErr Error
)

// Op describes an operation, usually as the package and method,
// such as "objectcache.Get".
type Op string

// Separator is the string used to separate nested errors. By
// default, to make errors easier on the eye, nested errors are
// indented on a new line. A caller that hands descriptions across
// the boundary may prefer a single line, perhaps ":: ".
var Separator = ":\n\t"

// Kind defines the kind of error this is. Each kind maps onto the
// error code reported to the other side of the boundary.
type Kind uint8

// Kinds of errors.
//
// The values of the error kinds are common between both
// clients and servers. Do not reorder this list or remove
// any items since that will change their values.
// New items must be added only to the end.
const (
	Other                  Kind = iota // Unclassified error. This value is not printed in the error message.
	Invalid                            // Invalid argument or configuration.
	IO                                 // External I/O error such as a missing file.
	Encoding                           // Payload could not be serialized or deserialized.
	InvalidMessage                     // Envelope of an unexpected variant.
	InvalidHandle                      // Handle absent, of the wrong kind, or freed.
	NoSuchEntry                        // Key not present.
	Disconnected                       // Session no longer accepts operations.
	Internal                           // Recovered internal fault.
	AuthDenied                         // Authorization was refused.
	ContainersDenied                   // Container access was refused.
	ShareMDataDenied                   // Sharing mutable data was refused.
	AlreadyAuthorised                  // App is already authorised.
	UnknownApp                         // App is not registered.
	InvalidOwner                       // Mutable data is not owned by the user.
	IncompatibleMockStatus             // Peer was built with a different mock setting.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Invalid:
		return "invalid argument"
	case IO:
		return "I/O error"
	case Encoding:
		return "encoding error"
	case InvalidMessage:
		return "invalid message"
	case InvalidHandle:
		return "invalid handle"
	case NoSuchEntry:
		return "no such entry"
	case Disconnected:
		return "disconnected"
	case Internal:
		return "internal fault"
	case AuthDenied:
		return "authorisation denied"
	case ContainersDenied:
		return "containers access denied"
	case ShareMDataDenied:
		return "mutable data sharing denied"
	case AlreadyAuthorised:
		return "app already authorised"
	case UnknownApp:
		return "unknown app"
	case InvalidOwner:
		return "invalid owner"
	case IncompatibleMockStatus:
		return "incompatible mock status"
	}
	return "unknown error kind"
}

// E builds an error value from its arguments.
// There must be at least one argument or E panics.
// The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
//
// The types are:
//	errors.Op
//		The operation being performed, usually the method
//		being invoked (Get, Insert, etc.).
//	string
//		Treated as an error message and assigned to the
//		Err field after a call to errors.Str. To avoid a common
//		class of misuse, if the string contains an @, it will be
//		treated as an error message and not as an operation.
//	errors.Kind
//		The class of error, such as an invalid handle.
//	error
//		The underlying error that triggered this one.
//
// If the error is printed, only those items that have been
// set to non-zero values will appear in the result.
//
// If Kind is not specified or Other, we set it to the Kind of
// the underlying error.
//
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("call to errors.E with no arguments")
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Op:
			e.Op = arg
		case string:
			e.Err = Str(arg)
		case Kind:
			e.Kind = arg
		case *Error:
			// Make a copy
			copy := *arg
			e.Err = &copy
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Printf("errors.E: bad call from %s:%d: %v", file, line, args)
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}

	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	// The previous error was also one of ours. Suppress duplications
	// so the message won't contain the same kind twice.
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	// If this error has Kind unset or Other, pull up the inner one.
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

// pad appends str to the buffer if the buffer already has some data.
func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) isZero() bool {
	return e.Op == "" && e.Kind == 0 && e.Err == nil
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Op != "" {
		b.WriteString(string(e.Op))
	}
	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		// Indent on new line if we are cascading non-empty errors.
		if prevErr, ok := e.Err.(*Error); ok {
			if !prevErr.isZero() {
				pad(b, Separator)
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Unwrap returns the underlying error, so the standard library's
// errors.Is and errors.As see through an *Error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Recreate the errors.New functionality of the standard Go errors package
// so we can create simple text errors when needed.

// Str returns an error that formats as the given text. It is intended to
// be used as the error-typed argument to the E function.
func Str(text string) error {
	return &errorString{text}
}

// errorString is a trivial implementation of error.
type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf, but allows clients to import only this
// package for all error handling.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}

// MarshalAppend marshals err into a byte slice. The result is appended to b,
// which may be nil.
// It returns the argument slice unchanged if the error is nil.
func (e *Error) MarshalAppend(b []byte) []byte {
	if e == nil {
		return b
	}
	b = appendString(b, string(e.Op))
	var tmp [16]byte // For use by PutVarint.
	N := binary.PutVarint(tmp[:], int64(e.Kind))
	b = append(b, tmp[:N]...)
	b = MarshalErrorAppend(e.Err, b)
	return b
}

// MarshalBinary marshals its receiver into a byte slice, which it returns.
// It returns nil if the error is nil. The returned error is always nil.
func (e *Error) MarshalBinary() ([]byte, error) {
	return e.MarshalAppend(nil), nil
}

// MarshalErrorAppend marshals an arbitrary error into a byte slice.
// The result is appended to b, which may be nil.
// It returns the argument slice unchanged if the error is nil.
// If the error is not an *Error, it just records the result of err.Error().
// Otherwise it encodes the full Error struct.
func MarshalErrorAppend(err error, b []byte) []byte {
	if err == nil {
		return b
	}
	if e, ok := err.(*Error); ok {
		// This is an errors.Error. Mark it as such.
		b = append(b, 'E')
		return e.MarshalAppend(b)
	}
	// Ordinary error.
	b = append(b, 'e')
	b = appendString(b, err.Error())
	return b
}

// MarshalError marshals an arbitrary error and returns the byte slice.
// If the error is nil, it returns nil.
// If the error is not an *Error, it just records the result of err.Error().
// Otherwise it encodes the full Error struct.
func MarshalError(err error) []byte {
	return MarshalErrorAppend(err, nil)
}

// UnmarshalBinary unmarshals the byte slice into the receiver, which must be non-nil.
// It returns an error of kind Encoding if b was not produced by MarshalBinary.
func (e *Error) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	data, b, ok := getBytes(b)
	if !ok {
		return errCorrupt("bad op")
	}
	e.Op = Op(data)
	k, N := binary.Varint(b)
	if N <= 0 {
		return errCorrupt("bad kind")
	}
	e.Kind = Kind(k)
	b = b[N:]
	if len(b) == 0 {
		e.Err = nil
		return nil
	}
	err, cerr := unmarshalError(b)
	if cerr != nil {
		return cerr
	}
	e.Err = err
	return nil
}

// UnmarshalError unmarshals the byte slice into an error value.
// The byte slice must have been created by MarshalError or
// MarshalErrorAppend.
// If the encoded error was of type *Error, the returned error value
// will have that underlying type. Otherwise it will be just a simple
// value that implements the error interface.
// If the data is corrupt, the returned error has kind Encoding and
// describes the corruption rather than the encoded error.
func UnmarshalError(b []byte) error {
	err, cerr := unmarshalError(b)
	if cerr != nil {
		log.Printf("Unmarshal error: %v", cerr)
		return cerr
	}
	return err
}

func unmarshalError(b []byte) (value, corrupt error) {
	if len(b) == 0 {
		return nil, nil
	}
	code := b[0]
	b = b[1:]
	switch code {
	case 'e':
		// Plain error.
		data, rest, ok := getBytes(b)
		if !ok {
			return nil, errCorrupt("bad string")
		}
		if len(rest) != 0 {
			return nil, errCorrupt("trailing bytes")
		}
		return Str(string(data)), nil
	case 'E':
		// Error value.
		var err Error
		if cerr := err.UnmarshalBinary(b); cerr != nil {
			return nil, cerr
		}
		return &err, nil
	}
	return nil, errCorrupt(fmt.Sprintf("unknown error code %q", code))
}

func errCorrupt(what string) error {
	return &Error{Kind: Encoding, Err: Str("corrupt error data: " + what)}
}

func appendString(b []byte, str string) []byte {
	var tmp [16]byte // For use by PutUvarint.
	N := binary.PutUvarint(tmp[:], uint64(len(str)))
	b = append(b, tmp[:N]...)
	b = append(b, str...)
	return b
}

// getBytes unmarshals the byte slice at b (uvarint count followed by bytes)
// and returns the slice followed by the remaining bytes.
// If the count is malformed or exceeds the data, ok is false.
func getBytes(b []byte) (data, remaining []byte, ok bool) {
	u, N := binary.Uvarint(b)
	if N <= 0 || u > uint64(len(b)-N) {
		return nil, nil, false
	}
	n := N + int(u)
	return b[N:n], b[n:], true
}

// Match compares its two error arguments. It can be used to check
// for expected errors in tests. Both arguments must have underlying
// type *Error or Match will return false. Otherwise it returns true
// iff every non-zero element of the first error is equal to the
// corresponding element of the second.
// If the Err field is a *Error, Match recurs on that field;
// otherwise it compares the strings returned by the Error methods.
// Elements that are in the second argument but not present in
// the first are ignored.
//
// For example,
//	Match(errors.E(errors.Op("objectcache.Get"), errors.InvalidHandle), err)
// tests whether err is an Error with Kind=InvalidHandle and Op=objectcache.Get.
func Match(err1, err2 error) bool {
	e1, ok := err1.(*Error)
	if !ok {
		return false
	}
	e2, ok := err2.(*Error)
	if !ok {
		return false
	}
	if e1.Op != "" && e2.Op != e1.Op {
		return false
	}
	if e1.Kind != Other && e2.Kind != e1.Kind {
		return false
	}
	if e1.Err != nil {
		if _, ok := e1.Err.(*Error); ok {
			return Match(e1.Err, e2.Err)
		}
		if e2.Err == nil || e2.Err.Error() != e1.Err.Error() {
			return false
		}
	}
	return true
}

// Is reports whether err is an *Error of the given Kind.
// If err is nil then Is returns false.
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// KindOf returns the Kind of err, looking through nested *Error
// values whose Kind is Other. Errors not of type *Error are Other.
func KindOf(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return Other
	}
	if e.Kind != Other || e.Err == nil {
		return e.Kind
	}
	return KindOf(e.Err)
}
