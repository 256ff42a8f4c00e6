// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ipctest provides random fixtures for tests of IPC messages.
package ipctest // import "safeapp.io/ipc/ipctest"

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/nacl/box"

	"safeapp.io/ipc"
)

// RandomBytes returns n random bytes. It panics if the system
// random source fails.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("ipctest: reading random bytes: %v", err))
	}
	return b
}

// RandomString returns a random hex string of n bytes of entropy.
func RandomString(n int) string {
	return hex.EncodeToString(RandomBytes(n))
}

// XorName returns a random network address.
func XorName() ipc.XorName {
	var n ipc.XorName
	copy(n[:], RandomBytes(len(n)))
	return n
}

// AppExchangeInfo returns a random application identity.
func AppExchangeInfo() ipc.AppExchangeInfo {
	return ipc.AppExchangeInfo{
		ID:     RandomString(10),
		Name:   RandomString(10),
		Vendor: RandomString(10),
	}
}

// AppKeys generates fresh key material for an application owned by owner.
func AppKeys(owner ed25519.PublicKey) ipc.AppKeys {
	signPk, signSk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("ipctest: generating signing key: %v", err))
	}
	encPk, encSk, err := box.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("ipctest: generating box key: %v", err))
	}
	return ipc.AppKeys{
		OwnerKey: owner,
		EncKey:   RandomBytes(32),
		SignPk:   signPk,
		SignSk:   signSk,
		EncPk:    encPk[:],
		EncSk:    encSk[:],
	}
}

// AuthGranted returns a credential bundle with fresh keys and a
// random access container.
func AuthGranted() *ipc.AuthGranted {
	owner, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("ipctest: generating owner key: %v", err))
	}
	var nonce ipc.Nonce
	copy(nonce[:], RandomBytes(len(nonce)))
	return &ipc.AuthGranted{
		AppKeys: AppKeys(owner),
		BootstrapConfig: ipc.BootstrapConfig{
			Contacts: []string{"192.0.2.10:5483", "192.0.2.11:5483"},
		},
		AccessContainerInfo: ipc.AccessContInfo{
			ID:    XorName(),
			Tag:   15000,
			Nonce: nonce,
		},
		AccessContainerEntry: ipc.AccessContainerEntry{
			"_public": {Name: XorName(), TypeTag: 15000, Perms: ipc.Read},
			"_videos": {Name: XorName(), TypeTag: 15000, Perms: ipc.Read | ipc.Insert},
		},
	}
}
