// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffi

import (
	"bytes"
	"crypto/subtle"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/ed25519"

	"safeapp.io/errors"
	"safeapp.io/ipc"
)

// KeySize is the size of the box and secretbox keys held by AppKeys.
const KeySize = 32

// AppKeys is the fixed-size boundary layout of ipc.AppKeys.
type AppKeys struct {
	OwnerKey [ed25519.PublicKeySize]byte
	EncKey   [KeySize]byte
	SignPk   [ed25519.PublicKeySize]byte
	SignSk   [ed25519.PrivateKeySize]byte
	EncPk    [KeySize]byte
	EncSk    [KeySize]byte
}

// AccessContInfo is the boundary layout of ipc.AccessContInfo.
type AccessContInfo struct {
	ID    [32]byte
	Tag   uint64
	Nonce [24]byte
}

// ContainerAccess is one entry of the access container, flattened.
type ContainerAccess struct {
	Container string
	Name      [32]byte
	TypeTag   uint64
	Perms     ipc.Permissions
}

// AuthGranted is the boundary layout of ipc.AuthGranted. The bootstrap
// config is carried serialized and the access container as a slice sorted
// by container name.
type AuthGranted struct {
	AppKeys             AppKeys
	BootstrapConfig     []byte
	AccessContainerInfo AccessContInfo
	AccessContainer     []ContainerAccess
}

// copyKey copies src into dst, failing unless the sizes agree.
func copyKey(dst []byte, src []byte, name string) error {
	if len(src) != len(dst) {
		return errors.Errorf("%s is %d bytes, want %d", name, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}

func appKeysToRepr(k *ipc.AppKeys) (AppKeys, error) {
	var r AppKeys
	for _, c := range []struct {
		dst  []byte
		src  []byte
		name string
	}{
		{r.OwnerKey[:], k.OwnerKey, "owner key"},
		{r.EncKey[:], k.EncKey, "encryption key"},
		{r.SignPk[:], k.SignPk, "public signing key"},
		{r.SignSk[:], k.SignSk, "secret signing key"},
		{r.EncPk[:], k.EncPk, "public encryption key"},
		{r.EncSk[:], k.EncSk, "secret encryption key"},
	} {
		if err := copyKey(c.dst, c.src, c.name); err != nil {
			return AppKeys{}, err
		}
	}
	// The halves of each key pair must belong together.
	signPk := ed25519.PrivateKey(k.SignSk).Public().(ed25519.PublicKey)
	if !bytes.Equal(signPk, k.SignPk) {
		return AppKeys{}, errors.Str("signing key pair mismatch")
	}
	encPk, err := curve25519.X25519(k.EncSk, curve25519.Basepoint)
	if err != nil {
		return AppKeys{}, errors.Errorf("encryption key: %v", err)
	}
	if subtle.ConstantTimeCompare(encPk, k.EncPk) != 1 {
		return AppKeys{}, errors.Str("encryption key pair mismatch")
	}
	return r, nil
}

// authGrantedToRepr converts g into its boundary layout.
func authGrantedToRepr(g *ipc.AuthGranted) (*AuthGranted, error) {
	const op errors.Op = "ffi.authGrantedToRepr"
	if g == nil {
		return nil, errors.E(op, errors.Encoding, errors.Str("missing credentials"))
	}
	keys, err := appKeysToRepr(&g.AppKeys)
	if err != nil {
		return nil, errors.E(op, errors.Encoding, err)
	}
	cfg, err := ipc.SerializeBootstrapConfig(&g.BootstrapConfig)
	if err != nil {
		return nil, errors.E(op, err)
	}
	r := &AuthGranted{
		AppKeys:         keys,
		BootstrapConfig: cfg,
		AccessContainerInfo: AccessContInfo{
			ID:    g.AccessContainerInfo.ID,
			Tag:   g.AccessContainerInfo.Tag,
			Nonce: g.AccessContainerInfo.Nonce,
		},
	}
	for _, name := range g.AccessContainerEntry.Names() {
		ca := g.AccessContainerEntry[name]
		r.AccessContainer = append(r.AccessContainer, ContainerAccess{
			Container: name,
			Name:      ca.Name,
			TypeTag:   ca.TypeTag,
			Perms:     ca.Perms,
		})
	}
	return r, nil
}
