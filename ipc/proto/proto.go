// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package proto contains the protocol buffer messages that carry IPC
// envelopes on the wire. The messages mirror the types in package ipc;
// the conversions between the two live in package ipc.
package proto // import "safeapp.io/ipc/proto"

import (
	pb "github.com/golang/protobuf/proto"
)

// Msg kinds.
const (
	MsgReq int32 = iota + 1
	MsgResp
	MsgRevoked
	MsgErr
)

// Request and response kinds, shared by Req and Resp.
const (
	KindAuth int32 = iota + 1
	KindContainers
	KindUnregistered
	KindShareMData
)

// Msg is the outermost envelope.
type Msg struct {
	Kind  int32  `protobuf:"varint,1,opt,name=kind,proto3" json:"kind,omitempty"`
	ReqId uint32 `protobuf:"varint,2,opt,name=req_id,json=reqId,proto3" json:"req_id,omitempty"`
	Req   *Req   `protobuf:"bytes,3,opt,name=req,proto3" json:"req,omitempty"`
	Resp  *Resp  `protobuf:"bytes,4,opt,name=resp,proto3" json:"resp,omitempty"`
	AppId string `protobuf:"bytes,5,opt,name=app_id,json=appId,proto3" json:"app_id,omitempty"`
	Error []byte `protobuf:"bytes,6,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *Msg) Reset()         { *m = Msg{} }
func (m *Msg) String() string { return pb.CompactTextString(m) }
func (*Msg) ProtoMessage()    {}

// Req is a request payload. Which fields are set depends on Kind.
type Req struct {
	Kind         int32                   `protobuf:"varint,1,opt,name=kind,proto3" json:"kind,omitempty"`
	App          *AppExchangeInfo        `protobuf:"bytes,2,opt,name=app,proto3" json:"app,omitempty"`
	AppContainer bool                    `protobuf:"varint,3,opt,name=app_container,json=appContainer,proto3" json:"app_container,omitempty"`
	Containers   []*ContainerPermissions `protobuf:"bytes,4,rep,name=containers,proto3" json:"containers,omitempty"`
	ExtraData    []byte                  `protobuf:"bytes,5,opt,name=extra_data,json=extraData,proto3" json:"extra_data,omitempty"`
	Mdata        []*ShareMData           `protobuf:"bytes,6,rep,name=mdata,proto3" json:"mdata,omitempty"`
}

func (m *Req) Reset()         { *m = Req{} }
func (m *Req) String() string { return pb.CompactTextString(m) }
func (*Req) ProtoMessage()    {}

// AppExchangeInfo identifies the requesting application.
type AppExchangeInfo struct {
	Id     string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Scope  string `protobuf:"bytes,2,opt,name=scope,proto3" json:"scope,omitempty"`
	Name   string `protobuf:"bytes,3,opt,name=name,proto3" json:"name,omitempty"`
	Vendor string `protobuf:"bytes,4,opt,name=vendor,proto3" json:"vendor,omitempty"`
}

func (m *AppExchangeInfo) Reset()         { *m = AppExchangeInfo{} }
func (m *AppExchangeInfo) String() string { return pb.CompactTextString(m) }
func (*AppExchangeInfo) ProtoMessage()    {}

// ContainerPermissions is one entry of a container permission map.
type ContainerPermissions struct {
	Name  string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Perms uint32 `protobuf:"varint,2,opt,name=perms,proto3" json:"perms,omitempty"`
}

func (m *ContainerPermissions) Reset()         { *m = ContainerPermissions{} }
func (m *ContainerPermissions) String() string { return pb.CompactTextString(m) }
func (*ContainerPermissions) ProtoMessage()    {}

// ShareMData names one mutable data item to share.
type ShareMData struct {
	TypeTag uint64 `protobuf:"varint,1,opt,name=type_tag,json=typeTag,proto3" json:"type_tag,omitempty"`
	Name    []byte `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Allow   uint32 `protobuf:"varint,3,opt,name=allow,proto3" json:"allow,omitempty"`
	Deny    uint32 `protobuf:"varint,4,opt,name=deny,proto3" json:"deny,omitempty"`
}

func (m *ShareMData) Reset()         { *m = ShareMData{} }
func (m *ShareMData) String() string { return pb.CompactTextString(m) }
func (*ShareMData) ProtoMessage()    {}

// Resp is a response payload. Error, if set, is an errors.MarshalError
// encoding and the other payload fields are empty.
type Resp struct {
	Kind            int32            `protobuf:"varint,1,opt,name=kind,proto3" json:"kind,omitempty"`
	Error           []byte           `protobuf:"bytes,2,opt,name=error,proto3" json:"error,omitempty"`
	AuthGranted     *AuthGranted     `protobuf:"bytes,3,opt,name=auth_granted,json=authGranted,proto3" json:"auth_granted,omitempty"`
	BootstrapConfig *BootstrapConfig `protobuf:"bytes,4,opt,name=bootstrap_config,json=bootstrapConfig,proto3" json:"bootstrap_config,omitempty"`
}

func (m *Resp) Reset()         { *m = Resp{} }
func (m *Resp) String() string { return pb.CompactTextString(m) }
func (*Resp) ProtoMessage()    {}

// AuthGranted is the credential bundle returned for a successful Auth request.
type AuthGranted struct {
	AppKeys             *AppKeys           `protobuf:"bytes,1,opt,name=app_keys,json=appKeys,proto3" json:"app_keys,omitempty"`
	BootstrapConfig     *BootstrapConfig   `protobuf:"bytes,2,opt,name=bootstrap_config,json=bootstrapConfig,proto3" json:"bootstrap_config,omitempty"`
	AccessContainerInfo *AccessContInfo    `protobuf:"bytes,3,opt,name=access_container_info,json=accessContainerInfo,proto3" json:"access_container_info,omitempty"`
	AccessContainer     []*ContainerAccess `protobuf:"bytes,4,rep,name=access_container,json=accessContainer,proto3" json:"access_container,omitempty"`
}

func (m *AuthGranted) Reset()         { *m = AuthGranted{} }
func (m *AuthGranted) String() string { return pb.CompactTextString(m) }
func (*AuthGranted) ProtoMessage()    {}

// AppKeys holds the application's key material.
type AppKeys struct {
	OwnerKey []byte `protobuf:"bytes,1,opt,name=owner_key,json=ownerKey,proto3" json:"owner_key,omitempty"`
	EncKey   []byte `protobuf:"bytes,2,opt,name=enc_key,json=encKey,proto3" json:"enc_key,omitempty"`
	SignPk   []byte `protobuf:"bytes,3,opt,name=sign_pk,json=signPk,proto3" json:"sign_pk,omitempty"`
	SignSk   []byte `protobuf:"bytes,4,opt,name=sign_sk,json=signSk,proto3" json:"sign_sk,omitempty"`
	EncPk    []byte `protobuf:"bytes,5,opt,name=enc_pk,json=encPk,proto3" json:"enc_pk,omitempty"`
	EncSk    []byte `protobuf:"bytes,6,opt,name=enc_sk,json=encSk,proto3" json:"enc_sk,omitempty"`
}

func (m *AppKeys) Reset()         { *m = AppKeys{} }
func (m *AppKeys) String() string { return pb.CompactTextString(m) }
func (*AppKeys) ProtoMessage()    {}

// AccessContInfo locates the user's access container.
type AccessContInfo struct {
	Id    []byte `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Tag   uint64 `protobuf:"varint,2,opt,name=tag,proto3" json:"tag,omitempty"`
	Nonce []byte `protobuf:"bytes,3,opt,name=nonce,proto3" json:"nonce,omitempty"`
}

func (m *AccessContInfo) Reset()         { *m = AccessContInfo{} }
func (m *AccessContInfo) String() string { return pb.CompactTextString(m) }
func (*AccessContInfo) ProtoMessage()    {}

// ContainerAccess is one entry of the access container.
type ContainerAccess struct {
	Container string `protobuf:"bytes,1,opt,name=container,proto3" json:"container,omitempty"`
	Name      []byte `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	TypeTag   uint64 `protobuf:"varint,3,opt,name=type_tag,json=typeTag,proto3" json:"type_tag,omitempty"`
	Perms     uint32 `protobuf:"varint,4,opt,name=perms,proto3" json:"perms,omitempty"`
}

func (m *ContainerAccess) Reset()         { *m = ContainerAccess{} }
func (m *ContainerAccess) String() string { return pb.CompactTextString(m) }
func (*ContainerAccess) ProtoMessage()    {}

// BootstrapConfig lists the network contacts used to join the network.
type BootstrapConfig struct {
	Contacts []string `protobuf:"bytes,1,rep,name=contacts,proto3" json:"contacts,omitempty"`
}

func (m *BootstrapConfig) Reset()         { *m = BootstrapConfig{} }
func (m *BootstrapConfig) String() string { return pb.CompactTextString(m) }
func (*BootstrapConfig) ProtoMessage()    {}
