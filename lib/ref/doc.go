// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated value types for Matrix identifiers.
//
// [UserID], [RoomID], [RoomAlias], and [ServerName] are immutable value
// types wrapping the raw string forms (@localpart:server, !opaque:server,
// #localpart:server, server). They are validated at construction: code
// holding one of these types can rely on the structural format without
// re-checking. Identifiers arriving from the Matrix API or from
// configuration are parsed at the boundary with the Parse* constructors;
// identifiers built from known-valid parts use [MatrixUserID] and
// [NewRoomAlias].
//
// All types implement encoding.TextMarshaler and TextUnmarshaler, so
// they deserialize with validation directly from JSON API responses.
//
// The zero value of every type is not a valid identifier; use IsZero to
// check. This package has no dependencies outside the standard library.
package ref
