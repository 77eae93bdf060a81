// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Matrix client-server and Synapse admin
// APIs for gatehouse's account and room-membership needs.
//
// The package provides three core types. [Client] is an unauthenticated
// Matrix client holding the homeserver URL and HTTP transport; it
// performs password login and constructs authenticated [Session] values
// from stored access tokens. [Session] wraps a Client with an access
// token for authenticated operations: room creation, alias resolution,
// invites, joins, joined-room listing, state events, and identity
// verification (WhoAmI). [Directory] wraps an administrative Session
// with the Synapse admin API operations gatehouse uses to manage
// accounts: existence checks, idempotent provisioning, per-user
// joined-room listing, and login-as-user for forced joins.
//
// Sessions are lightweight (a pointer to the parent Client plus an
// access token in mmap-backed secret.Buffer memory). The access token
// is locked against swap and excluded from core dumps; callers must
// call Session.Close to release the protected memory.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status
// code. [IsMatrixError] tests for a specific error code. Request URLs
// are built by string concatenation rather than url.URL to avoid
// double-encoding of path segments that contain URL-encoded characters
// (such as user IDs and room aliases).
package messaging
