// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data:
// login passwords in flight and the homeserver admin access token.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, so secret material does not persist after release.
//
// Gatehouse sits on the authentication-critical path: every login
// request carries a plaintext password which exists in this process
// only long enough to be forwarded to the ticketing service. Buffers
// keep that window out of swap and core dumps.
//
// Constructors: [New] (zero-filled), [NewFromBytes] (copies and zeros
// the source), [ReadFromPath] (secret file or stdin). Access via
// [Buffer.Bytes] (slice into the mmap region) or [Buffer.String] (heap
// copy for API boundaries that require a string). After Close, any
// access panics. Close is idempotent.
//
// Depends on golang.org/x/sys/unix.
package secret
