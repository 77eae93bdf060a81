// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// maxLocalpartLength bounds localparts minted from ticketing profile
// names. The Matrix spec caps the full user ID at 255 bytes; this limit
// leaves generous room for the sigil and server name.
const maxLocalpartLength = 200

// allowedChars is the set of characters permitted in Matrix localparts
// (per the Matrix spec: a-z, 0-9, and the symbols . _ = - /).
var allowedChars [256]bool

func init() {
	for c := byte('a'); c <= 'z'; c++ {
		allowedChars[c] = true
	}
	for c := byte('0'); c <= '9'; c++ {
		allowedChars[c] = true
	}
	allowedChars['.'] = true
	allowedChars['_'] = true
	allowedChars['='] = true
	allowedChars['-'] = true
	allowedChars['/'] = true
}

// ValidateLocalpart checks that a localpart is non-empty, within the
// length bound, and restricted to the Matrix localpart character set.
// Gatehouse mints localparts from normalized ticketing profile names;
// this is the gate those minted values pass through before becoming
// part of a UserID.
func ValidateLocalpart(localpart string) error {
	if localpart == "" {
		return fmt.Errorf("localpart is empty")
	}
	if len(localpart) > maxLocalpartLength {
		return fmt.Errorf("localpart %q is %d characters, maximum is %d", localpart, len(localpart), maxLocalpartLength)
	}
	for i := 0; i < len(localpart); i++ {
		if !allowedChars[localpart[i]] {
			return fmt.Errorf("localpart %q: invalid character %q at position %d (allowed: a-z, 0-9, ., _, =, -, /)", localpart, localpart[i], i)
		}
	}
	return nil
}

// validateServer checks that a Matrix server name is minimally valid:
// non-empty, no control characters, no Matrix sigils.
func validateServer(server string) error {
	if server == "" {
		return fmt.Errorf("server name is empty")
	}
	for i := 0; i < len(server); i++ {
		c := server[i]
		if c <= ' ' || c == '@' || c == '#' || c == '!' {
			return fmt.Errorf("server name %q: invalid character at position %d", server, i)
		}
	}
	return nil
}

// MatrixUserID constructs a Matrix user ID (@localpart:server) from its
// parts. The localpart must already satisfy ValidateLocalpart; callers
// minting localparts from external data validate first.
func MatrixUserID(localpart string, server ServerName) UserID {
	return UserID{id: "@" + localpart + ":" + server.name}
}

// NewRoomAlias constructs a room alias (#localpart:server) from
// known-valid parts. Used when building aliases from configuration
// rather than parsing them from API responses.
func NewRoomAlias(localpart string, server ServerName) RoomAlias {
	return RoomAlias{alias: "#" + localpart + ":" + server.name}
}

// parseMatrixID extracts localpart and server from @localpart:server.
func parseMatrixID(matrixID string) (localpart, server string, err error) {
	return parsePrefixedID(matrixID, '@', "Matrix user ID")
}

// parseRoomAlias extracts localpart and server from #localpart:server.
func parseRoomAlias(alias string) (localpart, server string, err error) {
	return parsePrefixedID(alias, '#', "room alias")
}

// parsePrefixedID extracts localpart and server from a Matrix identifier
// with the given sigil prefix (@ for user IDs, # for room aliases).
func parsePrefixedID(identifier string, sigil byte, kind string) (localpart, server string, err error) {
	if len(identifier) < 2 || identifier[0] != sigil {
		return "", "", fmt.Errorf("invalid %s %q: must start with %c", kind, identifier, sigil)
	}
	colonIndex := strings.Index(identifier[1:], ":")
	if colonIndex < 0 {
		return "", "", fmt.Errorf("invalid %s %q: missing :server", kind, identifier)
	}
	colonIndex++ // adjust for [1:] offset
	if colonIndex < 2 {
		return "", "", fmt.Errorf("invalid %s %q: empty localpart", kind, identifier)
	}
	localpart = identifier[1:colonIndex]
	server = identifier[colonIndex+1:]
	if server == "" {
		return "", "", fmt.Errorf("invalid %s %q: empty server", kind, identifier)
	}
	return localpart, server, nil
}
