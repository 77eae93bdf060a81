// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity mints canonical Matrix accounts for ticketing
// profiles. The localpart is derived deterministically from the
// attendee's name and ticketing username so the same person always
// resolves to the same account across logins, and existing accounts
// are never re-provisioned or mutated.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gatehouse-project/gatehouse/entitlement"
	"github.com/gatehouse-project/gatehouse/lib/ref"
	"github.com/gatehouse-project/gatehouse/messaging"
)

// foldTransform decomposes to NFD and strips combining marks, so
// "José" becomes "Jose". Runes that remain non-ASCII after folding
// are dropped entirely.
var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize derives the account localpart for an attendee:
// "first.last.username", lowercased, diacritics folded to ASCII,
// every other non-ASCII rune discarded. Total over all inputs; the
// result is empty when nothing survives folding.
func Normalize(first, last, username string) string {
	joined := strings.ToLower(fmt.Sprintf("%s.%s.%s", first, last, username))
	folded, _, err := transform.String(foldTransform, joined)
	if err != nil {
		// Remove never fails; NFD fails only on invalid UTF-8, which
		// ASCII-stripping below would discard anyway.
		folded = joined
	}

	var builder strings.Builder
	builder.Grow(len(folded))
	for _, r := range folded {
		if r < 128 {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// usable reports whether a folded localpart still carries any
// identifying content. Joining with periods means folding can never
// produce the empty string, so "nothing survived" looks like a string
// of separators instead.
func usable(localpart string) bool {
	for _, r := range localpart {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return true
		}
	}
	return false
}

// AccountDirectory is the account-management surface the resolver
// needs from the homeserver.
type AccountDirectory interface {
	Qualify(localpart string) ref.UserID
	UserExists(ctx context.Context, userID ref.UserID) (bool, error)
	CreateUser(ctx context.Context, request messaging.CreateUserRequest) (ref.UserID, error)
}

// Resolver maps entitlement profiles to Matrix accounts, provisioning
// on first contact.
type Resolver struct {
	directory AccountDirectory
	log       *slog.Logger
}

// NewResolver builds a Resolver over the given account directory.
func NewResolver(directory AccountDirectory, log *slog.Logger) *Resolver {
	return &Resolver{directory: directory, log: log}
}

// ResolveOrProvision returns the Matrix account for profile, creating
// it if this is the attendee's first login. An existing account is
// returned untouched: display name, email binding, and the admin flag
// are set once at provisioning and never reconciled afterward.
//
// Concurrent first logins for the same profile race benignly; account
// creation is an upsert at the homeserver.
func (r *Resolver) ResolveOrProvision(ctx context.Context, profile *entitlement.Profile) (ref.UserID, error) {
	localpart := Normalize(profile.FirstName, profile.LastName, profile.Username)
	if !usable(localpart) {
		return ref.UserID{}, fmt.Errorf("profile for %s yields no usable localpart (folded to %q)", profile.Email, localpart)
	}
	if err := ref.ValidateLocalpart(localpart); err != nil {
		return ref.UserID{}, fmt.Errorf("profile for %s yields invalid localpart: %w", profile.Email, err)
	}

	userID := r.directory.Qualify(localpart)
	exists, err := r.directory.UserExists(ctx, userID)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("checking for existing account %s: %w", userID, err)
	}
	if exists {
		r.log.Debug("account already provisioned", "user_id", userID.String())
		return userID, nil
	}

	r.log.Info("provisioning account for first login",
		"user_id", userID.String(),
		"email", profile.Email,
		"admin", profile.IsStaff)
	created, err := r.directory.CreateUser(ctx, messaging.CreateUserRequest{
		Localpart:   localpart,
		DisplayName: fmt.Sprintf("%s %s", profile.FirstName, profile.LastName),
		Email:       profile.Email,
		Admin:       profile.IsStaff,
	})
	if err != nil {
		return ref.UserID{}, fmt.Errorf("provisioning account %s: %w", userID, err)
	}
	return created, nil
}
