// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile drives an account's room memberships toward the
// room set its entitlement policy names. Reconciliation is additive
// and best-effort: missing memberships are established by an admin
// invite followed by a join issued on the account's behalf, existing
// memberships are never removed, and a failure in one room never
// blocks the others. The whole pass reports a Result instead of
// failing, because room membership must never break a login.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gatehouse-project/gatehouse/lib/ref"
)

// RoomDirectory is the admin-side room surface: alias resolution and
// invites issued with admin authority.
type RoomDirectory interface {
	ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error)
	InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error
}

// UserSession is an authenticated session acting as the target
// account, used to accept invites. Close releases its token.
type UserSession interface {
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)
	Close() error
}

// AccountAccess reads an account's memberships and obtains a session
// acting as that account.
type AccountAccess interface {
	JoinedRoomsOf(ctx context.Context, userID ref.UserID) ([]ref.RoomID, error)
	LoginAsUser(ctx context.Context, userID ref.UserID) (UserSession, error)
}

// Result is the outcome of one reconciliation pass. Aliases appear in
// exactly one of the three buckets, in target order.
type Result struct {
	// Applied lists rooms the account was invited into and joined
	// during this pass.
	Applied []ref.RoomAlias
	// AlreadyMember lists rooms the account was already joined to.
	AlreadyMember []ref.RoomAlias
	// Failed maps each room that could not be applied to the reason.
	Failed map[ref.RoomAlias]error
}

// Clean reports whether the pass completed with no failures.
func (r Result) Clean() bool {
	return len(r.Failed) == 0
}

func (r Result) fail(alias ref.RoomAlias, err error) Result {
	if r.Failed == nil {
		r.Failed = make(map[ref.RoomAlias]error)
	}
	r.Failed[alias] = err
	return r
}

// Reconciler applies room policy to accounts.
type Reconciler struct {
	rooms    RoomDirectory
	accounts AccountAccess
	log      *slog.Logger
}

// New builds a Reconciler. Invites are issued through rooms with admin
// authority; joins are issued through sessions obtained from accounts.
func New(rooms RoomDirectory, accounts AccountAccess, log *slog.Logger) *Reconciler {
	return &Reconciler{rooms: rooms, accounts: accounts, log: log}
}

// Reconcile establishes userID's membership in every room of targets.
// Current membership is read once at the start of the pass; changes
// made elsewhere during the pass are not observed, which at worst
// causes a redundant invite. One session is obtained for the account
// when the first join is needed and reused for the rest of the pass.
//
// A second pass over the same inputs applies nothing: every target
// lands in AlreadyMember.
func (r *Reconciler) Reconcile(ctx context.Context, userID ref.UserID, targets []ref.RoomAlias) Result {
	var result Result

	joined, err := r.accounts.JoinedRoomsOf(ctx, userID)
	if err != nil {
		// Without the membership snapshot nothing can be decided.
		err = fmt.Errorf("reading current memberships: %w", err)
		r.log.Error("membership reconciliation aborted",
			"user_id", userID.String(), "error", err)
		for _, alias := range targets {
			result = result.fail(alias, err)
		}
		return result
	}
	member := make(map[ref.RoomID]bool, len(joined))
	for _, roomID := range joined {
		member[roomID] = true
	}

	var session UserSession
	var sessionErr error
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	for _, alias := range targets {
		roomID, err := r.rooms.ResolveAlias(ctx, alias)
		if err != nil {
			r.log.Warn("room alias did not resolve",
				"alias", alias.String(), "error", err)
			result = result.fail(alias, fmt.Errorf("resolving alias: %w", err))
			continue
		}
		if member[roomID] {
			result.AlreadyMember = append(result.AlreadyMember, alias)
			continue
		}

		if err := r.rooms.InviteUser(ctx, roomID, userID); err != nil {
			r.log.Warn("invite failed",
				"alias", alias.String(),
				"user_id", userID.String(),
				"error", err)
			result = result.fail(alias, fmt.Errorf("inviting: %w", err))
			continue
		}

		if session == nil && sessionErr == nil {
			session, sessionErr = r.accounts.LoginAsUser(ctx, userID)
			if sessionErr != nil {
				r.log.Error("could not obtain session for account",
					"user_id", userID.String(), "error", sessionErr)
			}
		}
		if sessionErr != nil {
			result = result.fail(alias, fmt.Errorf("obtaining session: %w", sessionErr))
			continue
		}

		if _, err := session.JoinRoom(ctx, roomID); err != nil {
			r.log.Warn("join failed",
				"alias", alias.String(),
				"user_id", userID.String(),
				"error", err)
			result = result.fail(alias, fmt.Errorf("joining: %w", err))
			continue
		}

		r.log.Info("membership established",
			"alias", alias.String(),
			"user_id", userID.String())
		result.Applied = append(result.Applied, alias)
	}

	return result
}
