// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate orchestrates the authentication pipeline: validate
// credentials against the ticketing service, resolve or provision the
// Matrix account, and bring the account's room memberships in line
// with its entitlements. The pipeline is strict up to the point the
// account is resolved and best-effort afterward; once an attendee is
// authenticated, no room problem may turn them away.
package gate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gatehouse-project/gatehouse/entitlement"
	"github.com/gatehouse-project/gatehouse/lib/ref"
	"github.com/gatehouse-project/gatehouse/lib/secret"
	"github.com/gatehouse-project/gatehouse/policy"
	"github.com/gatehouse-project/gatehouse/reconcile"
)

// MediumEmail is the only third-party identifier medium gatehouse
// authenticates. Everything else is declined without judgement.
const MediumEmail = "email"

// CredentialValidator checks a login against the ticketing service.
type CredentialValidator interface {
	Validate(ctx context.Context, address string, password *secret.Buffer) (*entitlement.Profile, error)
}

// AccountResolver maps a profile to a Matrix account.
type AccountResolver interface {
	ResolveOrProvision(ctx context.Context, profile *entitlement.Profile) (ref.UserID, error)
}

// MembershipReconciler applies room policy to an account.
type MembershipReconciler interface {
	Reconcile(ctx context.Context, userID ref.UserID, targets []ref.RoomAlias) reconcile.Result
}

// RoomProvisioner creates the conference room topology.
type RoomProvisioner interface {
	EnsureDefaultRooms(ctx context.Context) error
}

// Authenticator runs the full login pipeline.
type Authenticator struct {
	validator   CredentialValidator
	resolver    AccountResolver
	reconciler  MembershipReconciler
	provisioner RoomProvisioner
	roomPolicy  *policy.Policy
	admin       ref.UserID
	log         *slog.Logger
}

// New builds an Authenticator. The admin user ID gates room bootstrap:
// the first time that account logs in, the conference topology is
// provisioned before any memberships are reconciled.
func New(
	validator CredentialValidator,
	resolver AccountResolver,
	reconciler MembershipReconciler,
	provisioner RoomProvisioner,
	roomPolicy *policy.Policy,
	admin ref.UserID,
	log *slog.Logger,
) *Authenticator {
	return &Authenticator{
		validator:   validator,
		resolver:    resolver,
		reconciler:  reconciler,
		provisioner: provisioner,
		roomPolicy:  roomPolicy,
		admin:       admin,
		log:         log,
	}
}

// Authenticate processes one login attempt. A medium other than email
// returns a zero UserID and nil error: gatehouse does not participate
// in that login, and the homeserver falls through to its other
// authentication providers.
//
// Terminal errors are *CredentialError, *EntitlementError,
// *ServiceError, and *ProvisioningError. A returned non-zero UserID
// means the login succeeds regardless of what happened with rooms.
func (a *Authenticator) Authenticate(ctx context.Context, medium, address string, password *secret.Buffer) (ref.UserID, error) {
	if medium != MediumEmail {
		a.log.Debug("declining login medium", "medium", medium)
		return ref.UserID{}, nil
	}

	profile, err := a.validator.Validate(ctx, address, password)
	if err != nil {
		switch {
		case errors.Is(err, entitlement.ErrNoEntitlement):
			return ref.UserID{}, &CredentialError{Err: err}
		case errors.Is(err, entitlement.ErrNoTickets):
			return ref.UserID{}, &EntitlementError{Err: err}
		default:
			return ref.UserID{}, &ServiceError{Err: err}
		}
	}

	userID, err := a.resolver.ResolveOrProvision(ctx, profile)
	if err != nil {
		return ref.UserID{}, &ProvisioningError{Err: err}
	}

	// The admin's own login doubles as the bootstrap trigger. Room
	// provisioning is idempotent, so repeated admin logins are cheap.
	if userID == a.admin {
		if err := a.provisioner.EnsureDefaultRooms(ctx); err != nil {
			a.log.Warn("room bootstrap incomplete", "error", err)
		}
	}

	targets := a.roomPolicy.TargetRooms(profile)
	result := a.reconciler.Reconcile(ctx, userID, targets)
	a.log.Info("login authenticated",
		"address", address,
		"user_id", userID.String(),
		"rooms_applied", len(result.Applied),
		"rooms_already_member", len(result.AlreadyMember),
		"rooms_failed", len(result.Failed))

	return userID, nil
}
