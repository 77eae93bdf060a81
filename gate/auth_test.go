// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/gatehouse-project/gatehouse/entitlement"
	"github.com/gatehouse-project/gatehouse/lib/ref"
	"github.com/gatehouse-project/gatehouse/lib/secret"
	"github.com/gatehouse-project/gatehouse/policy"
	"github.com/gatehouse-project/gatehouse/reconcile"
)

type fakeValidator struct {
	profile *entitlement.Profile
	err     error
	calls   int
}

func (f *fakeValidator) Validate(ctx context.Context, address string, password *secret.Buffer) (*entitlement.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fakeResolver struct {
	userID ref.UserID
	err    error
}

func (f *fakeResolver) ResolveOrProvision(ctx context.Context, profile *entitlement.Profile) (ref.UserID, error) {
	if f.err != nil {
		return ref.UserID{}, f.err
	}
	return f.userID, nil
}

type fakeReconciler struct {
	targets [][]ref.RoomAlias
	result  reconcile.Result
}

func (f *fakeReconciler) Reconcile(ctx context.Context, userID ref.UserID, targets []ref.RoomAlias) reconcile.Result {
	f.targets = append(f.targets, targets)
	return f.result
}

type fakeProvisioner struct {
	calls int
	err   error
}

func (f *fakeProvisioner) EnsureDefaultRooms(ctx context.Context) error {
	f.calls++
	return f.err
}

type testPipeline struct {
	validator   *fakeValidator
	resolver    *fakeResolver
	reconciler  *fakeReconciler
	provisioner *fakeProvisioner
	auth        *Authenticator
}

func speakerProfile() *entitlement.Profile {
	return &entitlement.Profile{
		Email:     "jose@example.com",
		FirstName: "José",
		LastName:  "Díaz",
		Username:  "jd1",
		IsSpeaker: true,
		Tickets:   []entitlement.Ticket{{FareCode: "TRSP"}},
	}
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()
	pipeline := &testPipeline{
		validator:   &fakeValidator{profile: speakerProfile()},
		resolver:    &fakeResolver{userID: ref.MustParseUserID("@jose.diaz.jd1:europython.eu")},
		reconciler:  &fakeReconciler{},
		provisioner: &fakeProvisioner{},
	}
	pipeline.auth = New(
		pipeline.validator,
		pipeline.resolver,
		pipeline.reconciler,
		pipeline.provisioner,
		policy.Default(ref.MustParseServerName("europython.eu")),
		ref.MustParseUserID("@admin:europython.eu"),
		slog.Default(),
	)
	return pipeline
}

func loginPassword(t *testing.T) *secret.Buffer {
	t.Helper()
	password, err := secret.NewFromBytes([]byte("hunter2"))
	if err != nil {
		t.Fatalf("failed to allocate password: %v", err)
	}
	t.Cleanup(func() { password.Close() })
	return password
}

func TestAuthenticate(t *testing.T) {
	pipeline := newTestPipeline(t)

	userID, err := pipeline.auth.Authenticate(context.Background(), "email", "jose@example.com", loginPassword(t))
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if userID.String() != "@jose.diaz.jd1:europython.eu" {
		t.Errorf("unexpected user ID: %s", userID)
	}

	if len(pipeline.reconciler.targets) != 1 {
		t.Fatalf("expected one reconcile pass, got %d", len(pipeline.reconciler.targets))
	}
	// Combined ticket plus speaker flag: default + conference + speakers.
	if len(pipeline.reconciler.targets[0]) != 9 {
		t.Errorf("expected 9 target rooms, got %d", len(pipeline.reconciler.targets[0]))
	}
	if pipeline.provisioner.calls != 0 {
		t.Error("non-admin login must not trigger room bootstrap")
	}
}

func TestAuthenticateDeclinesOtherMediums(t *testing.T) {
	pipeline := newTestPipeline(t)

	userID, err := pipeline.auth.Authenticate(context.Background(), "msisdn", "+15551234567", loginPassword(t))
	if err != nil {
		t.Fatalf("expected nil error for unsupported medium, got %v", err)
	}
	if !userID.IsZero() {
		t.Errorf("expected zero user ID, got %s", userID)
	}
	if pipeline.validator.calls != 0 {
		t.Error("unsupported medium must not reach the ticketing service")
	}
}

func TestAuthenticateErrorClasses(t *testing.T) {
	tests := []struct {
		name        string
		validateErr error
		wantClass   any
	}{
		{"rejected credentials", entitlement.ErrNoEntitlement, new(*CredentialError)},
		{"no tickets", entitlement.ErrNoTickets, new(*EntitlementError)},
		{"wrapped no tickets", fmt.Errorf("checking: %w", entitlement.ErrNoTickets), new(*EntitlementError)},
		{"service outage", &entitlement.ServiceError{Err: fmt.Errorf("timeout")}, new(*ServiceError)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pipeline := newTestPipeline(t)
			pipeline.validator.err = test.validateErr

			userID, err := pipeline.auth.Authenticate(context.Background(), "email", "jose@example.com", loginPassword(t))
			if !userID.IsZero() {
				t.Errorf("expected zero user ID, got %s", userID)
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			switch target := test.wantClass.(type) {
			case **CredentialError:
				if !errors.As(err, target) {
					t.Errorf("expected *CredentialError, got %T", err)
				}
			case **EntitlementError:
				if !errors.As(err, target) {
					t.Errorf("expected *EntitlementError, got %T", err)
				}
			case **ServiceError:
				if !errors.As(err, target) {
					t.Errorf("expected *ServiceError, got %T", err)
				}
			}
			if len(pipeline.reconciler.targets) != 0 {
				t.Error("failed validation must not reach reconciliation")
			}
		})
	}
}

func TestAuthenticateProvisioningFailure(t *testing.T) {
	pipeline := newTestPipeline(t)
	pipeline.resolver.err = fmt.Errorf("admin API down")

	_, err := pipeline.auth.Authenticate(context.Background(), "email", "jose@example.com", loginPassword(t))
	var provisioningErr *ProvisioningError
	if !errors.As(err, &provisioningErr) {
		t.Errorf("expected *ProvisioningError, got %v", err)
	}
}

func TestAuthenticateAdminTriggersBootstrap(t *testing.T) {
	pipeline := newTestPipeline(t)
	pipeline.resolver.userID = ref.MustParseUserID("@admin:europython.eu")

	if _, err := pipeline.auth.Authenticate(context.Background(), "email", "admin@example.com", loginPassword(t)); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if pipeline.provisioner.calls != 1 {
		t.Errorf("expected bootstrap to run once, ran %d times", pipeline.provisioner.calls)
	}
}

func TestAuthenticateBootstrapFailureIsSwallowed(t *testing.T) {
	pipeline := newTestPipeline(t)
	pipeline.resolver.userID = ref.MustParseUserID("@admin:europython.eu")
	pipeline.provisioner.err = fmt.Errorf("room quota exceeded")

	userID, err := pipeline.auth.Authenticate(context.Background(), "email", "admin@example.com", loginPassword(t))
	if err != nil {
		t.Fatalf("bootstrap failure must not fail the login: %v", err)
	}
	if userID.IsZero() {
		t.Error("expected a user ID despite bootstrap failure")
	}
}

func TestAuthenticateRoomFailuresAreSwallowed(t *testing.T) {
	pipeline := newTestPipeline(t)
	pipeline.reconciler.result = reconcile.Result{
		Failed: map[ref.RoomAlias]error{
			ref.NewRoomAlias("sprints", ref.MustParseServerName("europython.eu")): fmt.Errorf("invite rejected"),
		},
	}

	userID, err := pipeline.auth.Authenticate(context.Background(), "email", "jose@example.com", loginPassword(t))
	if err != nil {
		t.Fatalf("room failures must not fail the login: %v", err)
	}
	if userID.IsZero() {
		t.Error("expected a user ID despite room failures")
	}
}
