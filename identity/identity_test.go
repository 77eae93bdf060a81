// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/gatehouse-project/gatehouse/entitlement"
	"github.com/gatehouse-project/gatehouse/lib/ref"
	"github.com/gatehouse-project/gatehouse/messaging"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		first, last, username string
		want                  string
	}{
		{"José", "Díaz", "jd1", "jose.diaz.jd1"},
		{"Ada", "Lovelace", "ada", "ada.lovelace.ada"},
		{"Łukasz", "Żółć", "lz", "ukasz.zoc.lz"},
		{"Anna-Lena", "Müller", "al_m", "anna-lena.muller.al_m"},
		{"ALL", "CAPS", "SHOUT", "all.caps.shout"},
		{"日本", "語", "jp", "..jp"},
		{"", "", "", ".."},
	}

	for _, test := range tests {
		got := Normalize(test.first, test.last, test.username)
		if got != test.want {
			t.Errorf("Normalize(%q, %q, %q) = %q, want %q",
				test.first, test.last, test.username, got, test.want)
		}
	}
}

// fakeDirectory records provisioning calls against a fixed set of
// pre-existing accounts.
type fakeDirectory struct {
	server    ref.ServerName
	existing  map[string]bool
	existsErr error
	created   []messaging.CreateUserRequest
	createErr error
	lookedUp  []ref.UserID
}

func (f *fakeDirectory) Qualify(localpart string) ref.UserID {
	return ref.MatrixUserID(localpart, f.server)
}

func (f *fakeDirectory) UserExists(ctx context.Context, userID ref.UserID) (bool, error) {
	f.lookedUp = append(f.lookedUp, userID)
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[userID.String()], nil
}

func (f *fakeDirectory) CreateUser(ctx context.Context, request messaging.CreateUserRequest) (ref.UserID, error) {
	f.created = append(f.created, request)
	if f.createErr != nil {
		return ref.UserID{}, f.createErr
	}
	return ref.MatrixUserID(request.Localpart, f.server), nil
}

func testProfile() *entitlement.Profile {
	return &entitlement.Profile{
		Email:     "jose@example.com",
		FirstName: "José",
		LastName:  "Díaz",
		Username:  "jd1",
		Tickets:   []entitlement.Ticket{{FareCode: "TRSP"}},
	}
}

func TestResolveOrProvisionNewAccount(t *testing.T) {
	directory := &fakeDirectory{server: ref.MustParseServerName("local"), existing: map[string]bool{}}
	resolver := NewResolver(directory, slog.Default())

	userID, err := resolver.ResolveOrProvision(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("ResolveOrProvision failed: %v", err)
	}
	if userID.String() != "@jose.diaz.jd1:local" {
		t.Errorf("unexpected user ID: %s", userID)
	}

	if len(directory.created) != 1 {
		t.Fatalf("expected one provisioning call, got %d", len(directory.created))
	}
	request := directory.created[0]
	if request.Localpart != "jose.diaz.jd1" {
		t.Errorf("unexpected localpart: %q", request.Localpart)
	}
	if request.DisplayName != "José Díaz" {
		t.Errorf("unexpected display name: %q", request.DisplayName)
	}
	if request.Email != "jose@example.com" {
		t.Errorf("unexpected email: %q", request.Email)
	}
	if request.Admin {
		t.Error("non-staff profile should not get the admin flag")
	}
}

func TestResolveOrProvisionExistingAccount(t *testing.T) {
	directory := &fakeDirectory{
		server:   ref.MustParseServerName("local"),
		existing: map[string]bool{"@jose.diaz.jd1:local": true},
	}
	resolver := NewResolver(directory, slog.Default())

	userID, err := resolver.ResolveOrProvision(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("ResolveOrProvision failed: %v", err)
	}
	if userID.String() != "@jose.diaz.jd1:local" {
		t.Errorf("unexpected user ID: %s", userID)
	}
	if len(directory.created) != 0 {
		t.Errorf("existing account must not be re-provisioned, got %d calls", len(directory.created))
	}
}

func TestResolveOrProvisionStaffGetsAdmin(t *testing.T) {
	directory := &fakeDirectory{server: ref.MustParseServerName("local"), existing: map[string]bool{}}
	resolver := NewResolver(directory, slog.Default())

	profile := testProfile()
	profile.IsStaff = true
	if _, err := resolver.ResolveOrProvision(context.Background(), profile); err != nil {
		t.Fatalf("ResolveOrProvision failed: %v", err)
	}
	if len(directory.created) != 1 || !directory.created[0].Admin {
		t.Error("staff profile should provision with the admin flag")
	}
}

func TestResolveOrProvisionUnusableName(t *testing.T) {
	directory := &fakeDirectory{server: ref.MustParseServerName("local"), existing: map[string]bool{}}
	resolver := NewResolver(directory, slog.Default())

	profile := testProfile()
	profile.FirstName = "日本"
	profile.LastName = "語"
	profile.Username = ""

	if _, err := resolver.ResolveOrProvision(context.Background(), profile); err == nil {
		t.Error("expected error for a name that folds to nothing usable")
	}
	if len(directory.lookedUp) != 0 {
		t.Error("no directory lookup should happen for an unusable localpart")
	}
}

func TestResolveOrProvisionDirectoryError(t *testing.T) {
	directory := &fakeDirectory{
		server:    ref.MustParseServerName("local"),
		existsErr: fmt.Errorf("admin API unavailable"),
	}
	resolver := NewResolver(directory, slog.Default())

	if _, err := resolver.ResolveOrProvision(context.Background(), testProfile()); err == nil {
		t.Error("expected directory error to propagate")
	}
}
