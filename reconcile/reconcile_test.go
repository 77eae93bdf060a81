// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"testing"

	"github.com/gatehouse-project/gatehouse/lib/ref"
)

// fakeHomeserver implements RoomDirectory, AccountAccess, and
// UserSession against in-memory room state.
type fakeHomeserver struct {
	aliases map[string]ref.RoomID // alias → room, missing means no such room
	joined  map[ref.RoomID]bool

	inviteErr map[ref.RoomID]error
	joinErr   map[ref.RoomID]error
	loginErr  error

	invites      []ref.RoomID
	joins        []ref.RoomID
	logins       int
	sessionsOpen int
}

func (f *fakeHomeserver) ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error) {
	roomID, ok := f.aliases[alias.String()]
	if !ok {
		return ref.RoomID{}, fmt.Errorf("alias %s not found", alias)
	}
	return roomID, nil
}

func (f *fakeHomeserver) InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error {
	f.invites = append(f.invites, roomID)
	return f.inviteErr[roomID]
}

func (f *fakeHomeserver) JoinedRoomsOf(ctx context.Context, userID ref.UserID) ([]ref.RoomID, error) {
	var rooms []ref.RoomID
	for roomID := range f.joined {
		rooms = append(rooms, roomID)
	}
	return rooms, nil
}

func (f *fakeHomeserver) LoginAsUser(ctx context.Context, userID ref.UserID) (UserSession, error) {
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.sessionsOpen++
	return f, nil
}

func (f *fakeHomeserver) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	f.joins = append(f.joins, roomID)
	if err := f.joinErr[roomID]; err != nil {
		return ref.RoomID{}, err
	}
	f.joined[roomID] = true
	return roomID, nil
}

func (f *fakeHomeserver) Close() error {
	f.sessionsOpen--
	return nil
}

var testUser = ref.MustParseUserID("@jose.diaz.jd1:local")

func aliases(localparts ...string) []ref.RoomAlias {
	server := ref.MustParseServerName("local")
	result := make([]ref.RoomAlias, len(localparts))
	for i, localpart := range localparts {
		result[i] = ref.NewRoomAlias(localpart, server)
	}
	return result
}

func newFakeHomeserver(roomLocalparts ...string) *fakeHomeserver {
	fake := &fakeHomeserver{
		aliases:   make(map[string]ref.RoomID),
		joined:    make(map[ref.RoomID]bool),
		inviteErr: make(map[ref.RoomID]error),
		joinErr:   make(map[ref.RoomID]error),
	}
	for i, localpart := range roomLocalparts {
		alias := ref.NewRoomAlias(localpart, ref.MustParseServerName("local"))
		fake.aliases[alias.String()] = ref.MustParseRoomID(fmt.Sprintf("!room%d:local", i))
	}
	return fake
}

func TestReconcileJoinsMissingRooms(t *testing.T) {
	fake := newFakeHomeserver("info-desk", "sprints", "coc")
	reconciler := New(fake, fake, slog.Default())

	result := reconciler.Reconcile(context.Background(), testUser, aliases("info-desk", "sprints", "coc"))

	if !result.Clean() {
		t.Fatalf("unexpected failures: %v", result.Failed)
	}
	if len(result.Applied) != 3 || len(result.AlreadyMember) != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(fake.invites) != 3 || len(fake.joins) != 3 {
		t.Errorf("expected 3 invites and 3 joins, got %d and %d", len(fake.invites), len(fake.joins))
	}
	if fake.logins != 1 {
		t.Errorf("expected a single session for the whole pass, got %d logins", fake.logins)
	}
	if fake.sessionsOpen != 0 {
		t.Errorf("session leaked: %d still open", fake.sessionsOpen)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	fake := newFakeHomeserver("info-desk", "sprints")
	reconciler := New(fake, fake, slog.Default())
	targets := aliases("info-desk", "sprints")

	first := reconciler.Reconcile(context.Background(), testUser, targets)
	if !first.Clean() || len(first.Applied) != 2 {
		t.Fatalf("unexpected first pass: %+v", first)
	}

	second := reconciler.Reconcile(context.Background(), testUser, targets)
	if !second.Clean() {
		t.Fatalf("unexpected failures on second pass: %v", second.Failed)
	}
	if len(second.Applied) != 0 {
		t.Errorf("second pass applied %v, want nothing", second.Applied)
	}
	if !reflect.DeepEqual(second.AlreadyMember, targets) {
		t.Errorf("AlreadyMember = %v, want %v", second.AlreadyMember, targets)
	}
	if len(fake.invites) != 2 {
		t.Errorf("second pass issued extra invites: %v", fake.invites)
	}
}

func TestReconcileIsolatesRoomFailures(t *testing.T) {
	fake := newFakeHomeserver("info-desk", "sprints", "coc")
	fake.inviteErr[fake.aliases["#sprints:local"]] = fmt.Errorf("invite rejected")
	reconciler := New(fake, fake, slog.Default())

	result := reconciler.Reconcile(context.Background(), testUser,
		aliases("info-desk", "sprints", "coc", "missing"))

	if len(result.Applied) != 2 {
		t.Errorf("expected info-desk and coc applied, got %v", result.Applied)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %v", result.Failed)
	}
	for _, localpart := range []string{"sprints", "missing"} {
		alias := aliases(localpart)[0]
		if result.Failed[alias] == nil {
			t.Errorf("expected %s to fail", alias)
		}
	}
}

func TestReconcileJoinFailure(t *testing.T) {
	fake := newFakeHomeserver("info-desk")
	fake.joinErr[fake.aliases["#info-desk:local"]] = fmt.Errorf("join forbidden")
	reconciler := New(fake, fake, slog.Default())

	result := reconciler.Reconcile(context.Background(), testUser, aliases("info-desk"))

	if len(result.Applied) != 0 {
		t.Errorf("nothing should be applied, got %v", result.Applied)
	}
	if result.Failed[aliases("info-desk")[0]] == nil {
		t.Error("expected join failure to be recorded")
	}
	if fake.sessionsOpen != 0 {
		t.Errorf("session leaked after join failure: %d open", fake.sessionsOpen)
	}
}

func TestReconcileLoginFailure(t *testing.T) {
	fake := newFakeHomeserver("info-desk", "sprints")
	fake.loginErr = fmt.Errorf("admin API unavailable")
	reconciler := New(fake, fake, slog.Default())

	result := reconciler.Reconcile(context.Background(), testUser, aliases("info-desk", "sprints"))

	if len(result.Failed) != 2 {
		t.Fatalf("expected both rooms to fail, got %v", result.Failed)
	}
	if fake.logins != 1 {
		t.Errorf("login should be attempted once per pass, got %d", fake.logins)
	}
}

func TestReconcileNeverLeaves(t *testing.T) {
	fake := newFakeHomeserver("info-desk", "extra")
	extraRoom := fake.aliases["#extra:local"]
	fake.joined[extraRoom] = true
	reconciler := New(fake, fake, slog.Default())

	result := reconciler.Reconcile(context.Background(), testUser, aliases("info-desk"))

	if !result.Clean() {
		t.Fatalf("unexpected failures: %v", result.Failed)
	}
	if !fake.joined[extraRoom] {
		t.Error("membership outside the target set must be left alone")
	}
}
