// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap provisions the conference room topology. It runs
// once when the admin account first authenticates (and on demand from
// the setup tool) and is idempotent: rooms whose alias already
// resolves are left untouched, missing rooms are created with the
// conference power-level layout baked in at creation and their topic
// set immediately after.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gatehouse-project/gatehouse/lib/ref"
	"github.com/gatehouse-project/gatehouse/messaging"
	"github.com/gatehouse-project/gatehouse/policy"
)

// RoomCreator is the admin-session surface needed to provision rooms.
type RoomCreator interface {
	ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error)
	CreateRoom(ctx context.Context, request messaging.CreateRoomRequest) (*messaging.CreateRoomResponse, error)
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType, stateKey string, content any) (string, error)
}

// Provisioner creates the rooms a policy's topology names.
type Provisioner struct {
	session RoomCreator
	policy  *policy.Policy
	server  ref.ServerName
	admin   ref.UserID
	log     *slog.Logger
}

// New builds a Provisioner. Rooms are created by session, which must
// carry admin authority; admin is granted power level 100 in every
// created room.
func New(session RoomCreator, roomPolicy *policy.Policy, server ref.ServerName, admin ref.UserID, log *slog.Logger) *Provisioner {
	return &Provisioner{
		session: session,
		policy:  roomPolicy,
		server:  server,
		admin:   admin,
		log:     log,
	}
}

// conferenceRoomPowerLevels is the power-level layout for conference
// rooms: everyone talks, only the admin changes room state or
// moderates. Set atomically at creation; rooms are never re-leveled
// afterward.
func conferenceRoomPowerLevels(admin ref.UserID) map[string]any {
	return map[string]any{
		"users": map[string]any{
			admin.String(): 100,
		},
		"users_default":  0,
		"events_default": 0,
		"state_default":  100,
		"ban":            100,
		"kick":           100,
		"invite":         100,
		"redact":         100,
		"notifications": map[string]any{
			"room": 100,
		},
	}
}

// EnsureDefaultRooms walks the policy topology and creates every room
// that does not exist yet. Creation failures are logged and skipped so
// one broken room cannot block the rest; the first error is returned
// for reporting. Callers on the login path treat the error as
// non-fatal.
func (p *Provisioner) EnsureDefaultRooms(ctx context.Context) error {
	var firstErr error
	record := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, room := range p.policy.Topology() {
		alias := ref.NewRoomAlias(room.Alias, p.server)

		roomID, err := p.session.ResolveAlias(ctx, alias)
		if err == nil {
			p.log.Debug("room already exists",
				"alias", alias.String(), "room_id", roomID.String())
			continue
		}
		if !messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			p.log.Error("could not resolve room alias",
				"alias", alias.String(), "error", err)
			record(fmt.Errorf("resolving %s: %w", alias, err))
			continue
		}

		preset := "private_chat"
		if room.Public {
			preset = "public_chat"
		}
		response, err := p.session.CreateRoom(ctx, messaging.CreateRoomRequest{
			Name:   room.Name,
			Alias:  room.Alias,
			Preset: preset,
			CreationContent: map[string]any{
				"m.federate": false,
			},
			PowerLevelContentOverride: conferenceRoomPowerLevels(p.admin),
		})
		if messaging.IsMatrixError(err, messaging.ErrCodeRoomInUse) {
			// Lost a race against a concurrent bootstrap; the room
			// exists, which is all we wanted.
			p.log.Debug("room created concurrently", "alias", alias.String())
			continue
		}
		if err != nil {
			p.log.Error("room creation failed",
				"alias", alias.String(), "error", err)
			record(fmt.Errorf("creating %s: %w", alias, err))
			continue
		}
		p.log.Info("created conference room",
			"alias", alias.String(),
			"room_id", response.RoomID.String(),
			"public", room.Public)

		if room.Topic == "" {
			continue
		}
		_, err = p.session.SendStateEvent(ctx, response.RoomID, "m.room.topic", "",
			map[string]any{"topic": room.Topic})
		if err != nil {
			// The room works without its topic; don't fail bootstrap.
			p.log.Warn("could not set room topic",
				"alias", alias.String(), "error", err)
		}
	}

	return firstErr
}
