// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy maps an attendee's entitlement profile to the set of
// Matrix rooms they belong in. The mapping is pure: fare codes and the
// staff/speaker flags go in, a deterministic list of room aliases comes
// out. No I/O happens here; consulting the homeserver about what rooms
// actually exist is the reconciler's job.
//
// A policy is three tables: the room groups (which aliases each
// membership tier unlocks), the fare table (which purchase tier each
// ticket fare code grants), and the room topology (the full list of
// rooms the conference space consists of, used for bootstrap
// provisioning). The built-in Default policy encodes the EuroPython
// conference layout; LoadFile reads the same shape from a JSONC file
// so a policy change does not need a recompile.
package policy

import (
	"github.com/gatehouse-project/gatehouse/entitlement"
	"github.com/gatehouse-project/gatehouse/lib/ref"
)

// Tier is the purchase tier a ticket fare code grants.
type Tier string

const (
	// TierSprint tickets grant the default rooms only.
	TierSprint Tier = "sprint"
	// TierCombined tickets grant the default and conference rooms.
	TierCombined Tier = "combined"
)

// FareTable maps ticket fare codes to purchase tiers. Fare codes
// absent from the table grant nothing.
type FareTable map[string]Tier

// RoomGroups are the four alias lists a profile can unlock. Order
// within each group is the order rooms are reported and reconciled in.
type RoomGroups struct {
	// Default rooms come with any valid ticket.
	Default []ref.RoomAlias
	// Conference rooms require a combined-tier ticket.
	Conference []ref.RoomAlias
	// Speaker rooms require the speaker flag.
	Speaker []ref.RoomAlias
	// Staff rooms require the staff flag.
	Staff []ref.RoomAlias
}

// RoomSpec describes one room in the conference topology: the alias
// localpart it is provisioned under, its display name and topic, and
// whether it is joinable without an invite.
type RoomSpec struct {
	Alias  string `json:"alias"`
	Name   string `json:"name"`
	Topic  string `json:"topic,omitempty"`
	Public bool   `json:"public"`
}

// Policy is an immutable room-policy table. Construct one with Default
// or LoadFile.
type Policy struct {
	groups   RoomGroups
	fares    FareTable
	topology []RoomSpec
}

// Default returns the built-in EuroPython policy qualified for the
// given server name: eleven rooms, sprint and combined fare tiers,
// and the speaker and staff groups.
func Default(server ref.ServerName) *Policy {
	alias := func(localpart string) ref.RoomAlias {
		return ref.NewRoomAlias(localpart, server)
	}
	return &Policy{
		groups: RoomGroups{
			Default:    []ref.RoomAlias{alias("info-desk"), alias("sprints"), alias("coc")},
			Conference: []ref.RoomAlias{alias("track1"), alias("track2"), alias("track3"), alias("track4"), alias("hallway")},
			Speaker:    []ref.RoomAlias{alias("speakers")},
			Staff:      []ref.RoomAlias{alias("staff")},
		},
		fares: FareTable{
			"TRPC": TierSprint,
			"TRPP": TierSprint,
			"TRCC": TierCombined,
			"TRCP": TierCombined,
			"TRSC": TierCombined,
			"TRSP": TierCombined,
		},
		topology: []RoomSpec{
			{Alias: "info-desk", Name: "Info Desk", Topic: "Questions about the conference", Public: true},
			{Alias: "hallway", Name: "Hallway", Topic: "The hallway track", Public: false},
			{Alias: "announcements", Name: "Announcements", Topic: "Official conference announcements", Public: true},
			{Alias: "staff", Name: "Staff", Topic: "Conference staff coordination", Public: false},
			{Alias: "speakers", Name: "Speakers", Topic: "Speaker coordination", Public: false},
			{Alias: "coc", Name: "Code of Conduct", Topic: "Reach the code of conduct team", Public: false},
			{Alias: "track1", Name: "Track 1", Topic: "Talks in track 1", Public: false},
			{Alias: "track2", Name: "Track 2", Topic: "Talks in track 2", Public: false},
			{Alias: "track3", Name: "Track 3", Topic: "Talks in track 3", Public: false},
			{Alias: "track4", Name: "Track 4", Topic: "Talks in track 4", Public: false},
			{Alias: "sprints", Name: "Sprints", Topic: "Sprint organization", Public: true},
		},
	}
}

// Topology returns the full room list the conference space consists
// of. The returned slice is shared; callers must not modify it.
func (p *Policy) Topology() []RoomSpec {
	return p.topology
}

// TargetRooms computes the rooms profile belongs in. Staff get every
// group outright. Otherwise speakers get the speaker rooms, and each
// ticket contributes its tier's groups. The result has set semantics
// over duplicate tickets and always lists rooms in canonical group
// order (default, conference, speaker, staff) so repeated runs over
// the same profile log identically.
func (p *Policy) TargetRooms(profile *entitlement.Profile) []ref.RoomAlias {
	if profile.IsStaff {
		return p.union(true, true, true, true)
	}

	var wantDefault, wantConference bool
	for _, ticket := range profile.Tickets {
		switch p.fares[ticket.FareCode] {
		case TierSprint:
			wantDefault = true
		case TierCombined:
			wantDefault = true
			wantConference = true
		}
	}
	return p.union(wantDefault, wantConference, profile.IsSpeaker, false)
}

// union concatenates the selected groups in canonical order, dropping
// aliases already seen. Groups in a loaded policy may overlap.
func (p *Policy) union(includeDefault, includeConference, includeSpeaker, includeStaff bool) []ref.RoomAlias {
	var rooms []ref.RoomAlias
	seen := make(map[ref.RoomAlias]bool)
	add := func(group []ref.RoomAlias) {
		for _, alias := range group {
			if !seen[alias] {
				seen[alias] = true
				rooms = append(rooms, alias)
			}
		}
	}
	if includeDefault {
		add(p.groups.Default)
	}
	if includeConference {
		add(p.groups.Conference)
	}
	if includeSpeaker {
		add(p.groups.Speaker)
	}
	if includeStaff {
		add(p.groups.Staff)
	}
	return rooms
}
