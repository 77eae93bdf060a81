// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/gatehouse-project/gatehouse/lib/ref"
)

// filePolicy is the on-disk policy shape. Group members and topology
// aliases are localparts; the server name qualifies them at load time
// so one policy file serves any deployment.
type filePolicy struct {
	Groups struct {
		Default    []string `json:"default"`
		Conference []string `json:"conference"`
		Speaker    []string `json:"speaker"`
		Staff      []string `json:"staff"`
	} `json:"groups"`
	Fares    map[string]string `json:"fares"`
	Topology []RoomSpec        `json:"topology"`
}

// LoadFile reads a JSONC policy file (JSON extended with // comments
// and trailing commas) and qualifies its aliases for the given server
// name. Every alias localpart and fare tier is validated; a policy
// typo fails loudly at startup rather than silently granting nothing.
func LoadFile(path string, server ref.ServerName) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var file filePolicy
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	policy := &Policy{
		fares:    make(FareTable, len(file.Fares)),
		topology: file.Topology,
	}
	for fareCode, tier := range file.Fares {
		switch Tier(tier) {
		case TierSprint, TierCombined:
			policy.fares[fareCode] = Tier(tier)
		default:
			return nil, fmt.Errorf("%s: fare code %q has unknown tier %q", path, fareCode, tier)
		}
	}

	qualify := func(groupName string, localparts []string) ([]ref.RoomAlias, error) {
		aliases := make([]ref.RoomAlias, 0, len(localparts))
		for _, localpart := range localparts {
			if err := ref.ValidateLocalpart(localpart); err != nil {
				return nil, fmt.Errorf("%s: group %q: %w", path, groupName, err)
			}
			aliases = append(aliases, ref.NewRoomAlias(localpart, server))
		}
		return aliases, nil
	}
	if policy.groups.Default, err = qualify("default", file.Groups.Default); err != nil {
		return nil, err
	}
	if policy.groups.Conference, err = qualify("conference", file.Groups.Conference); err != nil {
		return nil, err
	}
	if policy.groups.Speaker, err = qualify("speaker", file.Groups.Speaker); err != nil {
		return nil, err
	}
	if policy.groups.Staff, err = qualify("staff", file.Groups.Staff); err != nil {
		return nil, err
	}

	for _, room := range file.Topology {
		if err := ref.ValidateLocalpart(room.Alias); err != nil {
			return nil, fmt.Errorf("%s: topology room %q: %w", path, room.Alias, err)
		}
	}

	return policy, nil
}
