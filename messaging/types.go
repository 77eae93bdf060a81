// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"github.com/gatehouse-project/gatehouse/lib/ref"
)

// AuthResponse is returned by Login and LoginAsUser.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

// CreateRoomRequest holds parameters for creating a Matrix room.
type CreateRoomRequest struct {
	Name                      string         `json:"name,omitempty"`
	Topic                     string         `json:"topic,omitempty"`
	Alias                     string         `json:"room_alias_name,omitempty"` // local alias without # or :server
	Visibility                string         `json:"visibility,omitempty"`      // "public" or "private"
	Preset                    string         `json:"preset,omitempty"`          // "private_chat" or "public_chat"
	Invite                    []ref.UserID   `json:"invite,omitempty"`
	CreationContent           map[string]any `json:"creation_content,omitempty"` // e.g. {"m.federate": false}
	PowerLevelContentOverride map[string]any `json:"power_level_content_override,omitempty"`
}

// CreateRoomResponse is returned by CreateRoom.
type CreateRoomResponse struct {
	RoomID ref.RoomID `json:"room_id"`
}

// InviteRequest holds the user ID to invite to a room.
type InviteRequest struct {
	UserID ref.UserID `json:"user_id"`
}

// ResolveAliasResponse is returned by ResolveAlias.
type ResolveAliasResponse struct {
	RoomID  ref.RoomID `json:"room_id"`
	Servers []string   `json:"servers"`
}

// JoinedRoomsResponse is returned by JoinedRooms and by the admin
// per-user joined-rooms endpoint (which adds a total count).
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
	Total       int          `json:"total,omitempty"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// SendEventResponse is returned by SendStateEvent.
type SendEventResponse struct {
	EventID string `json:"event_id"`
}

// Threepid is a third-party identifier bound to a Matrix account.
// Gatehouse binds the ticketing profile's email address so the person
// can later recover or be contacted through standard Matrix flows.
type Threepid struct {
	Medium  string `json:"medium"` // "email"
	Address string `json:"address"`
}

// CreateUserRequest holds parameters for provisioning a Matrix account
// via the Synapse admin API. The localpart must already be validated.
type CreateUserRequest struct {
	Localpart   string
	DisplayName string
	Email       string
	Admin       bool
}

// adminUpsertUserBody is the JSON body for the Synapse admin user
// upsert endpoint (PUT /_synapse/admin/v2/users/{userID}).
type adminUpsertUserBody struct {
	DisplayName string     `json:"displayname,omitempty"`
	Threepids   []Threepid `json:"threepids,omitempty"`
	Admin       bool       `json:"admin"`
}

// adminUserResponse is the relevant subset of the Synapse admin user
// detail response (GET /_synapse/admin/v2/users/{userID}).
type adminUserResponse struct {
	Name        ref.UserID `json:"name"`
	DisplayName string     `json:"displayname"`
	Admin       bool       `json:"admin"`
	Deactivated bool       `json:"deactivated"`
}
