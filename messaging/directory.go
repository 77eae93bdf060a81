// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gatehouse-project/gatehouse/lib/ref"
)

// Directory exposes the account-management operations gatehouse needs,
// implemented over the Synapse admin HTTP API. The wrapped session must
// belong to a server administrator.
//
// Account provisioning uses the admin user upsert endpoint
// (PUT /_synapse/admin/v2/users/{userID}), which is idempotent at the
// homeserver: concurrent provisioning of the same localpart converges
// on one account rather than corrupting state. Gatehouse relies on
// that guarantee instead of serializing same-user logins itself.
type Directory struct {
	session *Session
	server  ref.ServerName
}

// NewDirectory creates a Directory over an administrative session.
// server is the Matrix server name used to qualify localparts.
func NewDirectory(session *Session, server ref.ServerName) *Directory {
	return &Directory{session: session, server: server}
}

// Qualify returns the fully-qualified user ID for a localpart on the
// directory's server. Pure — no I/O.
func (d *Directory) Qualify(localpart string) ref.UserID {
	return ref.MatrixUserID(localpart, d.server)
}

// UserExists reports whether an account with the given user ID exists.
// A deactivated account still counts as existing — its identifier must
// never be re-minted for someone else.
func (d *Directory) UserExists(ctx context.Context, userID ref.UserID) (bool, error) {
	path := "/_synapse/admin/v2/users/" + url.PathEscape(userID.String())
	body, err := d.session.client.doRequest(ctx, http.MethodGet, path, d.session.accessToken, nil)
	if err != nil {
		if IsMatrixError(err, ErrCodeNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("messaging: user lookup for %q failed: %w", userID, err)
	}

	var response adminUserResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return false, fmt.Errorf("messaging: failed to parse user lookup response: %w", err)
	}
	return true, nil
}

// CreateUser provisions a new account with the given localpart, display
// name, bound email address, and admin flag. Returns the new account's
// user ID. The upsert endpoint succeeds even if the account already
// exists; callers check UserExists first to avoid mutating existing
// accounts.
func (d *Directory) CreateUser(ctx context.Context, request CreateUserRequest) (ref.UserID, error) {
	if err := ref.ValidateLocalpart(request.Localpart); err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: create user: %w", err)
	}
	userID := d.Qualify(request.Localpart)

	requestBody := adminUpsertUserBody{
		DisplayName: request.DisplayName,
		Admin:       request.Admin,
	}
	if request.Email != "" {
		requestBody.Threepids = []Threepid{{Medium: "email", Address: request.Email}}
	}

	path := "/_synapse/admin/v2/users/" + url.PathEscape(userID.String())
	_, err := d.session.client.doRequest(ctx, http.MethodPut, path, d.session.accessToken, requestBody)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: create user %q failed: %w", userID, err)
	}

	d.session.client.logger.Info("provisioned matrix account",
		"user_id", userID,
		"display_name", request.DisplayName,
		"admin", request.Admin,
	)
	return userID, nil
}

// JoinedRoomsOf returns the room IDs the given account currently
// belongs to, via the admin per-user joined-rooms endpoint. Used by the
// reconciler to diff actual membership against the target room set
// without holding a session for the target account.
func (d *Directory) JoinedRoomsOf(ctx context.Context, userID ref.UserID) ([]ref.RoomID, error) {
	path := "/_synapse/admin/v1/users/" + url.PathEscape(userID.String()) + "/joined_rooms"
	body, err := d.session.client.doRequest(ctx, http.MethodGet, path, d.session.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: joined rooms for %q failed: %w", userID, err)
	}

	var response JoinedRoomsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse joined rooms response: %w", err)
	}
	return response.JoinedRooms, nil
}

// LoginAsUser obtains a short-lived session acting as the given local
// account, via the admin login-as-user endpoint. The reconciler uses
// this to perform forced joins as the target account after an admin
// invite. The caller must Close the returned session; closing releases
// the token memory but does not invalidate the server-side token.
func (d *Directory) LoginAsUser(ctx context.Context, userID ref.UserID) (*Session, error) {
	path := "/_synapse/admin/v1/users/" + url.PathEscape(userID.String()) + "/login"
	body, err := d.session.client.doRequest(ctx, http.MethodPost, path, d.session.accessToken, struct{}{})
	if err != nil {
		return nil, fmt.Errorf("messaging: login as %q failed: %w", userID, err)
	}

	var response AuthResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse login-as-user response: %w", err)
	}
	response.UserID = userID
	return d.session.client.sessionFromAuth(&response)
}
