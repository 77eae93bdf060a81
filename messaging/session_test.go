// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gatehouse-project/gatehouse/lib/ref"
)

func TestWhoAmI(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/account/whoami" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, WhoAmIResponse{UserID: ref.MustParseUserID("@admin:local")})
	}))

	userID, err := session.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if userID.String() != "@admin:local" {
		t.Errorf("unexpected user ID: %s", userID)
	}
}

func TestResolveAlias(t *testing.T) {
	t.Run("resolves", func(t *testing.T) {
		session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.EscapedPath() != "/_matrix/client/v3/directory/room/%23staff:local" {
				t.Errorf("unexpected path: %s", request.URL.EscapedPath())
			}
			writeJSON(writer, ResolveAliasResponse{RoomID: ref.MustParseRoomID("!staff1:local")})
		}))

		roomID, err := session.ResolveAlias(context.Background(), ref.MustParseRoomAlias("#staff:local"))
		if err != nil {
			t.Fatalf("ResolveAlias failed: %v", err)
		}
		if roomID.String() != "!staff1:local" {
			t.Errorf("unexpected room ID: %s", roomID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writeMatrixError(writer, http.StatusNotFound, ErrCodeNotFound, "Room alias not found")
		}))

		_, err := session.ResolveAlias(context.Background(), ref.MustParseRoomAlias("#missing:local"))
		if !IsMatrixError(err, ErrCodeNotFound) {
			t.Errorf("expected M_NOT_FOUND, got %v", err)
		}
	})
}

func TestCreateRoom(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/createRoom" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body["room_alias_name"] != "info-desk" {
			t.Errorf("unexpected alias: %v", body["room_alias_name"])
		}
		if body["preset"] != "public_chat" {
			t.Errorf("unexpected preset: %v", body["preset"])
		}
		creationContent, ok := body["creation_content"].(map[string]any)
		if !ok || creationContent["m.federate"] != false {
			t.Errorf("expected m.federate=false creation content, got %v", body["creation_content"])
		}

		writeJSON(writer, CreateRoomResponse{RoomID: ref.MustParseRoomID("!info1:local")})
	}))

	response, err := session.CreateRoom(context.Background(), CreateRoomRequest{
		Name:            "Info Desk",
		Alias:           "info-desk",
		Preset:          "public_chat",
		CreationContent: map[string]any{"m.federate": false},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if response.RoomID.String() != "!info1:local" {
		t.Errorf("unexpected room ID: %s", response.RoomID)
	}
}

func TestInviteUser(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.EscapedPath() != "/_matrix/client/v3/rooms/%21room1:local/invite" {
			t.Errorf("unexpected path: %s", request.URL.EscapedPath())
		}
		var body InviteRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.UserID.String() != "@jose.diaz.jd1:local" {
			t.Errorf("unexpected invitee: %s", body.UserID)
		}
		writeJSON(writer, struct{}{})
	}))

	err := session.InviteUser(context.Background(),
		ref.MustParseRoomID("!room1:local"),
		ref.MustParseUserID("@jose.diaz.jd1:local"))
	if err != nil {
		t.Fatalf("InviteUser failed: %v", err)
	}
}

func TestJoinRoom(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.EscapedPath() != "/_matrix/client/v3/join/%21room1:local" {
			t.Errorf("unexpected path: %s", request.URL.EscapedPath())
		}
		writeJSON(writer, map[string]string{"room_id": "!room1:local"})
	}))

	roomID, err := session.JoinRoom(context.Background(), ref.MustParseRoomID("!room1:local"))
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if roomID.String() != "!room1:local" {
		t.Errorf("unexpected room ID: %s", roomID)
	}
}

func TestJoinedRooms(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/v3/joined_rooms" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, map[string]any{"joined_rooms": []string{"!a:local", "!b:local"}})
	}))

	rooms, err := session.JoinedRooms(context.Background())
	if err != nil {
		t.Fatalf("JoinedRooms failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].String() != "!a:local" {
		t.Errorf("unexpected rooms: %v", rooms)
	}
}

func TestSendStateEvent(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPut {
			t.Errorf("unexpected method: %s", request.Method)
		}
		if request.URL.EscapedPath() != "/_matrix/client/v3/rooms/%21room1:local/state/m.room.topic/" {
			t.Errorf("unexpected path: %s", request.URL.EscapedPath())
		}
		var content map[string]string
		if err := json.NewDecoder(request.Body).Decode(&content); err != nil {
			t.Fatalf("decoding state content: %v", err)
		}
		if content["topic"] != "Sprint organization" {
			t.Errorf("topic = %q", content["topic"])
		}
		writeJSON(writer, SendEventResponse{EventID: "$event1"})
	}))

	eventID, err := session.SendStateEvent(context.Background(), ref.MustParseRoomID("!room1:local"),
		"m.room.topic", "", map[string]any{"topic": "Sprint organization"})
	if err != nil {
		t.Fatalf("SendStateEvent failed: %v", err)
	}
	if eventID != "$event1" {
		t.Errorf("unexpected event ID: %s", eventID)
	}
}
