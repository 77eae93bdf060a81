// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	data, err := ReadResponse(strings.NewReader(`{"ok":true}`))
	if err != nil {
		t.Fatalf("ReadResponse failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("body = %q", data)
	}
}

func TestDecodeResponse(t *testing.T) {
	var decoded struct {
		UserID string `json:"user_id"`
	}
	if err := DecodeResponse(strings.NewReader(`{"user_id":"@a:b"}`), &decoded); err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if decoded.UserID != "@a:b" {
		t.Errorf("user_id = %q", decoded.UserID)
	}

	if err := DecodeResponse(strings.NewReader("not json"), &decoded); err == nil {
		t.Error("DecodeResponse of invalid JSON should have failed")
	}
}

func TestErrorBody(t *testing.T) {
	if body := ErrorBody(strings.NewReader("boom")); body != "boom" {
		t.Errorf("ErrorBody = %q", body)
	}
}
