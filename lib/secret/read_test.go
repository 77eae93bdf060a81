// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  syt_admin_token  \n"), 0600); err != nil {
		t.Fatalf("writing token file: %v", err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath failed: %v", err)
	}
	defer buffer.Close()

	if buffer.String() != "syt_admin_token" {
		t.Errorf("token = %q, want whitespace trimmed", buffer.String())
	}
}

func TestReadFromPathEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  \n"), 0600); err != nil {
		t.Fatalf("writing token file: %v", err)
	}
	if _, err := ReadFromPath(path); err == nil {
		t.Error("ReadFromPath of whitespace-only file should have failed")
	}
}

func TestReadFromPathMissing(t *testing.T) {
	if _, err := ReadFromPath(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("ReadFromPath of missing file should have failed")
	}
}
