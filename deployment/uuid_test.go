package deployment

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewUUIDCreatesAndPersists(t *testing.T) {
	dataDir := t.TempDir()

	u, err := NewUUID(dataDir)
	if err != nil {
		t.Fatalf("NewUUID failed: %v", err)
	}

	if u.String() == "" {
		t.Error("Deployment UUID should not be empty")
	}
	if !IsValidUUID(u.String()) {
		t.Errorf("Deployment UUID is not valid: %s", u.String())
	}

	wantPath := filepath.Join(dataDir, uuidFileName)
	if u.FilePath() != wantPath {
		t.Errorf("FilePath = %s, want %s", u.FilePath(), wantPath)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("UUID file was not written: %v", err)
	}
	if got := string(data); got != u.String()+"\n" {
		t.Errorf("UUID file contents = %q, want %q", got, u.String()+"\n")
	}
}

func TestNewUUIDStableAcrossRestarts(t *testing.T) {
	dataDir := t.TempDir()

	first, err := NewUUID(dataDir)
	if err != nil {
		t.Fatalf("NewUUID failed: %v", err)
	}

	// Every subsequent server start must load the same identity.
	for i := 0; i < 5; i++ {
		u, err := NewUUID(dataDir)
		if err != nil {
			t.Fatalf("NewUUID failed on restart %d: %v", i, err)
		}
		if u.String() != first.String() {
			t.Errorf("UUID changed on restart %d: %s != %s", i, u.String(), first.String())
		}
	}
}

func TestNewUUIDCreatesDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "deploytrace", "data")

	u, err := NewUUID(dataDir)
	if err != nil {
		t.Fatalf("NewUUID failed: %v", err)
	}

	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("Data directory was not created: %v", err)
	}
	if _, err := os.Stat(u.FilePath()); err != nil {
		t.Errorf("UUID file was not created: %v", err)
	}
}

func TestNewUUIDRejectsCorruptFile(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(dataDir, uuidFileName)

	if err := os.WriteFile(path, []byte("not-a-deployment-uuid"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := NewUUID(dataDir); err == nil {
		t.Error("Expected error for corrupt UUID file, got nil")
	}
}

func TestNewUUIDTrimsWhitespace(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(dataDir, uuidFileName)

	const stored = "550e8400-e29b-41d4-a716-446655440000"
	if err := os.WriteFile(path, []byte("  "+stored+"  \n"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	u, err := NewUUID(dataDir)
	if err != nil {
		t.Fatalf("NewUUID failed: %v", err)
	}
	if u.String() != stored {
		t.Errorf("UUID = %s, want %s", u.String(), stored)
	}
}

func TestIsValidUUID(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"550E8400-E29B-41D4-A716-446655440000", true},
		{"not-a-uuid", false},
		{"", false},
		{"550e8400-e29b-41d4-a716", false},
		{"550e8400-e29b-41d4-a716-446655440000-extra", false},
	}
	for _, tt := range tests {
		if got := IsValidUUID(tt.in); got != tt.valid {
			t.Errorf("IsValidUUID(%q) = %v, want %v", tt.in, got, tt.valid)
		}
	}
}

func TestGenerateUUIDProducesDistinctValidIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generateUUID()
		if err != nil {
			t.Fatalf("generateUUID failed: %v", err)
		}
		if !IsValidUUID(id) {
			t.Fatalf("Generated invalid UUID: %s", id)
		}
		if seen[id] {
			t.Fatalf("Generated duplicate UUID: %s", id)
		}
		seen[id] = true
	}
}
