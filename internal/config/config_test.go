package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStoreAt(
		filepath.Join(dir, ".vibecodings", "config.json"),
		filepath.Join(dir, ".vibe", "config.json"),
	)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s := newTestStore(t)
	cfg := s.Load()
	if cfg.Notifications != NotifyAll {
		t.Errorf("notifications default = %q, want all", cfg.Notifications)
	}
	if cfg.ActivityPrivacy != PrivacyFull {
		t.Errorf("activity privacy default = %q, want full", cfg.ActivityPrivacy)
	}
	if cfg.Visible == nil || !*cfg.Visible {
		t.Error("visible should default to true")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	cfg := s.Load()
	cfg.Handle = "alice"
	cfg.AuthToken = "tok-1"
	if err := s.Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := s.Load()
	if got.Handle != "alice" || got.AuthToken != "tok-1" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := os.Stat(s.path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestLegacyPathFallback(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.legacyPath), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(s.legacyPath, []byte(`{"handle":"bob"}`), 0o600); err != nil {
		t.Fatalf("write legacy: %v", err)
	}
	if got := s.Load().Handle; got != "bob" {
		t.Fatalf("legacy handle = %q, want bob", got)
	}

	// once the preferred file exists it wins
	cfg := s.Load()
	cfg.Handle = "carol"
	if err := s.Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := s.Load().Handle; got != "carol" {
		t.Fatalf("preferred handle = %q, want carol", got)
	}
}

func TestCorruptFileYieldsDefaults(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(s.path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := s.Load()
	if cfg.Handle != "" || cfg.Notifications != NotifyAll {
		t.Fatalf("corrupt file should give defaults, got %+v", cfg)
	}
}

func TestSessionIdentityOverride(t *testing.T) {
	s := newTestStore(t)
	cfg := s.Load()
	cfg.Handle = "persisted"
	if err := s.Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.SetSessionIdentity("override", "hacking")
	if got := s.GetHandle(); got != "override" {
		t.Fatalf("handle = %q, want override", got)
	}
	s.ClearSession()
	if got := s.GetHandle(); got != "persisted" {
		t.Fatalf("handle after clear = %q, want persisted", got)
	}
}

func TestPreferenceValidation(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetNotifications("loud"); err != ErrInvalidPreference {
		t.Fatalf("expected ErrInvalidPreference, got %v", err)
	}
	if err := s.SetNotifications(NotifyMentions); err != nil {
		t.Fatalf("valid level rejected: %v", err)
	}
	if got := s.Load().Notifications; got != NotifyMentions {
		t.Fatalf("notifications = %q, want mentions", got)
	}
	if err := s.SetActivityPrivacy("everything"); err != ErrInvalidPreference {
		t.Fatalf("expected ErrInvalidPreference, got %v", err)
	}
	if err := s.SetActivityPrivacy(PrivacyStatusOnly); err != nil {
		t.Fatalf("valid level rejected: %v", err)
	}
}

func TestSessionIDShape(t *testing.T) {
	s := newTestStore(t)
	id := s.GetSessionID()
	if !strings.HasPrefix(id, "sess_") {
		t.Fatalf("session id %q missing sess_ prefix", id)
	}
	if id != s.GetSessionID() {
		t.Fatal("session id should be stable within a process")
	}

	seen := map[string]bool{}
	for i := 0; i < 100000; i++ {
		generated := newSessionID()
		if seen[generated] {
			t.Fatalf("duplicate session id after %d generations", i)
		}
		seen[generated] = true
	}
}

func TestServerAssignedSessionID(t *testing.T) {
	s := newTestStore(t)
	_ = s.GetSessionID()
	s.SetSessionID("S")
	if got := s.GetSessionID(); got != "S" {
		t.Fatalf("session id = %q, want S", got)
	}
	s.SetSessionID("")
	if got := s.GetSessionID(); got != "S" {
		t.Fatal("empty server session id must not clear the current one")
	}
}

func TestMachineIDStable(t *testing.T) {
	s := newTestStore(t)
	first := s.MachineID()
	if first == "" {
		t.Fatal("machine id empty")
	}
	if second := s.MachineID(); second != first {
		t.Fatalf("machine id changed: %q vs %q", first, second)
	}
}
