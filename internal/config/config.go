package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// ErrInvalidPreference is returned when a preference setter receives an
// unknown token.
var ErrInvalidPreference = errors.New("invalid preference value")

// Notification levels.
const (
	NotifyAll      = "all"
	NotifyMentions = "mentions"
	NotifyOff      = "off"
)

// Activity privacy levels.
const (
	PrivacyFull       = "full"
	PrivacyStatusOnly = "status_only"
	PrivacyOff        = "off"
)

// File is the persisted identity and preference state.
type File struct {
	Handle          string         `json:"handle,omitempty"`
	OneLiner        string         `json:"one_liner,omitempty"`
	AuthToken       string         `json:"auth_token,omitempty"`
	Visible         *bool          `json:"visible,omitempty"`
	Notifications   string         `json:"notifications,omitempty"`
	GuidedMode      bool           `json:"guided_mode,omitempty"`
	ActivityPrivacy string         `json:"activity_privacy,omitempty"`
	Preferences     map[string]any `json:"preferences,omitempty"`
}

// Store owns the long-lived config file plus ephemeral per-process state.
type Store struct {
	mu         sync.Mutex
	path       string
	legacyPath string
	ephemeral  map[string]string
}

// NewStore resolves config paths under the user home directory.
func NewStore() *Store {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return NewStoreAt(
		filepath.Join(home, ".vibecodings", "config.json"),
		filepath.Join(home, ".vibe", "config.json"),
	)
}

// NewStoreAt builds a store with explicit paths. Tests use this.
func NewStoreAt(path, legacyPath string) *Store {
	return &Store{
		path:       path,
		legacyPath: legacyPath,
		ephemeral:  map[string]string{},
	}
}

// Load reads the persisted config. It never fails: a missing or corrupt file
// yields defaults. The legacy path is consulted when the preferred file is
// absent; saves always target the preferred path.
func (s *Store) Load() File {
	cfg := File{}
	data, err := os.ReadFile(s.path)
	if err != nil && s.legacyPath != "" {
		data, err = os.ReadFile(s.legacyPath)
	}
	if err == nil {
		_ = json.Unmarshal(data, &cfg)
	}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *File) {
	if cfg.Notifications == "" {
		cfg.Notifications = NotifyAll
	}
	if cfg.ActivityPrivacy == "" {
		cfg.ActivityPrivacy = PrivacyFull
	}
	if cfg.Visible == nil {
		visible := true
		cfg.Visible = &visible
	}
	if cfg.Preferences == nil {
		cfg.Preferences = map[string]any{}
	}
}

// Save writes the config atomically (write-temp-then-rename). The config
// directory is created with mode 0700.
func (s *Store) Save(cfg File) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// GetHandle returns the session override first, else the persisted handle.
// Empty string means no identity is configured.
func (s *Store) GetHandle() string {
	s.mu.Lock()
	override := s.ephemeral["handle"]
	s.mu.Unlock()
	if override != "" {
		return override
	}
	return s.Load().Handle
}

// GetAuthToken returns the stored server bearer token, if any.
func (s *Store) GetAuthToken() string {
	return s.Load().AuthToken
}

// SetAuthToken persists a new bearer token.
func (s *Store) SetAuthToken(token string) error {
	cfg := s.Load()
	cfg.AuthToken = token
	return s.Save(cfg)
}

// SetIdentity persists the handle and one-liner after successful auth.
func (s *Store) SetIdentity(handle, oneLiner string) error {
	cfg := s.Load()
	cfg.Handle = handle
	if oneLiner != "" {
		cfg.OneLiner = oneLiner
	}
	return s.Save(cfg)
}

// SetSessionIdentity overrides the identity for this process only.
func (s *Store) SetSessionIdentity(handle, oneLiner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ephemeral["handle"] = handle
	s.ephemeral["one_liner"] = oneLiner
}

// SetNotifications validates and persists the notification level.
func (s *Store) SetNotifications(level string) error {
	switch level {
	case NotifyAll, NotifyMentions, NotifyOff:
	default:
		return ErrInvalidPreference
	}
	cfg := s.Load()
	cfg.Notifications = level
	return s.Save(cfg)
}

// SetActivityPrivacy validates and persists the activity privacy level.
func (s *Store) SetActivityPrivacy(level string) error {
	switch level {
	case PrivacyFull, PrivacyStatusOnly, PrivacyOff:
	default:
		return ErrInvalidPreference
	}
	cfg := s.Load()
	cfg.ActivityPrivacy = level
	return s.Save(cfg)
}

// SetWorkingOn records the current focus for heartbeats (ephemeral).
func (s *Store) SetWorkingOn(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ephemeral["working_on"] = text
}

// GetWorkingOn returns the current focus, if set.
func (s *Store) GetWorkingOn() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ephemeral["working_on"]
}

// ClearSession drops all ephemeral per-process state.
func (s *Store) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ephemeral = map[string]string{}
}
