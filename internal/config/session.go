package config

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GetSessionID returns this process's session id, generating one on first
// call. The server may later supersede it via SetSessionID.
func (s *Store) GetSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id := s.ephemeral["session_id"]; id != "" {
		return id
	}
	id := newSessionID()
	s.ephemeral["session_id"] = id
	return id
}

// SetSessionID replaces the session id with a server-assigned one.
func (s *Store) SetSessionID(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ephemeral["session_id"] = id
}

// newSessionID produces "sess_" plus 128 bits of randomness, base36.
func newSessionID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("sess_%d", time.Now().UnixNano())
	}
	n := new(big.Int).SetBytes(buf[:])
	return "sess_" + n.Text(36)
}

// MachineID returns a stable per-machine identifier, generating and
// persisting one next to the config file on first use.
func (s *Store) MachineID() string {
	path := filepath.Join(filepath.Dir(s.path), "machine-id")
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	var buf [8]byte
	id := ""
	if _, err := rand.Read(buf[:]); err == nil {
		id = new(big.Int).SetBytes(buf[:]).Text(36)
	}
	if id == "" {
		host, _ := os.Hostname()
		id = strings.ToLower(host)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err == nil {
		_ = os.WriteFile(path, []byte(id+"\n"), 0o600)
	}
	return id
}
