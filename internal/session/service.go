// Package session resumes, saves, and summarizes MCP work sessions backed
// by the journal store.
package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/VibeCodingInc/vibe-mcp/internal/config"
	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
	"github.com/VibeCodingInc/vibe-mcp/internal/store"
	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

const (
	resumeJournalLimit = 20
	maxChainDepth      = 5
)

// Service is the session lifecycle layer over the journal.
type Service struct {
	store store.Store
	cfg   *config.Store
	log   *logging.Logger
}

func NewService(st store.Store, cfg *config.Store, log *logging.Logger) *Service {
	return &Service{store: st, cfg: cfg, log: log}
}

// ResumeContext is what a fresh session gets handed about the previous one.
type ResumeContext struct {
	Previous *types.Session       `json:"previous,omitempty"`
	Entries  []types.JournalEntry `json:"entries,omitempty"`
	// Chain walks parent links backward from Previous, oldest last.
	Chain []types.Session `json:"chain,omitempty"`
}

// Resume finds the most recent finished session for handle (scoped to repo
// when given), links the current session to it, and returns its context.
// A nil Previous means there is nothing to resume.
func (s *Service) Resume(handle, repo string) (*ResumeContext, error) {
	handle = types.NormalizeHandle(handle)
	if handle == "" {
		return nil, fmt.Errorf("a handle is required to resume")
	}
	current := s.cfg.GetSessionID()
	s.ensureCurrentSession(handle, repo)

	previous, err := s.store.GetLastSession(handle, repo, current)
	if err != nil {
		return nil, fmt.Errorf("look up last session: %w", err)
	}
	if previous == nil {
		return &ResumeContext{}, nil
	}

	if err := s.store.SetSessionParent(current, previous.SessionID); err != nil {
		s.log.Warnw("could not link session parent", "error", err)
	}

	entries, err := s.store.GetSessionJournal(previous.SessionID, resumeJournalLimit)
	if err != nil {
		s.log.Warnw("journal read failed during resume", "error", err)
	}

	return &ResumeContext{
		Previous: previous,
		Entries:  entries,
		Chain:    s.parentChain(previous),
	}, nil
}

// ensureCurrentSession makes the current session row exist so the parent
// link has somewhere to land. StartSession is a no-op for existing rows.
func (s *Service) ensureCurrentSession(handle, repo string) {
	branch := ""
	if repo == "" {
		repo, branch = DetectGitContext("")
	}
	err := s.store.StartSession(types.Session{
		SessionID: s.cfg.GetSessionID(),
		Handle:    handle,
		MachineID: s.cfg.MachineID(),
		StartedAt: types.NowISO(),
		GitRepo:   repo,
		GitBranch: branch,
	})
	if err != nil {
		s.log.Warnw("could not ensure current session", "error", err)
	}
}

// Save closes the current session with a summary.
func (s *Service) Save(summary string) error {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fmt.Errorf("a summary is required to save the session")
	}
	if err := s.store.EndSession(s.cfg.GetSessionID(), summary); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Recent lists the latest sessions for a handle, optionally repo-scoped.
func (s *Service) Recent(handle string, limit int, repo string) ([]types.Session, error) {
	return s.store.GetRecentSessions(types.NormalizeHandle(handle), limit, repo)
}

// Summarize digests a session's journal into a display string: tool call
// counts, peers messaged, and notes.
func (s *Service) Summarize(sessionID string) (string, error) {
	session, err := s.store.GetSession(sessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}
	entries, err := s.store.GetSessionJournal(sessionID, 0)
	if err != nil {
		return "", err
	}

	toolCounts := make(map[string]int)
	peers := make(map[string]bool)
	var notes []string
	for _, entry := range entries {
		switch entry.EventType {
		case types.EventToolCall:
			toolCounts[entry.ToolName]++
		case types.EventMessageSent, types.EventMessageReceived:
			if entry.Target != "" {
				peers[entry.Target] = true
			}
		case types.EventNote:
			notes = append(notes, entry.Summary)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "session %s (%s", session.SessionID, session.StartedAt)
	if session.GitRepo != "" {
		fmt.Fprintf(&b, ", %s", session.GitRepo)
	}
	b.WriteString(")\n")
	if session.Summary != "" {
		fmt.Fprintf(&b, "summary: %s\n", session.Summary)
	}
	if len(toolCounts) > 0 {
		b.WriteString("tools: ")
		b.WriteString(strings.Join(formatCounts(toolCounts), ", "))
		b.WriteString("\n")
	}
	if len(peers) > 0 {
		b.WriteString("messaged: ")
		b.WriteString(strings.Join(sortedKeys(peers), ", "))
		b.WriteString("\n")
	}
	for _, note := range notes {
		fmt.Fprintf(&b, "note: %s\n", note)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Service) parentChain(from *types.Session) []types.Session {
	var chain []types.Session
	cursor := from
	for i := 0; i < maxChainDepth && cursor.ParentID != nil; i++ {
		parent, err := s.store.GetSession(*cursor.ParentID)
		if err != nil || parent == nil {
			break
		}
		chain = append(chain, *parent)
		cursor = parent
	}
	return chain
}

func formatCounts(counts map[string]int) []string {
	parts := make([]string, 0, len(counts))
	for _, name := range sortedCountKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s (%d)", name, counts[name]))
	}
	return parts
}

func sortedCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
