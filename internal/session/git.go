package session

import (
	"os"
	"path/filepath"
	"strings"
)

// DetectGitContext walks up from startDir looking for a .git directory and
// returns the repository name and current branch. Both are empty when the
// directory is not inside a git checkout.
func DetectGitContext(startDir string) (repo, branch string) {
	current := startDir
	if current == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", ""
		}
		current = cwd
	}
	current, err := filepath.Abs(current)
	if err != nil {
		return "", ""
	}

	for {
		gitDir := filepath.Join(current, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return filepath.Base(current), readBranch(gitDir)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ""
		}
		current = parent
	}
}

// readBranch parses .git/HEAD. A detached HEAD yields the short hash.
func readBranch(gitDir string) string {
	data, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return ""
	}
	head := strings.TrimSpace(string(data))
	if ref, ok := strings.CutPrefix(head, "ref: "); ok {
		return strings.TrimPrefix(ref, "refs/heads/")
	}
	if len(head) >= 7 {
		return head[:7]
	}
	return head
}
