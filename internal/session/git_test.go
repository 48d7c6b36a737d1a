package session

import (
	"os"
	"path/filepath"
	"testing"
)

func writeHead(t *testing.T, root, content string) {
	t.Helper()
	gitDir := filepath.Join(root, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte(content+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectGitContext(t *testing.T) {
	root := filepath.Join(t.TempDir(), "myproject")
	nested := filepath.Join(root, "internal", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	writeHead(t, root, "ref: refs/heads/feature/sync")

	repo, branch := DetectGitContext(nested)
	if repo != "myproject" {
		t.Errorf("repo = %q, want myproject", repo)
	}
	if branch != "feature/sync" {
		t.Errorf("branch = %q, want feature/sync", branch)
	}
}

func TestDetectGitContextDetachedHead(t *testing.T) {
	root := filepath.Join(t.TempDir(), "pinned")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	writeHead(t, root, "0123456789abcdef0123456789abcdef01234567")

	_, branch := DetectGitContext(root)
	if branch != "0123456" {
		t.Errorf("branch = %q, want short hash", branch)
	}
}

func TestDetectGitContextOutsideRepo(t *testing.T) {
	repo, branch := DetectGitContext(t.TempDir())
	if repo != "" || branch != "" {
		t.Errorf("got %q/%q outside a checkout, want empty", repo, branch)
	}
}
