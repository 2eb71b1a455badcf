// # internal/gitinfo/gitinfo_test.go
package gitinfo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t.com", "GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git unavailable in test environment: %v: %s", err, out)
		}
	}
	run("init", "-q")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "a.txt")
	run("commit", "-q", "-m", "first")
	return dir
}

func TestCollaborator_CurrentCommitNonEmpty(t *testing.T) {
	dir := initRepo(t)
	c := New(dir)
	if got := c.CurrentCommit(context.Background()); got == "" {
		t.Error("expected a non-empty commit hash in a real repo")
	}
}

func TestCollaborator_ChurnCountsCommits(t *testing.T) {
	dir := initRepo(t)
	c := New(dir)
	if got := c.Churn(context.Background(), "a.txt"); got != 1 {
		t.Errorf("expected churn 1 after one commit, got %d", got)
	}
}

func TestCollaborator_NotAGitRepoReturnsZeroValues(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	if got := c.CurrentCommit(context.Background()); got != "" {
		t.Errorf("expected empty commit outside a git repo, got %q", got)
	}
	if got := c.Churn(context.Background(), "a.txt"); got != 0 {
		t.Errorf("expected zero churn outside a git repo, got %d", got)
	}
	if diff := c.Diff(context.Background(), "HEAD~1", "HEAD"); len(diff.Added)+len(diff.Modified)+len(diff.Deleted) != 0 {
		t.Errorf("expected empty diff outside a git repo, got %+v", diff)
	}
}
