package snapshot

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shadowdev/shadowctl/internal/environment"
	"github.com/shadowdev/shadowctl/internal/errors"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newSourceRepo creates a repository with two committed files on branch main.
func newSourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "--quiet", "-b", "main")
	writeFile(t, dir, "README.md", "hello\n")
	writeFile(t, dir, "src/lib.go", "package lib\n")
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "--quiet", "-m", "initial")
	return dir
}

func spec(dir string) environment.RepoSpec {
	return environment.RepoSpec{Org: "acme", Name: "lib", LocalPath: dir}
}

func cloneBundle(t *testing.T, bundle string) string {
	t.Helper()
	dest := filepath.Join(t.TempDir(), "clone")
	cmd := exec.Command("git", "clone", "--quiet", bundle, dest)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("clone bundle: %v\n%s", err, out)
	}
	return dest
}

func TestSnapshotCleanTree(t *testing.T) {
	requireGit(t)
	src := newSourceRepo(t)
	head := runGit(t, src, "rev-parse", "HEAD")

	b := NewBuilder(nil)
	dest := filepath.Join(t.TempDir(), "acme__lib.bundle")
	rec, err := b.Snapshot(context.Background(), spec(src), dest)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if rec.HasUncommitted {
		t.Error("clean tree reported as dirty")
	}
	if rec.HeadCommit != head {
		t.Errorf("HeadCommit = %s, want %s", rec.HeadCommit, head)
	}
	if rec.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", rec.SizeBytes)
	}

	clone := cloneBundle(t, dest)
	got, err := os.ReadFile(filepath.Join(clone, "README.md"))
	if err != nil || string(got) != "hello\n" {
		t.Errorf("cloned README.md = %q, %v", got, err)
	}
	if runGit(t, clone, "rev-parse", "HEAD") != head {
		t.Error("cloned HEAD differs from source HEAD")
	}
}

func TestSnapshotDirtyTreeExactCapture(t *testing.T) {
	requireGit(t)
	src := newSourceRepo(t)
	origHead := runGit(t, src, "rev-parse", "HEAD")

	writeFile(t, src, "README.md", "modified\n")
	writeFile(t, src, "new.txt", "brand new\n")
	if err := os.Remove(filepath.Join(src, "src", "lib.go")); err != nil {
		t.Fatal(err)
	}
	statusBefore := runGit(t, src, "status", "--porcelain")

	b := NewBuilder(nil)
	dest := filepath.Join(t.TempDir(), "acme__lib.bundle")
	rec, err := b.Snapshot(context.Background(), spec(src), dest)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !rec.HasUncommitted {
		t.Error("dirty tree reported as clean")
	}
	if rec.HeadCommit == origHead {
		t.Error("dirty snapshot should record the synthetic commit, not the source HEAD")
	}

	clone := cloneBundle(t, dest)
	if got, _ := os.ReadFile(filepath.Join(clone, "README.md")); string(got) != "modified\n" {
		t.Errorf("modified file not captured: %q", got)
	}
	if got, _ := os.ReadFile(filepath.Join(clone, "new.txt")); string(got) != "brand new\n" {
		t.Errorf("untracked file not captured: %q", got)
	}
	if _, err := os.Stat(filepath.Join(clone, "src", "lib.go")); !os.IsNotExist(err) {
		t.Error("deleted file still present in snapshot")
	}

	// Synthetic commit identity and message.
	author := runGit(t, clone, "log", "-1", "--format=%an <%ae>")
	if author != "Shadow <shadow@localhost>" {
		t.Errorf("synthetic commit author = %q", author)
	}
	msg := runGit(t, clone, "log", "-1", "--format=%s")
	if msg != "Shadow snapshot: uncommitted changes" {
		t.Errorf("synthetic commit message = %q", msg)
	}
	// The synthetic commit sits on top of the original HEAD.
	if parent := runGit(t, clone, "rev-parse", "HEAD^"); parent != origHead {
		t.Errorf("synthetic commit parent = %s, want %s", parent, origHead)
	}

	// The source repository is never written to.
	if runGit(t, src, "rev-parse", "HEAD") != origHead {
		t.Error("source HEAD changed")
	}
	if runGit(t, src, "status", "--porcelain") != statusBefore {
		t.Error("source working tree status changed")
	}
}

func TestSnapshotIgnoredFilesExcluded(t *testing.T) {
	requireGit(t)
	src := newSourceRepo(t)
	writeFile(t, src, ".gitignore", "*.log\n")
	runGit(t, src, "add", ".gitignore")
	runGit(t, src, "commit", "--quiet", "-m", "ignore logs")
	writeFile(t, src, "debug.log", "noise\n")
	writeFile(t, src, "note.txt", "keep\n")

	b := NewBuilder(nil)
	dest := filepath.Join(t.TempDir(), "acme__lib.bundle")
	if _, err := b.Snapshot(context.Background(), spec(src), dest); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	clone := cloneBundle(t, dest)
	if _, err := os.Stat(filepath.Join(clone, "debug.log")); !os.IsNotExist(err) {
		t.Error("ignored file captured")
	}
	if _, err := os.Stat(filepath.Join(clone, "note.txt")); err != nil {
		t.Error("untracked file missing")
	}
}

func TestSnapshotPreservesRemoteTracking(t *testing.T) {
	requireGit(t)
	base := newSourceRepo(t)

	// A clone has refs/remotes/origin/* tracking the base repository.
	src := filepath.Join(t.TempDir(), "work")
	cmd := exec.Command("git", "clone", "--quiet", base, src)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("clone: %v\n%s", err, out)
	}
	upstreamHead := runGit(t, src, "rev-parse", "refs/remotes/origin/main")

	b := NewBuilder(nil)
	dest := filepath.Join(t.TempDir(), "acme__lib.bundle")
	if _, err := b.Snapshot(context.Background(), spec(src), dest); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	out, err := exec.Command("git", "bundle", "list-heads", dest).Output()
	if err != nil {
		t.Fatalf("bundle list-heads: %v", err)
	}
	if !strings.Contains(string(out), upstreamHead+" refs/heads/shadow-upstream/origin/main") {
		t.Errorf("remote-tracking ref not preserved:\n%s", out)
	}
}

func TestSnapshotLocalBranchWinsNameCollision(t *testing.T) {
	requireGit(t)
	base := newSourceRepo(t)

	src := filepath.Join(t.TempDir(), "work")
	cmd := exec.Command("git", "clone", "--quiet", base, src)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("clone: %v\n%s", err, out)
	}

	// A local branch whose name collides with the renamed upstream ref.
	runGit(t, src, "branch", "shadow-upstream/origin/main")
	writeFile(t, src, "local.txt", "local\n")
	runGit(t, src, "checkout", "--quiet", "shadow-upstream/origin/main")
	runGit(t, src, "add", "-A")
	runGit(t, src, "commit", "--quiet", "-m", "local divergence")
	localHead := runGit(t, src, "rev-parse", "HEAD")
	runGit(t, src, "checkout", "--quiet", "main")

	b := NewBuilder(nil)
	dest := filepath.Join(t.TempDir(), "acme__lib.bundle")
	if _, err := b.Snapshot(context.Background(), spec(src), dest); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	out, err := exec.Command("git", "bundle", "list-heads", dest).Output()
	if err != nil {
		t.Fatalf("bundle list-heads: %v", err)
	}
	if !strings.Contains(string(out), localHead+" refs/heads/shadow-upstream/origin/main") {
		t.Errorf("local branch should win the name collision:\n%s", out)
	}
}

func TestSnapshotNotARepository(t *testing.T) {
	requireGit(t)
	b := NewBuilder(nil)
	dest := filepath.Join(t.TempDir(), "x.bundle")
	_, err := b.Snapshot(context.Background(), spec(t.TempDir()), dest)
	if !errors.HasCode(err, errors.CodeSourceError) {
		t.Errorf("expected source_error, got %v", err)
	}
}

func TestSnapshotEmptyRepository(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	runGit(t, dir, "init", "--quiet")

	b := NewBuilder(nil)
	dest := filepath.Join(t.TempDir(), "x.bundle")
	_, err := b.Snapshot(context.Background(), spec(dir), dest)
	if !errors.HasCode(err, errors.CodeSourceError) {
		t.Errorf("expected source_error for repo with no commits, got %v", err)
	}
}
