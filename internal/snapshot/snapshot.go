// Package snapshot captures git working trees into self-contained bundle
// files. A snapshot reflects the exact state of the source checkout,
// including uncommitted and untracked changes, without ever writing to the
// source repository.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shadowdev/shadowctl/internal/environment"
	"github.com/shadowdev/shadowctl/internal/errors"
	"github.com/shadowdev/shadowctl/internal/logging"
	"github.com/shadowdev/shadowctl/internal/system"
)

// Synthetic commit identity used when capturing uncommitted changes. The
// fixed identity keeps snapshots reproducible and makes the synthetic
// commit easy to recognize inside an environment.
const (
	commitAuthorName  = "Shadow"
	commitAuthorEmail = "shadow@localhost"
	commitMessage     = "Shadow snapshot: uncommitted changes"
)

// upstreamPrefix is the branch namespace that preserves the source
// repository's remote-tracking refs inside a bundle. Remote-tracking refs
// would otherwise be lost, since clones do not transfer refs/remotes.
const upstreamPrefix = "shadow-upstream"

// Snapshotter captures one repository into a bundle at destPath.
type Snapshotter interface {
	Snapshot(ctx context.Context, spec environment.RepoSpec, destPath string) (*environment.SnapshotRecord, error)
}

// Builder is the git-backed Snapshotter.
type Builder struct {
	exec system.CommandExecutor
}

// NewBuilder creates a Builder. A nil executor uses the process default.
func NewBuilder(exec system.CommandExecutor) *Builder {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &Builder{exec: exec}
}

// Snapshot captures spec.LocalPath into a bundle at destPath. The source
// repository is only ever read; all mutation happens in a scratch clone
// under a temporary directory. A dirty working tree produces one synthetic
// commit on top of the source's current branch so the bundle carries the
// exact working-tree contents.
func (b *Builder) Snapshot(ctx context.Context, spec environment.RepoSpec, destPath string) (*environment.SnapshotRecord, error) {
	src := spec.LocalPath

	if _, err := b.git(ctx, src, "rev-parse", "--git-dir"); err != nil {
		return nil, errors.SourceError(src, err)
	}
	headCommit, err := b.git(ctx, src, "rev-parse", "HEAD")
	if err != nil {
		return nil, errors.SourceError(src, fmt.Errorf("repository has no commits: %w", err))
	}

	// Refresh remote-tracking refs so the snapshot carries current upstream
	// state. Offline capture must still work, so failure is non-fatal.
	if _, err := b.git(ctx, src, "fetch", "--all", "--tags", "--quiet"); err != nil {
		logging.Debug("fetch before snapshot failed, continuing with local refs",
			"repo", spec.FullName(), "error", err)
	}

	dirty, err := b.hasUncommitted(ctx, src)
	if err != nil {
		return nil, errors.SourceError(src, err)
	}

	tmp, err := os.MkdirTemp("", "shadow-snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmp)
	scratch := filepath.Join(tmp, "clone")

	if err := b.prepareScratch(ctx, src, scratch); err != nil {
		return nil, errors.SourceError(src, err)
	}

	branch, err := b.git(ctx, src, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, errors.SourceError(src, err)
	}
	if branch != "HEAD" {
		// Point scratch HEAD at the source's current branch so clones of
		// the bundle check out the same branch the user was on.
		if _, err := b.git(ctx, scratch, "symbolic-ref", "HEAD", "refs/heads/"+branch); err != nil {
			return nil, errors.SourceError(src, err)
		}
	}

	bundleHead := headCommit
	if dirty {
		bundleHead, err = b.overlayWorkingTree(ctx, src, scratch, branch, headCommit)
		if err != nil {
			return nil, errors.SourceError(src, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("create bundle directory: %w", err)
	}
	if _, err := b.git(ctx, scratch, "bundle", "create", destPath, "--all"); err != nil {
		return nil, fmt.Errorf("create bundle for %s: %w", spec.FullName(), err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("stat bundle: %w", err)
	}

	logging.Debug("captured snapshot",
		"repo", spec.FullName(), "head", bundleHead, "dirty", dirty, "bytes", info.Size())

	return &environment.SnapshotRecord{
		Spec:           spec,
		BundlePath:     destPath,
		HeadCommit:     bundleHead,
		HasUncommitted: dirty,
		SizeBytes:      info.Size(),
		CapturedAt:     time.Now().UTC(),
	}, nil
}

// prepareScratch builds a scratch repository holding every ref worth
// bundling: the source's branches and tags under their own names, and its
// remote-tracking refs renamed into the shadow-upstream branch namespace.
// The branch fetch runs last so a source branch that happens to share a
// name with a renamed upstream ref wins.
func (b *Builder) prepareScratch(ctx context.Context, src, scratch string) error {
	if _, err := b.git(ctx, "", "init", "--quiet", scratch); err != nil {
		return fmt.Errorf("init scratch repository: %w", err)
	}

	// Failure here just means the source has no remote-tracking refs.
	if _, err := b.git(ctx, scratch, "fetch", "--quiet", src,
		"+refs/remotes/*:refs/heads/"+upstreamPrefix+"/*"); err != nil {
		logging.Debug("no remote-tracking refs to preserve", "src", src)
	}

	if _, err := b.git(ctx, scratch, "fetch", "--quiet", src,
		"+refs/heads/*:refs/heads/*", "+refs/tags/*:refs/tags/*"); err != nil {
		return fmt.Errorf("fetch source refs: %w", err)
	}
	return nil
}

// overlayWorkingTree checks out the source's current branch in the scratch
// repository, replaces its contents with the exact working tree of the
// source (tracked and untracked files, minus ignored ones), and records the
// result as a synthetic commit. Returns the synthetic commit hash.
func (b *Builder) overlayWorkingTree(ctx context.Context, src, scratch, branch, headCommit string) (string, error) {
	target := branch
	if branch == "HEAD" {
		// Detached HEAD: snapshot from the exact commit.
		target = headCommit
	}
	if _, err := b.git(ctx, scratch, "checkout", "--quiet", target); err != nil {
		return "", fmt.Errorf("checkout %s: %w", target, err)
	}

	if err := b.clearWorkTree(scratch); err != nil {
		return "", err
	}
	if err := b.copyWorkTree(ctx, src, scratch); err != nil {
		return "", err
	}

	if _, err := b.git(ctx, scratch, "add", "-A"); err != nil {
		return "", fmt.Errorf("stage working tree: %w", err)
	}
	if _, err := b.git(ctx, scratch,
		"-c", "user.name="+commitAuthorName,
		"-c", "user.email="+commitAuthorEmail,
		"commit", "--quiet", "--allow-empty", "-m", commitMessage); err != nil {
		return "", fmt.Errorf("record snapshot commit: %w", err)
	}
	return b.git(ctx, scratch, "rev-parse", "HEAD")
}

// clearWorkTree removes everything under the scratch working tree except
// the .git directory, so the copy step starts from a clean slate and
// deletions in the source working tree carry over.
func (b *Builder) clearWorkTree(scratch string) error {
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(scratch, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// copyWorkTree copies every tracked and untracked-but-not-ignored file from
// the source working tree into the scratch working tree. Files that are
// tracked but deleted from disk are skipped, which propagates the deletion.
func (b *Builder) copyWorkTree(ctx context.Context, src, scratch string) error {
	out, err := b.git(ctx, src, "ls-files", "--cached", "--others", "--exclude-standard", "--deduplicate", "-z")
	if err != nil {
		return fmt.Errorf("list working-tree files: %w", err)
	}
	for _, rel := range strings.Split(out, "\x00") {
		if rel == "" {
			continue
		}
		from := filepath.Join(src, filepath.FromSlash(rel))
		fi, err := os.Lstat(from)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		to := filepath.Join(scratch, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(from)
			if err != nil {
				return err
			}
			if err := os.Symlink(linkTarget, to); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(from, to, fi.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(from, to string, perm os.FileMode) error {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (b *Builder) hasUncommitted(ctx context.Context, repo string) (bool, error) {
	out, err := b.git(ctx, repo, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// git runs a git command, optionally scoped to a repository directory, and
// returns trimmed stdout. A non-zero exit becomes an error carrying stderr.
func (b *Builder) git(ctx context.Context, dir string, args ...string) (string, error) {
	full := args
	if dir != "" {
		full = append([]string{"-C", dir}, args...)
	}
	res, err := b.exec.Run(ctx, "git", full...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "),
			strings.TrimSpace(string(res.Stderr)))
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}
