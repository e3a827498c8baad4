package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shadowdev/shadowctl/internal/errors"
)

// Status is the lifecycle state of a shadow environment.
type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusReady        Status = "ready"
	StatusInUse        Status = "in-use"
	StatusFailed       Status = "failed"
	StatusDestroyed    Status = "destroyed"
)

// validTransitions encodes the lifecycle state machine. Failed is terminal
// and reachable from Provisioning only; Destroyed is reachable from anywhere
// but itself.
var validTransitions = map[Status][]Status{
	StatusProvisioning: {StatusReady, StatusFailed, StatusDestroyed},
	StatusReady:        {StatusInUse, StatusDestroyed},
	StatusInUse:        {StatusReady, StatusDestroyed},
	StatusFailed:       {StatusDestroyed},
	StatusDestroyed:    {},
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// namePartRegex validates the org and name components of a repository
// identity. Matches the character set accepted by common git forges.
var namePartRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// RepoSpec identifies one repository to provision: where it lives locally and
// which published identity it shadows.
type RepoSpec struct {
	Org       string `json:"org"`
	Name      string `json:"name"`
	LocalPath string `json:"local_path"`
}

// FullName returns the canonical identity, e.g. "acme/lib".
func (s RepoSpec) FullName() string {
	return s.Org + "/" + s.Name
}

// Validate checks the spec's fields without touching the filesystem.
func (s RepoSpec) Validate() error {
	if s.LocalPath == "" {
		return errors.ConfigurationError("repository spec has no local path")
	}
	if !namePartRegex.MatchString(s.Org) {
		return errors.ConfigurationError(fmt.Sprintf("invalid org %q", s.Org))
	}
	if !namePartRegex.MatchString(s.Name) {
		return errors.ConfigurationError(fmt.Sprintf("invalid repository name %q", s.Name))
	}
	return nil
}

// ParseLocal parses a local source mapping of the form
// "<local-path>:<org>/<name>". Malformed input is rejected here, before any
// I/O; whether the path is actually a git repository is checked at snapshot
// time.
func ParseLocal(mapping string) (RepoSpec, error) {
	sep := strings.LastIndex(mapping, ":")
	if sep < 0 {
		return RepoSpec{}, errors.ConfigurationError(
			fmt.Sprintf("invalid local mapping %q: expected <path>:<org>/<name>", mapping))
	}

	pathPart := mapping[:sep]
	identity := mapping[sep+1:]
	if pathPart == "" {
		return RepoSpec{}, errors.ConfigurationError(
			fmt.Sprintf("invalid local mapping %q: empty path", mapping))
	}

	org, name, ok := strings.Cut(identity, "/")
	if !ok || org == "" || name == "" || strings.Contains(name, "/") {
		return RepoSpec{}, errors.ConfigurationError(
			fmt.Sprintf("invalid repository identity %q: expected <org>/<name>", identity))
	}

	localPath, err := expandPath(pathPart)
	if err != nil {
		return RepoSpec{}, errors.ConfigurationError(
			fmt.Sprintf("invalid local path %q: %v", pathPart, err))
	}

	spec := RepoSpec{Org: org, Name: name, LocalPath: localPath}
	if err := spec.Validate(); err != nil {
		return RepoSpec{}, err
	}
	return spec, nil
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

// SnapshotRecord is the immutable result of capturing one repository's
// working-tree state. Produced by the snapshot builder, consumed by the
// environment manager.
type SnapshotRecord struct {
	Spec           RepoSpec  `json:"spec"`
	BundlePath     string    `json:"bundle_path"`
	HeadCommit     string    `json:"head_commit"`
	HasUncommitted bool      `json:"has_uncommitted"`
	SizeBytes      int64     `json:"size_bytes"`
	CapturedAt     time.Time `json:"captured_at"`
}

// ChangeType classifies a workspace file change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// ChangedFile describes one workspace-relative change since environment creation.
type ChangedFile struct {
	Path string     `json:"path"`
	Type ChangeType `json:"type"`
	Size int64      `json:"size"`
}
