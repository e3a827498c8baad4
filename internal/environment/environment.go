package environment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/shadowdev/shadowctl/internal/errors"
)

const (
	metadataFile = "metadata.json"
	baselineFile = "baseline.json"

	// WorkspaceMount is the read-write workspace path inside the container.
	WorkspaceMount = "/workspace"
	// SnapshotsMount is the read-only snapshot storage path inside the container.
	SnapshotsMount = "/snapshots"
)

// ShadowEnvironment is the durable record of one provisioned environment.
// It is owned by the manager; everything here is host-side state plus the
// identity of the container that backs it.
type ShadowEnvironment struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	ContainerName   string            `json:"container_name"`
	ContainerID     string            `json:"container_id"`
	Image           string            `json:"image"`
	Status          Status            `json:"status"`
	RepoSpecs       []RepoSpec        `json:"repo_specs"`
	SnapshotCommits map[string]string `json:"snapshot_commits"`
	CreatedAt       time.Time         `json:"created_at"`
	Dir             string            `json:"dir"`
}

// WorkspaceDir returns the host path of the read-write workspace mount.
func (e *ShadowEnvironment) WorkspaceDir() string {
	return filepath.Join(e.Dir, "workspace")
}

// SnapshotsDir returns the host path of the read-only snapshot mount.
func (e *ShadowEnvironment) SnapshotsDir() string {
	return filepath.Join(e.Dir, "snapshots")
}

// Spec returns the spec for the given org/name identity, if provisioned.
func (e *ShadowEnvironment) Spec(fullName string) (RepoSpec, bool) {
	for _, s := range e.RepoSpecs {
		if s.FullName() == fullName {
			return s, true
		}
	}
	return RepoSpec{}, false
}

// SetSpec adds or replaces a repository spec and keeps the slice ordered by
// identity so serialized metadata stays deterministic.
func (e *ShadowEnvironment) SetSpec(spec RepoSpec) {
	for i, s := range e.RepoSpecs {
		if s.FullName() == spec.FullName() {
			e.RepoSpecs[i] = spec
			return
		}
	}
	e.RepoSpecs = append(e.RepoSpecs, spec)
	sort.Slice(e.RepoSpecs, func(i, j int) bool {
		return e.RepoSpecs[i].FullName() < e.RepoSpecs[j].FullName()
	})
}

// Transition moves the environment to the next status, enforcing the
// lifecycle state machine.
func (e *ShadowEnvironment) Transition(next Status) error {
	if !e.Status.CanTransition(next) {
		return errors.ValidationError(fmt.Sprintf(
			"illegal status transition %s -> %s for environment %s", e.Status, next, e.Name))
	}
	e.Status = next
	return nil
}

// SaveMetadata writes the environment record into its directory.
func (e *ShadowEnvironment) SaveMetadata() error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.Dir, metadataFile), data, 0o644)
}

// LoadMetadata reads an environment record from a directory. Returns nil and
// no error when the directory holds no (or unreadable) metadata, so callers
// can skip half-created leftovers.
func LoadMetadata(dir string) (*ShadowEnvironment, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var env ShadowEnvironment
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil
	}
	env.Dir = dir
	return &env, nil
}

// ComputeBaseline hashes every file in the workspace and persists the result
// for later Diff calls, including from other processes.
func (e *ShadowEnvironment) ComputeBaseline() error {
	hashes, err := hashTree(e.WorkspaceDir())
	if err != nil {
		return err
	}
	data, err := json.Marshal(hashes)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.Dir, baselineFile), data, 0o644)
}

func (e *ShadowEnvironment) loadBaseline() (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(e.Dir, baselineFile))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	var hashes map[string]string
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// Diff reports workspace files added, modified, or deleted since the baseline
// was taken. Read-only; pathPrefix, when non-empty, limits the report to that
// workspace-relative subtree.
func (e *ShadowEnvironment) Diff(pathPrefix string) ([]ChangedFile, error) {
	baseline, err := e.loadBaseline()
	if err != nil {
		return nil, err
	}
	current, err := hashTree(e.WorkspaceDir())
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(pathPrefix, "/")
	inScope := func(rel string) bool {
		return prefix == "" || rel == prefix || strings.HasPrefix(rel, prefix+"/")
	}

	var changes []ChangedFile
	for rel, sum := range current {
		if !inScope(rel) {
			continue
		}
		prev, existed := baseline[rel]
		if !existed {
			changes = append(changes, ChangedFile{Path: rel, Type: ChangeAdded, Size: fileSize(e.WorkspaceDir(), rel)})
		} else if prev != sum {
			changes = append(changes, ChangedFile{Path: rel, Type: ChangeModified, Size: fileSize(e.WorkspaceDir(), rel)})
		}
	}
	for rel := range baseline {
		if !inScope(rel) {
			continue
		}
		if _, exists := current[rel]; !exists {
			changes = append(changes, ChangedFile{Path: rel, Type: ChangeDeleted})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// Extract copies a file from the environment workspace to a host path.
// containerPath must be under the workspace mount.
func (e *ShadowEnvironment) Extract(containerPath, hostPath string) (int64, error) {
	rel, err := workspaceRelative(containerPath)
	if err != nil {
		return 0, err
	}

	source, err := securejoin.SecureJoin(e.WorkspaceDir(), rel)
	if err != nil {
		return 0, errors.ValidationError(fmt.Sprintf("invalid path %q: %v", containerPath, err))
	}

	info, err := os.Stat(source)
	if err != nil {
		return 0, errors.NotFound(containerPath)
	}
	if info.IsDir() {
		return 0, errors.ValidationError(fmt.Sprintf("%s is a directory, expected a file", containerPath))
	}

	if err := os.MkdirAll(filepath.Dir(hostPath), 0o755); err != nil {
		return 0, err
	}
	return copyFile(source, hostPath)
}

// Inject copies a host file into the environment workspace. containerPath
// must be under the workspace mount.
func (e *ShadowEnvironment) Inject(hostPath, containerPath string) error {
	info, err := os.Stat(hostPath)
	if err != nil {
		return errors.NotFound(hostPath)
	}
	if info.IsDir() {
		return errors.ValidationError(fmt.Sprintf("%s is a directory, expected a file", hostPath))
	}

	rel, err := workspaceRelative(containerPath)
	if err != nil {
		return err
	}

	dest, err := securejoin.SecureJoin(e.WorkspaceDir(), rel)
	if err != nil {
		return errors.ValidationError(fmt.Sprintf("invalid path %q: %v", containerPath, err))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	_, err = copyFile(hostPath, dest)
	return err
}

// workspaceRelative maps a container path to a workspace-relative one.
// Only the workspace mount is reachable from the host side.
func workspaceRelative(containerPath string) (string, error) {
	if containerPath == WorkspaceMount {
		return ".", nil
	}
	if strings.HasPrefix(containerPath, WorkspaceMount+"/") {
		return strings.TrimPrefix(containerPath, WorkspaceMount+"/"), nil
	}
	// Relative paths are taken as workspace-relative.
	if !strings.HasPrefix(containerPath, "/") && containerPath != "" {
		return containerPath, nil
	}
	return "", errors.ValidationError(fmt.Sprintf(
		"path %q is outside the workspace mount %s", containerPath, WorkspaceMount))
}

func hashTree(root string) (map[string]string, error) {
	hashes := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Files may vanish while the container is running.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		sum, hashErr := hashFile(path)
		if hashErr != nil {
			return nil
		}
		hashes[filepath.ToSlash(rel)] = sum
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return hashes, nil
		}
		return nil, err
	}
	return hashes, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileSize(root, rel string) int64 {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return 0
	}
	return info.Size()
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, err
	}
	return n, out.Close()
}
