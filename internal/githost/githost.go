// Package githost drives the embedded git host running inside an
// environment's container. The host serves repositories over HTTP on the
// container's loopback interface, so every operation here is delegated
// into the container through the runtime adapter; nothing talks to the
// host from outside the container.
package githost

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shadowdev/shadowctl/internal/errors"
	"github.com/shadowdev/shadowctl/internal/logging"
	"github.com/shadowdev/shadowctl/internal/runtime"
)

// Fixed identity of the embedded host. The credentials only ever exist
// inside a disposable container on a loopback interface.
const (
	BaseURL  = "http://localhost:3000"
	User     = "shadow"
	Password = "shadow"
)

// CredentialURL is the base URL with embedded credentials, used as the
// rewrite target and as the push remote.
const CredentialURL = "http://" + User + ":" + Password + "@localhost:3000"

// RepoURL returns the credentialed clone URL for org/name.
func RepoURL(org, name string) string {
	return fmt.Sprintf("%s/%s/%s.git", CredentialURL, org, name)
}

// Client performs git host operations inside one container.
type Client struct {
	rt        runtime.Runtime
	container string
}

// NewClient creates a client bound to the named container.
func NewClient(rt runtime.Runtime, container string) *Client {
	return &Client{rt: rt, container: container}
}

// WaitReady polls the host until it both serves its version endpoint and
// accepts authenticated requests, or the timeout elapses. Readiness has
// two stages because the host process accepts connections before its
// account database is usable.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 3 * time.Second
	bo.MaxElapsedTime = timeout

	start := time.Now()
	probe := func() error {
		if err := c.curlOK(ctx, "", "/api/v1/version"); err != nil {
			return err
		}
		return c.curlOK(ctx, User+":"+Password, "/api/v1/user")
	}
	if err := backoff.Retry(probe, backoff.WithContext(bo, ctx)); err != nil {
		return errors.HostUnavailable(
			fmt.Sprintf("embedded git host not ready after %s", timeout), err)
	}
	logging.Debug("embedded git host ready", "container", c.container, "elapsed", time.Since(start))
	return nil
}

// EnsureOrg creates the organization if it does not already exist.
// An "already exists" response is success.
func (c *Client) EnsureOrg(ctx context.Context, org string) error {
	body := fmt.Sprintf(`{"username": %q}`, org)
	code, err := c.apiPost(ctx, "/api/v1/orgs", body)
	if err != nil {
		return fmt.Errorf("create org %s: %w", org, err)
	}
	if code != 201 && code != 409 && code != 422 {
		return fmt.Errorf("create org %s: unexpected status %d", org, code)
	}
	return nil
}

// EnsureRepo creates the repository under org if it does not already
// exist. An "already exists" response is success.
func (c *Client) EnsureRepo(ctx context.Context, org, name string) error {
	body := fmt.Sprintf(`{"name": %q, "private": false, "auto_init": false}`, name)
	code, err := c.apiPost(ctx, "/api/v1/orgs/"+org+"/repos", body)
	if err != nil {
		return fmt.Errorf("create repo %s/%s: %w", org, name, err)
	}
	if code != 201 && code != 409 {
		return fmt.Errorf("create repo %s/%s: unexpected status %d", org, name, code)
	}
	return nil
}

// PushBundle unpacks a bundle that is visible inside the container and
// force-publishes all its refs to org/name. Existing refs are overwritten;
// re-publishing the same repository is how add-source picks up new local
// commits.
func (c *Client) PushBundle(ctx context.Context, org, name, bundlePath string) error {
	repoURL := RepoURL(org, name)
	script := strings.Join([]string{
		"set -e",
		"tmp=$(mktemp -d)",
		"trap " + runtime.Quote("rm -rf $tmp") + " EXIT",
		"git clone --quiet " + runtime.Quote(bundlePath) + " \"$tmp/repo\"",
		"cd \"$tmp/repo\"",
		"git remote set-url origin " + runtime.Quote(repoURL),
		"git push --quiet --force origin --all",
		"git push --quiet --force origin --tags",
	}, "\n")

	res, err := c.rt.Exec(ctx, c.container, runtime.Shell(script))
	if err != nil {
		return errors.PushFailed(org+"/"+name, err)
	}
	if !res.Success() {
		return errors.PushFailed(org+"/"+name,
			fmt.Errorf("push exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	logging.Debug("published bundle", "repo", org+"/"+name, "bundle", bundlePath)
	return nil
}

// curlOK runs an in-container request that must return HTTP success.
func (c *Client) curlOK(ctx context.Context, auth, path string) error {
	argv := []string{"curl", "-fsS", "-o", "/dev/null", "--max-time", "5"}
	if auth != "" {
		argv = append(argv, "-u", auth)
	}
	argv = append(argv, BaseURL+path)

	res, err := c.rt.Exec(ctx, c.container, runtime.Command{Argv: argv})
	if err != nil {
		return backoff.Permanent(err)
	}
	if !res.Success() {
		return fmt.Errorf("%s: %s", path, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// apiPost issues an authenticated JSON POST and returns the HTTP status.
func (c *Client) apiPost(ctx context.Context, path, body string) (int, error) {
	argv := []string{
		"curl", "-sS", "-o", "/dev/null", "-w", "%{http_code}",
		"--max-time", "15",
		"-u", User + ":" + Password,
		"-X", "POST",
		"-H", "Content-Type: application/json",
		"-d", body,
		BaseURL + path,
	}
	res, err := c.rt.Exec(ctx, c.container, runtime.Command{Argv: argv})
	if err != nil {
		return 0, err
	}
	code := 0
	if _, err := fmt.Sscanf(strings.TrimSpace(res.Stdout), "%d", &code); err != nil {
		return 0, fmt.Errorf("unparseable status from host: %q", res.Stdout)
	}
	return code, nil
}
