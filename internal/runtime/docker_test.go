package runtime

import (
	"context"
	"strings"
	"testing"

	"github.com/shadowdev/shadowctl/internal/errors"
	"github.com/shadowdev/shadowctl/internal/system"
)

func TestStartArgs(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("docker run", system.MockResponse{Stdout: "abc123\n"})
	rt := NewDockerRuntime("docker", exec)

	id, err := rt.Start(context.Background(), StartOptions{
		Name:        "shadow-demo",
		Image:       "shadow-env:local",
		MemoryLimit: "4g",
		PidsLimit:   256,
		Mounts: []Mount{
			{Source: "/host/snapshots", Target: "/snapshots", ReadOnly: true},
			{Source: "/host/workspace", Target: "/workspace"},
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id != "abc123" {
		t.Errorf("id = %q, want abc123", id)
	}

	cmd, ok := exec.LastCommand()
	if !ok {
		t.Fatal("no command recorded")
	}
	line := cmd.Line()
	for _, want := range []string{
		"--cap-drop=ALL",
		"--security-opt=no-new-privileges",
		"--memory=4g",
		"--pids-limit=256",
		"/host/snapshots:/snapshots:ro",
		"/host/workspace:/workspace",
		"--name shadow-demo",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("start command missing %q: %s", want, line)
		}
	}
	if !strings.HasSuffix(line, "shadow-env:local") {
		t.Errorf("image should be the final argument: %s", line)
	}
}

func TestStartFailure(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("docker run", system.MockResponse{ExitCode: 125, Stderr: "port in use"})
	rt := NewDockerRuntime("docker", exec)

	_, err := rt.Start(context.Background(), StartOptions{Name: "x", Image: "img"})
	if !errors.HasCode(err, errors.CodeCreateFailed) {
		t.Errorf("expected create_failed, got %v", err)
	}
}

func TestExecScriptAndArgv(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("docker exec", system.MockResponse{Stdout: "out", Stderr: "err", ExitCode: 3})
	rt := NewDockerRuntime("docker", exec)

	res, err := rt.Exec(context.Background(), "shadow-demo", Command{
		Script:  "git clone /tmp/r.bundle work",
		WorkDir: "/workspace",
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.ExitCode != 3 || res.Stdout != "out" || res.Stderr != "err" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Success() {
		t.Error("exit 3 should not be success")
	}

	cmd, _ := exec.LastCommand()
	line := cmd.Line()
	if !strings.Contains(line, "-w /workspace") {
		t.Errorf("workdir not passed: %s", line)
	}
	if !strings.Contains(line, "sh -c git clone /tmp/r.bundle work") {
		t.Errorf("script not wrapped in sh -c: %s", line)
	}

	// argv form must not go through a shell
	if _, err := rt.Exec(context.Background(), "shadow-demo", Command{Argv: []string{"ls", "-la"}}); err != nil {
		t.Fatalf("Exec argv: %v", err)
	}
	cmd, _ = exec.LastCommand()
	if strings.Contains(cmd.Line(), "sh -c") {
		t.Errorf("argv command should not use sh -c: %s", cmd.Line())
	}
}

func TestStopRemoveIdempotent(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("docker stop", system.MockResponse{ExitCode: 1, Stderr: "Error: No such container: gone"})
	exec.AddResponse("docker rm", system.MockResponse{ExitCode: 1, Stderr: "Error: No such container: gone"})
	rt := NewDockerRuntime("docker", exec)

	if err := rt.Stop(context.Background(), "gone"); err != nil {
		t.Errorf("Stop on missing container should succeed, got %v", err)
	}
	if err := rt.Remove(context.Background(), "gone"); err != nil {
		t.Errorf("Remove on missing container should succeed, got %v", err)
	}
}

func TestStopRealFailure(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("docker stop", system.MockResponse{ExitCode: 1, Stderr: "permission denied"})
	rt := NewDockerRuntime("docker", exec)

	if err := rt.Stop(context.Background(), "env"); err == nil {
		t.Error("expected error for non-notfound stop failure")
	}
}

func TestIsRunning(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("container inspect", system.MockResponse{Stdout: "true\n"})
	rt := NewDockerRuntime("docker", exec)

	running, err := rt.IsRunning(context.Background(), "env")
	if err != nil {
		t.Fatalf("IsRunning: %v", err)
	}
	if !running {
		t.Error("expected running")
	}

	exec.AddResponse("container inspect", system.MockResponse{ExitCode: 1, Stderr: "no such container"})
	running, err = rt.IsRunning(context.Background(), "env")
	if err != nil {
		t.Fatalf("IsRunning: %v", err)
	}
	if running {
		t.Error("missing container should not be running")
	}
}

func TestEnsureImage(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("image inspect", system.MockResponse{ExitCode: 1, Stderr: "no such image"})
	rt := NewDockerRuntime("docker", exec)

	err := rt.EnsureImage(context.Background(), "shadow-env:local")
	if !errors.HasCode(err, errors.CodeImageNotFound) {
		t.Errorf("expected image_not_found, got %v", err)
	}

	exec.AddResponse("image inspect", system.MockResponse{Stdout: "sha256:abc\n"})
	if err := rt.EnsureImage(context.Background(), "shadow-env:local"); err != nil {
		t.Errorf("EnsureImage on present image: %v", err)
	}
}

func TestLogsCombinesStreams(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("docker logs", system.MockResponse{Stdout: "boot ok\n", Stderr: "warn: slow disk\n"})
	rt := NewDockerRuntime("docker", exec)

	out, err := rt.Logs(context.Background(), "env", 50)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if !strings.Contains(out, "boot ok") || !strings.Contains(out, "slow disk") {
		t.Errorf("logs should include both streams: %q", out)
	}
	cmd, _ := exec.LastCommand()
	if !strings.Contains(cmd.Line(), "--tail 50") {
		t.Errorf("tail not passed: %s", cmd.Line())
	}
}

func TestDetect(t *testing.T) {
	t.Run("prefers podman", func(t *testing.T) {
		exec := system.NewMockExecutor()
		rt, err := Detect("", exec)
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if rt.Name() != "podman" {
			t.Errorf("Name() = %q, want podman", rt.Name())
		}
	})

	t.Run("falls back to docker", func(t *testing.T) {
		exec := system.NewMockExecutor()
		exec.MissingBinaries["podman"] = true
		rt, err := Detect("", exec)
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if rt.Name() != "docker" {
			t.Errorf("Name() = %q, want docker", rt.Name())
		}
	})

	t.Run("honors preference", func(t *testing.T) {
		exec := system.NewMockExecutor()
		rt, err := Detect("docker", exec)
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if rt.Name() != "docker" {
			t.Errorf("Name() = %q, want docker", rt.Name())
		}
	})

	t.Run("missing preference fails", func(t *testing.T) {
		exec := system.NewMockExecutor()
		exec.MissingBinaries["docker"] = true
		_, err := Detect("docker", exec)
		if !errors.HasCode(err, errors.CodeRuntimeUnavailable) {
			t.Errorf("expected runtime_unavailable, got %v", err)
		}
	})

	t.Run("nothing installed", func(t *testing.T) {
		exec := system.NewMockExecutor()
		exec.MissingBinaries["podman"] = true
		exec.MissingBinaries["docker"] = true
		_, err := Detect("", exec)
		if !errors.HasCode(err, errors.CodeRuntimeUnavailable) {
			t.Errorf("expected runtime_unavailable, got %v", err)
		}
	})
}
