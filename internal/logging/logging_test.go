package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetupOutputModes(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		json    bool
		log     func()
		want    []string
		absent  []string
	}{
		{
			name: "text info",
			log:  func() { Info("environment ready", "name", "demo") },
			want: []string{"environment ready", "demo"},
		},
		{
			name: "json info",
			json: true,
			log:  func() { Info("environment ready", "name", "demo") },
			want: []string{"{", "environment ready"},
		},
		{
			name:    "debug shown when verbose",
			verbose: true,
			log:     func() { Debug("captured snapshot", "repo", "acme/lib") },
			want:    []string{"captured snapshot"},
		},
		{
			name:   "debug hidden by default",
			log:    func() { Debug("captured snapshot") },
			absent: []string{"captured snapshot"},
		},
		{
			name: "warn and error always shown",
			log: func() {
				Warn("container slow to stop")
				Error("push failed", "repo", "acme/lib")
			},
			want: []string{"container slow to stop", "push failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(tt.verbose, tt.json, &buf)
			tt.log()
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(out, a) {
					t.Errorf("output should not contain %q:\n%s", a, out)
				}
			}
		})
	}
}

func TestVerboseFlag(t *testing.T) {
	var buf bytes.Buffer
	Setup(true, false, &buf)
	if !Verbose {
		t.Error("Verbose should be set by Setup(true, ...)")
	}
	Setup(false, false, &buf)
	if Verbose {
		t.Error("Verbose should be cleared by Setup(false, ...)")
	}
}

func TestWithAttachesContext(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	logger := With("component", "manager")
	if logger == nil {
		t.Fatal("With() returned nil")
	}
	logger.Info("provisioning started")

	out := buf.String()
	if !strings.Contains(out, "provisioning started") || !strings.Contains(out, "manager") {
		t.Errorf("context attribute missing: %s", out)
	}
}

func TestSetupNilWriterDefaultsToStderr(t *testing.T) {
	Setup(false, false, nil)
	if Logger == nil {
		t.Error("Logger should not be nil after Setup with nil writer")
	}
}

func TestUserOutput(t *testing.T) {
	var out, errBuf bytes.Buffer
	SetUserWriters(&out, &errBuf)
	defer ResetUserWriters()

	UserInfo("creating %s", "demo")
	UserSuccess("done")
	UserWarning("slow disk")
	UserError("failed")

	if got := out.String(); !strings.Contains(got, "ℹ creating demo") || !strings.Contains(got, "✓ done") {
		t.Errorf("stdout output wrong: %q", got)
	}
	if got := errBuf.String(); !strings.Contains(got, "⚠ slow disk") || !strings.Contains(got, "✗ failed") {
		t.Errorf("stderr output wrong: %q", got)
	}
}
