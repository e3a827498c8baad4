package environment

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/shadowdev/shadowctl/internal/errors"
)

func TestParseLocal(t *testing.T) {
	spec, err := ParseLocal("/home/dev/lib:acme/lib")
	if err != nil {
		t.Fatalf("ParseLocal() error: %v", err)
	}
	if spec.Org != "acme" || spec.Name != "lib" {
		t.Errorf("unexpected identity: %s", spec.FullName())
	}
	if spec.LocalPath != "/home/dev/lib" {
		t.Errorf("unexpected path: %s", spec.LocalPath)
	}
}

func TestParseLocal_RelativePathBecomesAbsolute(t *testing.T) {
	spec, err := ParseLocal("lib:acme/lib")
	if err != nil {
		t.Fatalf("ParseLocal() error: %v", err)
	}
	if !filepath.IsAbs(spec.LocalPath) {
		t.Errorf("expected absolute path, got %s", spec.LocalPath)
	}
}

func TestParseLocal_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		mapping string
	}{
		{"missing separator", "/home/dev/lib"},
		{"empty path", ":acme/lib"},
		{"empty org", "/home/dev/lib:/lib"},
		{"empty name", "/home/dev/lib:acme/"},
		{"no slash in identity", "/home/dev/lib:acmelib"},
		{"extra slash in identity", "/home/dev/lib:acme/lib/extra"},
		{"bad org characters", "/home/dev/lib:ac me/lib"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLocal(tt.mapping)
			if err == nil {
				t.Fatalf("ParseLocal(%q) should fail", tt.mapping)
			}
			if !errors.HasCode(err, errors.CodeConfigurationError) {
				t.Errorf("expected configuration_error, got %v", err)
			}
		})
	}
}

func TestParseLocal_PathWithColon(t *testing.T) {
	// The last colon separates path from identity.
	spec, err := ParseLocal("/mnt/c:drive/repo:acme/lib")
	if err != nil {
		t.Fatalf("ParseLocal() error: %v", err)
	}
	if !strings.HasSuffix(spec.LocalPath, "c:drive/repo") {
		t.Errorf("unexpected path: %s", spec.LocalPath)
	}
	if spec.FullName() != "acme/lib" {
		t.Errorf("unexpected identity: %s", spec.FullName())
	}
}

func TestStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusProvisioning, StatusReady, true},
		{StatusProvisioning, StatusFailed, true},
		{StatusReady, StatusInUse, true},
		{StatusInUse, StatusReady, true},
		{StatusReady, StatusDestroyed, true},
		{StatusFailed, StatusDestroyed, true},
		{StatusReady, StatusFailed, false},
		{StatusInUse, StatusFailed, false},
		{StatusDestroyed, StatusReady, false},
		{StatusFailed, StatusReady, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestRepoSpec_Validate(t *testing.T) {
	good := RepoSpec{Org: "acme", Name: "lib-extended", LocalPath: "/tmp/x"}
	if err := good.Validate(); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}

	bad := RepoSpec{Org: "acme", Name: "lib", LocalPath: ""}
	if err := bad.Validate(); err == nil {
		t.Error("spec without local path should be rejected")
	}
}
