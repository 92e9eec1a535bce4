package mountguard

import "testing"

func TestValidateBlocksSSHMount(t *testing.T) {
	_, err := Validate(Mount{Source: "/home/user/.ssh", Target: "/root/.ssh", RW: true}, nil)
	if err == nil {
		t.Fatal("expected .ssh mount to be blocked")
	}
}

func TestValidateAllowsMountWithoutAllowlist(t *testing.T) {
	m, err := Validate(Mount{Source: "/data/project", Target: "/workspace", RW: true}, nil)
	if err != nil {
		t.Fatalf("expected mount to pass with no allowlist, got %v", err)
	}
	if !m.RW {
		t.Fatal("expected RW preserved with no allowlist")
	}
}

func TestValidateForcesReadOnlyOutsideRWRoot(t *testing.T) {
	roots := []AllowedRoot{{Root: "/data", AllowReadWrite: false}}
	m, err := Validate(Mount{Source: "/data/project", Target: "/workspace", RW: true}, roots)
	if err != nil {
		t.Fatalf("expected mount within allowed root to pass, got %v", err)
	}
	if m.RW {
		t.Fatal("expected RW to be forced false for a read-only root")
	}
}

func TestValidateRejectsOutsideAllowlist(t *testing.T) {
	roots := []AllowedRoot{{Root: "/data", AllowReadWrite: true}}
	_, err := Validate(Mount{Source: "/other/project", Target: "/workspace", RW: true}, roots)
	if err == nil {
		t.Fatal("expected mount outside allowlist to be rejected")
	}
}
