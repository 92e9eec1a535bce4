package pathguard

import "testing"

func TestResolveRejectsDotDotEscape(t *testing.T) {
	r, err := NewResolver("/workspace")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve("../../etc/passwd"); err == nil {
		t.Fatal("expected escape to be rejected")
	}
}

func TestResolveAllowsDescendant(t *testing.T) {
	r, err := NewResolver("/workspace")
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := r.Resolve("sub/dir/file.txt")
	if err != nil {
		t.Fatalf("expected descendant path to resolve, got %v", err)
	}
	if resolved != "/workspace/sub/dir/file.txt" {
		t.Fatalf("unexpected resolution: %s", resolved)
	}
}
