// Package mountguard validates container bind-mount specifications
// against a default blocklist of credential-bearing paths, and an
// optional allowlist of roots with per-root read-write policy.
package mountguard

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Mount describes one requested container bind mount.
type Mount struct {
	Source string
	Target string
	RW     bool
}

// blockedPatterns always apply, regardless of any allowlist.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.ssh(/|$)`),
	regexp.MustCompile(`(?i)\.gnupg(/|$)`),
	regexp.MustCompile(`(?i)\.kube(/|$)`),
	regexp.MustCompile(`(?i)\.docker(/|$)`),
	regexp.MustCompile(`(?i)\.aws(/|$)`),
	regexp.MustCompile(`(?i)\.azure(/|$)`),
	regexp.MustCompile(`(?i)\.netrc$`),
	regexp.MustCompile(`(?i)id_rsa`),
	regexp.MustCompile(`(?i)id_ed25519`),
	regexp.MustCompile(`/etc/shadow$`),
}

// AllowedRoot is one entry of an optional allowlist file.
type AllowedRoot struct {
	Root           string
	AllowReadWrite bool
}

// ErrBlockedMount is returned when a mount's source matches the
// default blocklist.
type ErrBlockedMount struct {
	Source string
}

func (e *ErrBlockedMount) Error() string {
	return fmt.Sprintf("mountguard: %q matches a blocked credential pattern", e.Source)
}

// ErrOutsideAllowlist is returned when an allowlist is configured and
// the mount source is not under any allowed root.
type ErrOutsideAllowlist struct {
	Source string
}

func (e *ErrOutsideAllowlist) Error() string {
	return fmt.Sprintf("mountguard: %q is outside every allowlisted root", e.Source)
}

// Validate applies the default blocklist unconditionally, then, if
// roots is non-empty, requires the mount's source be a descendant of
// one allowed root. If that root disallows read-write, the mount is
// forced to read-only rather than rejected.
func Validate(m Mount, roots []AllowedRoot) (Mount, error) {
	for _, pattern := range blockedPatterns {
		if pattern.MatchString(m.Source) {
			return Mount{}, &ErrBlockedMount{Source: m.Source}
		}
	}

	if len(roots) == 0 {
		return m, nil
	}

	absSource, err := filepath.Abs(m.Source)
	if err != nil {
		return Mount{}, fmt.Errorf("mountguard: resolve %q: %w", m.Source, err)
	}

	for _, root := range roots {
		absRoot, err := filepath.Abs(root.Root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, absSource)
		if err != nil {
			continue
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out := m
		if !root.AllowReadWrite {
			out.RW = false
		}
		return out, nil
	}

	return Mount{}, &ErrOutsideAllowlist{Source: m.Source}
}
