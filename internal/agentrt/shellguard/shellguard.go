// Package shellguard screens shell command strings against a
// case-insensitive regex and literal blocklist of dangerous shapes.
// It is defense-in-depth only; the primary boundary is container
// isolation or an approval gate, out of scope here.
package shellguard

import (
	"fmt"
	"regexp"
)

// Finding describes one matched dangerous pattern.
type Finding struct {
	Name   string
	Reason string
}

// dangerousPattern pairs a compiled regex with a human-readable
// reason.
type dangerousPattern struct {
	name   string
	re     *regexp.Regexp
	reason string
}

var dangerousPatterns = []dangerousPattern{
	{"pipe_remote_fetch_to_shell",
		regexp.MustCompile(`(?i)(curl|wget)\s+[^\n|]*\|\s*(sh|bash|zsh)\b`),
		"pipes a remote download directly into a shell"},
	{"reverse_shell",
		regexp.MustCompile(`(?i)(/dev/tcp/|nc\s+-e\b|ncat\s+-e\b|bash\s+-i\s+>&)`),
		"matches a reverse-shell shape"},
	{"root_wide_rm",
		regexp.MustCompile(`(?i)rm\s+-[a-z]*r[a-z]*f[a-z]*\s+/(\s|$)`),
		"recursive force-remove of the root filesystem"},
	{"block_device_overwrite",
		regexp.MustCompile(`(?i)(dd|cat|echo)\s+[^\n]*>\s*/dev/(sd|nvme|hd|disk)`),
		"writes directly to a block device"},
	{"world_writable_chmod",
		regexp.MustCompile(`(?i)chmod\s+(-R\s+)?(777|a\+rwx|o\+w)\b`),
		"grants world-writable permissions"},
	{"fork_bomb",
		regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
		"matches the classic fork-bomb shape"},
	{"base64_decode_exec",
		regexp.MustCompile(`(?i)base64\s+(-d|--decode)\b`),
		"decodes base64 content, likely for indirect execution"},
	{"scripting_inline_eval",
		regexp.MustCompile(`(?i)\b(python3?\s+-c|perl\s+-e|node\s+-e|ruby\s+-e)\b`),
		"executes an inline script via interpreter flag"},
	{"eval_builtin",
		regexp.MustCompile(`(?i)\beval\s+`),
		"uses the shell eval builtin"},
	{"xargs_shell_exec",
		regexp.MustCompile(`(?i)xargs\s+(-[a-zA-Z0-9]+\s+)*(sh|bash)\b`),
		"pipes arguments into a shell via xargs"},
	{"env_exfiltration",
		regexp.MustCompile(`(?i)(printenv|env)\s*\|\s*(curl|wget|nc\b)`),
		"pipes environment variables to a network tool"},
	{"credential_path_access",
		regexp.MustCompile(`(/etc/shadow|/etc/passwd|~?/\.ssh/(id_rsa|id_ed25519|id_dsa)|~?/\.aws/credentials|~?/\.kube/config)`),
		"references a well-known credential path"},
}

// Analyze scans command and returns every matched dangerous pattern,
// in table order.
func Analyze(command string) []Finding {
	var findings []Finding
	for _, p := range dangerousPatterns {
		if p.re.MatchString(command) {
			findings = append(findings, Finding{Name: p.name, Reason: p.reason})
		}
	}
	return findings
}

// ErrDangerousCommand is returned by Validate when at least one
// dangerous pattern matched.
type ErrDangerousCommand struct {
	Findings []Finding
}

func (e *ErrDangerousCommand) Error() string {
	if len(e.Findings) == 0 {
		return "shellguard: dangerous command"
	}
	return fmt.Sprintf("shellguard: dangerous command (%s: %s)", e.Findings[0].Name, e.Findings[0].Reason)
}

// Validate returns an error naming every matched finding if command
// matches any dangerous pattern, or nil if it is clean.
func Validate(command string) error {
	findings := Analyze(command)
	if len(findings) == 0 {
		return nil
	}
	return &ErrDangerousCommand{Findings: findings}
}
