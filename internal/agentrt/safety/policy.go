package safety

import (
	"regexp"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// policyAction is what a matched policy rule does to the output.
type policyAction string

const (
	policyBlock    policyAction = "block"
	policySanitize policyAction = "sanitize"
	policyWarn     policyAction = "warn"
)

type policyRule struct {
	name   string
	re     *regexp.Regexp
	action policyAction
}

// policyRules is the built-in ordered rule list: sensitive system
// paths block, SQL-injection shapes sanitize, shell metacharacter
// bursts warn.
var policyRules = []policyRule{
	{
		name:   "sensitive_path_access",
		re:     regexp.MustCompile(`(/etc/passwd|/etc/shadow|\.ssh/id_(rsa|ed25519|dsa)|\.aws/credentials)`),
		action: policyBlock,
	},
	{
		name:   "sql_injection_like",
		re:     regexp.MustCompile(`(?i)(union\s+select|drop\s+table|;\s*--|or\s+1\s*=\s*1)`),
		action: policyWarn,
	},
	{
		name:   "shell_metacharacter_burst",
		re:     regexp.MustCompile(`[;&|$\x60]{3,}`),
		action: policyWarn,
	},
}

// applyPolicyRules implements stage 4: evaluate each rule in order;
// a block short-circuits, sanitize rewrites matches to a placeholder,
// warn annotates only.
func applyPolicyRules(result model.SafetyResult) model.SafetyResult {
	for _, rule := range policyRules {
		if !rule.re.MatchString(result.Content) {
			continue
		}
		switch rule.action {
		case policyBlock:
			result.Blocked = true
			result.BlockReason = "policy: " + rule.name
			return result
		case policySanitize:
			result.Content = rule.re.ReplaceAllString(result.Content, "[SANITIZED]")
			result.WasModified = true
			result.Warnings = append(result.Warnings, "policy: sanitized "+rule.name)
		case policyWarn:
			result.Warnings = append(result.Warnings, "policy: "+rule.name)
		}
	}
	return result
}
