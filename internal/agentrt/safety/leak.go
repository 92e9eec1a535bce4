package safety

import (
	"regexp"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// leakAction is what a matched leak pattern does to the output.
type leakAction string

const (
	leakBlock  leakAction = "block"
	leakRedact leakAction = "redact"
	leakWarn   leakAction = "warn"
)

type leakPattern struct {
	name    string
	re      *regexp.Regexp
	action  leakAction
}

// leakPatterns is evaluated top to bottom; PEM keys always block,
// common API-key shapes redact, weaker signals warn. Ordering within
// the same action does not matter since every matching pattern is
// applied in the same pass.
var leakPatterns = []leakPattern{
	{
		name:   "pem_private_key",
		re:     regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |DSA |)PRIVATE KEY-----[\s\S]*?-----END (RSA |EC |OPENSSH |DSA |)PRIVATE KEY-----`),
		action: leakBlock,
	},
	{
		name:   "openai_api_key",
		re:     regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
		action: leakRedact,
	},
	{
		name:   "aws_access_key",
		re:     regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		action: leakRedact,
	},
	{
		name:   "slack_token",
		re:     regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`),
		action: leakRedact,
	},
	{
		name:   "generic_bearer_token",
		re:     regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`),
		action: leakWarn,
	},
}

// detectLeaks implements stage 3. Any block pattern short-circuits
// with blocked=true; otherwise redact patterns rewrite in place and
// warn patterns annotate only.
func detectLeaks(result model.SafetyResult) model.SafetyResult {
	for _, p := range leakPatterns {
		if p.action != leakBlock {
			continue
		}
		if p.re.MatchString(result.Content) {
			result.Blocked = true
			result.BlockReason = "leak detection: " + p.name
			return result
		}
	}

	for _, p := range leakPatterns {
		switch p.action {
		case leakRedact:
			if p.re.MatchString(result.Content) {
				result.Content = p.re.ReplaceAllString(result.Content, "[REDACTED:"+p.name+"]")
				result.WasModified = true
				result.Warnings = append(result.Warnings, "leak detection: redacted "+p.name)
			}
		case leakWarn:
			if p.re.MatchString(result.Content) {
				result.Warnings = append(result.Warnings, "leak detection: possible "+p.name)
			}
		}
	}
	return result
}
