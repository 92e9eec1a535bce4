// Package safety implements the fixed five-stage screen applied to
// every tool output before it is appended to a session: length
// capping, content validation, secret-leak detection, policy rules,
// and prompt-injection sanitization, each stage evaluated in order
// over a pattern table.
package safety

import "github.com/relaycore/agentrt/internal/agentrt/model"

// Config bounds the pipeline's behavior.
type Config struct {
	MaxOutputLength int
}

// DefaultConfig applies a conservative cap suited to text review
// rather than raw payload transfer.
func DefaultConfig() Config {
	return Config{MaxOutputLength: 16_000}
}

// Pipeline runs the five ordered stages over tool output.
type Pipeline struct {
	cfg Config
}

// New creates a Pipeline with cfg. A zero MaxOutputLength falls back
// to DefaultConfig's value.
func New(cfg Config) *Pipeline {
	if cfg.MaxOutputLength <= 0 {
		cfg.MaxOutputLength = DefaultConfig().MaxOutputLength
	}
	return &Pipeline{cfg: cfg}
}

// Run screens output through length cap, content validation, leak
// detection, policy rules, and prompt-injection scanning, in that
// fixed order. A block at any stage short-circuits the remaining
// stages with empty content.
func (p *Pipeline) Run(output string) model.SafetyResult {
	result := model.SafetyResult{Content: output}

	result = capLength(result, p.cfg.MaxOutputLength)

	result = validateContent(result)
	if result.Blocked {
		result.Content = ""
		return result
	}

	result = detectLeaks(result)
	if result.Blocked {
		result.Content = ""
		return result
	}

	result = applyPolicyRules(result)
	if result.Blocked {
		result.Content = ""
		return result
	}

	result = scanPromptInjection(result)
	return result
}
