package safety

import "github.com/relaycore/agentrt/internal/agentrt/model"

// capLength implements stage 1: truncate output exceeding max and
// record a warning. A non-positive max disables the cap.
func capLength(result model.SafetyResult, max int) model.SafetyResult {
	if max <= 0 || len(result.Content) <= max {
		return result
	}
	result.Content = result.Content[:max]
	result.WasModified = true
	result.Warnings = append(result.Warnings, "output truncated to max_output_length")
	return result
}
