package safety

import (
	"regexp"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// injectionPhrases are overt prompt-injection attempts found in tool
// output (e.g. a fetched web page trying to steer the model).
var injectionPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all |)previous instructions`),
	regexp.MustCompile(`(?i)disregard (the |)(system|above) prompt`),
	regexp.MustCompile(`(?i)you are now (in |)(developer|dan|jailbreak) mode`),
	regexp.MustCompile(`(?i)reveal your (system prompt|instructions)`),
}

// scanPromptInjection implements stage 5: annotate matched spans
// in place and mark was_modified so downstream consumers know the
// content was altered.
func scanPromptInjection(result model.SafetyResult) model.SafetyResult {
	for _, re := range injectionPhrases {
		if !re.MatchString(result.Content) {
			continue
		}
		result.Content = re.ReplaceAllStringFunc(result.Content, func(match string) string {
			return "[POSSIBLE PROMPT INJECTION: " + match + "]"
		})
		result.WasModified = true
		result.Warnings = append(result.Warnings, "prompt injection: rewrote suspicious phrase")
	}
	return result
}
