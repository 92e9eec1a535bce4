package safety

import (
	"strings"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

const (
	// whitespaceRatioThreshold flags output that is mostly padding.
	whitespaceRatioThreshold = 0.85
	// repeatRunThreshold flags suspiciously long runs of one character.
	repeatRunThreshold = 200
	minContentForRatioCheck = 32
)

// validateContent implements stage 2: a null byte always blocks;
// extreme whitespace ratio or long identical-character runs only
// soft-warn.
func validateContent(result model.SafetyResult) model.SafetyResult {
	if strings.ContainsRune(result.Content, 0) {
		result.Blocked = true
		result.BlockReason = "content validation: null byte present"
		return result
	}

	if len(result.Content) >= minContentForRatioCheck {
		ws := 0
		for _, r := range result.Content {
			if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				ws++
			}
		}
		if float64(ws)/float64(len([]rune(result.Content))) >= whitespaceRatioThreshold {
			result.Warnings = append(result.Warnings, "content validation: extreme whitespace ratio")
		}
	}

	if run := longestRun(result.Content); run >= repeatRunThreshold {
		result.Warnings = append(result.Warnings, "content validation: long run of identical characters")
	}

	return result
}

func longestRun(s string) int {
	longest, current := 0, 0
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			current++
		} else {
			current = 1
			prev = r
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}
