package toolcall

import (
	"regexp"
	"strings"
)

var toolFencePattern = regexp.MustCompile("(?s)```(?:tool_call|tool)\\b[ \\t]*\\r?\\n?(.*?)```")

// ExtractBlocks removes ```tool and ```tool_call fenced blocks from model output.
// It returns the remaining text, trimmed, and the block bodies in order of appearance.
func ExtractBlocks(text string) (string, []string) {
	var blocks []string
	cleaned := toolFencePattern.ReplaceAllStringFunc(text, func(full string) string {
		m := toolFencePattern.FindStringSubmatch(full)
		if len(m) == 2 {
			if body := strings.TrimSpace(m[1]); body != "" {
				blocks = append(blocks, body)
			}
		}
		return ""
	})
	return strings.TrimSpace(cleaned), blocks
}

// SplitProposals turns model output into raw call proposals. Fenced tool blocks
// win; without any, each non-empty line is one proposal.
func SplitProposals(text string) []string {
	if _, blocks := ExtractBlocks(text); len(blocks) > 0 {
		return blocks
	}

	var proposals []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			proposals = append(proposals, line)
		}
	}
	return proposals
}
