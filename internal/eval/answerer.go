package eval

import (
	"context"
	"sort"
	"strings"
)

// Answerer resolves a builder's clarifying question against the hidden
// target structure. External implementations live in internal/qa; when none
// is configured the controller uses FallbackAnswer.
type Answerer interface {
	Answer(ctx context.Context, question, targetStructure string) (string, error)
}

// FallbackAnswer answers from the target structure alone: questions that
// mention color get the distinct colors present in the target, anything else
// a generic acknowledgment.
func FallbackAnswer(question, targetStructure string) string {
	seen := map[string]bool{}
	var colors []string
	for _, block := range strings.Split(targetStructure, ";") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		color := canonColor(strings.SplitN(block, ",", 2)[0])
		if color == "" || seen[color] {
			continue
		}
		seen[color] = true
		colors = append(colors, color)
	}
	sort.Strings(colors)
	if strings.Contains(strings.ToLower(question), "color") && len(colors) > 0 {
		return "Colors in target: " + strings.Join(colors, ", ") + "."
	}
	return "I can answer questions about the target structure."
}
