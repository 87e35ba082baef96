package agent

import "github.com/richinex/redline/llm"

// trimHistory drops the oldest exchanges until messages fit budget tokens.
// The system prompt and the first task message are always kept, and
// messages are removed in assistant/user pairs so roles keep alternating.
func trimHistory(messages []llm.ChatMessage, budget int) ([]llm.ChatMessage, int) {
	if budget <= 0 {
		return messages, 0
	}
	keep := 0
	for keep < len(messages) && messages[keep].Role == llm.RoleSystem {
		keep++
	}
	if keep < len(messages) {
		keep++ // first task
	}

	dropped := 0
	for llm.EstimateMessageTokens(messages) > budget && len(messages)-keep > 2 {
		messages = append(messages[:keep:keep], messages[keep+2:]...)
		dropped += 2
	}
	return messages, dropped
}
