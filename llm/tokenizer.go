package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

// messageOverhead approximates the per-message framing tokens.
const messageOverhead = 4

func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// EstimateTokens returns an approximate token count for text using the
// cl100k_base encoding.
func EstimateTokens(text string) (int, error) {
	c, err := getCodec()
	if err != nil {
		return 0, err
	}

	ids, _, err := c.Encode(text)
	if err != nil {
		return 0, err
	}

	return len(ids), nil
}

// EstimateMessageTokens estimates the prompt size of a conversation. When
// the encoder is unavailable it falls back to four bytes per token.
func EstimateMessageTokens(messages []ChatMessage) int {
	total := 0
	for _, m := range messages {
		n, err := EstimateTokens(m.Content)
		if err != nil {
			n = len(m.Content) / 4
		}
		total += n + messageOverhead
	}
	return total
}
