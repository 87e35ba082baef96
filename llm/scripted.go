package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned when a Scripted provider has no replies left.
var ErrScriptExhausted = errors.New("scripted provider has no replies left")

// Scripted replays a fixed list of replies, one per request. It backs
// transcript replay and tests.
type Scripted struct {
	mu       sync.Mutex
	replies  []string
	next     int
	requests [][]ChatMessage

	// ChunkSize is the number of bytes per streamed chunk. Zero sends each
	// reply in chunks of 16 bytes.
	ChunkSize int
}

// NewScripted creates a provider answering with replies in order.
func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

// Name returns the provider name.
func (s *Scripted) Name() string { return "scripted" }

// Model returns the current model.
func (s *Scripted) Model() string { return "replay" }

func (s *Scripted) take(messages []ChatMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, append([]ChatMessage(nil), messages...))
	if s.next >= len(s.replies) {
		return "", ErrScriptExhausted
	}
	reply := s.replies[s.next]
	s.next++
	return reply, nil
}

// Chat returns the next reply.
func (s *Scripted) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	reply, err := s.take(messages)
	if err != nil {
		return LLMResponse{}, err
	}
	return LLMResponse{Content: reply}, nil
}

// StreamChat sends the next reply in fixed-size chunks.
func (s *Scripted) StreamChat(ctx context.Context, messages []ChatMessage, chunks chan<- string) (*TokenUsage, error) {
	reply, err := s.take(messages)
	if err != nil {
		return nil, err
	}

	size := s.ChunkSize
	if size <= 0 {
		size = 16
	}
	for len(reply) > 0 {
		n := size
		if n > len(reply) {
			n = len(reply)
		}
		select {
		case chunks <- reply[:n]:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		reply = reply[n:]
	}
	return nil, nil
}

// Requests returns the message lists received so far.
func (s *Scripted) Requests() [][]ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]ChatMessage(nil), s.requests...)
}

// Remaining returns the number of unused replies.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies) - s.next
}

var _ Provider = (*Scripted)(nil)
