package parser

import (
	"strings"

	"github.com/richinex/redline/model"
)

// Update is the result of feeding one chunk to a Stream.
type Update struct {
	// Segments is the full decoded sequence for the buffer so far.
	Segments []model.Segment
	// Completed holds segments that closed since the previous update, in order.
	Completed []model.Segment
	// Truncated is set by Close when the stream ended inside a command.
	Truncated *model.Segment
}

// Stream accumulates chunks and re-parses the whole buffer on every write.
// Each closed segment is reported in Completed exactly once.
type Stream struct {
	buf       strings.Builder
	delivered int
	closed    bool
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{}
}

// Write appends chunk and returns the updated decoding. Writes after Close
// are ignored.
func (s *Stream) Write(chunk string) Update {
	if !s.closed {
		s.buf.WriteString(chunk)
	}
	return s.update(parse(s.buf.String(), s.closed))
}

// Close marks the end of the stream. Trailing narrative becomes complete; a
// trailing partial command is reported as Truncated and never completes.
func (s *Stream) Close() Update {
	s.closed = true
	update := s.update(parse(s.buf.String(), true))
	if n := len(update.Segments); n > 0 && update.Segments[n-1].Partial {
		last := update.Segments[n-1]
		update.Truncated = &last
	}
	return update
}

func (s *Stream) update(segments []model.Segment) Update {
	done := len(segments)
	if done > 0 && segments[done-1].Partial {
		done--
	}

	update := Update{Segments: segments}
	if done > s.delivered {
		update.Completed = append([]model.Segment(nil), segments[s.delivered:done]...)
		s.delivered = done
	}
	return update
}

// Buffer returns everything written so far.
func (s *Stream) Buffer() string {
	return s.buf.String()
}

// Delivered returns how many segments have been reported as completed.
func (s *Stream) Delivered() int {
	return s.delivered
}
