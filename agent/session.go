// Session loop: stream, parse, dispatch, feed back.
//
// Information Hiding:
// - Stream cancellation at the first complete command hidden
// - History loading, trimming, and persistence hidden
// - Cleanup of unresolved edits hidden

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/llm"
	"github.com/richinex/redline/model"
	"github.com/richinex/redline/parser"
	"github.com/richinex/redline/storage"
)

const noCommandNudge = "[ERROR] Your reply did not contain a command. " +
	"Reply with exactly one command. If the task is complete, use attempt_completion. " +
	"If you need more information from the user, use ask_followup_question."

// Renderer displays a session as it runs.
type Renderer interface {
	// Start is called before each model reply is streamed.
	Start(iteration int)
	// Render receives every parser update of the reply being streamed.
	Render(u parser.Update)
	// Result receives the outcome of each dispatched command.
	Result(o Outcome)
}

// Session is one conversation with the model. Run may be called again to
// continue the conversation; calls must not overlap.
type Session struct {
	id            string
	provider      llm.Provider
	dispatcher    *Dispatcher
	files         *edit.Manager
	store         storage.ConversationStorage
	renderer      Renderer
	logger        *slog.Logger
	systemPrompt  string
	maxIterations int
	historyTokens int

	history []llm.ChatMessage
	loaded  bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// History returns a copy of the conversation so far.
func (s *Session) History() []llm.ChatMessage {
	return append([]llm.ChatMessage(nil), s.history...)
}

// Run works on task until the model completes it, the iteration limit is
// reached, or an unrecoverable error occurs. Edits still awaiting review
// when Run returns are discarded.
func (s *Session) Run(ctx context.Context, task string) Response {
	start := time.Now()
	elapsed := func() uint64 { return uint64(time.Since(start).Milliseconds()) }
	var r run
	defer s.discardPending(ctx)

	if err := s.load(ctx); err != nil {
		return r.failure(fmt.Sprintf("failed to load history: %v", err), elapsed(), s.id)
	}
	s.history = append(s.history, llm.UserMessage("<task>\n"+strings.TrimSpace(task)+"\n</task>"))
	s.logger.Info("session started", "session", s.id, "provider", s.provider.Name(), "model", s.provider.Model())

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		if ctx.Err() != nil {
			s.persist(ctx)
			return r.failure(fmt.Sprintf("execution cancelled: %v", ctx.Err()), elapsed(), s.id)
		}
		s.trim()
		if s.renderer != nil {
			s.renderer.Start(iteration)
		}

		rep, err := s.stream(ctx)
		r.llmCalls++
		r.usage.Add(rep.usage)
		if err != nil {
			s.persist(ctx)
			return r.failure(fmt.Sprintf("model request failed: %v", err), elapsed(), s.id)
		}
		s.history = append(s.history, llm.AssistantMessage(rep.text))

		seg := rep.command
		if seg == nil {
			seg = rep.truncated
		}
		if seg == nil {
			s.history = append(s.history, llm.UserMessage(noCommandNudge))
			r.steps = append(r.steps, step(iteration, rep.narrative(), nil, noCommandNudge))
			s.logger.Warn("reply without command", "session", s.id, "iteration", iteration)
			s.persist(ctx)
			continue
		}

		out, err := s.dispatcher.Dispatch(ctx, *seg)
		r.toolCalls = append(r.toolCalls, out.Call)
		if err != nil {
			s.persist(ctx)
			return r.failure(err.Error(), elapsed(), s.id)
		}
		if s.renderer != nil {
			s.renderer.Result(out)
		}

		name := string(seg.Command)
		r.steps = append(r.steps, step(iteration, rep.narrative(), &name, out.Message))
		if out.Final {
			s.persist(ctx)
			s.logger.Info("session completed", "session", s.id, "iterations", iteration+1)
			return r.success(out.Result.Output, elapsed(), s.id)
		}

		msg := out.Message
		if rep.truncated != nil && rep.command == nil {
			msg += "\n\nYour reply ended before the command was closed. Send the complete command again."
		}
		if rep.skipped > 0 {
			msg += fmt.Sprintf("\n\n%d further command(s) in your reply were ignored. Use one command per reply.", rep.skipped)
		}
		if remaining := s.maxIterations - iteration - 1; remaining > 0 && remaining <= 2 {
			msg += fmt.Sprintf("\n\nWARNING: Only %d iterations remaining!", remaining)
		}
		s.history = append(s.history, llm.UserMessage(msg))
		s.persist(ctx)
	}

	s.persist(ctx)
	return r.timeout(fmt.Sprintf("Max iterations (%d) reached", s.maxIterations), elapsed(), s.id)
}

// reply is one streamed model response.
type reply struct {
	text     string
	segments []model.Segment
	// command is the first complete invocation.
	command *model.Segment
	// truncated is a command cut off by the end of the stream.
	truncated *model.Segment
	skipped   int
	usage     *llm.TokenUsage
}

func (r reply) narrative() string {
	var parts []string
	for _, seg := range r.segments {
		if seg.Kind == model.KindText {
			if t := strings.TrimSpace(seg.Text); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, "\n")
}

type streamResult struct {
	usage *llm.TokenUsage
	err   error
}

// stream sends the history and parses the reply as it arrives. The request
// is cancelled once the first command is complete.
func (s *Session) stream(ctx context.Context) (reply, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages := append([]llm.ChatMessage(nil), s.history...)
	chunks := make(chan string, 64)
	done := make(chan streamResult, 1)
	go func() {
		defer close(chunks)
		usage, err := s.provider.StreamChat(streamCtx, messages, chunks)
		done <- streamResult{usage: usage, err: err}
	}()

	var rep reply
	ps := parser.NewStream()
	collect := func(u parser.Update) {
		if s.renderer != nil {
			s.renderer.Render(u)
		}
		for _, seg := range u.Completed {
			if !seg.IsInvocation() {
				s.dispatcher.NoteStrayTags(seg)
				continue
			}
			if rep.command != nil {
				rep.skipped++
				continue
			}
			first := seg
			rep.command = &first
			cancel()
		}
		rep.segments = u.Segments
	}

	for chunk := range chunks {
		collect(ps.Write(chunk))
	}
	res := <-done

	final := ps.Close()
	collect(final)
	if rep.command == nil {
		rep.truncated = final.Truncated
	}
	rep.text = ps.Buffer()
	rep.usage = res.usage

	if res.err != nil {
		if rep.command != nil && ctx.Err() == nil && errors.Is(streamCtx.Err(), context.Canceled) {
			return rep, nil
		}
		return rep, res.err
	}
	return rep, nil
}

func (s *Session) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	s.loaded = true

	var history []llm.ChatMessage
	if s.store != nil && s.id != "" {
		stored, err := s.store.Load(ctx, s.id)
		if err != nil {
			return err
		}
		history = stored
	}
	if len(history) > 0 && history[0].Role == llm.RoleSystem {
		history = history[1:]
	}
	s.history = append([]llm.ChatMessage{llm.SystemMessage(s.systemPrompt)}, history...)
	return nil
}

func (s *Session) trim() {
	var dropped int
	s.history, dropped = trimHistory(s.history, s.historyTokens)
	if dropped > 0 {
		s.logger.Info("history trimmed", "session", s.id, "dropped", dropped)
	}
}

func (s *Session) persist(ctx context.Context) {
	if s.store == nil || s.id == "" {
		return
	}
	if err := s.store.Save(context.WithoutCancel(ctx), s.id, s.history); err != nil {
		s.logger.Warn("failed to save history", "session", s.id, "error", err)
	}
}

func (s *Session) discardPending(ctx context.Context) {
	if len(s.files.Pending()) == 0 {
		return
	}
	if err := s.files.DiscardAll(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to discard pending edits", "session", s.id, "error", err)
	}
}

func step(iteration int, thought string, action *string, observation string) Step {
	return Step{
		Iteration:   iteration,
		Thought:     thought,
		Action:      action,
		Observation: &observation,
	}
}
