package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
	"github.com/richinex/redline/parser"
	"github.com/richinex/redline/tools"
)

// Outcome is the result of dispatching one invocation.
type Outcome struct {
	Command tools.Command
	Result  tools.ToolResult
	// Message is the text fed back to the model.
	Message string
	// Final is set when the command was attempt_completion.
	Final     bool
	Committed *edit.CommitResult
	Discarded *edit.Transaction
	Call      ToolCall
}

// Dispatcher validates an invocation, runs its handler, and settles any
// staged edit through the reviewer.
type Dispatcher struct {
	registry *tools.Registry
	executor *tools.Executor
	files    *edit.Manager
	reviewer Reviewer
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil reviewer approves everything.
func NewDispatcher(registry *tools.Registry, files *edit.Manager, reviewer Reviewer) (*Dispatcher, error) {
	if registry == nil {
		return nil, errors.New("agent: tool registry is required")
	}
	if files == nil {
		return nil, errors.New("agent: edit manager is required")
	}
	if reviewer == nil {
		reviewer = AutoReviewer{}
	}
	return &Dispatcher{
		registry: registry,
		executor: tools.NewDefaultExecutor(),
		files:    files,
		reviewer: reviewer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// WithExecutor overrides the tool executor.
func (d *Dispatcher) WithExecutor(e *tools.Executor) *Dispatcher {
	if e != nil {
		d.executor = e
	}
	return d
}

// WithLogger sets the logger.
func (d *Dispatcher) WithLogger(l *slog.Logger) *Dispatcher {
	if l != nil {
		d.logger = l
	}
	return d
}

// NoteStrayTags logs tag-like names left in a completed narrative segment.
// They are kept as text; the log only explains why nothing ran.
func (d *Dispatcher) NoteStrayTags(seg model.Segment) []string {
	if seg.IsInvocation() || seg.Partial {
		return nil
	}
	stray := parser.StrayTags(seg.Text)
	if len(stray) > 0 {
		d.logger.Debug("tags left as narrative",
			"kind", string(edit.ErrParseAmbiguity), "tags", stray)
	}
	return stray
}

// Dispatch handles one complete invocation. Command failures are reported
// in the Outcome; the returned error means the session cannot go on.
func (d *Dispatcher) Dispatch(ctx context.Context, seg model.Segment) (Outcome, error) {
	start := time.Now()
	out := Outcome{Command: tools.Command{Name: seg.Command, Params: seg.Params.Clone()}}

	err := d.dispatch(ctx, seg, &out)

	out.Call = ToolCall{
		Name:       string(seg.Command),
		InputSize:  inputSize(seg.Params),
		OutputSize: len(out.Result.Output),
		DurationMs: uint64(time.Since(start).Milliseconds()),
		Success:    err == nil && out.Result.Success() && out.Discarded == nil,
	}
	d.logger.Debug("command dispatched",
		"command", seg.Command,
		"success", out.Call.Success,
		"duration_ms", out.Call.DurationMs)
	return out, err
}

func (d *Dispatcher) dispatch(ctx context.Context, seg model.Segment, out *Outcome) error {
	cmd, err := tools.Validate(seg)
	if err != nil {
		d.fail(out, err)
		return nil
	}
	out.Command = cmd

	tool, ok := d.registry.Get(cmd.Name)
	if !ok {
		d.fail(out, &edit.Error{Kind: edit.ErrUnsupportedCommand, Command: string(cmd.Name)})
		return nil
	}

	result, err := d.executor.Execute(ctx, tool, cmd)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", cmd.Name, err)
	}
	out.Result = result

	if result.Staged != nil {
		return d.review(ctx, *result.Staged, out)
	}
	out.Final = result.Final
	out.Message = tools.FormatResult(cmd, result)
	return nil
}

func (d *Dispatcher) review(ctx context.Context, tx edit.Transaction, out *Outcome) error {
	decision, err := d.reviewer.ReviewEdit(ctx, tx)
	if err != nil {
		if _, derr := d.files.Discard(context.WithoutCancel(ctx), tx.Path); derr != nil {
			d.logger.Warn("discard after failed review", "path", tx.Display, "error", derr)
		}
		return fmt.Errorf("review %s: %w", tx.Display, err)
	}

	header := resultHeader(out.Command)
	if decision.Approve {
		cr, err := d.files.Commit(ctx, tx.Path)
		if err != nil {
			d.fail(out, err)
			return nil
		}
		out.Committed = &cr
		out.Message = header + tools.FormatCommit(cr)
		return nil
	}

	discarded, err := d.files.Discard(ctx, tx.Path)
	if err != nil {
		d.fail(out, err)
		return nil
	}
	out.Discarded = &discarded
	out.Message = header + tools.FormatDiscard(discarded, decision.Feedback)
	return nil
}

func (d *Dispatcher) fail(out *Outcome, err error) {
	out.Result = tools.FailureResult(err)
	out.Message = tools.FormatResult(out.Command, out.Result)
	d.logger.Info("command failed", "command", out.Command.Name, "kind", edit.KindOf(err), "error", err)
}

func resultHeader(cmd tools.Command) string {
	return "[" + cmd.Describe() + "] Result:\n"
}

func inputSize(params model.Params) int {
	n := 0
	for _, p := range params {
		n += len(p.Value)
	}
	return n
}
