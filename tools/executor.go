// Tool Executor with Retry Logic.
//
// Information Hiding:
// - Retry strategy implementation hidden
// - Backoff algorithm hidden
// - Error classification logic hidden

package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/richinex/redline/edit"
)

// Executor runs tools with a timeout and retries for read-only commands.
// Commands that stage edits or run processes are attempted once.
type Executor struct {
	config ToolConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a new tool executor with the given configuration.
func NewExecutor(config ToolConfig) *Executor {
	return &Executor{config: config, sleep: sleepCtx}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultToolConfig())
}

// Execute runs a validated command.
func (e *Executor) Execute(ctx context.Context, tool Tool, cmd Command) (ToolResult, error) {
	meta := tool.Metadata()
	if !meta.ReadOnly {
		return tool.Execute(ctx, cmd)
	}

	timeout := time.Duration(e.config.Timeout()) * time.Second
	maxAttempts := e.config.Retries()

	var result ToolResult
	for attempt := uint32(0); attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, e.calculateBackoff(attempt)); err != nil {
				return ToolResult{}, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		r, err := tool.Execute(attemptCtx, cmd)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ToolResult{}, ctx.Err()
			}
			result = FailureResult(err)
			continue
		}
		result = r
		if result.Success() || !e.shouldRetry(result) {
			return result, nil
		}
	}
	return result, nil
}

// calculateBackoff returns the backoff duration for the given attempt.
func (e *Executor) calculateBackoff(attempt uint32) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 5 * time.Second
	)

	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// shouldRetry reports whether a failed result is transient. Structured edit
// errors are deterministic and never retried.
func (e *Executor) shouldRetry(result ToolResult) bool {
	if result.Error == nil {
		return false
	}
	if edit.KindOf(result.Error) != "" {
		return false
	}
	if errors.Is(result.Error, context.DeadlineExceeded) {
		return true
	}

	errLower := strings.ToLower(result.Error.Error())
	for _, s := range []string{"timed out", "timeout", "temporarily", "resource busy"} {
		if strings.Contains(errLower, s) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
