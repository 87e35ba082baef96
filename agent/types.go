// Package agent runs the tag-based command loop against an LLM provider.
//
// Contains the response types a session returns.
package agent

import (
	"github.com/richinex/redline/llm"
	"github.com/richinex/redline/model"
)

// Step is an alias for model.Step for session iterations.
type Step = model.Step

// ToolCall is an alias for model.ToolCall for command metrics.
type ToolCall = model.ToolCall

// Metadata contains metadata about a session run.
type Metadata struct {
	ExecutionTimeMs uint64
	SessionID       string
	ToolCalls       []ToolCall
	TokenUsage      *llm.TokenUsage
	LLMCalls        int
}

// ResponseType indicates how a run ended.
type ResponseType int

const (
	ResponseSuccess ResponseType = iota
	ResponseFailure
	ResponseTimeout
)

func (t ResponseType) String() string {
	switch t {
	case ResponseSuccess:
		return "success"
	case ResponseFailure:
		return "failure"
	case ResponseTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Response is the outcome of Session.Run.
type Response struct {
	Type          ResponseType
	Result        string // For Success
	Error         string // For Failure
	PartialResult string // For Timeout
	Steps         []Step
	Metadata      Metadata
}

// ResultText returns the result string (for success) or error (for failure).
func (r Response) ResultText() string {
	switch r.Type {
	case ResponseSuccess:
		return r.Result
	case ResponseFailure:
		return r.Error
	case ResponseTimeout:
		return r.PartialResult
	default:
		return ""
	}
}

// IsSuccess checks if the response was successful.
func (r Response) IsSuccess() bool {
	return r.Type == ResponseSuccess
}

// run accumulates what a session records while it loops.
type run struct {
	steps     []Step
	toolCalls []ToolCall
	usage     llm.TokenUsage
	llmCalls  int
}

func (r *run) metadata(elapsedMs uint64, sessionID string) Metadata {
	usage := r.usage
	return Metadata{
		ExecutionTimeMs: elapsedMs,
		SessionID:       sessionID,
		ToolCalls:       r.toolCalls,
		TokenUsage:      &usage,
		LLMCalls:        r.llmCalls,
	}
}

func (r *run) success(result string, elapsedMs uint64, sessionID string) Response {
	return Response{Type: ResponseSuccess, Result: result, Steps: r.steps, Metadata: r.metadata(elapsedMs, sessionID)}
}

func (r *run) failure(err string, elapsedMs uint64, sessionID string) Response {
	return Response{Type: ResponseFailure, Error: err, Steps: r.steps, Metadata: r.metadata(elapsedMs, sessionID)}
}

func (r *run) timeout(partial string, elapsedMs uint64, sessionID string) Response {
	return Response{Type: ResponseTimeout, PartialResult: partial, Steps: r.steps, Metadata: r.metadata(elapsedMs, sessionID)}
}
