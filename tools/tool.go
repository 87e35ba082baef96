// Package tools provides the command vocabulary and its handlers.
//
// Information Hiding:
// - Command grammar declarations hidden behind Spec lookups
// - Parameter trimming and numeric parsing hidden in Validate
// - Handler execution details hidden behind the Tool interface
// - Result formatting for the model hidden in format.go
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
)

// ToolParameter declares one parameter of a command.
type ToolParameter struct {
	Name        model.ParamName `json:"name"`
	ParamType   string          `json:"param_type"`
	Description string          `json:"description"`
	Required    bool            `json:"required"`
}

// Numeric reports whether the value must be a non-negative integer.
func (p ToolParameter) Numeric() bool {
	return p.ParamType == "integer"
}

// ToolMetadata describes a command and its parameters.
type ToolMetadata struct {
	Name        model.CommandName `json:"name"`
	Description string            `json:"description"`
	Parameters  []ToolParameter   `json:"parameters"`
	// ReadOnly commands never mutate files and may be retried.
	ReadOnly bool `json:"read_only"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// ToolResult represents the result of a command.
// Success is determined by whether Error is nil.
type ToolResult struct {
	Output string `json:"output"`
	Error  error  `json:"-"`
	// Staged is set when an edit awaits review.
	Staged *edit.Transaction `json:"-"`
	// Final is set by attempt_completion.
	Final bool `json:"final,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for ToolResult.
func (t ToolResult) MarshalJSON() ([]byte, error) {
	type out struct {
		Success bool   `json:"success"`
		Output  string `json:"output"`
		Error   string `json:"error,omitempty"`
		Staged  string `json:"staged,omitempty"`
		Final   bool   `json:"final,omitempty"`
	}
	o := out{Success: t.Error == nil, Output: t.Output, Final: t.Final}
	if t.Error != nil {
		o.Error = t.Error.Error()
	}
	if t.Staged != nil {
		o.Staged = t.Staged.Display
	}
	return json.Marshal(o)
}

// Success returns true if the command succeeded.
func (t ToolResult) Success() bool {
	return t.Error == nil
}

// SuccessResult creates a successful tool result.
func SuccessResult(output string) ToolResult {
	return ToolResult{Output: output}
}

// FailureResult creates a failed tool result.
func FailureResult(err error) ToolResult {
	return ToolResult{Error: err}
}

// FailureResultf creates a failed tool result with a formatted error message.
func FailureResultf(format string, args ...interface{}) ToolResult {
	return ToolResult{Error: fmt.Errorf(format, args...)}
}

// StagedResult reports an edit awaiting review.
func StagedResult(tx edit.Transaction) ToolResult {
	return ToolResult{Output: tx.Diff, Staged: &tx}
}

// Tool handles one command of the grammar.
//
// Information Hiding: Tool implementations hide their internal execution logic,
// data structures, and error handling strategies behind this interface.
type Tool interface {
	// Metadata returns the command declaration.
	Metadata() ToolMetadata

	// Execute runs a validated command. Command failures are reported in
	// ToolResult.Error; the returned error is for broken infrastructure.
	Execute(ctx context.Context, cmd Command) (ToolResult, error)
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s and retries to 3.
type ToolConfig struct {
	TimeoutSecs uint64
	MaxRetries  uint32
}

// Timeout returns the configured timeout, defaulting to 30 seconds if zero.
func (c *ToolConfig) Timeout() uint64 {
	if c == nil || c.TimeoutSecs == 0 {
		return 30
	}
	return c.TimeoutSecs
}

// Retries returns the configured max attempts, defaulting to 3 if zero.
func (c *ToolConfig) Retries() uint32 {
	if c == nil || c.MaxRetries == 0 {
		return 3
	}
	return c.MaxRetries
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		TimeoutSecs: 30,
		MaxRetries:  3,
	}
}
