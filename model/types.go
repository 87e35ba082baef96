// Package model provides domain types shared across packages.
//
// Information Hiding:
// - Parameter ordering and uniqueness kept inside Params
// - Closed name sets exposed only through Known checks
package model

// CommandName identifies a command in the tag grammar.
type CommandName string

// Commands understood by the parser.
const (
	ExecuteCommand          CommandName = "execute_command"
	ReadFile                CommandName = "read_file"
	WriteToFile             CommandName = "write_to_file"
	SearchFiles             CommandName = "search_files"
	ListFiles               CommandName = "list_files"
	ListCodeDefinitionNames CommandName = "list_code_definition_names"
	BrowserAction           CommandName = "browser_action"
	AskFollowupQuestion     CommandName = "ask_followup_question"
	AttemptCompletion       CommandName = "attempt_completion"
	ReadFileRange           CommandName = "read_file_range"
	SearchAndReplace        CommandName = "search_and_replace"
	InsertCodeBlock         CommandName = "insert_code_block"
)

// CommandNames lists every known command in prompt order.
var CommandNames = []CommandName{
	ExecuteCommand,
	ReadFile,
	WriteToFile,
	SearchFiles,
	ListFiles,
	ListCodeDefinitionNames,
	BrowserAction,
	AskFollowupQuestion,
	AttemptCompletion,
	ReadFileRange,
	SearchAndReplace,
	InsertCodeBlock,
}

// Known reports whether n belongs to the closed command set.
func (n CommandName) Known() bool {
	for _, c := range CommandNames {
		if c == n {
			return true
		}
	}
	return false
}

// ParamName identifies a parameter sub-tag inside a command.
type ParamName string

// Parameters understood by the parser.
const (
	ParamCommand      ParamName = "command"
	ParamPath         ParamName = "path"
	ParamContent      ParamName = "content"
	ParamRegex        ParamName = "regex"
	ParamFilePattern  ParamName = "file_pattern"
	ParamRecursive    ParamName = "recursive"
	ParamAction       ParamName = "action"
	ParamURL          ParamName = "url"
	ParamCoordinate   ParamName = "coordinate"
	ParamText         ParamName = "text"
	ParamQuestion     ParamName = "question"
	ParamResult       ParamName = "result"
	ParamStartLine    ParamName = "start_line"
	ParamEndLine      ParamName = "end_line"
	ParamSearchBlock  ParamName = "search_block"
	ParamReplaceBlock ParamName = "replace_block"
	ParamCodeBlock    ParamName = "code_block"
)

// ParamNames lists every known parameter.
var ParamNames = []ParamName{
	ParamCommand,
	ParamPath,
	ParamContent,
	ParamRegex,
	ParamFilePattern,
	ParamRecursive,
	ParamAction,
	ParamURL,
	ParamCoordinate,
	ParamText,
	ParamQuestion,
	ParamResult,
	ParamStartLine,
	ParamEndLine,
	ParamSearchBlock,
	ParamReplaceBlock,
	ParamCodeBlock,
}

// Known reports whether p belongs to the closed parameter set.
func (p ParamName) Known() bool {
	for _, n := range ParamNames {
		if n == p {
			return true
		}
	}
	return false
}

// Param is one named value of an invocation.
type Param struct {
	Name  ParamName `json:"name"`
	Value string    `json:"value"`
}

// Params is an ordered parameter mapping. Keys are unique and keep the
// position of their first appearance.
type Params []Param

// Get returns the value for name and whether it is present.
func (ps Params) Get(name ParamName) (string, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Has reports whether name is present.
func (ps Params) Has(name ParamName) bool {
	_, ok := ps.Get(name)
	return ok
}

// Set stores value under name, overwriting an existing entry in place.
func (ps Params) Set(name ParamName, value string) Params {
	for i := range ps {
		if ps[i].Name == name {
			ps[i].Value = value
			return ps
		}
	}
	return append(ps, Param{Name: name, Value: value})
}

// Names returns parameter names in appearance order.
func (ps Params) Names() []ParamName {
	names := make([]ParamName, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// Clone returns an independent copy.
func (ps Params) Clone() Params {
	if ps == nil {
		return nil
	}
	out := make(Params, len(ps))
	copy(out, ps)
	return out
}

// SegmentKind distinguishes narrative text from command invocations.
type SegmentKind string

const (
	KindText       SegmentKind = "text"
	KindInvocation SegmentKind = "invocation"
)

// Segment is one decoded unit of agent output.
// Partial is set while the closing delimiter has not been seen.
type Segment struct {
	Kind    SegmentKind `json:"kind"`
	Text    string      `json:"text,omitempty"`
	Command CommandName `json:"command,omitempty"`
	Params  Params      `json:"params,omitempty"`
	Partial bool        `json:"partial"`
}

// TextSegment builds a narrative segment.
func TextSegment(text string, partial bool) Segment {
	return Segment{Kind: KindText, Text: text, Partial: partial}
}

// InvocationSegment builds a command segment.
func InvocationSegment(name CommandName, params Params, partial bool) Segment {
	return Segment{Kind: KindInvocation, Command: name, Params: params, Partial: partial}
}

// IsInvocation reports whether the segment carries a command.
func (s Segment) IsInvocation() bool {
	return s.Kind == KindInvocation
}

// Equal compares two segments including parameter order.
func (s Segment) Equal(o Segment) bool {
	if s.Kind != o.Kind || s.Text != o.Text || s.Command != o.Command || s.Partial != o.Partial {
		return false
	}
	if len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

// Step records one iteration of an agent session.
type Step struct {
	Iteration   int
	Thought     string
	Action      *string
	Observation *string
}

// ToolCall contains metrics about a command dispatch.
type ToolCall struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}
