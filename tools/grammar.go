package tools

import (
	"fmt"
	"strings"

	"github.com/richinex/redline/model"
)

func param(name model.ParamName, required bool, description string) ToolParameter {
	return ToolParameter{Name: name, ParamType: "string", Description: description, Required: required}
}

func lineParam(name model.ParamName, required bool, description string) ToolParameter {
	return ToolParameter{Name: name, ParamType: "integer", Description: description, Required: required}
}

// grammar declares every command of the vocabulary.
var grammar = map[model.CommandName]ToolMetadata{
	model.ExecuteCommand: {
		Name:        model.ExecuteCommand,
		Description: "Execute a CLI command in the working directory. Use it for builds, tests, and other system operations. Commands that need interaction are not supported.",
		Parameters: []ToolParameter{
			param(model.ParamCommand, true, "The CLI command to execute"),
		},
	},
	model.ReadFile: {
		Name:        model.ReadFile,
		Description: "Read the whole content of a file.",
		Parameters: []ToolParameter{
			param(model.ParamPath, true, "The path of the file to read, relative to the working directory"),
		},
		ReadOnly: true,
	},
	model.WriteToFile: {
		Name:        model.WriteToFile,
		Description: "Write the complete content of a file, creating it and any parent directories if needed. The user reviews the change before it is saved.",
		Parameters: []ToolParameter{
			param(model.ParamPath, true, "The path of the file to write, relative to the working directory"),
			param(model.ParamContent, true, "The complete intended content of the file, without omissions"),
		},
	},
	model.SearchFiles: {
		Name:        model.SearchFiles,
		Description: "Run a regular expression search across files in a directory and show each match with surrounding context.",
		Parameters: []ToolParameter{
			param(model.ParamPath, true, "The directory to search, searched recursively"),
			param(model.ParamRegex, true, "The regular expression pattern to search for"),
			param(model.ParamFilePattern, false, "Glob pattern to filter files, e.g. '*.go'"),
		},
		ReadOnly: true,
	},
	model.ListFiles: {
		Name:        model.ListFiles,
		Description: "List files and directories within a directory.",
		Parameters: []ToolParameter{
			param(model.ParamPath, true, "The directory to list"),
			param(model.ParamRecursive, false, "'true' to list recursively, otherwise only the top level"),
		},
		ReadOnly: true,
	},
	model.ListCodeDefinitionNames: {
		Name:        model.ListCodeDefinitionNames,
		Description: "List top-level definitions (functions, methods, types, constants, variables) of the Go source files in a directory.",
		Parameters: []ToolParameter{
			param(model.ParamPath, true, "The directory whose Go files are inspected"),
		},
		ReadOnly: true,
	},
	model.BrowserAction: {
		Name:        model.BrowserAction,
		Description: "Interact with a browser. Not available in this environment.",
		Parameters: []ToolParameter{
			param(model.ParamAction, true, "launch, click, type, scroll_down, scroll_up, or close"),
			param(model.ParamURL, false, "URL for the launch action"),
			param(model.ParamCoordinate, false, "x,y coordinate for the click action"),
			param(model.ParamText, false, "Text for the type action"),
		},
	},
	model.AskFollowupQuestion: {
		Name:        model.AskFollowupQuestion,
		Description: "Ask the user a question when required details are missing. Use sparingly.",
		Parameters: []ToolParameter{
			param(model.ParamQuestion, true, "The question to ask"),
		},
	},
	model.AttemptCompletion: {
		Name:        model.AttemptCompletion,
		Description: "Present the final result once the task is complete. Only use it after every previous command has succeeded.",
		Parameters: []ToolParameter{
			param(model.ParamResult, true, "A final description of the result, not ending in a question"),
			param(model.ParamCommand, false, "A command the user can run to see the result"),
		},
	},
	model.ReadFileRange: {
		Name:        model.ReadFileRange,
		Description: "Read a range of lines from a file. Lines are 1-based and inclusive; omit both bounds to read everything.",
		Parameters: []ToolParameter{
			param(model.ParamPath, true, "The path of the file to read"),
			lineParam(model.ParamStartLine, false, "First line to read"),
			lineParam(model.ParamEndLine, false, "Last line to read"),
		},
		ReadOnly: true,
	},
	model.SearchAndReplace: {
		Name:        model.SearchAndReplace,
		Description: "Replace the first exact occurrence of a block of text in a file. The search block must match the file exactly, including whitespace. The user reviews the change before it is saved.",
		Parameters: []ToolParameter{
			param(model.ParamPath, true, "The path of the file to modify"),
			param(model.ParamSearchBlock, true, "The exact text to find"),
			param(model.ParamReplaceBlock, true, "The text to put in its place"),
		},
	},
	model.InsertCodeBlock: {
		Name:        model.InsertCodeBlock,
		Description: "Insert a block of text before a 1-based line. Use the line count plus one to append. The user reviews the change before it is saved.",
		Parameters: []ToolParameter{
			param(model.ParamPath, true, "The path of the file to modify"),
			lineParam(model.ParamStartLine, true, "The line the block is inserted before"),
			param(model.ParamCodeBlock, true, "The text to insert"),
		},
	},
}

// Spec returns the declaration of a command.
func Spec(name model.CommandName) (ToolMetadata, bool) {
	m, ok := grammar[name]
	return m, ok
}

// Specs returns every declaration in vocabulary order.
func Specs() []ToolMetadata {
	out := make([]ToolMetadata, 0, len(model.CommandNames))
	for _, name := range model.CommandNames {
		out = append(out, grammar[name])
	}
	return out
}

// Usage renders the tag form of a command with placeholder values.
func (m ToolMetadata) Usage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%s>\n", m.Name)
	for _, p := range m.Parameters {
		placeholder := strings.ReplaceAll(string(p.Name), "_", " ")
		if !p.Required {
			placeholder += " (optional)"
		}
		fmt.Fprintf(&b, "<%s>%s here</%s>\n", p.Name, placeholder, p.Name)
	}
	fmt.Fprintf(&b, "</%s>", m.Name)
	return b.String()
}
