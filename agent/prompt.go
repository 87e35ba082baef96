package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/richinex/redline/tools"
)

const tagRules = `You complete the user's task by issuing commands, one per reply, and
waiting for each result before continuing.

# Command format

A command is an XML-style tag named after the command, with one sub-tag per
parameter:

<command_name>
<parameter_name>value</parameter_name>
</command_name>

For example:

<read_file_range>
<path>src/main.go</path>
<start_line>10</start_line>
<end_line>20</end_line>
</read_file_range>

Rules:
- Use exactly one command per reply. Anything after the first complete
  command is ignored.
- Parameter values are taken verbatim. Do not escape them and do not wrap
  them in code fences.
- Line numbers are 1-based and inclusive.
- Every file edit is shown to the user, who may approve, change, or reject
  it. Wait for the result before assuming the edit was saved.
- Prefer read_file_range, search_and_replace, and insert_code_block over
  rewriting whole files with write_to_file.
- When the task is done, use attempt_completion. Do not end a reply with a
  question unless you use ask_followup_question.`

// SystemPrompt renders the instructions for a session rooted at root.
func SystemPrompt(root string, registry *tools.Registry) string {
	var b strings.Builder
	b.WriteString(tagRules)
	b.WriteString("\n\n# Commands\n\n")
	b.WriteString(registry.Description())
	b.WriteString("\n\n# System information\n\n")
	fmt.Fprintf(&b, "Operating system: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "Shell: %s\n", shell())
	fmt.Fprintf(&b, "Working directory: %s\n", filepath.ToSlash(root))
	b.WriteString("All relative paths are resolved against the working directory. " +
		"Paths outside it are rejected.\n")
	return b.String()
}

// WithInstructions appends user instructions to a system prompt.
func WithInstructions(prompt, instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return prompt
	}
	return prompt + "\n# User instructions\n\n" + instructions + "\n"
}

func shell() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "sh"
}
