// Shell Command Tool for execute_command.
//
// Information Hiding:
// - Shell execution details hidden
// - Allowlist and approval checks hidden
// - Output capping abstracted

package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/richinex/redline/model"
)

// Approver confirms a command before it runs.
type Approver interface {
	ApproveCommand(ctx context.Context, command string) (bool, error)
}

// CommandTool executes shell commands via sh -c in the working root.
type CommandTool struct {
	dir             string
	timeoutSecs     uint64
	allowedCommands []string
	approver        Approver
	maxOutput       int
}

// NewCommandTool creates an execute_command handler running in dir.
func NewCommandTool(dir string, timeoutSecs uint64) *CommandTool {
	return &CommandTool{
		dir:         dir,
		timeoutSecs: timeoutSecs,
		maxOutput:   64 * 1024,
	}
}

// WithAllowedCommands sets the allowlist of base commands.
func (t *CommandTool) WithAllowedCommands(commands []string) *CommandTool {
	t.allowedCommands = commands
	return t
}

// WithApprover requires approval before each command.
func (t *CommandTool) WithApprover(a Approver) *CommandTool {
	t.approver = a
	return t
}

// Metadata returns the tool metadata.
func (t *CommandTool) Metadata() ToolMetadata {
	return grammar[model.ExecuteCommand]
}

// Execute runs the shell command.
func (t *CommandTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	command := strings.TrimSpace(cmd.String(model.ParamCommand))
	if command == "" {
		return FailureResultf("command cannot be empty"), nil
	}

	if !t.isCommandAllowed(command) {
		return FailureResultf("command '%s' is not in the allowed list", command), nil
	}

	if t.approver != nil {
		ok, err := t.approver.ApproveCommand(ctx, command)
		if err != nil {
			return ToolResult{}, fmt.Errorf("approve command: %w", err)
		}
		if !ok {
			return FailureResultf("the user denied running '%s'", command), nil
		}
	}

	timeoutSecs := t.timeoutSecs
	if timeoutSecs == 0 {
		timeoutSecs = 30
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, "sh", "-c", command)
	c.Dir = t.dir
	output, err := c.CombinedOutput()
	out := t.capOutput(string(output))

	if ctx.Err() == context.DeadlineExceeded {
		return ToolResult{Output: out, Error: fmt.Errorf("command timed out after %d seconds", timeoutSecs)}, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return ToolResult{Output: out, Error: fmt.Errorf("command failed with exit code %d", exitErr.ExitCode())}, nil
		}
		return FailureResult(fmt.Errorf("failed to execute command: %w", err)), nil
	}

	if out == "" {
		out = "(no output)"
	}
	return SuccessResult(out), nil
}

func (t *CommandTool) capOutput(s string) string {
	if len(s) <= t.maxOutput {
		return s
	}
	return s[:t.maxOutput] + fmt.Sprintf("\n... (output truncated, %d bytes total)", len(s))
}

// isCommandAllowed checks if the command is in the allowlist.
func (t *CommandTool) isCommandAllowed(command string) bool {
	if len(t.allowedCommands) == 0 {
		return true
	}

	baseCmd := strings.Fields(command)
	if len(baseCmd) == 0 {
		return false
	}

	for _, allowed := range t.allowedCommands {
		if allowed == baseCmd[0] {
			return true
		}
	}
	return false
}
