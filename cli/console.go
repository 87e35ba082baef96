// Interactive review in the terminal.
//
// Information Hiding:
// - Prompt wording and answer parsing hidden
// - Tracking of the diff surface per file hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/richinex/redline/agent"
	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/surface"
)

// Console is a Reviewer reading answers line by line from an input stream.
type Console struct {
	in     *bufio.Reader
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer

	autoApprove bool

	mu        sync.Mutex
	terminals map[string]*surface.Terminal
}

// NewConsole creates a console reviewer. With autoApprove every edit and
// command is accepted without asking.
func NewConsole(in io.Reader, out, errOut io.Writer, autoApprove bool) *Console {
	return &Console{
		in:          bufio.NewReader(in),
		stdin:       in,
		out:         out,
		errOut:      errOut,
		autoApprove: autoApprove,
		terminals:   make(map[string]*surface.Terminal),
	}
}

// Track records the terminal surface opened for path. It is passed to
// surface.TerminalFactory.
func (c *Console) Track(path string, t *surface.Terminal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminals[path] = t
}

func (c *Console) terminal(path string) *surface.Terminal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminals[path]
}

// ReviewEdit implements agent.Reviewer.
func (c *Console) ReviewEdit(ctx context.Context, tx edit.Transaction) (agent.Decision, error) {
	if c.autoApprove {
		fmt.Fprintf(c.out, "Auto-approved changes to %s\n", tx.Display)
		return agent.Decision{Approve: true}, nil
	}

	for {
		answer, err := c.prompt(ctx, fmt.Sprintf("Apply changes to %s? [y]es / [n]o / [e]dit: ", tx.Display))
		if err != nil {
			return agent.Decision{}, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return agent.Decision{Approve: true}, nil
		case "n", "no":
			feedback, err := c.prompt(ctx, "Feedback for the model (optional): ")
			if err != nil {
				return agent.Decision{}, err
			}
			return agent.Decision{Approve: false, Feedback: feedback}, nil
		case "e", "edit":
			t := c.terminal(tx.Path)
			if t == nil {
				fmt.Fprintln(c.errOut, "This change cannot be edited here.")
				continue
			}
			if err := t.EditProposal(ctx, c.stdin, c.out, c.errOut); err != nil {
				fmt.Fprintf(c.errOut, "Edit failed: %v\n", err)
			}
		default:
			fmt.Fprintln(c.out, "Please answer y, n, or e.")
		}
	}
}

// Ask implements tools.Asker.
func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(c.out, "\n%s\n", question)
	return c.prompt(ctx, "> ")
}

// ApproveCommand implements tools.Approver.
func (c *Console) ApproveCommand(ctx context.Context, command string) (bool, error) {
	if c.autoApprove {
		return true, nil
	}
	answer, err := c.prompt(ctx, fmt.Sprintf("Run `%s`? [y/N]: ", command))
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// ReadLine reads one trimmed line. It returns io.EOF when input ends.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *Console) prompt(ctx context.Context, text string) (string, error) {
	fmt.Fprint(c.out, text)
	answer, err := c.ReadLine(ctx)
	if err == io.EOF {
		return "", fmt.Errorf("input closed while waiting for an answer")
	}
	return answer, err
}

var _ agent.Reviewer = (*Console)(nil)
