package tools

import (
	"fmt"
	"strings"

	"github.com/richinex/redline/edit"
)

// FormatError renders err as a single line.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	return "Error: " + msg
}

// FormatResult renders the message fed back to the model for a command.
func FormatResult(cmd Command, result ToolResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Result:\n", cmd.Describe())
	if !result.Success() {
		b.WriteString(FormatError(result.Error))
		if out := strings.TrimRight(result.Output, "\n"); out != "" {
			b.WriteString("\n\nOutput:\n")
			b.WriteString(out)
		}
		return b.String()
	}
	if result.Output == "" {
		b.WriteString("(no output)")
		return b.String()
	}
	b.WriteString(result.Output)
	return b.String()
}

// FormatCommit renders an approved edit. Manual edits and diagnostics are
// appended as separate sections.
func FormatCommit(cr edit.CommitResult) string {
	var b strings.Builder
	verb := "saved"
	if cr.Transaction.Created {
		verb = "created"
	}
	fmt.Fprintf(&b, "The user approved the changes and %s was %s.", cr.Transaction.Display, verb)
	if cr.ManualEdits != "" {
		b.WriteString("\n\nUser edits:\n\n")
		b.WriteString(strings.TrimRight(cr.ManualEdits, "\n"))
	}
	if len(cr.Diagnostics) > 0 {
		b.WriteString("\n\nNew problems detected after saving the file:\n")
		for _, d := range cr.Diagnostics {
			b.WriteString("- ")
			b.WriteString(d)
			b.WriteString("\n")
		}
	}
	if cr.ManualEdits != "" {
		b.WriteString("\n\nThe final content of the file is:\n\n")
		b.WriteString(cr.FinalContent)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatDiscard renders a rejected edit with optional user feedback.
func FormatDiscard(tx edit.Transaction, feedback string) string {
	msg := fmt.Sprintf("The user denied the changes to %s. The file is unchanged.", tx.Display)
	if feedback = strings.TrimSpace(feedback); feedback != "" {
		msg += "\n\nUser feedback:\n<feedback>\n" + feedback + "\n</feedback>"
	}
	return msg
}
