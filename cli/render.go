package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/richinex/redline/agent"
	"github.com/richinex/redline/model"
	"github.com/richinex/redline/parser"
	"github.com/richinex/redline/tools"
)

// Printer shows narrative text as it streams and one line per command.
type Printer struct {
	out     io.Writer
	verbose bool

	printed   []int
	announced map[int]bool
}

// NewPrinter creates a printer. Verbose prints every command result in full.
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, verbose: verbose, announced: make(map[int]bool)}
}

// Start implements agent.Renderer.
func (p *Printer) Start(iteration int) {
	p.printed = p.printed[:0]
	p.announced = make(map[int]bool)
	if p.verbose {
		fmt.Fprintf(p.out, "\n--- step %d ---\n", iteration+1)
	}
}

// Render implements agent.Renderer.
func (p *Printer) Render(u parser.Update) {
	for len(p.printed) < len(u.Segments) {
		p.printed = append(p.printed, 0)
	}
	for i, seg := range u.Segments {
		switch seg.Kind {
		case model.KindText:
			if len(seg.Text) > p.printed[i] {
				io.WriteString(p.out, seg.Text[p.printed[i]:])
				p.printed[i] = len(seg.Text)
			}
		case model.KindInvocation:
			if !seg.Partial && !p.announced[i] {
				p.announced[i] = true
				fmt.Fprintf(p.out, "\n> %s\n", describe(seg))
			}
		}
	}
}

// Result implements agent.Renderer.
func (p *Printer) Result(o agent.Outcome) {
	switch {
	case p.verbose:
		fmt.Fprintf(p.out, "%s\n", o.Message)
	case o.Committed != nil:
		fmt.Fprintf(p.out, "saved %s\n", o.Committed.Transaction.Display)
	case o.Discarded != nil:
		fmt.Fprintf(p.out, "rejected changes to %s\n", o.Discarded.Display)
	case !o.Result.Success():
		fmt.Fprintf(p.out, "%s\n", tools.FormatError(o.Result.Error))
	case o.Final:
		// printed by the run summary
	default:
		fmt.Fprintf(p.out, "(%d bytes of output)\n", len(o.Result.Output))
	}
}

func describe(seg model.Segment) string {
	return tools.Command{Name: seg.Command, Params: seg.Params}.Describe()
}

// summary renders a response for the end of a run.
func summary(resp agent.Response) string {
	var b strings.Builder
	switch resp.Type {
	case agent.ResponseSuccess:
		fmt.Fprintf(&b, "\n%s\n", resp.Result)
	case agent.ResponseFailure:
		fmt.Fprintf(&b, "\nError: %s\n", resp.Error)
	case agent.ResponseTimeout:
		fmt.Fprintf(&b, "\nTimeout: %s\n", resp.PartialResult)
	}
	meta := resp.Metadata
	fmt.Fprintf(&b, "(%d steps, %d model calls", len(resp.Steps), meta.LLMCalls)
	if meta.TokenUsage != nil && meta.TokenUsage.TotalTokens > 0 {
		fmt.Fprintf(&b, ", %d tokens", meta.TokenUsage.TotalTokens)
	}
	fmt.Fprintf(&b, ", %.1fs)\n", float64(meta.ExecutionTimeMs)/1000)
	return b.String()
}

var _ agent.Renderer = (*Printer)(nil)
