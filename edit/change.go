package edit

import (
	"strings"
)

// Change computes proposed content from a file's original content.
// Apply returns an *Error for parameter and range problems.
type Change interface {
	// Kind names the change for logs and the journal.
	Kind() string
	// Apply computes the proposed content. path is used in error values only.
	Apply(path, original string) (string, error)
}

// creator is implemented by changes that may target a missing file.
type creator interface {
	creates() bool
}

// SearchReplace replaces the first exact occurrence of Search.
type SearchReplace struct {
	Search  string
	Replace string
}

func (SearchReplace) Kind() string { return "search_replace" }

func (c SearchReplace) Apply(path, original string) (string, error) {
	if c.Search == "" {
		return "", &Error{Kind: ErrMissingParameter, Param: "search_block", Path: path}
	}
	if strings.Contains(original, c.Search) {
		return strings.Replace(original, c.Search, c.Replace, 1), nil
	}

	// Model output uses bare newlines; retry against CRLF files.
	if strings.Contains(original, "\r\n") && !strings.Contains(c.Search, "\r\n") {
		search := strings.ReplaceAll(c.Search, "\n", "\r\n")
		if strings.Contains(original, search) {
			replace := strings.ReplaceAll(c.Replace, "\n", "\r\n")
			return strings.Replace(original, search, replace, 1), nil
		}
	}
	return "", &Error{Kind: ErrSearchTextNotFound, Path: path}
}

// InsertLines inserts Text as a new line before the 1-based Position.
// Position N+1 on an N-line file appends.
type InsertLines struct {
	Position int
	Text     string
}

func (InsertLines) Kind() string { return "insert_lines" }

func (c InsertLines) Apply(path, original string) (string, error) {
	l := splitLines(original)
	n := len(l.items)
	if c.Position < 1 || c.Position > n+1 {
		return "", &Error{Kind: ErrInvalidInsertPosition, Path: path, Start: c.Position, Lines: n}
	}

	text := c.Text
	if l.eol == "\r\n" {
		text = strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\n", "\r\n")
	}

	at := c.Position - 1
	items := make([]string, 0, n+1)
	items = append(items, l.items[:at]...)
	items = append(items, text)
	items = append(items, l.items[at:]...)
	l.items = items
	return l.join(), nil
}

// Rewrite replaces the whole file, creating it when missing.
type Rewrite struct {
	Content string
}

func (Rewrite) Kind() string { return "rewrite" }

func (c Rewrite) Apply(_, _ string) (string, error) {
	return c.Content, nil
}

func (Rewrite) creates() bool { return true }

// Range is the result of a line-range extraction.
type Range struct {
	Text  string
	Start int
	End   int
	Lines int
}

// ExtractRange returns lines start..end (1-based, inclusive) of content.
// Zero start means the first line and zero end the last. Lines are joined
// with "\n".
func ExtractRange(path, content string, start, end int) (Range, error) {
	l := splitLines(content)
	n := len(l.items)

	if start == 0 && end == 0 {
		return Range{Text: strings.Join(l.items, "\n"), Start: 1, End: n, Lines: n}, nil
	}

	s, e := start, end
	if s == 0 {
		s = 1
	}
	if e == 0 {
		e = n
	}
	if s < 1 || e > n || s > e {
		return Range{}, &Error{Kind: ErrInvalidRange, Path: path, Start: s, End: e, Lines: n}
	}
	return Range{Text: strings.Join(l.items[s-1:e], "\n"), Start: s, End: e, Lines: n}, nil
}
