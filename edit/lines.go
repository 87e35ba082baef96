package edit

import "strings"

// lines is a file body split on line breaks, remembering how to join it back.
type lines struct {
	items    []string
	eol      string
	trailing bool
}

func splitLines(content string) lines {
	l := lines{eol: "\n"}
	if content == "" {
		return l
	}
	if strings.Contains(content, "\r\n") {
		l.eol = "\r\n"
	}
	body := content
	if strings.HasSuffix(body, "\n") {
		l.trailing = true
		body = body[:len(body)-1]
	}
	l.items = strings.Split(body, "\n")
	if l.eol == "\r\n" {
		for i := range l.items {
			l.items[i] = strings.TrimSuffix(l.items[i], "\r")
		}
	}
	return l
}

func (l lines) join() string {
	s := strings.Join(l.items, l.eol)
	if l.trailing {
		s += l.eol
	}
	return s
}

// CountLines returns the number of lines in content. A trailing newline does
// not start a new line.
func CountLines(content string) int {
	return len(splitLines(content).items)
}
