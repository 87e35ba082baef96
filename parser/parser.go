// Package parser decodes the tag-based command grammar out of streamed
// model output.
//
// Information Hiding:
// - Cursor scanning over the buffer hidden behind Parse
// - Partial-tag trimming of provisional segments hidden
// - Chunk accumulation and completion tracking hidden in Stream
package parser

import (
	"regexp"
	"strings"

	"github.com/richinex/redline/model"
)

// Parse decodes the full buffer accumulated so far into an ordered segment
// sequence. It is a pure function of buffer and never fails: text that does
// not form a known command is narrative. Only the last segment can be
// partial.
func Parse(buffer string) []model.Segment {
	return parse(buffer, false)
}

// parse decodes buffer. When final is set the buffer is complete, so trailing
// narrative is closed and kept verbatim.
func parse(buffer string, final bool) []model.Segment {
	var segments []model.Segment
	pos := 0
	for {
		name, open, ok := nextCommand(buffer, pos)
		if !ok {
			break
		}
		segments = appendText(segments, buffer[pos:open], false)

		seg, end, closed := parseCommand(buffer, name, open+len(name)+2)
		segments = append(segments, seg)
		if !closed {
			return segments
		}
		pos = end
	}
	if final {
		return appendText(segments, buffer[pos:], false)
	}
	return appendText(segments, trimOpenTagPrefix(buffer[pos:]), true)
}

// nextCommand finds the next opening tag of a known command at or after pos.
func nextCommand(buf string, pos int) (model.CommandName, int, bool) {
	for pos < len(buf) {
		i := strings.IndexByte(buf[pos:], '<')
		if i < 0 {
			return "", 0, false
		}
		i += pos
		if name, ok := matchOpen(buf[i:], model.CommandNames); ok {
			return name, i, true
		}
		pos = i + 1
	}
	return "", 0, false
}

// parseCommand scans a command body starting at bodyStart. It returns the
// segment, the offset just past the closing tag, and whether the closing tag
// was found.
func parseCommand(buf string, name model.CommandName, bodyStart int) (model.Segment, int, bool) {
	closeTag := "</" + string(name) + ">"
	var params model.Params
	pos := bodyStart

	for {
		i := strings.IndexByte(buf[pos:], '<')
		if i < 0 {
			return model.InvocationSegment(name, params, true), len(buf), false
		}
		i += pos
		rest := buf[i:]

		if strings.HasPrefix(rest, closeTag) {
			return model.InvocationSegment(name, params, false), i + len(closeTag), true
		}

		param, ok := matchOpen(rest, model.ParamNames)
		if !ok {
			pos = i + 1
			continue
		}

		valueStart := i + len(param) + 2
		paramClose := "</" + string(param) + ">"
		j := strings.Index(buf[valueStart:], paramClose)
		if j < 0 {
			params = params.Set(param, trimCloseTagPrefix(buf[valueStart:], paramClose))
			return model.InvocationSegment(name, params, true), len(buf), false
		}
		params = params.Set(param, buf[valueStart:valueStart+j])
		pos = valueStart + j + len(paramClose)
	}
}

// matchOpen reports which name's opening tag s starts with.
func matchOpen[N ~string](s string, names []N) (N, bool) {
	if len(s) < 3 || s[0] != '<' {
		return "", false
	}
	for _, n := range names {
		if len(s) > len(n)+1 && s[len(n)+1] == '>' && s[1:len(n)+1] == string(n) {
			return n, true
		}
	}
	return "", false
}

// appendText adds a narrative segment unless it is blank.
func appendText(segments []model.Segment, text string, partial bool) []model.Segment {
	if strings.TrimSpace(text) == "" {
		return segments
	}
	return append(segments, model.TextSegment(text, partial))
}

// trimOpenTagPrefix hides an unfinished opening tag at the end of trailing
// narrative when it could still become a known command.
func trimOpenTagPrefix(text string) string {
	i := strings.LastIndexByte(text, '<')
	if i < 0 {
		return text
	}
	tail := text[i+1:]
	for _, name := range model.CommandNames {
		if strings.HasPrefix(string(name), tail) {
			return text[:i]
		}
	}
	return text
}

// trimCloseTagPrefix hides a partially arrived closing tag at the end of a
// cut-off parameter value.
func trimCloseTagPrefix(value, closeTag string) string {
	for k := len(closeTag) - 1; k > 0; k-- {
		if strings.HasSuffix(value, closeTag[:k]) {
			return value[:len(value)-k]
		}
	}
	return value
}

var tagPattern = regexp.MustCompile(`</?([A-Za-z_][A-Za-z0-9_\-]*)>`)

// StrayTags returns tag names found in narrative text that are not known
// commands, in order of first appearance. Parameter names are included since
// outside a command body they are stray too.
func StrayTags(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range tagPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if model.CommandName(name).Known() || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
