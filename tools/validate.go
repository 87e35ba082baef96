package tools

import (
	"strconv"
	"strings"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
)

// Command is an invocation that passed validation.
type Command struct {
	Name   model.CommandName
	Params model.Params
}

// String returns the value of p, or "" when absent.
func (c Command) String(p model.ParamName) string {
	v, _ := c.Params.Get(p)
	return v
}

// Int returns the numeric value of p. Validation has already checked the
// format of declared numeric parameters.
func (c Command) Int(p model.ParamName) (int, bool) {
	v, ok := c.Params.Get(p)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool reports whether p is "true".
func (c Command) Bool(p model.ParamName) bool {
	return strings.EqualFold(strings.TrimSpace(c.String(p)), "true")
}

// Describe renders the command for result headers, e.g. "read_file for 'a.go'".
func (c Command) Describe() string {
	switch {
	case c.Params.Has(model.ParamPath):
		return string(c.Name) + " for '" + c.String(model.ParamPath) + "'"
	case c.Params.Has(model.ParamCommand) && c.Name == model.ExecuteCommand:
		return string(c.Name) + " for '" + c.String(model.ParamCommand) + "'"
	case c.Params.Has(model.ParamQuestion):
		return string(c.Name) + " for '" + c.String(model.ParamQuestion) + "'"
	}
	return string(c.Name)
}

// Validate checks a complete invocation against its command declaration.
// It stops at the first missing or malformed parameter in declaration
// order. One leading and one trailing newline are trimmed from every value;
// parameters the command does not declare are kept.
func Validate(seg model.Segment) (Command, error) {
	if !seg.IsInvocation() {
		return Command{}, &edit.Error{Kind: edit.ErrUnknownCommand}
	}
	if seg.Partial {
		return Command{}, &edit.Error{Kind: edit.ErrPartialInvocation, Command: string(seg.Command)}
	}
	spec, ok := Spec(seg.Command)
	if !ok {
		return Command{}, &edit.Error{Kind: edit.ErrUnknownCommand, Command: string(seg.Command)}
	}

	params := make(model.Params, 0, len(seg.Params))
	for _, p := range seg.Params {
		params = append(params, model.Param{Name: p.Name, Value: trimNewlines(p.Value)})
	}

	for _, decl := range spec.Parameters {
		v, present := params.Get(decl.Name)
		if decl.Required && (!present || v == "") {
			return Command{}, &edit.Error{Kind: edit.ErrMissingParameter, Command: string(spec.Name), Param: string(decl.Name)}
		}
		if present && decl.Numeric() && !nonNegativeInt(v) {
			return Command{}, &edit.Error{Kind: edit.ErrMalformedParameter, Command: string(spec.Name), Param: string(decl.Name), Value: v}
		}
	}

	return Command{Name: spec.Name, Params: params}, nil
}

func trimNewlines(v string) string {
	if strings.HasPrefix(v, "\r\n") {
		v = v[2:]
	} else if strings.HasPrefix(v, "\n") {
		v = v[1:]
	}
	if strings.HasSuffix(v, "\r\n") {
		v = v[:len(v)-2]
	} else if strings.HasSuffix(v, "\n") {
		v = v[:len(v)-1]
	}
	return v
}

func nonNegativeInt(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := strconv.Atoi(v)
	return err == nil
}
