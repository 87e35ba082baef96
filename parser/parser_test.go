package parser

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/redline/model"
)

const sampleStream = "I'll read the file first.\n" +
	"<read_file_range>\n<path>src/main.go</path>\n<start_line>2</start_line>\n<end_line>4</end_line>\n</read_file_range>\n" +
	"Then I will <b>edit</b> it:\n" +
	"<search_and_replace><path>a.txt</path><search_block>Line 2</search_block>" +
	"<replace_block>Modified Line 2</replace_block></search_and_replace> done " +
	"<insert_code_block><path>x.txt</path><start_line>3</start_line><code_block>  indented\n</code_block></insert_code_block>"

func TestParseEmpty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("   \n\t"))
}

func TestParsePlainText(t *testing.T) {
	segs := Parse("Hello, world")
	require.Len(t, segs, 1)
	assert.Equal(t, model.TextSegment("Hello, world", true), segs[0])
}

func TestParseCompleteCommand(t *testing.T) {
	segs := Parse("Reading now <read_file><path>go.mod</path></read_file> then more")
	require.Len(t, segs, 3)

	assert.Equal(t, model.TextSegment("Reading now ", false), segs[0])

	assert.True(t, segs[1].IsInvocation())
	assert.Equal(t, model.ReadFile, segs[1].Command)
	assert.False(t, segs[1].Partial)
	path, ok := segs[1].Params.Get(model.ParamPath)
	require.True(t, ok)
	assert.Equal(t, "go.mod", path)

	assert.Equal(t, model.TextSegment(" then more", true), segs[2])
}

func TestParseSample(t *testing.T) {
	segs := Parse(sampleStream)
	require.Len(t, segs, 6)

	kinds := []model.SegmentKind{
		model.KindText, model.KindInvocation, model.KindText,
		model.KindInvocation, model.KindText, model.KindInvocation,
	}
	for i, seg := range segs {
		assert.Equal(t, kinds[i], seg.Kind, "segment %d", i)
		assert.False(t, seg.Partial, "segment %d", i)
	}

	assert.Equal(t, model.ReadFileRange, segs[1].Command)
	assert.Equal(t, []model.ParamName{model.ParamPath, model.ParamStartLine, model.ParamEndLine}, segs[1].Params.Names())
	assert.Equal(t, "\nThen I will <b>edit</b> it:\n", segs[2].Text)

	code, _ := segs[5].Params.Get(model.ParamCodeBlock)
	assert.Equal(t, "  indented\n", code)
}

func TestParsePartialCommand(t *testing.T) {
	segs := Parse("Edit: <search_and_replace><path>a.txt</path><search_block>Line")
	require.Len(t, segs, 2)

	cmd := segs[1]
	assert.True(t, cmd.Partial)
	assert.Equal(t, model.SearchAndReplace, cmd.Command)
	path, _ := cmd.Params.Get(model.ParamPath)
	assert.Equal(t, "a.txt", path)
	search, ok := cmd.Params.Get(model.ParamSearchBlock)
	require.True(t, ok)
	assert.Equal(t, "Line", search)
	assert.False(t, cmd.Params.Has(model.ParamReplaceBlock))
}

func TestParsePartialTagsTrimmed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		param  model.ParamName
		isText bool
	}{
		{name: "open command tag", input: "Let me look <read_fi", want: "Let me look ", isText: true},
		{name: "bare angle", input: "Let me look <", want: "Let me look ", isText: true},
		{name: "not a command prefix", input: "if a <b then", want: "if a <b then", isText: true},
		{name: "param close tag", input: "<read_file><path>main.go</pa", want: "main.go", param: model.ParamPath},
		{name: "param close angle", input: "<read_file><path>main.go<", want: "main.go", param: model.ParamPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := Parse(tt.input)
			require.NotEmpty(t, segs)
			last := segs[len(segs)-1]
			assert.True(t, last.Partial)
			if tt.isText {
				assert.Equal(t, tt.want, last.Text)
				return
			}
			got, ok := last.Params.Get(tt.param)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnknownTagsAreNarrative(t *testing.T) {
	input := "<thinking>plan</thinking> <delete_file><path>x</path></delete_file>"
	segs := Parse(input)
	require.Len(t, segs, 1)
	assert.Equal(t, input, segs[0].Text)
	assert.True(t, segs[0].Partial)
}

func TestParseRetainsUndeclaredParams(t *testing.T) {
	segs := Parse("<read_file><path>a</path><content>extra</content></read_file>")
	require.Len(t, segs, 1)
	content, ok := segs[0].Params.Get(model.ParamContent)
	require.True(t, ok)
	assert.Equal(t, "extra", content)
}

func TestParsePreservesWhitespace(t *testing.T) {
	segs := Parse("<write_to_file><path>a</path><content>\n  line one\n\tline two\n\n</content></write_to_file>")
	require.Len(t, segs, 1)
	content, _ := segs[0].Params.Get(model.ParamContent)
	assert.Equal(t, "\n  line one\n\tline two\n\n", content)
}

func TestParseValueIsVerbatim(t *testing.T) {
	value := "<p>keep</p> and </write_to_file> and <read_file>"
	segs := Parse("<write_to_file><path>a</path><content>" + value + "</content></write_to_file>")
	require.Len(t, segs, 1)
	assert.False(t, segs[0].Partial)
	got, _ := segs[0].Params.Get(model.ParamContent)
	assert.Equal(t, value, got)
}

func TestParseRepeatedParamKeepsPosition(t *testing.T) {
	segs := Parse("<read_file_range><path>a</path><start_line>1</start_line><path>b</path></read_file_range>")
	require.Len(t, segs, 1)
	assert.Equal(t, model.Params{
		{Name: model.ParamPath, Value: "b"},
		{Name: model.ParamStartLine, Value: "1"},
	}, segs[0].Params)
}

func TestParseNoNestedCommands(t *testing.T) {
	segs := Parse("<read_file><list_files><path>a</path></list_files></read_file>")
	require.Len(t, segs, 1)
	assert.Equal(t, model.ReadFile, segs[0].Command)
	assert.False(t, segs[0].Partial)
	path, _ := segs[0].Params.Get(model.ParamPath)
	assert.Equal(t, "a", path)
}

func TestParseLongerNameNotConfused(t *testing.T) {
	segs := Parse("<read_file_range><path>a</path></read_file_range>")
	require.Len(t, segs, 1)
	assert.Equal(t, model.ReadFileRange, segs[0].Command)
}

func TestParseDeterministic(t *testing.T) {
	assert.Equal(t, Parse(sampleStream), Parse(sampleStream))
}

// prefixViolation reports the first prefix of input whose closed segments
// differ from the parse of the whole input, or "" when there is none.
func prefixViolation(input string) string {
	full := Parse(input)
	for i := 0; i <= len(input); i++ {
		prefix := Parse(input[:i])
		for j, seg := range prefix {
			if seg.Partial {
				if j != len(prefix)-1 {
					return fmt.Sprintf("prefix %d: partial segment %d is not last", i, j)
				}
				continue
			}
			if j >= len(full) {
				return fmt.Sprintf("prefix %d: segment %d missing from full parse", i, j)
			}
			if !seg.Equal(full[j]) {
				return fmt.Sprintf("prefix %d: segment %d changed: %+v vs %+v", i, j, seg, full[j])
			}
		}
	}
	return ""
}

// Closed segments never change once they close.
func TestParsePrefixStability(t *testing.T) {
	assert.Empty(t, prefixViolation(sampleStream))
}

// randomReply builds tag soup from fragments of the grammar.
func randomReply(rng *rand.Rand) string {
	fragments := []string{
		"<read_file>", "</read_file>", "<search_and_replace>", "</search_and_replace>",
		"<path>", "</path>", "<search_block>", "</search_block>", "<replace_block>", "</replace_block>",
		"<attempt_completion>", "</attempt_completion>", "<result>", "</result>",
		"<thinking>", "</thinking>", "<", ">", "</", "a.go", "Line 2", " ", "\n", "text ",
	}
	var b strings.Builder
	for n := rng.Intn(24); n > 0; n-- {
		b.WriteString(fragments[rng.Intn(len(fragments))])
	}
	return b.String()
}

func TestParsePrefixStabilityRandom(t *testing.T) {
	rounds := 3000
	if testing.Short() {
		rounds = 300
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < rounds; i++ {
		input := randomReply(rng)
		if v := prefixViolation(input); v != "" {
			t.Fatalf("input %q: %s", input, v)
		}
	}
}

func TestParseNeverPanics(t *testing.T) {
	alphabet := []string{"<", ">", "/", "read_file", "path", "</path>", "<path>", "</read_file>", "<read_file>", "x", "\n", " ", "<<", "insert_code_block"}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		var buf []byte
		for n := rng.Intn(30); n > 0; n-- {
			buf = append(buf, alphabet[rng.Intn(len(alphabet))]...)
		}
		input := string(buf)
		assert.NotPanics(t, func() { Parse(input) }, "input %q", input)
	}
}

func FuzzParse(f *testing.F) {
	f.Add(sampleStream)
	f.Add("<read_file><path>")
	f.Add("</read_file>")
	f.Add("<<<>>>")
	f.Fuzz(func(t *testing.T, input string) {
		if len(input) > 512 {
			input = input[:512]
		}
		if v := prefixViolation(input); v != "" {
			t.Fatalf("input %q: %s", input, v)
		}
	})
}

func TestStrayTags(t *testing.T) {
	got := StrayTags("<thinking>x</thinking> <read_file> <path> <thinking> <tool_call/>")
	assert.Equal(t, []string{"thinking", "path"}, got)
	assert.Empty(t, StrayTags("no tags here"))
}
