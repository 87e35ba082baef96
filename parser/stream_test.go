package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/redline/model"
)

func TestStreamDeliversEachSegmentOnce(t *testing.T) {
	s := NewStream()
	var completed []model.Segment
	for _, r := range sampleStream {
		update := s.Write(string(r))
		completed = append(completed, update.Completed...)
		for i, seg := range update.Segments {
			if seg.Partial {
				assert.Equal(t, len(update.Segments)-1, i)
			}
		}
	}
	final := s.Close()
	completed = append(completed, final.Completed...)

	assert.Nil(t, final.Truncated)
	assert.Equal(t, Parse(sampleStream), completed)
	assert.Equal(t, sampleStream, s.Buffer())
	assert.Equal(t, len(completed), s.Delivered())
}

func TestStreamCloseTruncatedCommand(t *testing.T) {
	s := NewStream()
	s.Write("Working. <write_to_file><path>a.txt</path><content>hel")
	update := s.Close()

	require.NotNil(t, update.Truncated)
	assert.Equal(t, model.WriteToFile, update.Truncated.Command)
	assert.True(t, update.Truncated.Partial)
	assert.Empty(t, update.Completed)
}

func TestStreamCloseKeepsTrailingText(t *testing.T) {
	s := NewStream()
	first := s.Write("compare a <")
	require.Len(t, first.Segments, 1)
	assert.Equal(t, "compare a ", first.Segments[0].Text)

	update := s.Close()
	require.Len(t, update.Completed, 1)
	assert.Equal(t, model.TextSegment("compare a <", false), update.Completed[0])
	assert.Nil(t, update.Truncated)
}

func TestStreamWriteAfterCloseIgnored(t *testing.T) {
	s := NewStream()
	s.Write("done")
	s.Close()
	update := s.Write(" more")
	assert.Equal(t, "done", s.Buffer())
	assert.Empty(t, update.Completed)
}
