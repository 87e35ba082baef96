// File Tools - read, range read, rewrite, search/replace, and insert.
//
// Information Hiding:
// - Path resolution and storage access delegated to the edit manager
// - Size limits hidden
// - Edit commands return staged transactions, never write directly

package tools

import (
	"context"
	"fmt"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
)

// DefaultMaxFileSize caps the content read_file returns.
const DefaultMaxFileSize = 1024 * 1024

// ReadFileTool returns the whole content of a file.
type ReadFileTool struct {
	files        *edit.Manager
	maxSizeBytes int
}

// NewReadFileTool creates a read_file handler.
func NewReadFileTool(files *edit.Manager, maxSizeBytes int) *ReadFileTool {
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxFileSize
	}
	return &ReadFileTool{files: files, maxSizeBytes: maxSizeBytes}
}

// Metadata returns the tool metadata.
func (t *ReadFileTool) Metadata() ToolMetadata {
	return grammar[model.ReadFile]
}

// Execute reads the file.
func (t *ReadFileTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	content, err := t.files.ReadFile(ctx, cmd.String(model.ParamPath))
	if err != nil {
		return FailureResult(err), nil
	}
	if len(content) > t.maxSizeBytes {
		return FailureResultf("file too large: %d bytes (max: %d bytes), use read_file_range", len(content), t.maxSizeBytes), nil
	}
	return SuccessResult(content), nil
}

// ReadRangeTool returns a 1-based inclusive line range of a file.
type ReadRangeTool struct {
	files *edit.Manager
}

// NewReadRangeTool creates a read_file_range handler.
func NewReadRangeTool(files *edit.Manager) *ReadRangeTool {
	return &ReadRangeTool{files: files}
}

// Metadata returns the tool metadata.
func (t *ReadRangeTool) Metadata() ToolMetadata {
	return grammar[model.ReadFileRange]
}

// Execute extracts the range.
func (t *ReadRangeTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	start, _ := cmd.Int(model.ParamStartLine)
	end, _ := cmd.Int(model.ParamEndLine)
	path := cmd.String(model.ParamPath)

	r, err := t.files.ReadRange(ctx, path, start, end)
	if err != nil {
		return FailureResult(err), nil
	}
	return SuccessResult(fmt.Sprintf("Successfully read lines %d to %d from %s:\n\n%s", r.Start, r.End, path, r.Text)), nil
}

// WriteFileTool stages a full rewrite of a file.
type WriteFileTool struct {
	files *edit.Manager
}

// NewWriteFileTool creates a write_to_file handler.
func NewWriteFileTool(files *edit.Manager) *WriteFileTool {
	return &WriteFileTool{files: files}
}

// Metadata returns the tool metadata.
func (t *WriteFileTool) Metadata() ToolMetadata {
	return grammar[model.WriteToFile]
}

// Execute stages the new content.
func (t *WriteFileTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	return stage(ctx, t.files, cmd, edit.Rewrite{Content: cmd.String(model.ParamContent)})
}

// SearchReplaceTool stages a replacement of the first exact match.
type SearchReplaceTool struct {
	files *edit.Manager
}

// NewSearchReplaceTool creates a search_and_replace handler.
func NewSearchReplaceTool(files *edit.Manager) *SearchReplaceTool {
	return &SearchReplaceTool{files: files}
}

// Metadata returns the tool metadata.
func (t *SearchReplaceTool) Metadata() ToolMetadata {
	return grammar[model.SearchAndReplace]
}

// Execute stages the replacement.
func (t *SearchReplaceTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	return stage(ctx, t.files, cmd, edit.SearchReplace{
		Search:  cmd.String(model.ParamSearchBlock),
		Replace: cmd.String(model.ParamReplaceBlock),
	})
}

// InsertBlockTool stages an insertion before a line.
type InsertBlockTool struct {
	files *edit.Manager
}

// NewInsertBlockTool creates an insert_code_block handler.
func NewInsertBlockTool(files *edit.Manager) *InsertBlockTool {
	return &InsertBlockTool{files: files}
}

// Metadata returns the tool metadata.
func (t *InsertBlockTool) Metadata() ToolMetadata {
	return grammar[model.InsertCodeBlock]
}

// Execute stages the insertion.
func (t *InsertBlockTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	line, _ := cmd.Int(model.ParamStartLine)
	return stage(ctx, t.files, cmd, edit.InsertLines{
		Position: line,
		Text:     cmd.String(model.ParamCodeBlock),
	})
}

func stage(ctx context.Context, files *edit.Manager, cmd Command, change edit.Change) (ToolResult, error) {
	tx, err := files.Stage(ctx, cmd.String(model.ParamPath), change)
	if err != nil {
		return FailureResult(err), nil
	}
	return StagedResult(tx), nil
}
