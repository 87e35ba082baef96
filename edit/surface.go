package edit

import "context"

// Storage is the file store the manager reads originals from and commits to.
// Paths are absolute and already resolved against the working root.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}

// SaveResult is what a surface reports when a staged proposal is accepted.
type SaveResult struct {
	// Diagnostics are findings on the final content, such as linter output.
	Diagnostics []string
	// ManualEdits is a unified diff of reviewer changes to the proposal.
	ManualEdits string
	// FinalContent is the full content to write. Surfaces return the
	// proposal itself when the reviewer made no changes.
	FinalContent string
}

// Snapshot is the file content a transaction was staged against.
type Snapshot struct {
	Path    string
	Content string
	// Exists is false when the transaction creates the file.
	Exists bool
}

// Surface presents one staged proposal for review. It holds a rendering
// reference only; the manager owns the transaction.
type Surface interface {
	// Open prepares the surface for the snapshot the proposal applies to.
	Open(ctx context.Context, snap Snapshot) error
	// Update pushes proposed content. final marks the last update.
	Update(ctx context.Context, content string, final bool) error
	// Settle blocks until the last update is visible. Surfaces that cannot
	// signal readiness wait a fixed delay.
	Settle(ctx context.Context) error
	// ScrollToFirstDifference brings the first changed line into view.
	ScrollToFirstDifference(ctx context.Context) error
	// SaveChanges finalizes the proposal and reports the content to write.
	SaveChanges(ctx context.Context) (SaveResult, error)
	// RevertChanges restores the pre-staging view.
	RevertChanges(ctx context.Context) error
	// IsEditing reports whether a proposal is open.
	IsEditing() bool
}

// SurfaceFactory creates the surface for one transaction.
type SurfaceFactory func(path string) Surface
