package surface

import (
	"context"
	"errors"
	"sync"

	"github.com/richinex/redline/edit"
)

// Recorder is a surface that renders nothing and records every call. It
// backs headless runs and tests. Error fields inject failures.
type Recorder struct {
	mu sync.Mutex

	path     string
	original string
	proposed string
	editing  bool
	calls    []string

	OpenErr   error
	UpdateErr error
	ScrollErr error
	SaveErr   error
	RevertErr error

	// Edit, when set, simulates reviewer changes at save time.
	Edit func(proposed string) string
	// Diagnostics are reported by SaveChanges.
	Diagnostics []string
}

// NewRecorder creates an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) note(call string) {
	r.calls = append(r.calls, call)
}

// Open implements edit.Surface.
func (r *Recorder) Open(ctx context.Context, snap edit.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.note("open")
	if r.OpenErr != nil {
		return r.OpenErr
	}
	r.path = snap.Path
	r.original = snap.Content
	r.editing = true
	return nil
}

// Update implements edit.Surface.
func (r *Recorder) Update(ctx context.Context, content string, final bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.note("update")
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if !r.editing {
		return errors.New("update before open")
	}
	r.proposed = content
	return nil
}

// Settle implements edit.Surface.
func (r *Recorder) Settle(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.note("settle")
	return ctx.Err()
}

// ScrollToFirstDifference implements edit.Surface.
func (r *Recorder) ScrollToFirstDifference(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.note("scroll")
	return r.ScrollErr
}

// SaveChanges implements edit.Surface.
func (r *Recorder) SaveChanges(ctx context.Context) (edit.SaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.note("save")
	if r.SaveErr != nil {
		return edit.SaveResult{}, r.SaveErr
	}

	final := r.proposed
	var manual string
	if r.Edit != nil {
		final = r.Edit(r.proposed)
		d, err := edit.Diff(r.path, "proposed", "edited", r.proposed, final)
		if err != nil {
			return edit.SaveResult{}, err
		}
		manual = d
	}
	r.editing = false
	return edit.SaveResult{
		Diagnostics:  append([]string(nil), r.Diagnostics...),
		ManualEdits:  manual,
		FinalContent: final,
	}, nil
}

// RevertChanges implements edit.Surface.
func (r *Recorder) RevertChanges(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.note("revert")
	if r.RevertErr != nil {
		return r.RevertErr
	}
	r.editing = false
	r.proposed = ""
	return nil
}

// IsEditing implements edit.Surface.
func (r *Recorder) IsEditing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.editing
}

// Calls returns the recorded call names in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Original returns the snapshot content the recorder was opened with.
func (r *Recorder) Original() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.original
}

// Proposed returns the last pushed content.
func (r *Recorder) Proposed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.proposed
}

// Recorders hands out one Recorder per transaction and keeps them by path.
type Recorders struct {
	mu     sync.Mutex
	byPath map[string][]*Recorder

	// Configure, when set, adjusts each new recorder.
	Configure func(path string, r *Recorder)
}

// NewRecorders creates an empty set.
func NewRecorders() *Recorders {
	return &Recorders{byPath: make(map[string][]*Recorder)}
}

// Factory returns a surface factory producing recorders.
func (rs *Recorders) Factory() edit.SurfaceFactory {
	return func(path string) edit.Surface {
		r := NewRecorder()
		if rs.Configure != nil {
			rs.Configure(path, r)
		}
		rs.mu.Lock()
		rs.byPath[path] = append(rs.byPath[path], r)
		rs.mu.Unlock()
		return r
	}
}

// Last returns the most recent recorder created for path.
func (rs *Recorders) Last(path string) *Recorder {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	list := rs.byPath[path]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}
