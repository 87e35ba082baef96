// Session builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/llm"
	"github.com/richinex/redline/storage"
	"github.com/richinex/redline/tools"
)

// Defaults applied by Build.
const (
	DefaultMaxIterations = 25
	DefaultHistoryTokens = 100000
)

// Builder provides fluent configuration for creating sessions.
// Usage: agent.NewBuilder(provider, files).Reviewer(r).Build()
type Builder struct {
	provider      llm.Provider
	files         *edit.Manager
	registry      *tools.Registry
	deps          tools.Deps
	executor      *tools.Executor
	reviewer      Reviewer
	store         storage.ConversationStorage
	renderer      Renderer
	logger        *slog.Logger
	sessionID     string
	systemPrompt  string
	instructions  string
	maxIterations int
	historyTokens int
}

// NewBuilder creates a builder for a session talking to provider and
// editing files through files.
func NewBuilder(provider llm.Provider, files *edit.Manager) *Builder {
	return &Builder{
		provider:      provider,
		files:         files,
		maxIterations: DefaultMaxIterations,
		historyTokens: DefaultHistoryTokens,
	}
}

// Registry sets the command handlers. Without it Build registers the
// defaults from ToolDeps.
func (b *Builder) Registry(r *tools.Registry) *Builder {
	b.registry = r
	return b
}

// ToolDeps configures the default handlers. Files, Asker, and Approver
// are filled in by Build.
func (b *Builder) ToolDeps(deps tools.Deps) *Builder {
	b.deps = deps
	return b
}

// Executor overrides timeouts and retries for handlers.
func (b *Builder) Executor(e *tools.Executor) *Builder {
	b.executor = e
	return b
}

// Reviewer sets who judges edits, questions, and commands.
func (b *Builder) Reviewer(r Reviewer) *Builder {
	b.reviewer = r
	return b
}

// Store enables history persistence.
func (b *Builder) Store(s storage.ConversationStorage) *Builder {
	b.store = s
	return b
}

// Renderer sets the live display.
func (b *Builder) Renderer(r Renderer) *Builder {
	b.renderer = r
	return b
}

// Logger sets the logger.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// SessionID resumes or names a session. A random ID is used otherwise.
func (b *Builder) SessionID(id string) *Builder {
	b.sessionID = id
	return b
}

// SystemPrompt replaces the generated system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// Instructions appends user instructions to the system prompt.
func (b *Builder) Instructions(text string) *Builder {
	b.instructions = text
	return b
}

// MaxIterations limits model calls per Run.
func (b *Builder) MaxIterations(n int) *Builder {
	if n > 0 {
		b.maxIterations = n
	}
	return b
}

// HistoryTokens sets the history budget. Zero disables trimming.
func (b *Builder) HistoryTokens(n int) *Builder {
	if n >= 0 {
		b.historyTokens = n
	}
	return b
}

// Build creates the session.
func (b *Builder) Build() (*Session, error) {
	if b.provider == nil {
		return nil, errors.New("agent: provider is required")
	}
	if b.files == nil {
		return nil, errors.New("agent: edit manager is required")
	}

	reviewer := b.reviewer
	if reviewer == nil {
		reviewer = AutoReviewer{}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	registry := b.registry
	if registry == nil {
		deps := b.deps
		deps.Files = b.files
		deps.Asker = reviewer
		deps.Approver = reviewer
		r, err := tools.WithDefaults(deps)
		if err != nil {
			return nil, err
		}
		registry = r
	}

	dispatcher, err := NewDispatcher(registry, b.files, reviewer)
	if err != nil {
		return nil, err
	}
	dispatcher.WithExecutor(b.executor).WithLogger(logger)

	id := b.sessionID
	if id == "" {
		id = uuid.New().String()
	}

	prompt := b.systemPrompt
	if prompt == "" {
		prompt = SystemPrompt(b.files.Root(), registry)
	}

	return &Session{
		id:            id,
		provider:      b.provider,
		dispatcher:    dispatcher,
		files:         b.files,
		store:         b.store,
		renderer:      b.renderer,
		logger:        logger.With("component", "session"),
		systemPrompt:  WithInstructions(prompt, b.instructions),
		maxIterations: b.maxIterations,
		historyTokens: b.historyTokens,
	}, nil
}
