// Package tools provides tool management and registration.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Prompt rendering of the command vocabulary hidden
// - Default handler wiring abstracted

package tools

import (
	"fmt"
	"strings"
	"sync"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
)

// Registry manages available tools with dynamic registration.
type Registry struct {
	mu    sync.RWMutex
	tools map[model.CommandName]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[model.CommandName]Tool),
	}
}

// Register adds a new tool to the registry.
// Returns error if the command is unknown or already registered.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if !name.Known() {
		return fmt.Errorf("tool '%s' is not part of the command vocabulary", name)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name model.CommandName) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name model.CommandName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Names returns registered command names in vocabulary order.
func (r *Registry) Names() []model.CommandName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]model.CommandName, 0, len(r.tools))
	for _, name := range model.CommandNames {
		if _, ok := r.tools[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// List returns metadata for all registered tools in vocabulary order.
func (r *Registry) List() []ToolMetadata {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(names))
	for _, name := range names {
		metadata = append(metadata, r.tools[name].Metadata())
	}
	return metadata
}

// hidden is implemented by tools left out of prompts.
type hidden interface {
	Hidden() bool
}

// Description renders the usable commands in tag form for LLM prompts.
func (r *Registry) Description() string {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var descriptions []string
	for _, name := range names {
		tool := r.tools[name]
		if h, ok := tool.(hidden); ok && h.Hidden() {
			continue
		}
		meta := tool.Metadata()
		var params []string
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			params = append(params, fmt.Sprintf("- %s: (%s) %s", p.Name, required, p.Description))
		}
		descriptions = append(descriptions, fmt.Sprintf(
			"## %s\nDescription: %s\nParameters:\n%s\nUsage:\n%s",
			meta.Name, meta.Description, strings.Join(params, "\n"), meta.Usage()))
	}

	return strings.Join(descriptions, "\n\n")
}

// Default timeout for commands that run external processes, in seconds.
const DefaultToolTimeout = 30

// Deps are the collaborators the default handlers need.
type Deps struct {
	Files           *edit.Manager
	Asker           Asker
	Approver        Approver
	CommandTimeout  uint64
	MaxFileSize     int
	AllowedCommands []string
}

// WithDefaults creates a registry with a handler for every command.
// Returns error if any tool registration fails.
func WithDefaults(deps Deps) (*Registry, error) {
	if deps.Files == nil {
		return nil, fmt.Errorf("tools: edit manager is required")
	}
	timeout := deps.CommandTimeout
	if timeout == 0 {
		timeout = DefaultToolTimeout
	}

	registry := NewRegistry()
	tools := []Tool{
		NewCommandTool(deps.Files.Root(), timeout).
			WithAllowedCommands(deps.AllowedCommands).
			WithApprover(deps.Approver),
		NewReadFileTool(deps.Files, deps.MaxFileSize),
		NewWriteFileTool(deps.Files),
		NewSearchFilesTool(deps.Files, timeout),
		NewListFilesTool(deps.Files, 0),
		NewDefinitionsTool(deps.Files),
		NewUnsupportedTool(model.BrowserAction),
		NewAskFollowupTool(deps.Asker),
		NewCompletionTool(),
		NewReadRangeTool(deps.Files),
		NewSearchReplaceTool(deps.Files),
		NewInsertBlockTool(deps.Files),
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register default tools: %w", err)
		}
	}

	return registry, nil
}
