package mcp

import (
	"strings"

	"github.com/Laisky/errors/v2"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/search-mcp/internal/mcp/tools"
)

type registeredTool struct {
	definition mcp.Tool
	handler    tools.Tool
}

// Registry maps tool names to handlers. It is built once and never mutated.
type Registry struct {
	order  []string
	byName map[string]registeredTool
}

// NewRegistry registers toolset in order. Nil tools, blank names and
// duplicate names are rejected.
func NewRegistry(toolset ...tools.Tool) (*Registry, error) {
	r := &Registry{
		order:  make([]string, 0, len(toolset)),
		byName: make(map[string]registeredTool, len(toolset)),
	}

	for i, tool := range toolset {
		if tool == nil {
			return nil, errors.Errorf("tool #%d is nil", i)
		}

		def := tool.Definition()
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, errors.Errorf("tool #%d has no name", i)
		}
		if _, ok := r.byName[name]; ok {
			return nil, errors.Errorf("duplicate tool %q", name)
		}

		r.order = append(r.order, name)
		r.byName[name] = registeredTool{definition: def, handler: tool}
	}

	return r, nil
}

// List returns the tool descriptors in registration order.
func (r *Registry) List() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].definition)
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Resolve looks up a tool by name.
func (r *Registry) Resolve(name string) (tools.Tool, bool) {
	entry, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return entry.handler, true
}

// requiredArguments returns the required argument names of a tool.
func (r *Registry) requiredArguments(name string) []string {
	return r.byName[name].definition.InputSchema.Required
}
