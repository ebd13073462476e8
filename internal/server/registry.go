package server

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool is a named operation that knows how to add itself to an MCP server.
type Tool interface {
	Name() string
	Register(server *mcp.Server) error
}

// Registry holds the tools exposed by the server, in registration order.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Tool),
	}
}

func (r *Registry) Add(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("tool %q is already registered", name)
	}
	r.tools = append(r.tools, tool)
	r.byName[name] = tool
	return nil
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.byName[name]
	return tool, ok
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, tool := range r.tools {
		names[i] = tool.Name()
	}
	return names
}

// RegisterAll adds every tool to server.
func (r *Registry) RegisterAll(server *mcp.Server) error {
	for _, tool := range r.tools {
		if err := tool.Register(server); err != nil {
			return fmt.Errorf("failed to register tool %q: %w", tool.Name(), err)
		}
	}
	return nil
}
