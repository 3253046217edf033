package rpc

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolHandler runs a tool with the host-supplied arguments. A string result
// is sent to the host verbatim; anything else is JSON encoded.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// ResourceHandler produces the text of a resource.
type ResourceHandler func(ctx context.Context) (string, error)

type toolEntry struct {
	tool    mcp.Tool
	handler ToolHandler
}

type resourceEntry struct {
	resource mcp.Resource
	handler  ResourceHandler
}

// Registry collects tools and resources in registration order. It is only
// written during startup; NewDispatcher takes a snapshot of it.
type Registry struct {
	tools     []toolEntry
	resources []resourceEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddTool registers a tool. Tool names must be unique.
func (r *Registry) AddTool(tool mcp.Tool, handler ToolHandler) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}
	for _, existing := range r.tools {
		if existing.tool.Name == tool.Name {
			return fmt.Errorf("tool %s already registered", tool.Name)
		}
	}
	r.tools = append(r.tools, toolEntry{tool: tool, handler: handler})
	return nil
}

// AddResource registers a resource. Resource names must be unique; URIs are
// not checked, and reads resolve to the first resource with a matching URI.
func (r *Registry) AddResource(resource mcp.Resource, handler ResourceHandler) error {
	if resource.Name == "" {
		return fmt.Errorf("resource name must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("resource %s has no handler", resource.Name)
	}
	for _, existing := range r.resources {
		if existing.resource.Name == resource.Name {
			return fmt.Errorf("resource %s already registered", resource.Name)
		}
	}
	r.resources = append(r.resources, resourceEntry{resource: resource, handler: handler})
	return nil
}

// Tools returns the registered tool definitions in registration order.
func (r *Registry) Tools() []mcp.Tool {
	tools := make([]mcp.Tool, len(r.tools))
	for i, entry := range r.tools {
		tools[i] = entry.tool
	}
	return tools
}

// Resources returns the registered resource definitions in registration order.
func (r *Registry) Resources() []mcp.Resource {
	resources := make([]mcp.Resource, len(r.resources))
	for i, entry := range r.resources {
		resources[i] = entry.resource
	}
	return resources
}

func (r *Registry) snapshot() *Registry {
	return &Registry{
		tools:     append([]toolEntry(nil), r.tools...),
		resources: append([]resourceEntry(nil), r.resources...),
	}
}

func (r *Registry) findTool(name string) (toolEntry, bool) {
	for _, entry := range r.tools {
		if entry.tool.Name == name {
			return entry, true
		}
	}
	return toolEntry{}, false
}

// findResource scans in registration order; the first URI match wins.
func (r *Registry) findResource(uri string) (resourceEntry, bool) {
	for _, entry := range r.resources {
		if entry.resource.URI == uri {
			return entry, true
		}
	}
	return resourceEntry{}, false
}
