// Package tools implements the functions exposed to the completion model.
// A registry is built per chat request; tools carry the requesting user's
// delegated credential and are never shared across requests.
package tools

import (
	"context"
	"fmt"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// Tool is a string-in, string-out function the model can call.
type Tool interface {
	Definition() domain.ToolDefinition
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry holds the tool set for one request, preserving registration order
// in the definitions handed to the model.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

func (r *Registry) Register(t Tool) {
	name := t.Definition().Function.Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

func (r *Registry) Definitions() []domain.ToolDefinition {
	defs := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs a named tool. An unknown name is an error the agent surfaces
// to the model as a tool failure string.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown tool %q", domain.ErrInvalidInput, name)
	}
	return tool.Execute(ctx, args)
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func functionDef(name, description string, properties map[string]interface{}, required []string) domain.ToolDefinition {
	params := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		params["required"] = required
	}
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}
