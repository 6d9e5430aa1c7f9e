// Package chat drives the tool-calling conversation between the caller and
// the completion model.
package chat

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/shared"

	"github.com/connexus-ai/knowledge-agent/pkg/config"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// AzureGenerator runs chat completions against an Azure OpenAI deployment.
type AzureGenerator struct {
	client     openai.Client
	deployment string
}

func NewAzureGenerator(cfg config.OpenAIConfig) (*AzureGenerator, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: completion endpoint and api key are required", domain.ErrConfiguration)
	}
	client := openai.NewClient(
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
	)
	return &AzureGenerator{client: client, deployment: cfg.Deployment}, nil
}

// toOpenAIMessages converts conversation messages to the API format.
func toOpenAIMessages(messages []domain.ChatMessage) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "user":
			out[i] = openai.UserMessage(msg.Content)
		case "system":
			out[i] = openai.SystemMessage(msg.Content)
		case "tool":
			out[i] = openai.ToolMessage(msg.Content, msg.ToolCallID)
		case "assistant":
			assistantMsg := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			if len(msg.ToolCalls) > 0 {
				assistantMsg.ToolCalls = make([]openai.ChatCompletionMessageToolCallUnion, len(msg.ToolCalls))
				for j, tc := range msg.ToolCalls {
					args, err := json.Marshal(tc.Function.Arguments)
					if err != nil {
						return nil, fmt.Errorf("marshal tool call arguments: %w", err)
					}
					assistantMsg.ToolCalls[j] = openai.ChatCompletionMessageToolCallUnion{
						ID:   tc.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageFunctionToolCallFunction{
							Name:      tc.Function.Name,
							Arguments: string(args),
						},
					}
				}
			}
			out[i] = assistantMsg.ToParam()
		default:
			return nil, fmt.Errorf("%w: unknown message role %q", domain.ErrInvalidInput, msg.Role)
		}
	}
	return out, nil
}

// GenerateWithTools runs one completion turn. The result carries either final
// content or tool calls to satisfy before the next turn.
func (g *AzureGenerator) GenerateWithTools(ctx context.Context, messages []domain.ChatMessage, tools []domain.ToolDefinition, opts *domain.GenerationOptions) (*domain.GenerationResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: empty messages", domain.ErrInvalidInput)
	}

	openAIMessages, err := toOpenAIMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.deployment),
		Messages: openAIMessages,
	}

	if len(tools) > 0 {
		openaiTools := make([]openai.ChatCompletionToolUnionParam, len(tools))
		for i, tool := range tools {
			openaiTools[i] = openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
				Name:        tool.Function.Name,
				Description: openai.String(tool.Function.Description),
				Parameters:  tool.Function.Parameters,
			})
		}
		params.Tools = openaiTools
	}

	if opts != nil {
		if opts.Temperature >= 0 {
			params.Temperature = openai.Float(opts.Temperature)
		}
		if opts.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
		}
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", domain.ErrGenerationFailed)
	}

	choice := completion.Choices[0]
	result := &domain.GenerationResult{Content: choice.Message.Content}

	if len(choice.Message.ToolCalls) > 0 {
		result.ToolCalls = make([]domain.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("%w: parse tool call arguments: %v", domain.ErrGenerationFailed, err)
			}
			result.ToolCalls[i] = domain.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: domain.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: args,
				},
			}
		}
	}

	return result, nil
}
