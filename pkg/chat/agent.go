package chat

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/connexus-ai/knowledge-agent/pkg/chat/tools"
	"github.com/connexus-ai/knowledge-agent/pkg/config"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
	"github.com/connexus-ai/knowledge-agent/pkg/log"
)

// maxRounds bounds the tool-calling loop. A model still asking for tools
// after this many turns gets cut off with whatever content it produced.
const maxRounds = 8

// Agent handles chat requests. It is safe for concurrent use; all per-request
// state (tool registry, permission cache) is built inside Respond.
type Agent struct {
	generator domain.Generator
	provider  domain.Provider
	embedder  domain.Embedder
	store     domain.VectorStore
	extractor domain.Extractor
	cfg       config.ChatConfig
	logger    interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Debug(msg string, args ...any)
	}
}

func NewAgent(generator domain.Generator, provider domain.Provider, embedder domain.Embedder, store domain.VectorStore, extractor domain.Extractor, cfg config.ChatConfig) *Agent {
	return &Agent{
		generator: generator,
		provider:  provider,
		embedder:  embedder,
		store:     store,
		extractor: extractor,
		cfg:       cfg,
		logger:    log.WithModule("chat"),
	}
}

// effectiveMode picks the request mode, falling back to the configured
// default and finally to keyword search.
func (a *Agent) effectiveMode(requested domain.SearchMode) domain.SearchMode {
	switch requested {
	case domain.SearchModeRAG, domain.SearchModeKQL:
		return requested
	}
	switch a.cfg.DefaultSearchMode {
	case domain.SearchModeRAG, domain.SearchModeKQL:
		return a.cfg.DefaultSearchMode
	}
	return domain.SearchModeKQL
}

// buildRegistry assembles the per-request tool set for the given mode.
func (a *Agent) buildRegistry(user domain.UserIdentity, siteURL string, mode domain.SearchMode) *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(tools.NewCurrentSite(a.provider, siteURL))
	registry.Register(tools.NewCurrentUser(a.provider, user))
	registry.Register(tools.NewReadFile(a.provider, a.extractor, user))

	if mode == domain.SearchModeRAG {
		registry.Register(tools.NewKnowledgeSearch(a.embedder, a.store, a.provider, user, siteURL, a.cfg.TopK, a.cfg.UseHybridSearch))
	} else {
		registry.Register(tools.NewSharepointSearch(a.provider, user, siteURL))
	}
	return registry
}

// Respond runs the tool-calling loop until the model produces a final
// assistant message. Tool failures are fed back to the model as error
// strings; only a generator failure aborts the request.
func (a *Agent) Respond(ctx context.Context, req domain.ChatRequest, user domain.UserIdentity) (*domain.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", domain.ErrInvalidInput)
	}
	if req.Context.SiteURL == "" {
		return nil, fmt.Errorf("%w: context.siteUrl is required", domain.ErrInvalidInput)
	}

	mode := a.effectiveMode(req.Context.SearchMode)
	registry := a.buildRegistry(user, req.Context.SiteURL, mode)
	defs := registry.Definitions()

	conversation := make([]domain.ChatMessage, 0, len(req.Messages)+2)
	conversation = append(conversation, domain.ChatMessage{
		Role:    "system",
		Content: systemPrompt(user, mode, time.Now()),
	})
	conversation = append(conversation, req.Messages...)

	a.logger.Info("chat turn started", "user", user.Email, "site", req.Context.SiteURL, "mode", mode)

	var final string
	for round := 0; round < maxRounds; round++ {
		genCtx, cancel := context.WithTimeout(ctx, a.cfg.CompletionTimeout)
		result, err := a.generator.GenerateWithTools(genCtx, conversation, defs, nil)
		cancel()
		if err != nil {
			return nil, err
		}

		if len(result.ToolCalls) == 0 {
			final = result.Content
			break
		}

		conversation = append(conversation, domain.ChatMessage{
			Role:      "assistant",
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})
		conversation = append(conversation, a.runToolCalls(ctx, registry, result.ToolCalls)...)
		final = result.Content
	}

	response := &domain.ChatResponse{
		Response:   final,
		Messages:   append(req.Messages, domain.ChatMessage{Role: "assistant", Content: final}),
		SearchMode: mode,
	}
	return response, nil
}

// runToolCalls executes one assistant turn's tool calls concurrently and
// returns the tool messages in call order. A failing tool becomes an error
// string for the model rather than a request failure.
func (a *Agent) runToolCalls(ctx context.Context, registry *tools.Registry, calls []domain.ToolCall) []domain.ChatMessage {
	results := make([]string, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			toolCtx, cancel := context.WithTimeout(gctx, a.cfg.ToolTimeout)
			defer cancel()

			output, err := registry.Execute(toolCtx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				a.logger.Warn("tool call failed", "tool", call.Function.Name, "error", err)
				output = fmt.Sprintf("Error: %v", err)
			}
			results[i] = output
			return nil
		})
	}
	g.Wait()

	messages := make([]domain.ChatMessage, len(calls))
	for i, call := range calls {
		messages[i] = domain.ChatMessage{
			Role:       "tool",
			Content:    results[i],
			ToolCallID: call.ID,
		}
	}
	return messages
}
