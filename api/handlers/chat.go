package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/knowledge-agent/api/middleware"
	"github.com/connexus-ai/knowledge-agent/pkg/chat"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// Chat serves POST /api/chat.
type Chat struct {
	agent *chat.Agent
}

func NewChat(agent *chat.Agent) *Chat {
	return &Chat{agent: agent}
}

func (h *Chat) Handle(c *gin.Context) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		respondError(c, fmt.Errorf("%w: no authenticated user", domain.ErrAccessDenied))
		return
	}

	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	resp, err := h.agent.Respond(c.Request.Context(), req, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
