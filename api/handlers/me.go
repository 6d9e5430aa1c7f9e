package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/knowledge-agent/api/middleware"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// Me serves GET /api/me with the delegated user's directory profile.
type Me struct {
	provider domain.Provider
}

func NewMe(provider domain.Provider) *Me {
	return &Me{provider: provider}
}

func (h *Me) Handle(c *gin.Context) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		respondError(c, fmt.Errorf("%w: no authenticated user", domain.ErrAccessDenied))
		return
	}

	profile, err := h.provider.GetUserProfile(c.Request.Context(), user.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
