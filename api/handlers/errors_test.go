package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad body", domain.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: nope", domain.ErrAccessDenied), http.StatusForbidden},
		{fmt.Errorf("%w: gone", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrIndexerBusy, http.StatusConflict},
		{fmt.Errorf("%w: boom", domain.ErrVectorStoreFailed), http.StatusInternalServerError},
		{fmt.Errorf("plain failure"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)

		respondError(c, tt.err)

		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
		assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"statusCode":%d`, tt.want))
		assert.Contains(t, rec.Body.String(), `"message"`)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}
