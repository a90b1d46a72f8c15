package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mcourse/internal/pkg/errcode"
	"github.com/xxxsen/mcourse/internal/pkg/response"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Get(c *gin.Context) {
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			response.Error(c, http.StatusServiceUnavailable, errcode.ErrInternal, "database unavailable")
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}
