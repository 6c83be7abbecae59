package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/internal/infrastructure/monitor"
	"github.com/brainbow/syncd/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Liveness and connectivity report
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Health(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	// the daemon is healthy even while the remote is unreachable, that
	// is exactly the offline mode it exists for
	h.respondSuccess(ctx, http.StatusOK, status)
}
