package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/internal/services"
	"github.com/brainbow/syncd/pkg/httpcontext"
)

type SyncHandler struct {
	baseHandler
	registry *services.Registry
}

func NewSyncHandler(registry *services.Registry, adapter *httpcontext.Adapter, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		baseHandler: newBaseHandler(adapter, logger),
		registry:    registry,
	}
}

// @Summary Trigger an explicit pending-queue drain
// @Tags sync
// @Router /api/v1/sync [post]
func (h *SyncHandler) TriggerSync(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	engine := h.registry.Get(userID)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := engine.Drain(stdCtx); err != nil {
		// partial drains are not hard failures, the status carries the rest
		h.logger.Warn("explicit sync incomplete", zap.String("user_id", userID), zap.Error(err))
	}
	h.respondSuccess(ctx, http.StatusOK, engine.Status())
}

// @Summary Report sync status
// @Tags sync
// @Router /api/v1/sync/status [get]
func (h *SyncHandler) SyncStatus(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	h.respondSuccess(ctx, http.StatusOK, h.registry.Get(userID).Status())
}
