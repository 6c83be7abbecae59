package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/api/transport"
	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/pkg/httpcontext"
	"github.com/brainbow/syncd/usecase/view"
)

type FilterHandler struct {
	baseHandler
	uc *view.FilterService
}

func NewFilterHandler(uc *view.FilterService, adapter *httpcontext.Adapter, logger *zap.Logger) *FilterHandler {
	return &FilterHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List saved filters
// @Tags filters
// @Router /api/v1/filters [get]
func (h *FilterHandler) ListFilters(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	filters, err := h.uc.List(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	names := map[string]string{}
	for _, filter := range filters {
		if filter.Assignee != "" {
			names[filter.Assignee] = h.uc.AssigneeName(stdCtx, filter.Assignee)
		}
	}
	var meta interface{}
	if len(names) > 0 {
		meta = map[string]interface{}{"assignees": names}
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(filters, meta))
}

// @Summary Save a filter
// @Tags filters
// @Router /api/v1/filters [put]
func (h *FilterHandler) SaveFilter(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.FilterRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	filter := domain.Filter{
		ID:        req.ID,
		UserID:    userID,
		Name:      req.Name,
		Project:   req.Project,
		Assignee:  req.Assignee,
		Status:    req.Status,
		Priority:  req.Priority,
		Tags:      req.Tags,
		Search:    req.Search,
		GroupBy:   req.GroupBy,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	var err error
	if filter.From, err = parseOptionalTime(req.From); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "from must be RFC3339", nil))
		return
	}
	if filter.To, err = parseOptionalTime(req.To); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "to must be RFC3339", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Save(stdCtx, &filter); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, filter)
}

// @Summary Delete a filter
// @Tags filters
// @Router /api/v1/filters/{id} [delete]
func (h *FilterHandler) DeleteFilter(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, id, userID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
