package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/api/transport"
	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/internal/services"
	"github.com/brainbow/syncd/pkg/httpcontext"
	syncUC "github.com/brainbow/syncd/usecase/sync"
	"github.com/brainbow/syncd/usecase/view"
)

type TaskHandler struct {
	baseHandler
	registry *services.Registry
}

func NewTaskHandler(registry *services.Registry, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		registry:    registry,
	}
}

// @Summary List tasks (query params apply an ad-hoc view filter)
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	engine := h.registry.Get(userID)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var snapshot []domain.Task
	if !engine.Hydrated() || ctx.QueryArgs().GetBool("refresh") {
		loaded, err := engine.LoadTasks(stdCtx)
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		snapshot = loaded
	} else {
		snapshot = engine.Snapshot()
	}

	filter := queryFilter(ctx)
	meta := map[string]interface{}{
		"counts": view.Counts(snapshot),
		"sync":   engine.Status(),
	}

	if filter.GroupBy != "" {
		h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(view.Grouped(snapshot, filter), meta))
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(view.Apply(snapshot, filter), meta))
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.TaskCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	draft := domain.Task{
		Title:       req.Title,
		Description: req.Description,
		Project:     req.Project,
		Priority:    req.Priority,
		Assignee:    req.Assignee,
		Tags:        req.Tags,
	}
	if req.Deadline != "" {
		parsed, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "deadline must be RFC3339", nil))
			return
		}
		draft.Deadline = &parsed
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.registry.Get(userID).CreateTask(stdCtx, draft)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update task
// @Tags tasks
// @Router /api/v1/tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	var req transport.TaskUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	update := domain.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Project:     req.Project,
		Priority:    req.Priority,
		Assignee:    req.Assignee,
		Tags:        req.Tags,
		Completed:   req.Completed,
	}
	if req.Deadline != nil {
		parsed, err := time.Parse(time.RFC3339, *req.Deadline)
		if err != nil {
			h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "deadline must be RFC3339", nil))
			return
		}
		update.Deadline = &parsed
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.registry.Get(userID).UpdateTask(stdCtx, id, update)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Toggle task completion
// @Tags tasks
// @Router /api/v1/tasks/{id}/toggle [post]
func (h *TaskHandler) ToggleComplete(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	toggled, err := h.registry.Get(userID).ToggleComplete(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, toggled)
}

// @Summary Delete task (requires confirm=true)
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	if ctx.QueryArgs().GetBool("confirm") {
		stdCtx = syncUC.WithConfirmation(stdCtx)
	}

	deleted, err := h.registry.Get(userID).DeleteTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if !deleted {
		h.respondJSON(ctx, http.StatusPreconditionRequired, transport.NewError(string(domain.ErrCodeInvalid), "deletion requires confirm=true", nil))
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

func queryFilter(ctx *fasthttp.RequestCtx) domain.Filter {
	args := ctx.QueryArgs()
	return domain.Filter{
		Project:   string(args.Peek("project")),
		Assignee:  string(args.Peek("assignee")),
		Status:    string(args.Peek("status")),
		Priority:  string(args.Peek("priority")),
		Search:    string(args.Peek("search")),
		GroupBy:   string(args.Peek("group_by")),
		SortBy:    string(args.Peek("sort_by")),
		SortOrder: string(args.Peek("sort_order")),
	}
}
