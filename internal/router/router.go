package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/brainbow/syncd/api/handler"
)

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	Task   *apiHandler.TaskHandler
	Filter *apiHandler.FilterHandler
	Sync   *apiHandler.SyncHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Health)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)
	r.POST("/api/v1/auth/logout", authMiddleware(handlers.Auth.Logout))

	// Protected routes
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.PATCH("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.POST("/api/v1/tasks/{id}/toggle", authMiddleware(handlers.Task.ToggleComplete))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	r.GET("/api/v1/filters", authMiddleware(handlers.Filter.ListFilters))
	r.PUT("/api/v1/filters", authMiddleware(handlers.Filter.SaveFilter))
	r.DELETE("/api/v1/filters/{id}", authMiddleware(handlers.Filter.DeleteFilter))

	r.POST("/api/v1/sync", authMiddleware(handlers.Sync.TriggerSync))
	r.GET("/api/v1/sync/status", authMiddleware(handlers.Sync.SyncStatus))

	return r
}
