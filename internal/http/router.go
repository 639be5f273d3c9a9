package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router stdlib http.ServeMux with method-qualified patterns
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler (promhttp)
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRoutes registers the dashboard API. Deletes go through admin.
func (r *Router) RegisterRoutes(h *Handlers, admin *AdminAuth) {
	r.Handle("GET /api/health", h.Health)

	r.Handle("GET /api/directories", h.ListDirectories)
	r.Handle("GET /api/directories/{id}/models", h.ListDirectoryModels)
	r.Handle("GET /api/directories/{id}/reference-axes", h.ReferenceAxes)
	r.Handle("GET /api/directories/{id}/reference-levels", h.ReferenceLevels)
	r.Handle("GET /api/directories/{id}/clash-files", h.ListClashFiles)
	r.Handle("GET /api/directories/{id}/clash-tests", h.RankClashTests)
	r.Handle("GET /api/directories/{id}/clash-history", h.ClashHistory)
	r.Handle("GET /api/clash-tests/{id}/results", h.ListClashResults)

	r.Handle("GET /api/models/{id}/check-report", h.GetCheckReport)
	r.Handle("GET /api/models/{id}/check-report/export", h.ExportCheckReport)
	r.Handle("GET /api/models/{id}/check-history", h.ListCheckHistory)

	r.Handle("GET /api/stats/overall", h.OverallStats)

	r.Handle("DELETE /api/check-results/{id}", admin.Require(h.DeleteCheckRun))
	r.Handle("DELETE /api/models/{id}", admin.Require(h.DeleteModel))
	r.Handle("DELETE /api/clash-files/{id}", admin.Require(h.DeleteClashFile))
}
