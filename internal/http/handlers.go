package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"revit-qc/internal/aggregator"
	"revit-qc/internal/domain"
	"revit-qc/internal/repository"
	"revit-qc/internal/service"
)

// Handlers dashboard API handlers
type Handlers struct {
	inspect *service.InspectionService
	clash   *service.ClashService
	logger  *zap.Logger
}

func NewHandlers(inspect *service.InspectionService, clash *service.ClashService, logger *zap.Logger) *Handlers {
	return &Handlers{inspect: inspect, clash: clash, logger: logger}
}

// fail logs a storage failure and answers 500 with a generic message
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, message string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Error(err),
	)
	h.logger.Error(message, fields...)
	writeError(w, http.StatusInternalServerError, message)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) ListDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := h.inspect.ListDirectories(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load directories", err)
		return
	}
	writeJSON(w, http.StatusOK, dirs)
}

func (h *Handlers) OverallStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.inspect.OverallStats(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) ListDirectoryModels(w http.ResponseWriter, r *http.Request) {
	dirID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	models, err := h.inspect.ListDirectoryModels(r.Context(), dirID)
	if err != nil {
		h.fail(w, r, "Failed to load models", err, zap.Int64("directory_id", dirID))
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (h *Handlers) ReferenceAxes(w http.ResponseWriter, r *http.Request) {
	dirID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	axes, err := h.inspect.ReferenceAxes(r.Context(), dirID)
	if err != nil {
		h.fail(w, r, "Failed to load reference axes", err, zap.Int64("directory_id", dirID))
		return
	}
	writeJSON(w, http.StatusOK, axes)
}

func (h *Handlers) ReferenceLevels(w http.ResponseWriter, r *http.Request) {
	dirID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	levels, err := h.inspect.ReferenceLevels(r.Context(), dirID)
	if err != nil {
		h.fail(w, r, "Failed to load reference levels", err, zap.Int64("directory_id", dirID))
		return
	}
	writeJSON(w, http.StatusOK, levels)
}

// idAndKind parses {id} and ?kind=
func idAndKind(r *http.Request) (int64, domain.CheckKind, error) {
	modelID, err := pathID(r, "id")
	if err != nil {
		return 0, "", err
	}
	kind, err := domain.ParseCheckKind(r.URL.Query().Get("kind"))
	if err != nil {
		return 0, "", err
	}
	return modelID, kind, nil
}

func (h *Handlers) GetCheckReport(w http.ResponseWriter, r *http.Request) {
	modelID, kind, err := idAndKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.inspect.GetCheckReport(r.Context(), modelID, kind)
	if err != nil {
		h.fail(w, r, "Failed to load check report", err, zap.Int64("model_id", modelID), zap.String("kind", string(kind)))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) ExportCheckReport(w http.ResponseWriter, r *http.Request) {
	modelID, kind, err := idAndKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.inspect.GetCheckReport(r.Context(), modelID, kind)
	if err != nil {
		h.fail(w, r, "Failed to load check report", err, zap.Int64("model_id", modelID), zap.String("kind", string(kind)))
		return
	}
	if !report.HasData {
		writeError(w, http.StatusNotFound, "No check data for this model")
		return
	}

	data, err := GenerateCheckReportExport(report)
	if err != nil {
		h.fail(w, r, "Failed to generate report export", err, zap.Int64("model_id", modelID), zap.String("kind", string(kind)))
		return
	}
	filename := fmt.Sprintf("%s-%s-check-%d.xlsx", sanitizeFilename(report.ModelName), kind, report.CheckID)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "model"
	}
	return string(out)
}

func (h *Handlers) ListCheckHistory(w http.ResponseWriter, r *http.Request) {
	modelID, kind, err := idAndKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var q service.HistoryQuery
	if q.From, err = queryTime(r, "from", false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.To, err = queryTime(r, "to", true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.inspect.ListCheckHistory(r.Context(), modelID, kind, q)
	if err != nil {
		h.fail(w, r, "Failed to load check history", err, zap.Int64("model_id", modelID), zap.String("kind", string(kind)))
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handlers) ListClashFiles(w http.ResponseWriter, r *http.Request) {
	dirID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	files, err := h.clash.ListClashFiles(r.Context(), dirID)
	if err != nil {
		h.fail(w, r, "Failed to load clash files", err, zap.Int64("directory_id", dirID))
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *Handlers) RankClashTests(w http.ResponseWriter, r *http.Request) {
	dirID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := aggregator.ParseClashSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := aggregator.ParseSortOrder(r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tests, err := h.clash.RankClashTests(r.Context(), dirID, key, order)
	if err != nil {
		h.fail(w, r, "Failed to load clash tests", err, zap.Int64("directory_id", dirID))
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *Handlers) ClashHistory(w http.ResponseWriter, r *http.Request) {
	dirID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var q service.ClashHistoryQuery
	if q.Days, err = queryInt(r, "days", 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.TestIDs, err = queryIDs(r, "tests"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := h.clash.ClashHistory(r.Context(), dirID, q)
	if err != nil {
		h.fail(w, r, "Failed to load clash history", err, zap.Int64("directory_id", dirID))
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handlers) ListClashResults(w http.ResponseWriter, r *http.Request) {
	testID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.clash.ListClashResults(r.Context(), testID, r.URL.Query().Get("status"), page, size)
	if err != nil {
		h.fail(w, r, "Failed to load clash results", err, zap.Int64("clash_test_id", testID))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func actor(r *http.Request) service.Actor {
	return service.Actor{Name: actorFrom(r.Context()), RequestID: RequestIDFrom(r.Context())}
}

// deleted answers a delete outcome
func (h *Handlers) deleted(w http.ResponseWriter, r *http.Request, err error, what string, fields ...zap.Field) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	default:
		h.fail(w, r, "Failed to delete "+what, err, fields...)
	}
}

func (h *Handlers) DeleteCheckRun(w http.ResponseWriter, r *http.Request) {
	runID, kind, err := idAndKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = h.inspect.DeleteCheckRun(r.Context(), kind, runID, actor(r))
	h.deleted(w, r, err, "Check result", zap.Int64("check_id", runID), zap.String("kind", string(kind)))
}

func (h *Handlers) DeleteModel(w http.ResponseWriter, r *http.Request) {
	modelID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = h.inspect.DeleteModel(r.Context(), modelID, actor(r))
	h.deleted(w, r, err, "Model", zap.Int64("model_id", modelID))
}

func (h *Handlers) DeleteClashFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = h.clash.DeleteClashFile(r.Context(), fileID, actor(r))
	h.deleted(w, r, err, "Clash file", zap.Int64("clash_file_id", fileID))
}
