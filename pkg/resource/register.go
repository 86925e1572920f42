package resource

import (
	"errors"
	"net/http"
	"time"

	"github.com/restview/restview/pkg/apperror"
	"github.com/restview/restview/pkg/httputil"
	"github.com/restview/restview/pkg/metrics"
	"go.uber.org/zap"
)

// Register wires the selected operations plus all custom actions onto mux
// under basePath. An empty subset selects all six operations. Keyed routes
// use the resolved key column name as the path parameter. A per-operation
// override handler, when configured, replaces the built-in one on the same
// route.
func (b *Binding) Register(mux *http.ServeMux, basePath string, subset ...Operation) {
	selected := subset
	if len(selected) == 0 {
		selected = AllOperations
	}

	for _, op := range selected {
		pattern, handler := b.route(op, basePath)
		if pattern == "" {
			continue
		}
		if override, ok := b.overrides[op]; ok {
			handler = override
		}
		mux.HandleFunc(pattern, b.instrument(op, handler))
	}

	for _, action := range b.actions {
		method := action.Method
		if method == "" {
			method = http.MethodGet
		}
		pattern := method + " " + basePath + "/" + action.Path
		if action.Detail {
			pattern += "/{" + b.keys.Retrieve + "}"
		}
		mux.HandleFunc(pattern, b.instrument(Operation(action.Name), action.Handler))
	}
}

func (b *Binding) route(op Operation, basePath string) (string, http.HandlerFunc) {
	switch op {
	case OpList:
		return http.MethodGet + " " + basePath, b.handleList
	case OpCreate:
		return http.MethodPost + " " + basePath, b.handleCreate
	case OpRetrieve:
		return http.MethodGet + " " + basePath + "/{" + b.keys.Retrieve + "}", b.handleRetrieve
	case OpUpdate:
		return http.MethodPatch + " " + basePath + "/{" + b.keys.Update + "}", b.handleUpdate
	case OpDestroy:
		return http.MethodDelete + " " + basePath + "/{" + b.keys.Delete + "}", b.handleDestroy
	case OpSearch:
		return http.MethodGet + " " + basePath + "/search", b.handleSearch
	default:
		return "", nil
	}
}

// instrument wraps a handler with request metrics and error-path logging.
func (b *Binding) instrument(op Operation, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.ObserveOperation(b.table.Name, string(op), rec.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (b *Binding) handleList(w http.ResponseWriter, r *http.Request) {
	result, err := b.List(r.Context(), r.URL.Query())
	if err != nil {
		b.writeError(w, err)
		return
	}

	if result.Page != nil {
		httputil.JSON(w, http.StatusOK, map[string]any{
			"items":     result.Items,
			"page":      result.Page.Page,
			"pageSize":  result.Page.PageSize,
			"pageCount": result.Page.PageCount,
			"total":     result.Page.Total,
		})
		return
	}
	httputil.JSON(w, http.StatusOK, result.Items)
}

func (b *Binding) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body Row
	if err := httputil.BindOrError(r, w, &body); err != nil {
		return
	}

	row, err := b.Create(r.Context(), body)
	if err != nil {
		b.writeError(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, row)
}

func (b *Binding) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	row, err := b.Retrieve(r.Context(), r.PathValue(b.keys.Retrieve))
	if err != nil {
		b.writeError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, row)
}

func (b *Binding) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body Row
	if err := httputil.BindOrError(r, w, &body); err != nil {
		return
	}

	row, err := b.Update(r.Context(), r.PathValue(b.keys.Update), body)
	if err != nil {
		b.writeError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, row)
}

func (b *Binding) handleDestroy(w http.ResponseWriter, r *http.Request) {
	keyValue, err := b.Destroy(r.Context(), r.PathValue(b.keys.Delete))
	if err != nil {
		b.writeError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, Row{b.keys.Delete: keyValue})
}

func (b *Binding) handleSearch(w http.ResponseWriter, r *http.Request) {
	rows, err := b.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		b.writeError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

func (b *Binding) writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		if appErr.Kind == apperror.KindBackend {
			b.logger.Error("data access failed", zap.String("table", b.table.Name), zap.Error(err))
		}
		httputil.JSON(w, appErr.HTTPStatus(), map[string]any{"error": appErr})
		return
	}

	b.logger.Error("unhandled error", zap.String("table", b.table.Name), zap.Error(err))
	httputil.JSON(w, http.StatusInternalServerError, map[string]any{
		"error": map[string]string{"message": "internal error"},
	})
}
