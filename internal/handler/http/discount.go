// Package http contains the HTTP handlers and router for the admin API.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/internal/service"
	"github.com/merchantkit/admin-api/pkg/httputil"
)

// Editor identifiers as they appear in the ?editor= query parameter and
// in redirect URLs.
const (
	EditorStandard = "standard"
	EditorBuyXGetY = "buy-x-get-y"
)

// DiscountHandler handles HTTP requests for discount endpoints.
type DiscountHandler struct {
	service *service.DiscountService
	logger  *slog.Logger
}

// NewDiscountHandler creates a new discount HTTP handler.
func NewDiscountHandler(svc *service.DiscountService, logger *slog.Logger) *DiscountHandler {
	return &DiscountHandler{service: svc, logger: logger}
}

// CreateDiscount handles POST /api/v1/discounts
func (h *DiscountHandler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var in service.DiscountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	d, err := h.service.Create(r.Context(), &in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: d})
}

// ListDiscounts handles GET /api/v1/discounts
func (h *DiscountHandler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	filter := repository.DiscountFilter{
		Query:  r.URL.Query().Get("q"),
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}
	if v := r.URL.Query().Get("method"); v != "" {
		filter.Method = &v
	}
	if v := r.URL.Query().Get("type"); v != "" {
		filter.Type = &v
	}

	discounts, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.ListResponse{Data: discounts, TotalCount: total})
}

// GetDiscount handles GET /api/v1/discounts/{id}
func (h *DiscountHandler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

// UpdateDiscount handles PUT /api/v1/discounts/{id}. Updates are always
// whole-record: the body carries the full save payload and the stored
// requirements blob is rebuilt from it.
func (h *DiscountHandler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var in service.DiscountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	d, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

// DeleteDiscount handles DELETE /api/v1/discounts/{id}
func (h *DiscountHandler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// DuplicateDiscount handles POST /api/v1/discounts/{id}/duplicate
func (h *DiscountHandler) DuplicateDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Duplicate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: d})
}

type codeCheckResponse struct {
	Code      string `json:"code"`
	Available bool   `json:"available"`
}

// CheckCode handles GET /api/v1/discounts/code-check?code=&excludeId=
func (h *DiscountHandler) CheckCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	excludeID := r.URL.Query().Get("excludeId")

	available, err := h.service.CheckCode(r.Context(), code, excludeID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: codeCheckResponse{Code: code, Available: available},
	})
}

// GetForm handles GET /api/v1/discounts/{id}/form?editor=standard|buy-x-get-y.
// Opening a discount in the wrong editor answers 303 See Other with a
// Location pointing at the counterpart editor form, so the client
// navigates instead of rendering an error.
func (h *DiscountHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	editor := r.URL.Query().Get("editor")
	if editor == "" {
		editor = EditorStandard
	}

	var (
		form any
		err  error
	)
	switch editor {
	case EditorBuyXGetY:
		form, err = h.service.LoadBuyXGetYForm(r.Context(), id)
	case EditorStandard:
		form, err = h.service.LoadStandardForm(r.Context(), id)
	default:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:    "INVALID_INPUT",
				Message: fmt.Sprintf("unknown editor %q", editor),
			},
		})
		return
	}

	if err != nil {
		var mismatch *service.EditorMismatchError
		if errors.As(err, &mismatch) {
			w.Header().Set("Location", formURL(id, editorForType(mismatch.ActualType)))
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: form})
}

func formURL(id, editor string) string {
	return fmt.Sprintf("/api/v1/discounts/%s/form?editor=%s", id, editor)
}

func editorForType(discountType string) string {
	if discountType == domain.TypeBuyXGetY {
		return EditorBuyXGetY
	}
	return EditorStandard
}

// queryInt parses an integer query parameter, falling back to def on
// absence or junk.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
