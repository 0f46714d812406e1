package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/internal/service"
	"github.com/merchantkit/admin-api/pkg/httputil"
	"github.com/merchantkit/admin-api/pkg/validate"
)

// PageHandler handles HTTP requests for dynamic page endpoints.
type PageHandler struct {
	service *service.PageService
	logger  *slog.Logger
}

// NewPageHandler creates a new page HTTP handler.
func NewPageHandler(svc *service.PageService, logger *slog.Logger) *PageHandler {
	return &PageHandler{service: svc, logger: logger}
}

// CreatePage handles POST /api/v1/pages
func (h *PageHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var in service.PageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	p, err := h.service.Create(r.Context(), &in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: p})
}

// ListPages handles GET /api/v1/pages
func (h *PageHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	filter := repository.PageFilter{
		Query:  r.URL.Query().Get("q"),
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	pages, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.ListResponse{Data: pages, TotalCount: total})
}

// GetPage handles GET /api/v1/pages/{id}
func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// UpdatePage handles PUT /api/v1/pages/{id}
func (h *PageHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var in service.PageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// DeletePage handles DELETE /api/v1/pages/{id}
func (h *PageHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// ReorderSectionsRequest is the JSON request body for a section reorder.
type ReorderSectionsRequest struct {
	SectionIDs []string `json:"sectionIds" validate:"required,min=1,dive,required"`
}

// ReorderSections handles PUT /api/v1/pages/{id}/sections/reorder
func (h *PageHandler) ReorderSections(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req ReorderSectionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validate.Struct(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	p, err := h.service.ReorderSections(r.Context(), chi.URLParam(r, "id"), req.SectionIDs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}
