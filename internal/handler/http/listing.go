package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/internal/service"
	"github.com/merchantkit/admin-api/pkg/httputil"
	"github.com/merchantkit/admin-api/pkg/validate"
)

// ListingHandler handles HTTP requests for listing endpoints.
type ListingHandler struct {
	service *service.ListingService
	logger  *slog.Logger
}

// NewListingHandler creates a new listing HTTP handler.
func NewListingHandler(svc *service.ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{service: svc, logger: logger}
}

// CreateListing handles POST /api/v1/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var in service.ListingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	l, err := h.service.Create(r.Context(), &in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: l})
}

// ListListings handles GET /api/v1/listings
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	filter := repository.ListingFilter{
		Query:  r.URL.Query().Get("q"),
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	listings, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.ListResponse{Data: listings, TotalCount: total})
}

// GetListing handles GET /api/v1/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: l})
}

// GetCountryPrices handles GET /api/v1/listings/{id}/country-prices.
// The stored per-country map comes back in editor form, one rule per
// country sorted by country name.
func (h *ListingHandler) GetCountryPrices(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.GetCountryPriceRules(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rules})
}

// ListCountries handles GET /api/v1/countries. It serves the fixed
// country table the price-rule editor builds its dropdown from.
func (h *ListingHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: domain.Countries()})
}

// UpdateListing handles PUT /api/v1/listings/{id}
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var in service.ListingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	l, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: l})
}

// DeleteListing handles DELETE /api/v1/listings/{id}
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// BulkUpdateRequest is the JSON request body for a bulk listing update.
type BulkUpdateRequest struct {
	Items []service.BulkItem `json:"items" validate:"required,min=1,max=100"`
}

// BulkUpdateListings handles PUT /api/v1/listings/bulk. The write is
// at-least-once and non-atomic: on a partial failure the succeeded
// records stay saved and the response is an error, so callers must
// re-check rather than assume a rollback.
func (h *ListingHandler) BulkUpdateListings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20) // 4 MB limit, bulk payloads are large
	var req BulkUpdateRequest
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
	for _, item := range req.Items {
		if item.ID == "" || item.Input == nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "every bulk item needs an id and an input"},
			})
			return
		}
	}

	if err := h.service.BulkUpdate(r.Context(), req.Items); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]int{"updated": len(req.Items)},
	})
}
