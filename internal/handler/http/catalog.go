package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/repository"
	"github.com/merchantkit/admin-api/internal/service"
	"github.com/merchantkit/admin-api/pkg/httputil"
)

// CatalogHandler handles HTTP requests for catalog search, lookup and
// suggestion endpoints.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

func (h *CatalogHandler) filter(r *http.Request) repository.CatalogFilter {
	return repository.CatalogFilter{
		Query: r.URL.Query().Get("q"),
		Limit: queryInt(r, "limit", 20),
	}
}

// SearchProducts handles GET /api/v1/products
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, total, err := h.service.SearchProducts(r.Context(), h.filter(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.ListResponse{Data: products, TotalCount: total})
}

// SearchCollections handles GET /api/v1/collections
func (h *CatalogHandler) SearchCollections(w http.ResponseWriter, r *http.Request) {
	collections, total, err := h.service.SearchCollections(r.Context(), h.filter(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.ListResponse{Data: collections, TotalCount: total})
}

// SearchCategories handles GET /api/v1/categories
func (h *CatalogHandler) SearchCategories(w http.ResponseWriter, r *http.Request) {
	categories, total, err := h.service.SearchCategories(r.Context(), h.filter(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.ListResponse{Data: categories, TotalCount: total})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// GetCollection handles GET /api/v1/collections/{id}
func (h *CatalogHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: c})
}

// GetCategory handles GET /api/v1/categories/{id}
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: c})
}

// GetProductBySlug handles GET /api/v1/products/slug/{slug}. The lookup
// matches the slug column, metadata.handle or metadata.shopify.handle,
// first match wins. This route is public with wide-open CORS.
func (h *CatalogHandler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// Suggest returns a handler for GET /api/v1/{kind}/suggest serving
// search-as-you-type completions for the given catalog kind. Engine
// failures degrade to an empty list.
func (h *CatalogHandler) Suggest(kind domain.CatalogKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := h.service.Suggest(r.Context(), kind, r.URL.Query().Get("q"), queryInt(r, "limit", 10))
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
	}
}
