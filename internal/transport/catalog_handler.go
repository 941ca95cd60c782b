package transport

import (
	"net/http"

	"ipek-store/internal/middleware"
	"ipek-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the admin payload for creating or replacing a product.
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  uuid.UUID       `json:"category_id" validate:"required"`
	Images      []string        `json:"images"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

// CategoryRequest is the admin payload for a new category.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

// CatalogHandler serves products and categories.
type CatalogHandler struct {
	handler
	products service.ProductService
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(products service.ProductService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{handler: handler{logger: logger}, products: products}
}

// RegisterRoutes registers the public catalog.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Get("/{productID}", h.Get)
	})
	r.Get("/api/categories", h.ListCategories)
}

// RegisterAdminRoutes registers catalog management under an admin router.
func (h *CatalogHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/products", h.Create)
	r.Put("/products/{productID}", h.Update)
	r.Delete("/products/{productID}", h.Delete)
	r.Post("/categories", h.CreateCategory)
}

// List handles GET /api/products?category_id=&page=&page_size=&sort_by=&sort_order=
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := service.ProductQuery{
		Page:      queryInt(r, "page"),
		PageSize:  queryInt(r, "page_size"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{Field: "category_id", Message: "Geçersiz kimlik"}})
			return
		}
		q.CategoryID = &categoryID
	}

	page, err := h.products.List(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// Search handles GET /api/products/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := h.products.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathUUID(w, r, "productID")
	if !ok {
		return
	}
	product, err := h.products.Get(r.Context(), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.products.Create(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(w, r, "productID")
	if !ok {
		return
	}
	var req ProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.products.Update(r.Context(), id, productID, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(w, r, "productID")
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), id, productID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	category, err := h.products.CreateCategory(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Images:      req.Images,
		Stock:       req.Stock,
	}
}
