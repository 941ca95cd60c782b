package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ipek-store/internal/domain"
	"ipek-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductQuery filters and sorts the public catalog.
type ProductQuery struct {
	CategoryID *uuid.UUID
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// ProductInput is what an admin submits for a product.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  uuid.UUID
	Images      []string
	Stock       int
}

// ProductService handles the catalog.
type ProductService interface {
	List(ctx context.Context, q ProductQuery) (*Page[*domain.Product], error)
	Search(ctx context.Context, query string, page, pageSize int) (*Page[*domain.Product], error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)

	Create(ctx context.Context, id domain.Identity, in ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id domain.Identity, productID uuid.UUID, in ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id domain.Identity, productID uuid.UUID) error
	CreateCategory(ctx context.Context, id domain.Identity, name, description string) (*domain.Category, error)
}

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	clock      Clock
	logger     *zap.Logger
}

// NewProductService creates a ProductService.
func NewProductService(products repository.ProductRepository, categories repository.CategoryRepository, clock Clock, logger *zap.Logger) ProductService {
	return &productService{products: products, categories: categories, clock: orClock(clock), logger: logger}
}

func (s *productService) List(ctx context.Context, q ProductQuery) (*Page[*domain.Product], error) {
	page, size := normalizePage(q.Page, q.PageSize)
	order := repository.SortOrderDesc
	if strings.EqualFold(q.SortOrder, string(repository.SortOrderAsc)) {
		order = repository.SortOrderAsc
	}

	products, total, err := s.products.List(ctx, q.CategoryID, page, size, q.SortBy, order)
	if err != nil {
		return nil, err
	}
	return &Page[*domain.Product]{Items: products, Total: total, Page: page, PageSize: size}, nil
}

func (s *productService) Search(ctx context.Context, query string, page, pageSize int) (*Page[*domain.Product], error) {
	page, size := normalizePage(page, pageSize)
	products, total, err := s.products.Search(ctx, query, page, size)
	if err != nil {
		return nil, err
	}
	return &Page[*domain.Product]{Items: products, Total: total, Page: page, PageSize: size}, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return product, nil
}

func (s *productService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *productService) Create(ctx context.Context, id domain.Identity, in ProductInput) (*domain.Product, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	now := s.clock()
	product := &domain.Product{ID: uuid.New(), CreatedAt: now}
	if err := s.apply(ctx, product, in, now); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("name", product.Name))
	return product, nil
}

func (s *productService) Update(ctx context.Context, id domain.Identity, productID uuid.UUID, in ProductInput) (*domain.Product, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, translate(err)
	}

	if err := s.apply(ctx, product, in, s.clock()); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, translate(err)
	}

	s.logger.Info("Product updated", zap.String("product_id", product.ID.String()))
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id domain.Identity, productID uuid.UUID) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return translate(err)
	}
	s.logger.Info("Product deleted", zap.String("product_id", productID.String()))
	return nil
}

func (s *productService) CreateCategory(ctx context.Context, id domain.Identity, name, description string) (*domain.Category, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation(map[string]string{"name": "Kategori adı zorunludur"})
	}

	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.clock(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, translate(err)
	}
	return category, nil
}

func (s *productService) apply(ctx context.Context, product *domain.Product, in ProductInput, now time.Time) error {
	product.Name = strings.TrimSpace(in.Name)
	product.Description = strings.TrimSpace(in.Description)
	product.Price = domain.Round2(in.Price)
	product.CategoryID = in.CategoryID
	product.Stock = in.Stock
	product.Images = cleanImages(in.Images)
	product.UpdatedAt = now

	if err := product.Validate(); err != nil {
		return err
	}
	if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
		return translate(err)
	}
	return nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}
