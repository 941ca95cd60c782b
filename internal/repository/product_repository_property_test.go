package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ipek-store/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func createTestCategory(t *testing.T, ctx context.Context) *domain.Category {
	t.Helper()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        "Eşarp " + uuid.New().String(),
		Description: "İpek eşarplar",
		CreatedAt:   time.Now(),
	}
	if err := NewCategoryRepository(testDB).Create(ctx, category); err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	return category
}

func createTestProduct(t *testing.T, ctx context.Context, price string, stock int) *domain.Product {
	t.Helper()
	category := createTestCategory(t, ctx)
	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        "Twill Eşarp " + uuid.New().String()[:6],
		Description: "100% ipek",
		Price:       decimal.RequireFromString(price),
		CategoryID:  category.ID,
		Images:      []string{"https://cdn.ipek.test/a.jpg", "https://cdn.ipek.test/b.jpg"},
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := NewProductRepository(testDB).Create(ctx, product); err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return product
}

func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	productRepo := NewProductRepository(testDB)
	category := createTestCategory(t, ctx)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, description string, cents int64, image string, stock int) bool {
			product := &domain.Product{
				ID:          uuid.New(),
				Name:        name,
				Description: description,
				Price:       decimal.New(cents, -2),
				CategoryID:  category.ID,
				Images:      []string{image},
				Stock:       stock,
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}
			defer func() { _ = productRepo.Delete(ctx, product.ID) }()

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != product.Name || retrieved.Description != product.Description {
				t.Logf("FAIL: text mismatch %q/%q", retrieved.Name, retrieved.Description)
				return false
			}
			if !retrieved.Price.Equal(product.Price) {
				t.Logf("FAIL: Price mismatch. Expected %s, got %s", product.Price, retrieved.Price)
				return false
			}
			if len(retrieved.Images) != 1 || retrieved.Images[0] != image {
				t.Logf("FAIL: Images mismatch %v", retrieved.Images)
				return false
			}
			if retrieved.Stock != product.Stock || retrieved.CategoryID != product.CategoryID {
				t.Logf("FAIL: Stock/category mismatch")
				return false
			}
			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`),
		gen.RegexMatch(`[A-Za-z0-9 .,!?]{10,200}`),
		gen.Int64Range(1, 999999),
		gen.RegexMatch(`https://[a-z0-9.-]+/[a-z0-9/._-]{1,50}`),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_UpdateAndDelete(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	product := createTestProduct(t, ctx, "499.90", 4)

	product.Price = decimal.RequireFromString("549.00")
	product.Images = nil
	product.UpdatedAt = time.Now()
	if err := repo.Update(ctx, product); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !got.Price.Equal(product.Price) || len(got.Images) != 0 {
		t.Errorf("unexpected product after update: %+v", got)
	}

	if err := repo.Delete(ctx, product.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, product.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, product.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound on second delete, got %v", err)
	}
}

func TestProductRepository_DecrementStockRefusesToGoNegative(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	product := createTestProduct(t, ctx, "100.00", 2)

	if err := repo.DecrementStock(ctx, product.ID, 3); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := repo.DecrementStock(ctx, product.ID, 2); err != nil {
		t.Fatalf("DecrementStock: %v", err)
	}
	if err := repo.IncrementStock(ctx, product.ID, 1); err != nil {
		t.Fatalf("IncrementStock: %v", err)
	}

	got, _ := repo.FindByID(ctx, product.ID)
	if got.Stock != 1 {
		t.Errorf("expected stock 1, got %d", got.Stock)
	}
}

// Concurrent single-unit purchases never sell more than the initial stock.
func TestProductRepository_ConcurrentDecrementsConserveStock(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	const initial, buyers = 5, 20
	product := createTestProduct(t, ctx, "50.00", initial)
	tx := NewTransactor(testDB)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tx.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
				if _, err := repos.Products.LockByIDs(ctx, []uuid.UUID{product.ID}); err != nil {
					return err
				}
				return repos.Products.DecrementStock(ctx, product.ID, 1)
			})
			if err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := NewProductRepository(testDB).FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if sold != initial || got.Stock != 0 {
		t.Errorf("sold %d with remaining %d; want %d sold and 0 remaining", sold, got.Stock, initial)
	}
}

func TestProductRepository_ListAndSearch(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	product := createTestProduct(t, ctx, "120.00", 3)

	products, total, err := repo.List(ctx, &product.CategoryID, 1, 10, "price", SortOrderAsc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(products) != 1 || products[0].ID != product.ID {
		t.Errorf("unexpected list result: total=%d len=%d", total, len(products))
	}

	found, total, err := repo.Search(ctx, product.Name, 1, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total < 1 || len(found) < 1 {
		t.Errorf("expected search to find %q", product.Name)
	}

	byIDs, err := repo.FindByIDs(ctx, []uuid.UUID{product.ID, uuid.New()})
	if err != nil {
		t.Fatalf("FindByIDs: %v", err)
	}
	if len(byIDs) != 1 {
		t.Errorf("expected only the existing product, got %d", len(byIDs))
	}
}
