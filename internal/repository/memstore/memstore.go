// Package memstore is an in-memory implementation of the repository
// interfaces for service and handler tests. Transactions are serialized and
// roll back to a snapshot on error.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"ipek-store/internal/domain"
	"ipek-store/internal/repository"

	"github.com/google/uuid"
)

// errDuplicateDefault mirrors the partial unique index on default addresses.
var errDuplicateDefault = errors.New("memstore: user already has a default address")

type cartState struct {
	lines  []domain.CartLine
	coupon string
}

type state struct {
	users      map[uuid.UUID]domain.User
	tokens     map[string]domain.RefreshToken
	categories map[uuid.UUID]domain.Category
	products   map[uuid.UUID]domain.Product
	carts      map[uuid.UUID]cartState
	coupons    map[uuid.UUID]domain.Coupon
	addresses  map[uuid.UUID]domain.Address
	orders     map[uuid.UUID]domain.Order
	history    []domain.StatusHistoryEntry
	guests     map[string]domain.GuestCheckout
	shipping   *domain.ShippingSettings
}

func newState() state {
	return state{
		users:      map[uuid.UUID]domain.User{},
		tokens:     map[string]domain.RefreshToken{},
		categories: map[uuid.UUID]domain.Category{},
		products:   map[uuid.UUID]domain.Product{},
		carts:      map[uuid.UUID]cartState{},
		coupons:    map[uuid.UUID]domain.Coupon{},
		addresses:  map[uuid.UUID]domain.Address{},
		orders:     map[uuid.UUID]domain.Order{},
		guests:     map[string]domain.GuestCheckout{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.products {
		c.products[k] = copyProduct(v)
	}
	for k, v := range s.carts {
		c.carts[k] = cartState{lines: append([]domain.CartLine(nil), v.lines...), coupon: v.coupon}
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	c.history = append([]domain.StatusHistoryEntry(nil), s.history...)
	for k, v := range s.guests {
		c.guests[k] = v
	}
	if s.shipping != nil {
		v := *s.shipping
		c.shipping = &v
	}
	return c
}

// Store holds all data in memory. The zero value is not usable; call New.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data state
}

// New returns an empty store.
func New() *Store {
	return &Store{data: newState()}
}

// Repositories returns repositories bound to the store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:          &userRepo{s},
		RefreshTokens:  &tokenRepo{s},
		Categories:     &categoryRepo{s},
		Products:       &productRepo{s},
		Carts:          &cartRepo{s},
		Coupons:        &couponRepo{s},
		Addresses:      &addressRepo{s},
		Orders:         &orderRepo{s},
		GuestCheckouts: &guestRepo{s},
		Settings:       &settingsRepo{s},
	}
}

// WithinTx runs fn with transactions serialized store-wide. Any error
// restores the state seen when fn started.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(ctx, s.Repositories())
}

func (s *Store) restore(snapshot state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func (s *Store) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func copyProduct(p domain.Product) domain.Product {
	p.Images = append([]string{}, p.Images...)
	return p
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	o.History = nil
	return o
}

// users

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	defer r.s.lock()()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.s.data.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.s.lock()()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

// refresh tokens

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(ctx context.Context, token *domain.RefreshToken) error {
	defer r.s.lock()()
	r.s.data.tokens[token.Token] = *token
	return nil
}

func (r *tokenRepo) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	defer r.s.lock()()
	t, ok := r.s.data.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return &t, nil
}

func (r *tokenRepo) Revoke(ctx context.Context, token string) error {
	defer r.s.lock()()
	t, ok := r.s.data.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	r.s.data.tokens[token] = t
	return nil
}

func (r *tokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	defer r.s.lock()()
	for k, t := range r.s.data.tokens {
		if t.UserID == userID {
			t.Revoked = true
			r.s.data.tokens[k] = t
		}
	}
	return nil
}

// categories

type categoryRepo struct{ s *Store }

func (r *categoryRepo) Create(ctx context.Context, category *domain.Category) error {
	defer r.s.lock()()
	for _, c := range r.s.data.categories {
		if c.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	r.s.data.categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	defer r.s.lock()()
	counts := map[uuid.UUID]int{}
	for _, p := range r.s.data.products {
		counts[p.CategoryID]++
	}
	out := []*domain.Category{}
	for _, c := range r.s.data.categories {
		c := c
		c.ProductCount = counts[c.ID]
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	defer r.s.lock()()
	c, ok := r.s.data.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &c, nil
}

// products

type productRepo struct{ s *Store }

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	defer r.s.lock()()
	r.s.data.products[product.ID] = copyProduct(*product)
	return nil
}

func (r *productRepo) Update(ctx context.Context, product *domain.Product) error {
	defer r.s.lock()()
	if _, ok := r.s.data.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	r.s.data.products[product.ID] = copyProduct(*product)
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.s.data.products, id)
	for userID, cart := range r.s.data.carts {
		kept := cart.lines[:0]
		for _, l := range cart.lines {
			if l.ProductID != id {
				kept = append(kept, l)
			}
		}
		cart.lines = kept
		r.s.data.carts[userID] = cart
	}
	return nil
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p = copyProduct(p)
	return &p, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	defer r.s.lock()()
	out := []*domain.Product{}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.s.data.products[id]; ok {
			p = copyProduct(p)
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// LockByIDs is FindByIDs; WithinTx already serializes writers.
func (r *productRepo) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	return r.FindByIDs(ctx, ids)
}

func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok || p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	r.s.data.products[id] = p
	return nil
}

func (r *productRepo) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock += qty
	r.s.data.products[id] = p
	return nil
}

func (r *productRepo) List(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return r.filter(page, pageSize, sortBy, sortOrder, func(p domain.Product) bool {
		return categoryID == nil || p.CategoryID == *categoryID
	})
}

func (r *productRepo) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return r.filter(page, pageSize, "created_at", repository.SortOrderDesc, func(p domain.Product) bool {
		return q == "" || strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q)
	})
}

func (r *productRepo) filter(page, pageSize int, sortBy string, order repository.SortOrder, keep func(domain.Product) bool) ([]*domain.Product, int, error) {
	defer r.s.lock()()
	all := []*domain.Product{}
	for _, p := range r.s.data.products {
		if keep(p) {
			p = copyProduct(p)
			all = append(all, &p)
		}
	}
	less := func(a, b *domain.Product) bool {
		switch sortBy {
		case "name":
			return a.Name < b.Name
		case "price":
			return a.Price.LessThan(b.Price)
		case "stock":
			return a.Stock < b.Stock
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if order == repository.SortOrderAsc {
			return less(all[i], all[j])
		}
		return less(all[j], all[i])
	})
	return paginate(all, page, pageSize), len(all), nil
}

func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if pageSize <= 0 || start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// carts

type cartRepo struct{ s *Store }

func (r *cartRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	defer r.s.lock()()
	c := r.s.data.carts[userID]
	return &domain.Cart{
		UserID:     userID,
		Lines:      append([]domain.CartLine{}, c.lines...),
		CouponCode: c.coupon,
	}, nil
}

func (r *cartRepo) SetLine(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	defer r.s.lock()()
	c := r.s.data.carts[userID]
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity = qty
			r.s.data.carts[userID] = c
			return nil
		}
	}
	c.lines = append(c.lines, domain.CartLine{ProductID: productID, Quantity: qty})
	r.s.data.carts[userID] = c
	return nil
}

func (r *cartRepo) RemoveLine(ctx context.Context, userID, productID uuid.UUID) error {
	defer r.s.lock()()
	c := r.s.data.carts[userID]
	kept := []domain.CartLine{}
	for _, l := range c.lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	c.lines = kept
	r.s.data.carts[userID] = c
	return nil
}

func (r *cartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	defer r.s.lock()()
	r.s.data.carts[userID] = cartState{}
	return nil
}

func (r *cartRepo) SetCoupon(ctx context.Context, userID uuid.UUID, code string) error {
	defer r.s.lock()()
	c := r.s.data.carts[userID]
	c.coupon = code
	r.s.data.carts[userID] = c
	return nil
}

// Lock is a no-op; WithinTx already serializes writers.
func (r *cartRepo) Lock(ctx context.Context, userID uuid.UUID) error {
	return nil
}

// coupons

type couponRepo struct{ s *Store }

func (r *couponRepo) codeTaken(code string, except uuid.UUID) bool {
	for _, c := range r.s.data.coupons {
		if c.ID != except && strings.EqualFold(c.Code, code) {
			return true
		}
	}
	return false
}

func (r *couponRepo) Create(ctx context.Context, coupon *domain.Coupon) error {
	defer r.s.lock()()
	if r.codeTaken(coupon.Code, coupon.ID) {
		return repository.ErrCouponCodeTaken
	}
	r.s.data.coupons[coupon.ID] = *coupon
	return nil
}

func (r *couponRepo) Update(ctx context.Context, coupon *domain.Coupon) error {
	defer r.s.lock()()
	current, ok := r.s.data.coupons[coupon.ID]
	if !ok {
		return repository.ErrCouponNotFound
	}
	if r.codeTaken(coupon.Code, coupon.ID) {
		return repository.ErrCouponCodeTaken
	}
	updated := *coupon
	updated.UsageCount = current.UsageCount
	r.s.data.coupons[coupon.ID] = updated
	return nil
}

func (r *couponRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.coupons[id]; !ok {
		return repository.ErrCouponNotFound
	}
	delete(r.s.data.coupons, id)
	return nil
}

func (r *couponRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	defer r.s.lock()()
	c, ok := r.s.data.coupons[id]
	if !ok {
		return nil, repository.ErrCouponNotFound
	}
	return &c, nil
}

func (r *couponRepo) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	defer r.s.lock()()
	code = domain.NormalizeCouponCode(code)
	for _, c := range r.s.data.coupons {
		if strings.EqualFold(c.Code, code) {
			return &c, nil
		}
	}
	return nil, repository.ErrCouponNotFound
}

func (r *couponRepo) List(ctx context.Context) ([]*domain.Coupon, error) {
	defer r.s.lock()()
	out := []*domain.Coupon{}
	for _, c := range r.s.data.coupons {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *couponRepo) Reserve(ctx context.Context, code string) error {
	defer r.s.lock()()
	code = domain.NormalizeCouponCode(code)
	for id, c := range r.s.data.coupons {
		if strings.EqualFold(c.Code, code) {
			if c.UsageCount >= c.MaxUsage {
				return repository.ErrCouponExhausted
			}
			c.UsageCount++
			r.s.data.coupons[id] = c
			return nil
		}
	}
	return repository.ErrCouponExhausted
}

func (r *couponRepo) Release(ctx context.Context, code string) error {
	defer r.s.lock()()
	code = domain.NormalizeCouponCode(code)
	for id, c := range r.s.data.coupons {
		if strings.EqualFold(c.Code, code) && c.UsageCount > 0 {
			c.UsageCount--
			r.s.data.coupons[id] = c
		}
	}
	return nil
}

// addresses

type addressRepo struct{ s *Store }

func (r *addressRepo) Create(ctx context.Context, address *domain.Address) error {
	defer r.s.lock()()
	if address.IsDefault {
		for _, a := range r.s.data.addresses {
			if a.UserID == address.UserID && a.IsDefault {
				return errDuplicateDefault
			}
		}
	}
	r.s.data.addresses[address.ID] = *address
	return nil
}

func (r *addressRepo) Update(ctx context.Context, address *domain.Address) error {
	defer r.s.lock()()
	current, ok := r.s.data.addresses[address.ID]
	if !ok || current.UserID != address.UserID {
		return repository.ErrAddressNotFound
	}
	updated := *address
	updated.IsDefault = current.IsDefault
	updated.CreatedAt = current.CreatedAt
	r.s.data.addresses[address.ID] = updated
	return nil
}

func (r *addressRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	defer r.s.lock()()
	a, ok := r.s.data.addresses[id]
	if !ok || a.UserID != userID {
		return repository.ErrAddressNotFound
	}
	delete(r.s.data.addresses, id)
	return nil
}

func (r *addressRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error) {
	defer r.s.lock()()
	a, ok := r.s.data.addresses[id]
	if !ok || a.UserID != userID {
		return nil, repository.ErrAddressNotFound
	}
	return &a, nil
}

func (r *addressRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	defer r.s.lock()()
	out := r.byUser(userID)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *addressRepo) LockByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	defer r.s.lock()()
	return r.byUser(userID), nil
}

func (r *addressRepo) byUser(userID uuid.UUID) []*domain.Address {
	out := []*domain.Address{}
	for _, a := range r.s.data.addresses {
		if a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (r *addressRepo) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	defer r.s.lock()()
	target, ok := r.s.data.addresses[id]
	if !ok || target.UserID != userID {
		return repository.ErrAddressNotFound
	}
	for k, a := range r.s.data.addresses {
		if a.UserID == userID {
			a.IsDefault = k == id
			r.s.data.addresses[k] = a
		}
	}
	return nil
}

func (r *addressRepo) PromoteLatest(ctx context.Context, userID uuid.UUID) error {
	defer r.s.lock()()
	var latest *domain.Address
	for _, a := range r.s.data.addresses {
		if a.UserID != userID {
			continue
		}
		a := a
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = &a
		}
	}
	if latest != nil {
		latest.IsDefault = true
		r.s.data.addresses[latest.ID] = *latest
	}
	return nil
}

// orders

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	defer r.s.lock()()
	r.s.data.orders[order.ID] = copyOrder(*order)
	r.s.data.history = append(r.s.data.history, order.History...)
	return nil
}

func (r *orderRepo) Update(ctx context.Context, order *domain.Order) error {
	defer r.s.lock()()
	if _, ok := r.s.data.orders[order.ID]; !ok {
		return repository.ErrOrderNotFound
	}
	r.s.data.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	defer r.s.lock()()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepo) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	defer r.s.lock()()
	for _, o := range r.s.data.orders {
		if o.OrderNumber == number {
			o = copyOrder(o)
			return &o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return r.list(page, pageSize, func(o domain.Order) bool { return o.OwnedBy(userID) })
}

func (r *orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	return r.list(filter.Page, filter.PageSize, func(o domain.Order) bool {
		return filter.Status == nil || o.Status == *filter.Status
	})
}

func (r *orderRepo) list(page, pageSize int, keep func(domain.Order) bool) ([]*domain.Order, int, error) {
	defer r.s.lock()()
	all := []*domain.Order{}
	for _, o := range r.s.data.orders {
		if keep(o) {
			o = copyOrder(o)
			all = append(all, &o)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page, pageSize), len(all), nil
}

func (r *orderRepo) AppendHistory(ctx context.Context, entry domain.StatusHistoryEntry) error {
	defer r.s.lock()()
	r.s.data.history = append(r.s.data.history, entry)
	return nil
}

func (r *orderRepo) History(ctx context.Context, orderID uuid.UUID) ([]domain.StatusHistoryEntry, error) {
	defer r.s.lock()()
	out := []domain.StatusHistoryEntry{}
	for _, e := range r.s.data.history {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

// guest checkouts

type guestRepo struct{ s *Store }

func (r *guestRepo) Upsert(ctx context.Context, guest *domain.GuestCheckout) error {
	defer r.s.lock()()
	g := *guest
	if existing, ok := r.s.data.guests[guest.SessionID]; ok {
		g.CreatedAt = existing.CreatedAt
	}
	r.s.data.guests[guest.SessionID] = g
	return nil
}

func (r *guestRepo) FindBySession(ctx context.Context, sessionID string) (*domain.GuestCheckout, error) {
	defer r.s.lock()()
	g, ok := r.s.data.guests[sessionID]
	if !ok {
		return nil, repository.ErrGuestCheckoutNotFound
	}
	return &g, nil
}

// settings

type settingsRepo struct{ s *Store }

func (r *settingsRepo) GetShipping(ctx context.Context) (*domain.ShippingSettings, error) {
	defer r.s.lock()()
	if r.s.data.shipping == nil {
		return nil, repository.ErrSettingsNotFound
	}
	v := *r.s.data.shipping
	return &v, nil
}

func (r *settingsRepo) SaveShipping(ctx context.Context, settings *domain.ShippingSettings) error {
	defer r.s.lock()()
	v := *settings
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = time.Now()
	}
	r.s.data.shipping = &v
	return nil
}
