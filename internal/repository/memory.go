package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"
)

// Kind names an entity collection with its own id counter.
type Kind int

const (
	KindUser Kind = iota
	KindProduct
	KindCategory
	KindOrder
	KindReview
)

// table is one collection keyed by integer id. Ids come from a counter that
// starts at 1 and is never rewound, so deleted ids are not reused.
type table[T any] struct {
	next int64
	rows map[int64]T
}

func newTable[T any]() table[T] {
	return table[T]{next: 1, rows: make(map[int64]T)}
}

func (t *table[T]) nextID() int64 {
	id := t.next
	t.next++
	return id
}

// ordered returns the rows in id order, which is also insertion order.
func (t *table[T]) ordered(keep func(T) bool) []T {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v := t.rows[id]; keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

type reviewKey struct{ userID, productID int64 }

// MemoryStore holds every entity collection behind one lock.
type MemoryStore struct {
	mu         sync.RWMutex
	now        func() time.Time
	users      table[domain.User]
	products   table[domain.Product]
	categories table[domain.Category]
	orders     table[domain.Order]
	reviews    table[domain.Review]
	carts      map[int64]domain.Cart
	// secondary index, kept in step with reviews on every mutation
	reviewByAuthor map[reviewKey]int64
}

func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
	m.init()
	return m
}

func (m *MemoryStore) init() {
	m.users = newTable[domain.User]()
	m.products = newTable[domain.Product]()
	m.categories = newTable[domain.Category]()
	m.orders = newTable[domain.Order]()
	m.reviews = newTable[domain.Review]()
	m.carts = make(map[int64]domain.Cart)
	m.reviewByAuthor = make(map[reviewKey]int64)
}

// Reset drops every entity and rewinds all counters. Intended for tests.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
}

// NextID reserves and returns the next id of the given kind.
func (m *MemoryStore) NextID(ctx context.Context, kind Kind) int64 {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	return m.nextID(kind)
}

func (m *MemoryStore) nextID(kind Kind) int64 {
	switch kind {
	case KindUser:
		return m.users.nextID()
	case KindProduct:
		return m.products.nextID()
	case KindCategory:
		return m.categories.nextID()
	case KindOrder:
		return m.orders.nextID()
	case KindReview:
		return m.reviews.nextID()
	default:
		panic("repository: unknown kind")
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var (
	_ UserRepository     = (*MemoryUsers)(nil)
	_ ProductRepository  = (*MemoryProducts)(nil)
	_ CategoryRepository = (*MemoryCategories)(nil)
	_ CartRepository     = (*MemoryCarts)(nil)
	_ OrderRepository    = (*MemoryOrders)(nil)
	_ ReviewRepository   = (*MemoryReviews)(nil)
	_ TxManager          = (*MemoryTx)(nil)
)

// MemoryUsers is the user collection of a MemoryStore.
type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

func (us *MemoryUsers) Create(ctx context.Context, u *domain.User) error {
	us.store.wlock(ctx)
	defer us.store.wunlock(ctx)
	u.ID = us.store.nextID(KindUser)
	u.CreatedAt = us.store.now()
	us.store.users.rows[u.ID] = *u
	return nil
}

func (us *MemoryUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	us.store.rlock(ctx)
	defer us.store.runlock(ctx)
	u, ok := us.store.users.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// GetByEmail matches the address exactly.
func (us *MemoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	us.store.rlock(ctx)
	defer us.store.runlock(ctx)
	for _, u := range us.store.users.ordered(nil) {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (us *MemoryUsers) Update(ctx context.Context, u *domain.User) error {
	us.store.wlock(ctx)
	defer us.store.wunlock(ctx)
	if _, ok := us.store.users.rows[u.ID]; !ok {
		return ErrNotFound
	}
	us.store.users.rows[u.ID] = *u
	return nil
}

func (us *MemoryUsers) Delete(ctx context.Context, id int64) error {
	us.store.wlock(ctx)
	defer us.store.wunlock(ctx)
	if _, ok := us.store.users.rows[id]; !ok {
		return ErrNotFound
	}
	delete(us.store.users.rows, id)
	return nil
}

func (us *MemoryUsers) List(ctx context.Context) ([]domain.User, error) {
	us.store.rlock(ctx)
	defer us.store.runlock(ctx)
	return us.store.users.ordered(nil), nil
}

// MemoryProducts is the product collection of a MemoryStore.
type MemoryProducts struct{ store *MemoryStore }

func NewMemoryProducts(store *MemoryStore) *MemoryProducts { return &MemoryProducts{store: store} }

func (mp *MemoryProducts) Create(ctx context.Context, p *domain.Product) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	p.ID = mp.store.nextID(KindProduct)
	p.CreatedAt = mp.store.now()
	mp.store.products.rows[p.ID] = *p
	return nil
}

func (mp *MemoryProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	p, ok := mp.store.products.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (mp *MemoryProducts) Update(ctx context.Context, p *domain.Product) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	if _, ok := mp.store.products.rows[p.ID]; !ok {
		return ErrNotFound
	}
	mp.store.products.rows[p.ID] = *p
	return nil
}

func (mp *MemoryProducts) Delete(ctx context.Context, id int64) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	if _, ok := mp.store.products.rows[id]; !ok {
		return ErrNotFound
	}
	delete(mp.store.products.rows, id)
	return nil
}

func (mp *MemoryProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	return mp.store.products.ordered(func(p domain.Product) bool {
		return equalFoldOrEmpty(p.Category, f.Category)
	}), nil
}

// MemoryCategories is the category collection of a MemoryStore.
type MemoryCategories struct{ store *MemoryStore }

func NewMemoryCategories(store *MemoryStore) *MemoryCategories {
	return &MemoryCategories{store: store}
}

func (mc *MemoryCategories) Create(ctx context.Context, c *domain.Category) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	c.ID = mc.store.nextID(KindCategory)
	c.CreatedAt = mc.store.now()
	mc.store.categories.rows[c.ID] = cloneCategory(*c)
	return nil
}

func (mc *MemoryCategories) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	c, ok := mc.store.categories.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneCategory(c)
	return &cp, nil
}

// GetByName matches case-insensitively and returns the oldest match.
func (mc *MemoryCategories) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	for _, c := range mc.store.categories.ordered(nil) {
		if strings.EqualFold(c.Name, name) {
			cp := cloneCategory(c)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (mc *MemoryCategories) Update(ctx context.Context, c *domain.Category) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	if _, ok := mc.store.categories.rows[c.ID]; !ok {
		return ErrNotFound
	}
	mc.store.categories.rows[c.ID] = cloneCategory(*c)
	return nil
}

func (mc *MemoryCategories) Delete(ctx context.Context, id int64) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	if _, ok := mc.store.categories.rows[id]; !ok {
		return ErrNotFound
	}
	delete(mc.store.categories.rows, id)
	return nil
}

func (mc *MemoryCategories) List(ctx context.Context) ([]domain.Category, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	out := mc.store.categories.ordered(nil)
	for i := range out {
		out[i] = cloneCategory(out[i])
	}
	return out, nil
}

func cloneCategory(c domain.Category) domain.Category {
	if c.ParentID != nil {
		pid := *c.ParentID
		c.ParentID = &pid
	}
	return c
}

// MemoryCarts is the per-user cart collection of a MemoryStore.
type MemoryCarts struct{ store *MemoryStore }

func NewMemoryCarts(store *MemoryStore) *MemoryCarts { return &MemoryCarts{store: store} }

func (mc *MemoryCarts) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	c, ok := mc.store.carts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := c.Clone()
	return &cp, nil
}

func (mc *MemoryCarts) Save(ctx context.Context, c *domain.Cart) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	mc.store.carts[c.UserID] = c.Clone()
	return nil
}

// MemoryOrders is the order collection of a MemoryStore.
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.nextID(KindOrder)
	o.CreatedAt = mo.store.now()
	mo.store.orders.rows[o.ID] = o.Clone()
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.orders.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o.Clone()
	return &cp, nil
}

// Update persists only the status; items and total are fixed at creation.
func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	cur, ok := mo.store.orders.rows[o.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Status = o.Status
	mo.store.orders.rows[o.ID] = cur
	return nil
}

func (mo *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := mo.store.orders.ordered(func(o domain.Order) bool {
		return f.UserID == nil || o.UserID == *f.UserID
	})
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

// MemoryReviews is the review collection of a MemoryStore.
type MemoryReviews struct{ store *MemoryStore }

func NewMemoryReviews(store *MemoryStore) *MemoryReviews { return &MemoryReviews{store: store} }

func (mr *MemoryReviews) Create(ctx context.Context, r *domain.Review) error {
	mr.store.wlock(ctx)
	defer mr.store.wunlock(ctx)
	r.ID = mr.store.nextID(KindReview)
	r.CreatedAt = mr.store.now()
	mr.store.reviews.rows[r.ID] = *r
	mr.store.reviewByAuthor[reviewKey{r.UserID, r.ProductID}] = r.ID
	return nil
}

func (mr *MemoryReviews) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	mr.store.rlock(ctx)
	defer mr.store.runlock(ctx)
	r, ok := mr.store.reviews.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (mr *MemoryReviews) GetByUserAndProduct(ctx context.Context, userID, productID int64) (*domain.Review, error) {
	mr.store.rlock(ctx)
	defer mr.store.runlock(ctx)
	id, ok := mr.store.reviewByAuthor[reviewKey{userID, productID}]
	if !ok {
		return nil, ErrNotFound
	}
	r := mr.store.reviews.rows[id]
	return &r, nil
}

// Update keeps the author and product of the stored review so the index stays valid.
func (mr *MemoryReviews) Update(ctx context.Context, r *domain.Review) error {
	mr.store.wlock(ctx)
	defer mr.store.wunlock(ctx)
	cur, ok := mr.store.reviews.rows[r.ID]
	if !ok {
		return ErrNotFound
	}
	upd := *r
	upd.UserID, upd.ProductID, upd.CreatedAt = cur.UserID, cur.ProductID, cur.CreatedAt
	mr.store.reviews.rows[r.ID] = upd
	return nil
}

func (mr *MemoryReviews) Delete(ctx context.Context, id int64) error {
	mr.store.wlock(ctx)
	defer mr.store.wunlock(ctx)
	r, ok := mr.store.reviews.rows[id]
	if !ok {
		return ErrNotFound
	}
	delete(mr.store.reviews.rows, id)
	delete(mr.store.reviewByAuthor, reviewKey{r.UserID, r.ProductID})
	return nil
}

func (mr *MemoryReviews) List(ctx context.Context, f ReviewFilter) ([]domain.Review, error) {
	mr.store.rlock(ctx)
	defer mr.store.runlock(ctx)
	out := mr.store.reviews.ordered(func(r domain.Review) bool {
		if f.ProductID != nil && r.ProductID != *f.ProductID {
			return false
		}
		return f.UserID == nil || r.UserID == *f.UserID
	})
	return out, nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

// WithTransaction holds the store write lock for the whole of fn and marks ctx
// so repository calls made by fn skip their own locking. Nested calls reuse
// the outer lock.
func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
