package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"crmlite/backend/internal/domain"
	"crmlite/backend/internal/store"
)

// Store keeps every record kind in process memory. It backs unit tests and the
// dev mode used when DATABASE_URL is unset. A single store-wide lock keeps
// cross-collection operations (customer delete, sale reference checks) atomic.
type Store struct {
	mu sync.RWMutex

	users     *collection[domain.User]
	customers *collection[domain.Customer]
	leads     *collection[domain.Lead]
	sales     *collection[domain.Sale]
	purchases *collection[domain.Purchase]
}

func New() *Store {
	s := &Store{}

	s.users = newCollection(&s.mu,
		func(u domain.User) int64 { return u.ID },
		func(u *domain.User, id int64) { u.ID = id },
	)
	s.users.conflicts = func(a, b domain.User) bool {
		return strings.EqualFold(a.Email, b.Email)
	}

	s.customers = newCollection(&s.mu,
		func(c domain.Customer) int64 { return c.ID },
		func(c *domain.Customer, id int64) { c.ID = id },
	)
	s.leads = newCollection(&s.mu,
		func(l domain.Lead) int64 { return l.ID },
		func(l *domain.Lead, id int64) { l.ID = id },
	)
	s.sales = newCollection(&s.mu,
		func(sale domain.Sale) int64 { return sale.ID },
		func(sale *domain.Sale, id int64) { sale.ID = id },
	)
	s.purchases = newCollection(&s.mu,
		func(p domain.Purchase) int64 { return p.ID },
		func(p *domain.Purchase, id int64) { p.ID = id },
	)

	return s
}

// NewSeeded returns a store preloaded with dev login accounts. Credentials
// come from SEED_ADMIN_PASSWORD and SEED_SALES_PASSWORD; hardcoded defaults
// are used with a warning when unset. Production runs use PostgreSQL instead.
func NewSeeded() *Store {
	s := New()

	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	salesPwd := envOr("SEED_SALES_PASSWORD", "sales123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SALES_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_SALES_PASSWORD to override.")
	}

	now := time.Now().UTC()
	for _, u := range []struct {
		fullName string
		email    string
		password string
		role     string
	}{
		{"Admin", envOr("SEED_ADMIN_EMAIL", "admin@crm.local"), adminPwd, domain.RoleAdmin},
		{"Sales Rep", envOr("SEED_SALES_EMAIL", "sales@crm.local"), salesPwd, domain.RoleSales},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.email, err)
		}
		if _, err := s.users.Save(context.Background(), domain.User{
			FullName:  u.fullName,
			Email:     u.email,
			Password:  string(hash),
			Role:      u.role,
			CreatedAt: now,
		}); err != nil {
			log.Fatalf("[memory-store] failed to seed user %s: %v", u.email, err)
		}
	}

	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) Users() store.Collection[domain.User] { return s.users }

func (s *Store) Customers() store.Collection[domain.Customer] {
	return &customerCollection{collection: s.customers, sales: s.sales}
}

func (s *Store) Leads() store.Collection[domain.Lead] { return s.leads }

func (s *Store) Sales() store.Collection[domain.Sale] {
	return &saleCollection{collection: s.sales, customers: s.customers}
}

func (s *Store) Purchases() store.Collection[domain.Purchase] { return s.purchases }

func (s *Store) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users.recs {
		if strings.EqualFold(user.Email, email) {
			found := user
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SalesTotals(_ context.Context) (domain.SalesTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := domain.SalesTotals{Revenue: decimal.Zero}
	for _, sale := range s.sales.recs {
		totals.Revenue = totals.Revenue.Add(sale.Amount)
		totals.Count++
	}
	return totals, nil
}

func (s *Store) PurchasesTotal(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, purchase := range s.purchases.recs {
		total = total.Add(purchase.Amount)
	}
	return total, nil
}

// collection implements store.Collection for one record kind over a map.
type collection[T any] struct {
	mu     *sync.RWMutex
	recs   map[int64]T
	nextID int64
	id     func(T) int64
	setID  func(*T, int64)

	// conflicts reports whether two distinct records collide on a unique key.
	conflicts func(a, b T) bool
}

func newCollection[T any](mu *sync.RWMutex, id func(T) int64, setID func(*T, int64)) *collection[T] {
	return &collection[T]{
		mu:    mu,
		recs:  make(map[int64]T),
		id:    id,
		setID: setID,
	}
}

func (c *collection[T]) List(_ context.Context) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int64, 0, len(c.recs))
	for id := range c.recs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.recs[id])
	}
	return out, nil
}

func (c *collection[T]) Get(_ context.Context, id int64) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.recs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (c *collection[T]) Save(_ context.Context, rec T) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(rec)
}

func (c *collection[T]) saveLocked(rec T) (*T, error) {
	if c.conflicts != nil {
		for id, other := range c.recs {
			if id != c.id(rec) && c.conflicts(other, rec) {
				return nil, store.ErrDuplicate
			}
		}
	}

	id := c.id(rec)
	if id == 0 {
		c.nextID++
		id = c.nextID
		c.setID(&rec, id)
	} else if _, ok := c.recs[id]; !ok {
		return nil, store.ErrNotFound
	}

	c.recs[id] = rec
	return &rec, nil
}

func (c *collection[T]) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.recs, id)
	return nil
}

// customerCollection nullifies sale references when a customer is deleted,
// mirroring the ON DELETE SET NULL constraint of the postgres adapter.
type customerCollection struct {
	*collection[domain.Customer]
	sales *collection[domain.Sale]
}

func (c *customerCollection) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.recs, id)
	for saleID, sale := range c.sales.recs {
		if sale.CustomerID != nil && *sale.CustomerID == id {
			sale.CustomerID = nil
			c.sales.recs[saleID] = sale
		}
	}
	return nil
}

// saleCollection rejects saves that reference a missing customer, mirroring
// the foreign key constraint of the postgres adapter.
type saleCollection struct {
	*collection[domain.Sale]
	customers *collection[domain.Customer]
}

func (c *saleCollection) Save(_ context.Context, rec domain.Sale) (*domain.Sale, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.CustomerID != nil {
		if _, ok := c.customers.recs[*rec.CustomerID]; !ok {
			return nil, store.ErrInvalid
		}
	}
	return c.saveLocked(rec)
}
