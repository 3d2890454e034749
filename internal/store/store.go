package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"crmlite/backend/internal/domain"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrInvalid   = errors.New("invalid record")
)

// Collection is the uniform persistence contract shared by every record kind.
// Save inserts and assigns a fresh id when the record's id is zero, and fully
// overwrites the stored record otherwise. Delete is an idempotent no-op when
// the id does not exist.
type Collection[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Save(ctx context.Context, rec T) (*T, error)
	Delete(ctx context.Context, id int64) error
}

type Repository interface {
	Users() Collection[domain.User]
	Customers() Collection[domain.Customer]
	Leads() Collection[domain.Lead]
	Sales() Collection[domain.Sale]
	Purchases() Collection[domain.Purchase]

	UserByEmail(ctx context.Context, email string) (*domain.User, error)

	// Aggregates are computed by the store, not by fetching records into the
	// service. Empty record sets report zero, never an absent value.
	SalesTotals(ctx context.Context) (domain.SalesTotals, error)
	PurchasesTotal(ctx context.Context) (decimal.Decimal, error)
}
