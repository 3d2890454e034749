package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"crmlite/backend/internal/domain"
	"crmlite/backend/internal/store"
)

func TestSaveAssignsSequentialIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.Customers().Save(ctx, domain.Customer{Name: "One"})
	require.NoError(t, err)
	second, err := s.Customers().Save(ctx, domain.Customer{Name: "Two"})
	require.NoError(t, err)

	require.EqualValues(t, 1, first.ID)
	require.EqualValues(t, 2, second.ID)
}

func TestSaveWithIDOverwrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.Customers().Save(ctx, domain.Customer{Name: "One", Notes: "old"})
	require.NoError(t, err)

	updated, err := s.Customers().Save(ctx, domain.Customer{ID: created.ID, Name: "One Renamed"})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)

	fetched, err := s.Customers().Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "One Renamed", fetched.Name)
	require.Empty(t, fetched.Notes, "save is a full overwrite, not a patch")
}

func TestSaveWithUnknownIDReturnsNotFound(t *testing.T) {
	s := New()

	_, err := s.Customers().Save(context.Background(), domain.Customer{ID: 42, Name: "Ghost"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	s := New()
	require.NoError(t, s.Customers().Delete(context.Background(), 999))
}

func TestDuplicateUserEmailRejected(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Users().Save(ctx, domain.User{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	_, err = s.Users().Save(ctx, domain.User{Email: "A@B.C", Password: "y"})
	require.ErrorIs(t, err, store.ErrDuplicate)
}

func TestUserByEmailCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Users().Save(ctx, domain.User{Email: "mixed@Case.com", Password: "x"})
	require.NoError(t, err)

	found, err := s.UserByEmail(ctx, "MIXED@case.com")
	require.NoError(t, err)
	require.Equal(t, "mixed@Case.com", found.Email)

	_, err = s.UserByEmail(ctx, "absent@case.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaleRequiresExistingCustomer(t *testing.T) {
	s := New()
	ctx := context.Background()

	missing := int64(7)
	_, err := s.Sales().Save(ctx, domain.Sale{Product: "Deal", CustomerID: &missing})
	require.ErrorIs(t, err, store.ErrInvalid)

	customer, err := s.Customers().Save(ctx, domain.Customer{Name: "Real"})
	require.NoError(t, err)

	sale, err := s.Sales().Save(ctx, domain.Sale{Product: "Deal", CustomerID: &customer.ID})
	require.NoError(t, err)
	require.NotZero(t, sale.ID)
}

func TestCustomerDeleteClearsSaleReferences(t *testing.T) {
	s := New()
	ctx := context.Background()

	customer, err := s.Customers().Save(ctx, domain.Customer{Name: "Real"})
	require.NoError(t, err)
	sale, err := s.Sales().Save(ctx, domain.Sale{Product: "Deal", CustomerID: &customer.ID})
	require.NoError(t, err)

	require.NoError(t, s.Customers().Delete(ctx, customer.ID))

	kept, err := s.Sales().Get(ctx, sale.ID)
	require.NoError(t, err)
	require.Nil(t, kept.CustomerID)
}

func TestAggregates(t *testing.T) {
	s := New()
	ctx := context.Background()

	totals, err := s.SalesTotals(ctx)
	require.NoError(t, err)
	require.True(t, totals.Revenue.IsZero())
	require.Zero(t, totals.Count)

	for _, amount := range []string{"10.50", "4.50"} {
		dec, err := decimal.NewFromString(amount)
		require.NoError(t, err)
		_, err = s.Sales().Save(ctx, domain.Sale{Product: "Deal", Amount: dec})
		require.NoError(t, err)
	}
	_, err = s.Purchases().Save(ctx, domain.Purchase{Vendor: "V", Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	totals, err = s.SalesTotals(ctx)
	require.NoError(t, err)
	require.True(t, totals.Revenue.Equal(decimal.NewFromInt(15)), "got %s", totals.Revenue)
	require.EqualValues(t, 2, totals.Count)

	purchases, err := s.PurchasesTotal(ctx)
	require.NoError(t, err)
	require.True(t, purchases.Equal(decimal.NewFromInt(5)), "got %s", purchases)
}

func TestListIsOrderedByID(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Leads().Save(ctx, domain.Lead{Name: name})
		require.NoError(t, err)
	}

	leads, err := s.Leads().List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	for i, lead := range leads {
		require.EqualValues(t, i+1, lead.ID)
	}
}

func TestNewSeededProvidesLoginAccounts(t *testing.T) {
	s := NewSeeded()

	admin, err := s.UserByEmail(context.Background(), "admin@crm.local")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)
	require.NotEqual(t, "admin123", admin.Password, "seed passwords must be stored hashed")
}
