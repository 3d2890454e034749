package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"crmlite/backend/internal/domain"
	"crmlite/backend/internal/store"
)

type Store struct {
	db *sql.DB

	users     *table[domain.User]
	customers *table[domain.Customer]
	leads     *table[domain.Lead]
	sales     *table[domain.Sale]
	purchases *table[domain.Purchase]
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	s := &Store{db: db}

	s.users = newTable(db, tableSpec[domain.User]{
		name:    "users",
		columns: []string{"full_name", "email", "password", "role", "created_at"},
		scan: func(row rowScanner) (domain.User, error) {
			var u domain.User
			err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Password, &u.Role, &u.CreatedAt)
			return u, err
		},
		args:  func(u domain.User) []any { return []any{u.FullName, u.Email, u.Password, u.Role, u.CreatedAt} },
		id:    func(u domain.User) int64 { return u.ID },
		setID: func(u *domain.User, id int64) { u.ID = id },
	})

	s.customers = newTable(db, tableSpec[domain.Customer]{
		name:    "customers",
		columns: []string{"name", "email", "phone", "company", "address", "notes", "assigned_sales_rep", "status"},
		scan: func(row rowScanner) (domain.Customer, error) {
			var c domain.Customer
			err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Address, &c.Notes, &c.AssignedSalesRep, &c.Status)
			return c, err
		},
		args: func(c domain.Customer) []any {
			return []any{c.Name, c.Email, c.Phone, c.Company, c.Address, c.Notes, c.AssignedSalesRep, c.Status}
		},
		id:    func(c domain.Customer) int64 { return c.ID },
		setID: func(c *domain.Customer, id int64) { c.ID = id },
	})

	s.leads = newTable(db, tableSpec[domain.Lead]{
		name:    "leads",
		columns: []string{"name", "contact_info", "source", "status", "assigned_sales_rep"},
		scan: func(row rowScanner) (domain.Lead, error) {
			var l domain.Lead
			err := row.Scan(&l.ID, &l.Name, &l.ContactInfo, &l.Source, &l.Status, &l.AssignedSalesRep)
			return l, err
		},
		args: func(l domain.Lead) []any {
			return []any{l.Name, l.ContactInfo, l.Source, l.Status, l.AssignedSalesRep}
		},
		id:    func(l domain.Lead) int64 { return l.ID },
		setID: func(l *domain.Lead, id int64) { l.ID = id },
	})

	s.sales = newTable(db, tableSpec[domain.Sale]{
		name:    "sales",
		columns: []string{"product", "amount", "sale_date", "status", "assigned_sales_rep", "customer_id"},
		scan: func(row rowScanner) (domain.Sale, error) {
			var sale domain.Sale
			err := row.Scan(&sale.ID, &sale.Product, &sale.Amount, &sale.Date, &sale.Status, &sale.AssignedSalesRep, &sale.CustomerID)
			return sale, err
		},
		args: func(sale domain.Sale) []any {
			return []any{sale.Product, sale.Amount, sale.Date, sale.Status, sale.AssignedSalesRep, sale.CustomerID}
		},
		id:    func(sale domain.Sale) int64 { return sale.ID },
		setID: func(sale *domain.Sale, id int64) { sale.ID = id },
	})

	s.purchases = newTable(db, tableSpec[domain.Purchase]{
		name:    "purchases",
		columns: []string{"vendor", "item", "amount", "purchase_date"},
		scan: func(row rowScanner) (domain.Purchase, error) {
			var p domain.Purchase
			err := row.Scan(&p.ID, &p.Vendor, &p.Item, &p.Amount, &p.Date)
			return p, err
		},
		args:  func(p domain.Purchase) []any { return []any{p.Vendor, p.Item, p.Amount, p.Date} },
		id:    func(p domain.Purchase) int64 { return p.ID },
		setID: func(p *domain.Purchase, id int64) { p.ID = id },
	})

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Users() store.Collection[domain.User]         { return s.users }
func (s *Store) Customers() store.Collection[domain.Customer] { return s.customers }
func (s *Store) Leads() store.Collection[domain.Lead]         { return s.leads }
func (s *Store) Sales() store.Collection[domain.Sale]         { return s.sales }
func (s *Store) Purchases() store.Collection[domain.Purchase] { return s.purchases }

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, s.users.selectSQL+" WHERE email = $1", email)
	user, err := s.users.spec.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) SalesTotals(ctx context.Context) (domain.SalesTotals, error) {
	var totals domain.SalesTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM sales
	`).Scan(&totals.Revenue, &totals.Count)
	if err != nil {
		return domain.SalesTotals{}, err
	}
	return totals, nil
}

func (s *Store) PurchasesTotal(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM purchases
	`).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return total, nil
}

// rowScanner covers both *sql.Row and *sql.Rows so a table's scan closure
// serves single-row and multi-row queries alike.
type rowScanner interface {
	Scan(dest ...any) error
}

type tableSpec[T any] struct {
	name    string
	columns []string
	scan    func(row rowScanner) (T, error)
	args    func(rec T) []any
	id      func(rec T) int64
	setID   func(rec *T, id int64)
}

// table is the single relational adapter behind store.Collection. Each record
// kind supplies a tableSpec; list/get/save/delete are implemented once.
type table[T any] struct {
	db   *sql.DB
	spec tableSpec[T]

	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
}

func newTable[T any](db *sql.DB, spec tableSpec[T]) *table[T] {
	cols := strings.Join(spec.columns, ", ")
	placeholders := make([]string, len(spec.columns))
	assignments := make([]string, len(spec.columns))
	for i, col := range spec.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		// $1 is reserved for the id in the UPDATE statement.
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+2)
	}

	return &table[T]{
		db:        db,
		spec:      spec,
		selectSQL: fmt.Sprintf("SELECT id, %s FROM %s", cols, spec.name),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id", spec.name, cols, strings.Join(placeholders, ", ")),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", spec.name, strings.Join(assignments, ", ")),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE id = $1", spec.name),
	}
}

func (t *table[T]) List(ctx context.Context) ([]T, error) {
	rows, err := t.db.QueryContext(ctx, t.selectSQL+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]T, 0, 64)
	for rows.Next() {
		rec, err := t.spec.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (t *table[T]) Get(ctx context.Context, id int64) (*T, error) {
	row := t.db.QueryRowContext(ctx, t.selectSQL+" WHERE id = $1", id)
	rec, err := t.spec.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (t *table[T]) Save(ctx context.Context, rec T) (*T, error) {
	if t.spec.id(rec) == 0 {
		var id int64
		err := t.db.QueryRowContext(ctx, t.insertSQL, t.spec.args(rec)...).Scan(&id)
		if err != nil {
			return nil, mapConstraintError(err)
		}
		t.spec.setID(&rec, id)
		return &rec, nil
	}

	args := append([]any{t.spec.id(rec)}, t.spec.args(rec)...)
	res, err := t.db.ExecContext(ctx, t.updateSQL, args...)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (t *table[T]) Delete(ctx context.Context, id int64) error {
	// Deleting a missing id is a silent no-op, so affected rows are not checked.
	_, err := t.db.ExecContext(ctx, t.deleteSQL, id)
	return err
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return store.ErrDuplicate
		case "23503":
			return store.ErrInvalid
		}
	}
	return err
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			full_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'SALES',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			assigned_sales_rep TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			contact_info TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			assigned_sales_rep TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id BIGSERIAL PRIMARY KEY,
			product TEXT NOT NULL DEFAULT '',
			amount NUMERIC(14,2) NOT NULL DEFAULT 0,
			sale_date DATE,
			status TEXT NOT NULL DEFAULT '',
			assigned_sales_rep TEXT NOT NULL DEFAULT '',
			customer_id BIGINT REFERENCES customers(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS purchases (
			id BIGSERIAL PRIMARY KEY,
			vendor TEXT NOT NULL DEFAULT '',
			item TEXT NOT NULL DEFAULT '',
			amount NUMERIC(14,2) NOT NULL DEFAULT 0,
			purchase_date DATE
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
