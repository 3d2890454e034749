package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts serialize as plain JSON numbers (the API contract), not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	RoleAdmin = "ADMIN"
	RoleSales = "SALES"
)

type User struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Customer struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Company          string `json:"company"`
	Address          string `json:"address"`
	Notes            string `json:"notes"`
	AssignedSalesRep string `json:"assignedSalesRep"`
	Status           string `json:"status"`
}

type Lead struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	ContactInfo      string `json:"contactInfo"`
	Source           string `json:"source"`
	Status           string `json:"status"`
	AssignedSalesRep string `json:"assignedSalesRep"`
}

// Sale.Status is stored as free text; the UI offers Proposal, Negotiation,
// Closed-Won and Closed-Lost but nothing is enforced server-side.
type Sale struct {
	ID               int64           `json:"id"`
	Product          string          `json:"product"`
	Amount           decimal.Decimal `json:"amount"`
	Date             Date            `json:"date"`
	Status           string          `json:"status"`
	AssignedSalesRep string          `json:"assignedSalesRep"`
	CustomerID       *int64          `json:"customerId,omitempty"`
}

type Purchase struct {
	ID     int64           `json:"id"`
	Vendor string          `json:"vendor"`
	Item   string          `json:"item"`
	Amount decimal.Decimal `json:"amount"`
	Date   Date            `json:"date"`
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expiresAt"`
}

// Actor is the authenticated identity extracted from a verified bearer token.
type Actor struct {
	Email string
	Role  string
}

type SalesTotals struct {
	Revenue decimal.Decimal
	Count   int64
}

type DashboardStats struct {
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalSales   int64           `json:"totalSales"`
}

type ProfitReport struct {
	TotalSales     decimal.Decimal `json:"totalSales"`
	TotalPurchases decimal.Decimal `json:"totalPurchases"`
	Profit         decimal.Decimal `json:"profit"`
}
