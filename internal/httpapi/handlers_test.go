package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"crmlite/backend/internal/domain"
	"crmlite/backend/internal/service"
	"crmlite/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path. The
// seeded store carries an ADMIN and a SALES account.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, zaptest.NewLogger(t))
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*", zaptest.NewLogger(t))
}

func loginAs(t *testing.T, api *API, email, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	// A distinct address per login keeps the limiter out of functional tests.
	req.RemoteAddr = fmt.Sprintf("192.0.2.%d:1234", time.Now().UnixNano()%250+1)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("login as %s failed, status %d (body: %s)", email, res.Code, res.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.Token) == "" {
		t.Fatalf("expected token in login response")
	}
	return payload.Token
}

func doJSON(t *testing.T, api *API, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	res := doJSON(t, api, http.MethodGet, "/healthz", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	api := newTestAPI(t)

	res := doJSON(t, api, http.MethodPost, "/api/register", "", domain.RegisterRequest{
		FullName: "New Rep",
		Email:    "rep@example.com",
		Password: "secret123",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	var created map[string]any
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if created["id"] == nil || created["id"] == float64(0) {
		t.Fatalf("expected assigned id, got %v", created["id"])
	}
	if _, leaked := created["password"]; leaked {
		t.Fatalf("register response leaks password field")
	}

	token := loginAs(t, api, "rep@example.com", "secret123")
	if token == "" {
		t.Fatalf("expected token for fresh registration")
	}

	// Duplicate registration conflicts.
	res = doJSON(t, api, http.MethodPost, "/api/register", "", domain.RegisterRequest{
		Email:    "rep@example.com",
		Password: "secret456",
	})
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", res.Code)
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	res := doJSON(t, api, http.MethodPost, "/api/login", "", domain.LoginRequest{
		Email:    "admin@crm.local",
		Password: "wrongpassword",
	})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", res.Code, res.Body.String())
	}
}

func TestHandleMe(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "sales@crm.local", "sales123")

	res := doJSON(t, api, http.MethodGet, "/api/users/me", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	var me domain.User
	if err := json.NewDecoder(res.Body).Decode(&me); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if me.Email != "sales@crm.local" {
		t.Fatalf("expected sales@crm.local, got %q", me.Email)
	}
}

func TestCustomerCRUD(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "sales@crm.local", "sales123")

	res := doJSON(t, api, http.MethodPost, "/api/customers", token, domain.Customer{
		Name:    "Acme Corp",
		Email:   "contact@acme.test",
		Phone:   "555-0100",
		Company: "Acme",
		Status:  "Active",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	var created domain.Customer
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode created customer: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected assigned id")
	}

	res = doJSON(t, api, http.MethodGet, "/api/customers", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", res.Code)
	}
	var listed []domain.Customer
	if err := json.NewDecoder(res.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(listed))
	}

	// A PUT fully overwrites and takes its identity from the path, not the body.
	update := created
	update.ID = 9999
	update.Name = "Acme Corp Intl"
	update.Notes = "renewed"
	res = doJSON(t, api, http.MethodPut, fmt.Sprintf("/api/customers/%d", created.ID), token, update)
	if res.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
	var updated domain.Customer
	if err := json.NewDecoder(res.Body).Decode(&updated); err != nil {
		t.Fatalf("decode updated customer: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("expected path id %d to win, got %d", created.ID, updated.ID)
	}
	if updated.Name != "Acme Corp Intl" || updated.Notes != "renewed" {
		t.Fatalf("expected overwrite to apply, got %+v", updated)
	}

	res = doJSON(t, api, http.MethodDelete, fmt.Sprintf("/api/customers/%d", created.ID), token, nil)
	if res.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", res.Code)
	}

	res = doJSON(t, api, http.MethodGet, fmt.Sprintf("/api/customers/%d", created.ID), token, nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", res.Code)
	}

	// Deleting again is a silent no-op.
	res = doJSON(t, api, http.MethodDelete, fmt.Sprintf("/api/customers/%d", created.ID), token, nil)
	if res.Code != http.StatusNoContent {
		t.Fatalf("repeat delete: expected 204, got %d", res.Code)
	}
}

func TestLeadCreateAndList(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "sales@crm.local", "sales123")

	res := doJSON(t, api, http.MethodPost, "/api/leads", token, domain.Lead{
		Name:        "Prospect One",
		ContactInfo: "prospect@one.test",
		Source:      "Web",
		Status:      "New",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = doJSON(t, api, http.MethodGet, "/api/leads", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var leads []domain.Lead
	if err := json.NewDecoder(res.Body).Decode(&leads); err != nil {
		t.Fatalf("decode leads: %v", err)
	}
	if len(leads) != 1 || leads[0].Name != "Prospect One" {
		t.Fatalf("unexpected leads list: %+v", leads)
	}
}

func TestSalesAdminFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin@crm.local", "admin123")

	res := doJSON(t, api, http.MethodPost, "/api/customers", admin, domain.Customer{Name: "Ref Co"})
	if res.Code != http.StatusCreated {
		t.Fatalf("create customer: expected 201, got %d", res.Code)
	}
	var customer domain.Customer
	if err := json.NewDecoder(res.Body).Decode(&customer); err != nil {
		t.Fatalf("decode customer: %v", err)
	}

	res = doJSON(t, api, http.MethodPost, "/api/sales", admin, map[string]any{
		"product":          "CRM License",
		"amount":           1000,
		"date":             "2026-08-01",
		"status":           "Proposal",
		"assignedSalesRep": "Ana",
		"customerId":       customer.ID,
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create sale: expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	var sale domain.Sale
	if err := json.NewDecoder(res.Body).Decode(&sale); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if sale.ID == 0 || sale.CustomerID == nil || *sale.CustomerID != customer.ID {
		t.Fatalf("unexpected sale: %+v", sale)
	}
	if !sale.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected amount 1000, got %s", sale.Amount)
	}

	sale.Status = "Closed-Won"
	res = doJSON(t, api, http.MethodPut, fmt.Sprintf("/api/sales/%d", sale.ID), admin, sale)
	if res.Code != http.StatusOK {
		t.Fatalf("update sale: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = doJSON(t, api, http.MethodGet, fmt.Sprintf("/api/sales/%d", sale.ID), admin, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("get sale: expected 200, got %d", res.Code)
	}
	var fetched domain.Sale
	if err := json.NewDecoder(res.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode fetched sale: %v", err)
	}
	if fetched.Status != "Closed-Won" {
		t.Fatalf("expected overwrite to apply, got %+v", fetched)
	}

	// Sales expose no delete.
	res = doJSON(t, api, http.MethodDelete, fmt.Sprintf("/api/sales/%d", sale.ID), admin, nil)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("delete sale: expected 405, got %d", res.Code)
	}
}

func TestSaleReferencingMissingCustomerRejected(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin@crm.local", "admin123")

	res := doJSON(t, api, http.MethodPost, "/api/sales", admin, map[string]any{
		"product":    "Ghost Deal",
		"amount":     50,
		"customerId": 424242,
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing customer reference, got %d (body: %s)", res.Code, res.Body.String())
	}
}

func TestPurchasesCreateAndList(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "sales@crm.local", "sales123")

	res := doJSON(t, api, http.MethodPost, "/api/purchases", token, map[string]any{
		"vendor": "Paper Co",
		"item":   "Printer paper",
		"amount": 400,
		"date":   "2026-08-02",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = doJSON(t, api, http.MethodGet, "/api/purchases", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var purchases []domain.Purchase
	if err := json.NewDecoder(res.Body).Decode(&purchases); err != nil {
		t.Fatalf("decode purchases: %v", err)
	}
	if len(purchases) != 1 || purchases[0].Vendor != "Paper Co" {
		t.Fatalf("unexpected purchases list: %+v", purchases)
	}
}

func TestDashboardEmptyStoreReportsZero(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "sales@crm.local", "sales123")

	res := doJSON(t, api, http.MethodGet, "/api/dashboard", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var stats domain.DashboardStats
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if !stats.TotalRevenue.IsZero() {
		t.Fatalf("expected totalRevenue 0 on empty store, got %s", stats.TotalRevenue)
	}
	if stats.TotalSales != 0 {
		t.Fatalf("expected totalSales 0 on empty store, got %d", stats.TotalSales)
	}
}

func TestProfitReportComputation(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin@crm.local", "admin123")

	for _, amount := range []int{600, 400} {
		res := doJSON(t, api, http.MethodPost, "/api/sales", admin, map[string]any{
			"product": "Deal",
			"amount":  amount,
			"status":  "Closed-Won",
		})
		if res.Code != http.StatusCreated {
			t.Fatalf("create sale: expected 201, got %d", res.Code)
		}
	}

	// Profit equals total sales while no purchases are recorded.
	res := doJSON(t, api, http.MethodGet, "/api/reports/profit", admin, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var report domain.ProfitReport
	if err := json.NewDecoder(res.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Profit.Equal(report.TotalSales) {
		t.Fatalf("expected profit == totalSales without purchases, got %s vs %s", report.Profit, report.TotalSales)
	}

	res = doJSON(t, api, http.MethodPost, "/api/purchases", admin, map[string]any{
		"vendor": "Vendor",
		"item":   "Supplies",
		"amount": 400,
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create purchase: expected 201, got %d", res.Code)
	}

	res = doJSON(t, api, http.MethodGet, "/api/reports/profit", admin, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if err := json.NewDecoder(res.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.TotalSales.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected totalSales 1000, got %s", report.TotalSales)
	}
	if !report.TotalPurchases.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected totalPurchases 400, got %s", report.TotalPurchases)
	}
	if !report.Profit.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expected profit 600, got %s", report.Profit)
	}
}
