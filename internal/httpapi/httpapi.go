package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crmlite/backend/internal/domain"
	"crmlite/backend/internal/service"
	"crmlite/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        *zap.Logger
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		logger:        logger,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/register", a.handleRegister)
	mux.HandleFunc("/api/login", a.handleLogin)

	mux.HandleFunc("/api/users/me", a.requireAuth(a.handleMe, domain.RoleAdmin, domain.RoleSales))

	mux.HandleFunc("/api/customers", a.requireAuth(a.handleCustomers, domain.RoleAdmin, domain.RoleSales))
	mux.HandleFunc("/api/customers/", a.requireAuth(a.handleCustomerByID, domain.RoleAdmin, domain.RoleSales))
	mux.HandleFunc("/api/leads", a.requireAuth(a.handleLeads, domain.RoleAdmin, domain.RoleSales))
	mux.HandleFunc("/api/leads/", a.requireAuth(a.handleLeadByID, domain.RoleAdmin, domain.RoleSales))

	// The sales resource family is admin-only; the role comes from the
	// verified token claims inside requireAuth.
	mux.HandleFunc("/api/sales", a.requireAuth(a.handleSales, domain.RoleAdmin))
	mux.HandleFunc("/api/sales/", a.requireAuth(a.handleSaleByID, domain.RoleAdmin))

	mux.HandleFunc("/api/purchases", a.requireAuth(a.handlePurchases, domain.RoleAdmin, domain.RoleSales))

	mux.HandleFunc("/api/dashboard", a.requireAuth(a.handleDashboard, domain.RoleAdmin, domain.RoleSales))
	mux.HandleFunc("/api/reports/profit", a.requireAuth(a.handleProfitReport, domain.RoleAdmin, domain.RoleSales))

	return a.withMiddleware(mux)
}

// requireAuth rejects requests without a valid bearer token before any
// handler runs, and enforces the allowed roles for the route.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.auth.Register(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrDuplicate) {
			status = http.StatusConflict
			err = errors.New("email already registered")
		}
		a.writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	actor, ok := service.ActorFromContext(r.Context())
	if !ok {
		a.writeError(w, http.StatusUnauthorized, errors.New("missing actor"))
		return
	}

	user, err := a.service.UserByEmail(r.Context(), actor.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.writeError(w, http.StatusNotFound, errors.New("user no longer exists"))
			return
		}
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customers, err := a.service.ListCustomers(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, customers)
	case http.MethodPost:
		var customer domain.Customer
		if err := decodeJSON(r, &customer); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		// Ids are assigned by the store; a body-supplied id is ignored.
		customer.ID = 0

		created, err := a.service.SaveCustomer(r.Context(), customer)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomerByID(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "/api/customers/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		customer, err := a.service.GetCustomer(r.Context(), id)
		if err != nil {
			a.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)
	case http.MethodPut:
		var customer domain.Customer
		if err := decodeJSON(r, &customer); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		// Full overwrite under the path id, never the body id.
		customer.ID = id

		updated, err := a.service.SaveCustomer(r.Context(), customer)
		if err != nil {
			a.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := a.service.DeleteCustomer(r.Context(), id); err != nil {
			a.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleLeads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		leads, err := a.service.ListLeads(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, leads)
	case http.MethodPost:
		var lead domain.Lead
		if err := decodeJSON(r, &lead); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		lead.ID = 0

		created, err := a.service.SaveLead(r.Context(), lead)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleLeadByID(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "/api/leads/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		lead, err := a.service.GetLead(r.Context(), id)
		if err != nil {
			a.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lead)
	case http.MethodPut:
		var lead domain.Lead
		if err := decodeJSON(r, &lead); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		lead.ID = id

		updated, err := a.service.SaveLead(r.Context(), lead)
		if err != nil {
			a.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := a.service.DeleteLead(r.Context(), id); err != nil {
			a.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sales, err := a.service.ListSales(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, sales)
	case http.MethodPost:
		var sale domain.Sale
		if err := decodeJSON(r, &sale); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		sale.ID = 0

		created, err := a.service.SaveSale(r.Context(), sale)
		if err != nil {
			a.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleByID(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "/api/sales/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		sale, err := a.service.GetSale(r.Context(), id)
		if err != nil {
			a.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	case http.MethodPut:
		var sale domain.Sale
		if err := decodeJSON(r, &sale); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		sale.ID = id

		updated, err := a.service.SaveSale(r.Context(), sale)
		if err != nil {
			a.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		// Sales expose no delete.
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handlePurchases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		purchases, err := a.service.ListPurchases(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, purchases)
	case http.MethodPost:
		var purchase domain.Purchase
		if err := decodeJSON(r, &purchase); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		purchase.ID = 0

		created, err := a.service.SavePurchase(r.Context(), purchase)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	stats, err := a.service.DashboardStats(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleProfitReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	report, err := a.service.ProfitReport(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// pathID parses the numeric id trailing the given prefix. On failure it
// writes a 400 response and reports false.
func (a *API) pathID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("record id required"))
		return 0, false
	}
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil || id < 1 {
		a.writeError(w, http.StatusBadRequest, errors.New("invalid record id"))
		return 0, false
	}
	return id, true
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(startedAt)),
		)
	})
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// writeStoreError maps repository sentinel errors onto HTTP statuses.
func (a *API) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		a.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInvalid):
		a.writeError(w, http.StatusBadRequest, errors.New("referenced record does not exist"))
	case errors.Is(err, store.ErrDuplicate):
		a.writeError(w, http.StatusConflict, err)
	default:
		a.writeError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic so internal details (SQL errors, paths) are
	// only logged, never returned.
	msg := err.Error()
	if status >= 500 {
		a.logger.Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
