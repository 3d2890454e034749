package service

import (
	"context"

	"go.uber.org/zap"

	"crmlite/backend/internal/domain"
	"crmlite/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service fronts the repository for the HTTP layer. Record operations are
// pure delegation; the store performs any required checking. Reporting is the
// only computation here.
type Service struct {
	repo   store.Repository
	logger *zap.Logger
}

func New(repo store.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.UserByEmail(ctx, email)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.Customers().List(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.Customers().Get(ctx, id)
}

func (s *Service) SaveCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	saved, err := s.repo.Customers().Save(ctx, customer)
	if err != nil {
		return nil, err
	}
	s.logger.Info("customer saved", zap.Int64("id", saved.ID))
	return saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	if err := s.repo.Customers().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("customer deleted", zap.Int64("id", id))
	return nil
}

func (s *Service) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	return s.repo.Leads().List(ctx)
}

func (s *Service) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	return s.repo.Leads().Get(ctx, id)
}

func (s *Service) SaveLead(ctx context.Context, lead domain.Lead) (*domain.Lead, error) {
	saved, err := s.repo.Leads().Save(ctx, lead)
	if err != nil {
		return nil, err
	}
	s.logger.Info("lead saved", zap.Int64("id", saved.ID))
	return saved, nil
}

func (s *Service) DeleteLead(ctx context.Context, id int64) error {
	if err := s.repo.Leads().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("lead deleted", zap.Int64("id", id))
	return nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.Sales().List(ctx)
}

func (s *Service) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.repo.Sales().Get(ctx, id)
}

func (s *Service) SaveSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	saved, err := s.repo.Sales().Save(ctx, sale)
	if err != nil {
		return nil, err
	}
	s.logger.Info("sale saved", zap.Int64("id", saved.ID), zap.String("status", saved.Status))
	return saved, nil
}

func (s *Service) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	return s.repo.Purchases().List(ctx)
}

func (s *Service) SavePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	saved, err := s.repo.Purchases().Save(ctx, purchase)
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase saved", zap.Int64("id", saved.ID))
	return saved, nil
}

// DashboardStats recomputes the dashboard aggregates on every call. The store
// coalesces empty sums to zero, so an empty store reports 0 revenue, 0 sales.
func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	totals, err := s.repo.SalesTotals(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return domain.DashboardStats{
		TotalRevenue: totals.Revenue,
		TotalSales:   totals.Count,
	}, nil
}

// ProfitReport is profit = total sales - total purchases, which may be
// negative. No caching; both sums come fresh from the store.
func (s *Service) ProfitReport(ctx context.Context) (domain.ProfitReport, error) {
	salesTotals, err := s.repo.SalesTotals(ctx)
	if err != nil {
		return domain.ProfitReport{}, err
	}
	purchases, err := s.repo.PurchasesTotal(ctx)
	if err != nil {
		return domain.ProfitReport{}, err
	}
	return domain.ProfitReport{
		TotalSales:     salesTotals.Revenue,
		TotalPurchases: purchases,
		Profit:         salesTotals.Revenue.Sub(purchases),
	}, nil
}
