package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const dashboardCacheKey = "dashboard:stats"

// JSONCache stores values as JSON under a key for a limited time
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardStats is the overview shown on the admin home page
type DashboardStats struct {
	Products          int64            `json:"products"`
	Clients           int64            `json:"clients"`
	Drivers           int64            `json:"drivers"`
	AvailableDrivers  int64            `json:"available_drivers"`
	Orders            int64            `json:"orders"`
	OrdersByStatus    map[string]int64 `json:"orders_by_status"`
	CompletedRevenue  decimal.Decimal  `json:"completed_revenue"`
	PendingPayments   decimal.Decimal  `json:"pending_payments"`
	PaidBalances      decimal.Decimal  `json:"paid_balances"`
	UpcomingScheduled int64            `json:"upcoming_scheduled"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// DashboardService aggregates counts and totals across the tables
type DashboardService struct {
	db    *gorm.DB
	cache JSONCache
	ttl   time.Duration
	now   func() time.Time
}

// NewDashboardService creates the service. cache may be nil.
func NewDashboardService(db *gorm.DB, cache JSONCache, ttl time.Duration) *DashboardService {
	return &DashboardService{db: db, cache: cache, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Stats returns cached stats when fresh and recomputes them otherwise
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil {
		var cached DashboardStats
		hit, err := s.cache.GetJSON(ctx, dashboardCacheKey, &cached)
		if err != nil {
			slog.Warn("dashboard cache read failed", slog.Any("error", err))
		} else if hit {
			return &cached, nil
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetJSON(ctx, dashboardCacheKey, stats, s.ttl); err != nil {
			slog.Warn("dashboard cache write failed", slog.Any("error", err))
		}
	}
	return stats, nil
}

func (s *DashboardService) compute(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{OrdersByStatus: map[string]int64{}, GeneratedAt: s.now()}
	now := s.now()

	g, gctx := errgroup.WithContext(ctx)
	count := func(dest *int64, model interface{}, where ...interface{}) {
		g.Go(func() error {
			q := s.db.WithContext(gctx).Model(model)
			if len(where) > 0 {
				q = q.Where(where[0], where[1:]...)
			}
			return q.Count(dest).Error
		})
	}
	sum := func(dest *decimal.Decimal, model interface{}, column string, where ...interface{}) {
		g.Go(func() error {
			q := s.db.WithContext(gctx).Model(model).Select("COALESCE(SUM(" + column + "), 0)")
			if len(where) > 0 {
				q = q.Where(where[0], where[1:]...)
			}
			return q.Row().Scan(dest)
		})
	}

	count(&stats.Products, &models.Product{})
	count(&stats.Clients, &models.Client{})
	count(&stats.Drivers, &models.Driver{})
	count(&stats.AvailableDrivers, &models.Driver{}, "status = ?", models.DriverAvailable)
	count(&stats.Orders, &models.Order{})
	count(&stats.UpcomingScheduled, &models.ScheduledOrder{}, "status = ? AND scheduled_datetime > ?", models.ScheduledStatusScheduled, now)
	sum(&stats.CompletedRevenue, &models.Order{}, "total_amount", "status = ?", models.OrderCompleted)
	sum(&stats.PendingPayments, &models.DriverPayment{}, "pending_amount")
	sum(&stats.PaidBalances, &models.DriverPayment{}, "paid_amount")

	var byStatus []struct {
		Status string
		Count  int64
	}
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Order{}).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&byStatus).Error
	})

	if err := g.Wait(); err != nil {
		return nil, remote("compute dashboard stats", err)
	}
	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}
	return stats, nil
}
