package service

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/asmil/asmil-api/internal/finance"
	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/pkg/cache"
	"github.com/asmil/asmil-api/pkg/export"
)

type invoiceSource interface {
	All(ctx context.Context) ([]models.Invoice, error)
}

type paymentSource interface {
	All(ctx context.Context) ([]models.Payment, error)
}

type enrollmentSource interface {
	All(ctx context.Context) ([]models.Enrollment, error)
}

type studentSource interface {
	All(ctx context.Context) ([]models.Student, error)
}

type formationSource interface {
	All(ctx context.Context) ([]models.Formation, error)
}

// FinanceConfig tunes the finance aggregates.
type FinanceConfig struct {
	CacheTTL time.Duration
	Options  finance.Options
	Location *time.Location
}

// InvoiceStats is the compact payload of GET /invoices/stats.
type InvoiceStats struct {
	Totals               finance.Totals  `json:"totals"`
	CollectionRate       decimal.Decimal `json:"collection_rate"`
	CurrentMonthRevenue  decimal.Decimal `json:"current_month_revenue"`
	PreviousMonthRevenue decimal.Decimal `json:"previous_month_revenue"`
	RevenueTrend         decimal.Decimal `json:"revenue_trend"`
	TrendBaselineMissing bool            `json:"trend_baseline_missing"`
	ForecastNextMonth    decimal.Decimal `json:"forecast_next_month"`
}

// FinanceService loads the finance dataset and serves cached overviews.
type FinanceService struct {
	invoices    invoiceSource
	payments    paymentSource
	enrollments enrollmentSource
	students    studentSource
	formations  formationSource
	cache       *CacheService
	metrics     *MetricsService
	exporter    *ExportService
	cfg         FinanceConfig
	logger      *zap.Logger
}

// NewFinanceService constructs a FinanceService.
func NewFinanceService(
	invoices invoiceSource,
	payments paymentSource,
	enrollments enrollmentSource,
	students studentSource,
	formations formationSource,
	cache *CacheService,
	metrics *MetricsService,
	exporter *ExportService,
	cfg FinanceConfig,
	logger *zap.Logger,
) *FinanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if exporter == nil {
		exporter = NewExportService("ASMiL", logger)
	}
	return &FinanceService{
		invoices:    invoices,
		payments:    payments,
		enrollments: enrollments,
		students:    students,
		formations:  formations,
		cache:       cache,
		metrics:     metrics,
		exporter:    exporter,
		cfg:         cfg,
		logger:      logger,
	}
}

// LoadDataset fetches the five finance tables concurrently.
func (s *FinanceService) LoadDataset(ctx context.Context) (finance.Dataset, error) {
	var data finance.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Invoices, err = s.invoices.All(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Payments, err = s.payments.All(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Enrollments, err = s.enrollments.All(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Students, err = s.students.All(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Formations, err = s.formations.All(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return finance.Dataset{}, internalError(err, "failed to load finance data")
	}
	return data, nil
}

func (s *FinanceService) overviewKey(now time.Time) string {
	return cache.Key(financeCachePrefix, "overview", now.Format("2006-01-02"))
}

// Overview returns the finance overview at now. The boolean reports a cache hit.
func (s *FinanceService) Overview(ctx context.Context, now time.Time) (*finance.Overview, bool, error) {
	now = now.In(s.cfg.Location)
	key := s.overviewKey(now)

	var cached finance.Overview
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	data, err := s.LoadDataset(ctx)
	if err != nil {
		return nil, false, err
	}
	overview := finance.BuildOverview(data, now, s.cfg.Options)
	s.metrics.ObserveAggregate("finance_overview", time.Since(start))

	_ = s.cache.Set(ctx, key, overview, s.cfg.CacheTTL)
	return &overview, false, nil
}

// Stats returns the invoice statistics shown above the invoice table.
func (s *FinanceService) Stats(ctx context.Context, now time.Time) (*InvoiceStats, bool, error) {
	overview, hit, err := s.Overview(ctx, now)
	if err != nil {
		return nil, false, err
	}
	return &InvoiceStats{
		Totals:               overview.Totals,
		CollectionRate:       overview.CollectionRate,
		CurrentMonthRevenue:  overview.CurrentMonthRevenue,
		PreviousMonthRevenue: overview.PreviousMonthRevenue,
		RevenueTrend:         overview.RevenueTrend,
		TrendBaselineMissing: overview.TrendBaselineMissing,
		ForecastNextMonth:    overview.ForecastNextMonth,
	}, hit, nil
}

// Export renders the overview at now in format.
func (s *FinanceService) Export(ctx context.Context, now time.Time, format ExportFormat) (*ExportFile, error) {
	overview, _, err := s.Overview(ctx, now)
	if err != nil {
		return nil, err
	}
	return s.exporter.Render(format, "rapport_financier", OverviewDataset(*overview), now.In(s.cfg.Location))
}

// OverviewDataset lays out an overview as a summary block plus the monthly revenue table.
func OverviewDataset(o finance.Overview) export.Dataset {
	summary := [][2]string{
		{"Date de référence", o.ReferenceDate},
		{"Total facturé", formatAmount(o.Totals.Billed)},
		{"Total encaissé", formatAmount(o.Totals.Collected)},
		{"Reste à encaisser", formatAmount(o.Totals.Outstanding)},
		{"Taux de recouvrement (%)", o.CollectionRate.String()},
		{"Factures impayées", strconv.Itoa(o.Totals.UnpaidCount)},
		{"Factures en retard", strconv.Itoa(o.Totals.OverdueCount)},
		{"Revenus du mois", formatAmount(o.CurrentMonthRevenue)},
		{"Revenus du mois précédent", formatAmount(o.PreviousMonthRevenue)},
		{"Tendance (%)", o.RevenueTrend.String()},
		{"Prévision mois prochain", formatAmount(o.ForecastNextMonth)},
	}
	for _, f := range o.RevenueByFormation {
		summary = append(summary, [2]string{"Formation : " + f.Label, formatAmount(f.Total)})
	}
	for _, m := range o.MethodBreakdown {
		summary = append(summary, [2]string{"Mode : " + string(m.Method), formatAmount(m.Total)})
	}

	rows := make([]map[string]string, 0, len(o.RevenueByMonth))
	for _, b := range o.RevenueByMonth {
		rows = append(rows, map[string]string{
			"Mois":      b.Label,
			"Revenus":   formatAmount(b.Total),
			"Paiements": strconv.Itoa(b.Count),
		})
	}
	return export.Dataset{
		Title:   "Rapport financier",
		Summary: summary,
		Headers: []string{"Mois", "Revenus", "Paiements"},
		Rows:    rows,
	}
}

func formatAmount(d decimal.Decimal) string {
	return d.Round(2).String()
}
