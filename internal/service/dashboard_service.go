package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/asmil/asmil-api/internal/dto"
	"github.com/asmil/asmil-api/internal/finance"
	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/pkg/cache"
)

type overviewProvider interface {
	Overview(ctx context.Context, now time.Time) (*finance.Overview, bool, error)
}

type studentCounter interface {
	CountByStatus(ctx context.Context) (map[models.StudentStatus]int, error)
}

type enrollmentCounter interface {
	CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error)
}

type attendanceReader interface {
	ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
}

type recentPayments interface {
	Recent(ctx context.Context, limit int) ([]models.PaymentDetail, error)
}

type announcementReader interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
}

type userCounter interface {
	Count(ctx context.Context) (int, error)
}

type sessionReader interface {
	ListAll(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL            time.Duration
	RecentPaymentsLimit int
	AnnouncementsLimit  int
	Location            *time.Location
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Finance       overviewProvider
	Students      studentCounter
	Enrollments   enrollmentCounter
	Attendance    attendanceReader
	Payments      recentPayments
	Announcements announcementReader
	Users         userCounter
	Sessions      sessionReader
	Cache         *CacheService
	Metrics       *MetricsService
	Logger        *zap.Logger
	Config        DashboardServiceConfig
}

// DashboardService composes the admin and secretary dashboards.
type DashboardService struct {
	finance       overviewProvider
	students      studentCounter
	enrollments   enrollmentCounter
	attendance    attendanceReader
	payments      recentPayments
	announcements announcementReader
	users         userCounter
	sessions      sessionReader
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
	cfg           DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if cfg.RecentPaymentsLimit <= 0 {
		cfg.RecentPaymentsLimit = 5
	}
	if cfg.AnnouncementsLimit <= 0 {
		cfg.AnnouncementsLimit = 5
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		finance:       params.Finance,
		students:      params.Students,
		enrollments:   params.Enrollments,
		attendance:    params.Attendance,
		payments:      params.Payments,
		announcements: params.Announcements,
		users:         params.Users,
		sessions:      params.Sessions,
		cache:         params.Cache,
		metrics:       params.Metrics,
		logger:        logger,
		cfg:           cfg,
	}
}

func dashboardKey(role models.UserRole, now time.Time) string {
	return cache.Key(dashboardCachePrefix, string(role), now.Format("2006-01-02"))
}

// Admin returns the admin dashboard and whether it came from cache.
func (s *DashboardService) Admin(ctx context.Context, now time.Time) (*dto.AdminDashboardResponse, bool, error) {
	now = now.In(s.cfg.Location)
	key := dashboardKey(models.RoleAdmin, now)

	var cached dto.AdminDashboardResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	summary, err := s.composeAdmin(ctx, now)
	if err != nil {
		return nil, false, err
	}
	s.metrics.ObserveAggregate("dashboard_admin", time.Since(start))
	s.persistCache(ctx, key, summary)
	return summary, false, nil
}

// Secretary returns the Gestionnaire dashboard and whether it came from cache.
func (s *DashboardService) Secretary(ctx context.Context, now time.Time) (*dto.SecretaryDashboardResponse, bool, error) {
	now = now.In(s.cfg.Location)
	key := dashboardKey(models.RoleGestionnaire, now)

	var cached dto.SecretaryDashboardResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	summary, err := s.composeSecretary(ctx, now)
	if err != nil {
		return nil, false, err
	}
	s.metrics.ObserveAggregate("dashboard_secretary", time.Since(start))
	s.persistCache(ctx, key, summary)
	return summary, false, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) activeAnnouncements(ctx context.Context, now time.Time) ([]models.Announcement, error) {
	items, _, err := s.announcements.List(ctx, models.AnnouncementFilter{ActiveOnly: true, At: now, Page: 1, PageSize: s.cfg.AnnouncementsLimit})
	return items, err
}

func (s *DashboardService) composeAdmin(ctx context.Context, now time.Time) (*dto.AdminDashboardResponse, error) {
	summary := &dto.AdminDashboardResponse{Date: now.Format("2006-01-02")}
	month := finance.MonthRange(now)

	var (
		overview    *finance.Overview
		studentsBy  map[models.StudentStatus]int
		enrollBy    map[models.EnrollmentStatus]int
		attendances []models.Attendance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		overview, _, err = s.finance.Overview(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		studentsBy, err = s.students.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		enrollBy, err = s.enrollments.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		attendances, err = s.attendance.ListAll(gctx, models.AttendanceFilter{From: &month.Start, To: &month.End})
		return err
	})
	g.Go(func() (err error) {
		summary.RecentPayments, err = s.payments.Recent(gctx, s.cfg.RecentPaymentsLimit)
		return err
	})
	g.Go(func() (err error) {
		summary.Announcements, err = s.activeAnnouncements(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		summary.UserCount, err = s.users.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, internalError(err, "failed to build admin dashboard")
	}

	total := 0
	for _, n := range studentsBy {
		total += n
	}
	summary.Students = dto.StudentCounts{Total: total, ByStatus: studentsBy}
	summary.ActiveEnrollments = enrollBy[models.EnrollmentStatusActive]
	summary.AttendanceRate = finance.AttendanceRate(attendances)
	summary.Finance = dto.FinanceSnapshot{
		Totals:               overview.Totals,
		CollectionRate:       overview.CollectionRate,
		CurrentMonthRevenue:  overview.CurrentMonthRevenue,
		RevenueTrend:         overview.RevenueTrend,
		TrendBaselineMissing: overview.TrendBaselineMissing,
		ForecastNextMonth:    overview.ForecastNextMonth,
		RevenueByMonth:       overview.RevenueByMonth,
		RevenueByFormation:   overview.RevenueByFormation,
	}
	return summary, nil
}

func (s *DashboardService) composeSecretary(ctx context.Context, now time.Time) (*dto.SecretaryDashboardResponse, error) {
	summary := &dto.SecretaryDashboardResponse{Date: now.Format("2006-01-02")}
	today := finance.DayRange(now)

	var (
		overview    *finance.Overview
		sessions    []models.SessionDetail
		attendances []models.Attendance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		overview, _, err = s.finance.Overview(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		sessions, err = s.sessions.ListAll(gctx, models.SessionFilter{Statuses: []models.SessionStatus{models.SessionStatusRunning, models.SessionStatusUpcoming}})
		return err
	})
	g.Go(func() (err error) {
		attendances, err = s.attendance.ListAll(gctx, models.AttendanceFilter{Date: &today.Start})
		return err
	})
	g.Go(func() (err error) {
		summary.Announcements, err = s.activeAnnouncements(gctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, internalError(err, "failed to build secretary dashboard")
	}

	summary.TodaySessions = TodaySessions(sessions, now)
	summary.UnpaidInvoices = overview.UnpaidInvoices
	summary.MonthPayments = dto.PaymentTally{Total: overview.CurrentMonthRevenue}
	if n := len(overview.RevenueByMonth); n > 0 {
		summary.MonthPayments.Count = overview.RevenueByMonth[n-1].Count
	}
	summary.AttendanceRateToday = finance.AttendanceRate(attendances)
	return summary, nil
}

// TodaySessions keeps the slots held on now's weekday by sessions whose date range covers now,
// sorted by start time.
func TodaySessions(sessions []models.SessionDetail, now time.Time) []dto.SessionSlot {
	day := models.DayName(now)
	date := now.Format("2006-01-02")
	out := make([]dto.SessionSlot, 0)
	for _, session := range sessions {
		if session.StartDate.Format("2006-01-02") > date || session.EndDate.Format("2006-01-02") < date {
			continue
		}
		for _, slot := range session.Schedule {
			if slot.Day != day {
				continue
			}
			out = append(out, dto.SessionSlot{
				SessionID:      session.ID,
				ModuleTitle:    session.ModuleTitle,
				FormationTitle: session.FormationTitle,
				TeacherName:    session.TeacherName,
				Room:           session.Room,
				StartTime:      slot.StartTime,
				EndTime:        slot.EndTime,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}
