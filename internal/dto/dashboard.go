package dto

import (
	"github.com/shopspring/decimal"

	"github.com/asmil/asmil-api/internal/finance"
	"github.com/asmil/asmil-api/internal/models"
)

// AdminDashboardResponse captures the aggregated admin dashboard payload.
type AdminDashboardResponse struct {
	Date              string                 `json:"date"`
	Students          StudentCounts          `json:"students"`
	ActiveEnrollments int                    `json:"active_enrollments"`
	Finance           FinanceSnapshot        `json:"finance"`
	AttendanceRate    decimal.Decimal        `json:"attendance_rate"`
	RecentPayments    []models.PaymentDetail `json:"recent_payments"`
	Announcements     []models.Announcement  `json:"announcements"`
	UserCount         int                    `json:"user_count"`
}

// StudentCounts breaks the student body down by status.
type StudentCounts struct {
	Total    int                          `json:"total"`
	ByStatus map[models.StudentStatus]int `json:"by_status"`
}

// FinanceSnapshot is the subset of the finance overview shown on the admin dashboard.
type FinanceSnapshot struct {
	Totals               finance.Totals          `json:"totals"`
	CollectionRate       decimal.Decimal         `json:"collection_rate"`
	CurrentMonthRevenue  decimal.Decimal         `json:"current_month_revenue"`
	RevenueTrend         decimal.Decimal         `json:"revenue_trend"`
	TrendBaselineMissing bool                    `json:"trend_baseline_missing"`
	ForecastNextMonth    decimal.Decimal         `json:"forecast_next_month"`
	RevenueByMonth       []finance.MonthBucket   `json:"revenue_by_month"`
	RevenueByFormation   []finance.CategoryTotal `json:"revenue_by_formation"`
}

// SecretaryDashboardResponse is the day-to-day view of the Gestionnaire role.
type SecretaryDashboardResponse struct {
	Date                string                  `json:"date"`
	TodaySessions       []SessionSlot           `json:"today_sessions"`
	UnpaidInvoices      []finance.UnpaidInvoice `json:"unpaid_invoices"`
	MonthPayments       PaymentTally            `json:"month_payments"`
	AttendanceRateToday decimal.Decimal         `json:"attendance_rate_today"`
	Announcements       []models.Announcement   `json:"announcements"`
}

// SessionSlot is one weekly slot of a session with its labels.
type SessionSlot struct {
	SessionID      string  `json:"session_id"`
	ModuleTitle    string  `json:"module_title"`
	FormationTitle string  `json:"formation_title"`
	TeacherName    *string `json:"teacher_name,omitempty"`
	Room           string  `json:"room"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
}

// PaymentTally is a sum and a count of payments.
type PaymentTally struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// TimetableDay groups the slots of one weekday.
type TimetableDay struct {
	Day   string        `json:"day"`
	Slots []SessionSlot `json:"slots"`
}
