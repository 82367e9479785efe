package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/asmil/asmil-api/internal/models"
)

// Dataset is the raw material of the finance overview.
type Dataset struct {
	Invoices    []models.Invoice
	Payments    []models.Payment
	Enrollments []models.Enrollment
	Students    []models.Student
	Formations  []models.Formation
}

// Options tunes the overview; zero values take the dashboard defaults.
type Options struct {
	TrendMonths    int
	TopFormations  int
	ForecastWindow int
	UnpaidLimit    int
}

func (o Options) withDefaults() Options {
	if o.TrendMonths <= 0 {
		o.TrendMonths = 6
	}
	if o.TopFormations <= 0 {
		o.TopFormations = 5
	}
	if o.ForecastWindow <= 0 {
		o.ForecastWindow = defaultForecastN
	}
	if o.UnpaidLimit <= 0 {
		o.UnpaidLimit = 10
	}
	return o
}

// UnpaidInvoice is the row shape of the unpaid list.
type UnpaidInvoice struct {
	InvoiceID     string               `json:"invoice_id"`
	InvoiceNumber string               `json:"invoice_number"`
	StudentID     string               `json:"student_id,omitempty"`
	StudentName   string               `json:"student_name,omitempty"`
	Amount        decimal.Decimal      `json:"amount"`
	Paid          decimal.Decimal      `json:"paid"`
	Remaining     decimal.Decimal      `json:"remaining"`
	DueDate       *time.Time           `json:"due_date,omitempty"`
	Status        models.InvoiceStatus `json:"status"`
}

// Overview is the reconciled financial picture at a reference time.
type Overview struct {
	ReferenceDate        string          `json:"reference_date"`
	Totals               Totals          `json:"totals"`
	CollectionRate       decimal.Decimal `json:"collection_rate"`
	CurrentMonth         Range           `json:"current_month"`
	CurrentMonthRevenue  decimal.Decimal `json:"current_month_revenue"`
	PreviousMonthRevenue decimal.Decimal `json:"previous_month_revenue"`
	RevenueTrend         decimal.Decimal `json:"revenue_trend"`
	TrendBaselineMissing bool            `json:"trend_baseline_missing"`
	RevenueByMonth       []MonthBucket   `json:"revenue_by_month"`
	ForecastNextMonth    decimal.Decimal `json:"forecast_next_month"`
	RevenueByFormation   []CategoryTotal `json:"revenue_by_formation"`
	UnpaidInvoices       []UnpaidInvoice `json:"unpaid_invoices"`
	MethodBreakdown      []MethodTotal   `json:"method_breakdown"`
}

// BuildOverview runs the reconciliation and every aggregation over data at now.
func BuildOverview(data Dataset, now time.Time, opts Options) Overview {
	opts = opts.withDefaults()
	dir := NewDirectory(data.Enrollments, data.Students, data.Formations)
	balances := Reconcile(data.Invoices, data.Payments, now)
	totals := Summarize(balances)

	current := SumInRange(data.Payments, MonthRange(now))
	previous := SumInRange(data.Payments, PreviousMonthRange(now))
	trend := ComputeTrend(current, previous)
	months := MonthlyBuckets(data.Payments, now, opts.TrendMonths)

	return Overview{
		ReferenceDate:        now.Format("2006-01-02"),
		Totals:               totals,
		CollectionRate:       CollectionRate(totals),
		CurrentMonth:         MonthRange(now),
		CurrentMonthRevenue:  current,
		PreviousMonthRevenue: previous,
		RevenueTrend:         trend.Percent,
		TrendBaselineMissing: trend.BaselineMissing,
		RevenueByMonth:       months,
		ForecastNextMonth:    ForecastWindow(BucketTotals(months), opts.ForecastWindow),
		RevenueByFormation:   RevenueByFormation(balances, dir, opts.TopFormations),
		UnpaidInvoices:       UnpaidRows(TopUnpaid(balances, opts.UnpaidLimit), dir),
		MethodBreakdown:      MethodBreakdown(data.Payments),
	}
}

// UnpaidRows projects balances into list rows with student names.
func UnpaidRows(balances []InvoiceBalance, dir Directory) []UnpaidInvoice {
	rows := make([]UnpaidInvoice, 0, len(balances))
	for _, b := range balances {
		studentID := dir.StudentOf(b.Invoice)
		rows = append(rows, UnpaidInvoice{
			InvoiceID:     b.Invoice.ID,
			InvoiceNumber: b.Invoice.InvoiceNumber,
			StudentID:     studentID,
			StudentName:   dir.StudentName(studentID),
			Amount:        b.Invoice.Amount,
			Paid:          b.PaidSum,
			Remaining:     b.Remaining,
			DueDate:       b.Invoice.DueDate,
			Status:        b.Status,
		})
	}
	return rows
}
