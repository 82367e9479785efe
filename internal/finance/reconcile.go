// Package finance holds the invoice/payment reconciliation and the revenue
// aggregations shown on the dashboards. Every function is pure: it reads the
// slices it is given and never mutates them.
package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/asmil/asmil-api/internal/models"
)

// InvoiceBalance is an invoice with its paid sum and remaining amount.
type InvoiceBalance struct {
	Invoice   models.Invoice       `json:"invoice"`
	PaidSum   decimal.Decimal      `json:"paid_sum"`
	Remaining decimal.Decimal      `json:"remaining"`
	Status    models.InvoiceStatus `json:"status"`
}

// Unpaid reports a strictly positive remaining amount.
func (b InvoiceBalance) Unpaid() bool {
	return b.Remaining.IsPositive()
}

// Paid reports whether payments cover the invoice amount.
func (b InvoiceBalance) Paid() bool {
	return b.PaidSum.GreaterThanOrEqual(b.Invoice.Amount)
}

// Totals summarises a set of balances.
type Totals struct {
	Billed       decimal.Decimal `json:"total_billed"`
	Collected    decimal.Decimal `json:"total_collected"`
	Outstanding  decimal.Decimal `json:"total_outstanding"`
	InvoiceCount int             `json:"invoice_count"`
	PaidCount    int             `json:"paid_count"`
	UnpaidCount  int             `json:"unpaid_count"`
	OverdueCount int             `json:"overdue_count"`
}

// PaidByInvoice sums payment amounts per invoice id. Duplicate rows are summed.
func PaidByInvoice(payments []models.Payment) map[string]decimal.Decimal {
	paid := make(map[string]decimal.Decimal, len(payments))
	for _, p := range payments {
		paid[p.InvoiceID] = paid[p.InvoiceID].Add(p.Amount)
	}
	return paid
}

// Reconcile computes the balance of every invoice in input order.
func Reconcile(invoices []models.Invoice, payments []models.Payment, today time.Time) []InvoiceBalance {
	paid := PaidByInvoice(payments)
	balances := make([]InvoiceBalance, 0, len(invoices))
	for _, inv := range invoices {
		sum := paid[inv.ID]
		balances = append(balances, InvoiceBalance{
			Invoice:   inv,
			PaidSum:   sum,
			Remaining: inv.Amount.Sub(sum),
			Status:    DeriveStatus(inv.Amount, sum, inv.DueDate, today),
		})
	}
	return balances
}

// DeriveStatus ignores the stored status and recomputes it from the paid sum.
// An unsettled invoice whose due date is before today's date is overdue.
func DeriveStatus(amount, paid decimal.Decimal, dueDate *time.Time, today time.Time) models.InvoiceStatus {
	if paid.GreaterThanOrEqual(amount) {
		return models.InvoiceStatusPaid
	}
	if dueDate != nil && !dueDate.IsZero() && dayOf(*dueDate, today.Location()).Before(dayOf(today, today.Location())) {
		return models.InvoiceStatusOverdue
	}
	if paid.IsPositive() {
		return models.InvoiceStatusPartial
	}
	return models.InvoiceStatusUnpaid
}

// UnpaidInvoices keeps the balances with a positive remainder, preserving order.
func UnpaidInvoices(balances []InvoiceBalance) []InvoiceBalance {
	unpaid := make([]InvoiceBalance, 0)
	for _, b := range balances {
		if b.Unpaid() {
			unpaid = append(unpaid, b)
		}
	}
	return unpaid
}

// TopUnpaid returns at most limit unpaid balances ordered by remaining amount, largest first.
func TopUnpaid(balances []InvoiceBalance, limit int) []InvoiceBalance {
	unpaid := UnpaidInvoices(balances)
	sort.SliceStable(unpaid, func(i, j int) bool {
		if cmp := unpaid[i].Remaining.Cmp(unpaid[j].Remaining); cmp != 0 {
			return cmp > 0
		}
		return unpaid[i].Invoice.InvoiceNumber < unpaid[j].Invoice.InvoiceNumber
	})
	if limit > 0 && len(unpaid) > limit {
		unpaid = unpaid[:limit]
	}
	return unpaid
}

// Summarize totals billed, collected and outstanding amounts.
// Outstanding only counts positive remainders; overpayments do not offset other invoices.
func Summarize(balances []InvoiceBalance) Totals {
	t := Totals{InvoiceCount: len(balances)}
	for _, b := range balances {
		t.Billed = t.Billed.Add(b.Invoice.Amount)
		t.Collected = t.Collected.Add(b.PaidSum)
		if b.Unpaid() {
			t.Outstanding = t.Outstanding.Add(b.Remaining)
			t.UnpaidCount++
		} else {
			t.PaidCount++
		}
		if b.Status == models.InvoiceStatusOverdue {
			t.OverdueCount++
		}
	}
	return t
}

// CollectionRate is collected / billed × 100, rounded to two places; 0 when nothing is billed.
func CollectionRate(t Totals) decimal.Decimal {
	if !t.Billed.IsPositive() {
		return decimal.Zero
	}
	return t.Collected.Mul(hundred).DivRound(t.Billed, 2)
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
