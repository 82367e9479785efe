package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/asmil/asmil-api/internal/models"
)

var monthLabels = [...]string{"Janv", "Févr", "Mars", "Avr", "Mai", "Juin", "Juil", "Août", "Sept", "Oct", "Nov", "Déc"}

// Range is an inclusive time interval.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports inclusive membership. Zero times are never contained.
func (r Range) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// MonthBucket is the payment total of one calendar month.
type MonthBucket struct {
	Month string          `json:"month"`
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// MonthRange returns [start of month, end of month] of now, in now's location.
func MonthRange(now time.Time) Range {
	return monthRangeAt(now.Year(), now.Month(), now.Location())
}

// PreviousMonthRange returns the calendar month before now.
func PreviousMonthRange(now time.Time) Range {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := first.AddDate(0, -1, 0)
	return monthRangeAt(prev.Year(), prev.Month(), now.Location())
}

// DayRange returns [00:00, 23:59:59.999999999] of now's date.
func DayRange(now time.Time) Range {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Range{Start: start, End: start.AddDate(0, 0, 1).Add(-time.Nanosecond)}
}

func monthRangeAt(year int, month time.Month, loc *time.Location) Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// EffectiveDate is payment_date, falling back to created_at when absent.
// A zero result means the payment has no usable date and is left out of every bucket.
func EffectiveDate(p models.Payment) time.Time {
	if p.PaymentDate != nil && !p.PaymentDate.IsZero() {
		return *p.PaymentDate
	}
	return p.CreatedAt
}

// SumInRange totals the payments whose effective date falls inside r.
func SumInRange(payments []models.Payment, r Range) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if r.Contains(EffectiveDate(p)) {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// MonthlyBuckets builds n consecutive month buckets ending with the month of now, oldest first.
func MonthlyBuckets(payments []models.Payment, now time.Time, n int) []MonthBucket {
	if n <= 0 {
		return []MonthBucket{}
	}
	loc := now.Location()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	first := current.AddDate(0, -(n - 1), 0)

	buckets := make([]MonthBucket, n)
	for i := range buckets {
		m := first.AddDate(0, i, 0)
		buckets[i] = MonthBucket{
			Month: m.Format("2006-01"),
			Label: fmt.Sprintf("%s %d", monthLabels[m.Month()-1], m.Year()),
			Total: decimal.Zero,
		}
	}

	window := Range{Start: first, End: current.AddDate(0, 1, 0).Add(-time.Nanosecond)}
	for _, p := range payments {
		date := EffectiveDate(p)
		if !window.Contains(date) {
			continue
		}
		date = date.In(loc)
		idx := (date.Year()-first.Year())*12 + int(date.Month()) - int(first.Month())
		if idx < 0 || idx >= n {
			continue
		}
		buckets[idx].Total = buckets[idx].Total.Add(p.Amount)
		buckets[idx].Count++
	}
	return buckets
}

// BucketTotals extracts the totals of buckets, in order.
func BucketTotals(buckets []MonthBucket) []decimal.Decimal {
	totals := make([]decimal.Decimal, len(buckets))
	for i, b := range buckets {
		totals[i] = b.Total
	}
	return totals
}
