package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/asmil/asmil-api/internal/models"
)

// UnspecifiedLabel buckets invoices whose formation cannot be resolved.
const UnspecifiedLabel = "Non spécifié"

// CategoryTotal is the paid sum accumulated for one formation.
type CategoryTotal struct {
	FormationID string          `json:"formation_id,omitempty"`
	Label       string          `json:"label"`
	Total       decimal.Decimal `json:"total"`
	Invoices    int             `json:"invoices"`
}

// Directory resolves the joins invoice → student → formation.
type Directory struct {
	enrollmentStudent map[string]string
	studentFormation  map[string]string
	studentName       map[string]string
	formationTitle    map[string]string
}

// NewDirectory indexes the reference data once for repeated lookups.
func NewDirectory(enrollments []models.Enrollment, students []models.Student, formations []models.Formation) Directory {
	d := Directory{
		enrollmentStudent: make(map[string]string, len(enrollments)),
		studentFormation:  make(map[string]string, len(students)),
		studentName:       make(map[string]string, len(students)),
		formationTitle:    make(map[string]string, len(formations)),
	}
	for _, e := range enrollments {
		d.enrollmentStudent[e.ID] = e.StudentID
	}
	for _, s := range students {
		d.studentName[s.ID] = s.FullName()
		if s.FormationID != nil && *s.FormationID != "" {
			d.studentFormation[s.ID] = *s.FormationID
		}
	}
	for _, f := range formations {
		d.formationTitle[f.ID] = f.Title
	}
	return d
}

// StudentOf resolves the invoice's student, preferring its own student_id over the enrollment's.
func (d Directory) StudentOf(inv models.Invoice) string {
	if inv.StudentID != nil && *inv.StudentID != "" {
		return *inv.StudentID
	}
	return d.enrollmentStudent[inv.EnrollmentID]
}

// StudentName returns the display name of a student id, or "".
func (d Directory) StudentName(studentID string) string {
	return d.studentName[studentID]
}

// FormationOf resolves the invoice's formation id and title. ok is false when any join step fails.
func (d Directory) FormationOf(inv models.Invoice) (id, title string, ok bool) {
	studentID := d.StudentOf(inv)
	if studentID == "" {
		return "", "", false
	}
	formationID, found := d.studentFormation[studentID]
	if !found {
		return "", "", false
	}
	title, found = d.formationTitle[formationID]
	if !found {
		return "", "", false
	}
	return formationID, title, true
}

// RevenueByFormation accumulates paid sums per formation title, sorted by total
// descending (ties by label) and truncated to limit when limit > 0.
func RevenueByFormation(balances []InvoiceBalance, dir Directory, limit int) []CategoryTotal {
	index := make(map[string]int)
	totals := make([]CategoryTotal, 0)
	for _, b := range balances {
		id, label, ok := dir.FormationOf(b.Invoice)
		if !ok {
			id, label = "", UnspecifiedLabel
		}
		pos, seen := index[label]
		if !seen {
			pos = len(totals)
			index[label] = pos
			totals = append(totals, CategoryTotal{FormationID: id, Label: label, Total: decimal.Zero})
		}
		totals[pos].Total = totals[pos].Total.Add(b.PaidSum)
		totals[pos].Invoices++
	}
	sort.SliceStable(totals, func(i, j int) bool {
		if cmp := totals[i].Total.Cmp(totals[j].Total); cmp != 0 {
			return cmp > 0
		}
		return totals[i].Label < totals[j].Label
	})
	if limit > 0 && len(totals) > limit {
		totals = totals[:limit]
	}
	return totals
}

// MethodTotal is the amount and number of payments made with one method.
type MethodTotal struct {
	Method models.PaymentMethod `json:"method"`
	Total  decimal.Decimal      `json:"total"`
	Count  int                  `json:"count"`
}

// MethodBreakdown totals payments per method. Known methods always appear, in
// display order; unknown methods follow in first-seen order.
func MethodBreakdown(payments []models.Payment) []MethodTotal {
	out := make([]MethodTotal, 0, len(models.PaymentMethods))
	index := make(map[models.PaymentMethod]int, len(models.PaymentMethods))
	for _, m := range models.PaymentMethods {
		index[m] = len(out)
		out = append(out, MethodTotal{Method: m, Total: decimal.Zero})
	}
	for _, p := range payments {
		pos, ok := index[p.Method]
		if !ok {
			pos = len(out)
			index[p.Method] = pos
			out = append(out, MethodTotal{Method: p.Method, Total: decimal.Zero})
		}
		out[pos].Total = out[pos].Total.Add(p.Amount)
		out[pos].Count++
	}
	return out
}
