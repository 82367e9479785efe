package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/asmil/asmil-api/internal/models"
)

const invoiceColumns = `id, enrollment_id, student_id, invoice_number, amount, due_date, status, notes, created_at, updated_at`

const invoiceViewSelect = `SELECT i.id, i.enrollment_id, i.student_id, i.invoice_number, i.amount, i.due_date, i.status, i.notes, i.created_at, i.updated_at,
        COALESCE(s.first_name || ' ' || s.last_name, '') AS student_name
        FROM invoices i
        LEFT JOIN enrollments e ON e.id = i.enrollment_id
        LEFT JOIN students s ON s.id = COALESCE(i.student_id, e.student_id)`

// invoicePaidSum is the paid amount of invoice i, recomputed from payments like finance.Reconcile.
const invoicePaidSum = `COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.invoice_id = i.id), 0)`

// statusCondition mirrors finance.DeriveStatus in SQL so the filter applies before paging.
func statusCondition(cond *conditions, status models.InvoiceStatus, today time.Time) (string, error) {
	if status == models.InvoiceStatusPaid {
		return invoicePaidSum + " >= i.amount", nil
	}
	if today.IsZero() {
		today = time.Now()
	}
	unsettled := invoicePaidSum + " < i.amount"
	switch status {
	case models.InvoiceStatusOverdue:
		return unsettled + " AND " + overdueCondition(cond, today), nil
	case models.InvoiceStatusPartial:
		return unsettled + " AND NOT " + overdueCondition(cond, today) + " AND " + invoicePaidSum + " > 0", nil
	case models.InvoiceStatusUnpaid:
		return unsettled + " AND NOT " + overdueCondition(cond, today) + " AND " + invoicePaidSum + " <= 0", nil
	default:
		return "", fmt.Errorf("unknown invoice status %q", status)
	}
}

func overdueCondition(cond *conditions, today time.Time) string {
	return fmt.Sprintf("(i.due_date IS NOT NULL AND i.due_date::date < %s::date)", cond.bind(today.Format("2006-01-02")))
}

// InvoiceRepository persists invoices. Balances are computed by the finance package, not stored.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs an InvoiceRepository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// List returns invoices with the student's name.
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceView, int, error) {
	var cond conditions
	if filter.EnrollmentID != "" {
		cond.add("i.enrollment_id = " + cond.bind(filter.EnrollmentID))
	}
	if filter.StudentID != "" {
		cond.add("COALESCE(i.student_id, e.student_id) = " + cond.bind(filter.StudentID))
	}
	if filter.Search != "" {
		p := cond.bind(likePattern(filter.Search))
		cond.add(fmt.Sprintf("(LOWER(i.invoice_number) LIKE %[1]s OR LOWER(s.first_name || ' ' || s.last_name) LIKE %[1]s)", p))
	}
	if filter.Status != "" {
		clause, err := statusCondition(&cond, filter.Status, filter.Today)
		if err != nil {
			return nil, 0, err
		}
		cond.add(clause)
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY i.created_at DESC LIMIT %d OFFSET %d", invoiceViewSelect, cond.where(), limit, offset)
	invoices := make([]models.InvoiceView, 0)
	if err := r.db.SelectContext(ctx, &invoices, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	countQuery := `SELECT COUNT(*) FROM invoices i
        LEFT JOIN enrollments e ON e.id = i.enrollment_id
        LEFT JOIN students s ON s.id = COALESCE(i.student_id, e.student_id)` + cond.where()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// All returns every invoice.
func (r *InvoiceRepository) All(ctx context.Context) ([]models.Invoice, error) {
	invoices := make([]models.Invoice, 0)
	if err := r.db.SelectContext(ctx, &invoices, "SELECT "+invoiceColumns+" FROM invoices ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("list all invoices: %w", err)
	}
	return invoices, nil
}

// FindByID returns an invoice view by id.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.InvoiceView, error) {
	var invoice models.InvoiceView
	if err := r.db.GetContext(ctx, &invoice, invoiceViewSelect+" WHERE i.id = $1", id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Create inserts an invoice.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.create(ctx, r.db, invoice)
}

// CreateTx inserts an invoice inside tx.
func (r *InvoiceRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, invoice *models.Invoice) error {
	return r.create(ctx, tx, invoice)
}

func (r *InvoiceRepository) create(ctx context.Context, db execer, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	const query = `INSERT INTO invoices (id, enrollment_id, student_id, invoice_number, amount, due_date, status, notes, created_at, updated_at)
        VALUES (:id, :enrollment_id, :student_id, :invoice_number, :amount, :due_date, :status, :notes, :created_at, :updated_at)`
	if _, err := db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// LockAmountTx locks the invoice row for the rest of tx and returns its amount.
// Concurrent payment writes on the same invoice queue behind the lock.
func (r *InvoiceRepository) LockAmountTx(ctx context.Context, tx *sqlx.Tx, id string) (decimal.Decimal, error) {
	var amount decimal.Decimal
	if err := tx.GetContext(ctx, &amount, `SELECT amount FROM invoices WHERE id = $1 FOR UPDATE`, id); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// Update modifies an invoice.
func (r *InvoiceRepository) Update(ctx context.Context, invoice *models.Invoice) error {
	invoice.UpdatedAt = time.Now().UTC()
	const query = `UPDATE invoices SET amount = :amount, due_date = :due_date, status = :status, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

// UpdateStatus persists the derived status so SQL consumers see a recent value.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return nil
}

// Delete removes an invoice.
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return expectAffected(res)
}
