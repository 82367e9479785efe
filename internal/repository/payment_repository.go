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

const paymentColumns = `id, invoice_id, amount, method, transaction_reference, payment_date, notes, recorded_by, created_at, updated_at`

const paymentDetailSelect = `SELECT p.id, p.invoice_id, p.amount, p.method, p.transaction_reference, p.payment_date, p.notes, p.recorded_by, p.created_at, p.updated_at,
        i.invoice_number, COALESCE(s.first_name || ' ' || s.last_name, '') AS student_name
        FROM payments p
        JOIN invoices i ON i.id = p.invoice_id
        LEFT JOIN enrollments e ON e.id = i.enrollment_id
        LEFT JOIN students s ON s.id = COALESCE(i.student_id, e.student_id)`

// PaymentRepository persists payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns payments with invoice and student labels, most recent first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	var cond conditions
	if filter.InvoiceID != "" {
		cond.add("p.invoice_id = " + cond.bind(filter.InvoiceID))
	}
	if filter.Method != "" {
		cond.add("p.method = " + cond.bind(filter.Method))
	}
	if filter.From != nil {
		cond.add("COALESCE(p.payment_date, p.created_at) >= " + cond.bind(*filter.From))
	}
	if filter.To != nil {
		cond.add("COALESCE(p.payment_date, p.created_at) <= " + cond.bind(*filter.To))
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY COALESCE(p.payment_date, p.created_at) DESC LIMIT %d OFFSET %d", paymentDetailSelect, cond.where(), limit, offset)
	payments := make([]models.PaymentDetail, 0)
	if err := r.db.SelectContext(ctx, &payments, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM payments p"+cond.where(), cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// All returns every payment row.
func (r *PaymentRepository) All(ctx context.Context) ([]models.Payment, error) {
	payments := make([]models.Payment, 0)
	if err := r.db.SelectContext(ctx, &payments, "SELECT "+paymentColumns+" FROM payments ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("list all payments: %w", err)
	}
	return payments, nil
}

// Recent returns the latest payments by effective date.
func (r *PaymentRepository) Recent(ctx context.Context, limit int) ([]models.PaymentDetail, error) {
	if limit <= 0 {
		limit = 5
	}
	payments := make([]models.PaymentDetail, 0)
	query := fmt.Sprintf("%s ORDER BY COALESCE(p.payment_date, p.created_at) DESC LIMIT %d", paymentDetailSelect, limit)
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, fmt.Errorf("list recent payments: %w", err)
	}
	return payments, nil
}

// FindByID returns a payment by id.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	var payment models.PaymentDetail
	if err := r.db.GetContext(ctx, &payment, paymentDetailSelect+" WHERE p.id = $1", id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// SumByInvoice totals the payments of an invoice, ignoring excludeID when set (edits).
func (r *PaymentRepository) SumByInvoice(ctx context.Context, invoiceID, excludeID string) (decimal.Decimal, error) {
	return sumByInvoice(ctx, r.db, invoiceID, excludeID)
}

// SumByInvoiceTx is SumByInvoice inside tx, after the invoice row has been locked.
func (r *PaymentRepository) SumByInvoiceTx(ctx context.Context, tx *sqlx.Tx, invoiceID, excludeID string) (decimal.Decimal, error) {
	return sumByInvoice(ctx, tx, invoiceID, excludeID)
}

func sumByInvoice(ctx context.Context, q sqlx.QueryerContext, invoiceID, excludeID string) (decimal.Decimal, error) {
	query := "SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1"
	args := []interface{}{invoiceID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var sum decimal.Decimal
	if err := sqlx.GetContext(ctx, q, &sum, query, args...); err != nil {
		return decimal.Zero, fmt.Errorf("sum invoice payments: %w", err)
	}
	return sum, nil
}

// CreateTx inserts a payment inside tx.
func (r *PaymentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	const query = `INSERT INTO payments (id, invoice_id, amount, method, transaction_reference, payment_date, notes, recorded_by, created_at, updated_at)
        VALUES (:id, :invoice_id, :amount, :method, :transaction_reference, :payment_date, :notes, :recorded_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// UpdateTx modifies a payment inside tx.
func (r *PaymentRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payments SET amount = :amount, method = :method, transaction_reference = :transaction_reference,
        payment_date = :payment_date, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return expectAffected(res)
}
