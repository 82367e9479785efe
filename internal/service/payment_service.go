package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.PaymentDetail, error)
	SumByInvoiceTx(ctx context.Context, tx *sqlx.Tx, invoiceID, excludeID string) (decimal.Decimal, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error
	Delete(ctx context.Context, id string) error
}

type invoiceLocker interface {
	LockAmountTx(ctx context.Context, tx *sqlx.Tx, id string) (decimal.Decimal, error)
}

type invoiceStatusSyncer interface {
	SyncStatus(ctx context.Context, id string) (*models.InvoiceView, error)
}

type paidAmountRefresher interface {
	RefreshPaidAmount(ctx context.Context, id string) error
}

type paymentRecorder interface {
	RecordPayment(method string)
}

// PaymentRequest is the payload for recording or editing a payment.
type PaymentRequest struct {
	InvoiceID            string               `json:"invoice_id" validate:"required"`
	Amount               decimal.Decimal      `json:"amount"`
	Method               models.PaymentMethod `json:"method" validate:"required,oneof=Espèces Chèque Virement 'Mobile Money'"`
	TransactionReference string               `json:"transaction_reference"`
	PaymentDate          *time.Time           `json:"payment_date"`
	Notes                string               `json:"notes"`
}

// PaymentService records payments against invoices.
type PaymentService struct {
	payments    paymentRepository
	locker      invoiceLocker
	invoices    invoiceStatusSyncer
	tx          TxRunner
	enrollments paidAmountRefresher
	metrics     paymentRecorder
	cache       aggregateInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentService constructs a PaymentService. Balance checks and writes run in tx with the invoice row locked.
func NewPaymentService(payments paymentRepository, locker invoiceLocker, invoices invoiceStatusSyncer, tx TxRunner, enrollments paidAmountRefresher, metrics paymentRecorder, cache aggregateInvalidator, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		payments:    payments,
		locker:      locker,
		invoices:    invoices,
		tx:          tx,
		enrollments: enrollments,
		metrics:     metrics,
		cache:       orNoop(cache),
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns payments with pagination.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	items, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list payments")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one payment.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.PaymentDetail, error) {
	item, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment not found", "failed to load payment")
	}
	return item, nil
}

func (s *PaymentService) validate(req PaymentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	return nil
}

// checkBalance enforces amount ≤ invoice amount minus the other payments.
// The invoice row stays locked until tx ends.
func (s *PaymentService) checkBalance(ctx context.Context, tx *sqlx.Tx, req PaymentRequest, excludeID string) error {
	amount, err := s.locker.LockAmountTx(ctx, tx, req.InvoiceID)
	if err != nil {
		return lookupError(err, "invoice not found", "failed to lock invoice")
	}
	paid, err := s.payments.SumByInvoiceTx(ctx, tx, req.InvoiceID, excludeID)
	if err != nil {
		return internalError(err, "failed to load invoice payments")
	}
	remaining := amount.Sub(paid)
	if req.Amount.GreaterThan(remaining) {
		return appErrors.Clone(appErrors.ErrAmountExceedsBalance, "le montant dépasse le reste à payer ("+remaining.StringFixed(2)+")")
	}
	return nil
}

func applyPaymentRequest(payment *models.Payment, req PaymentRequest, now time.Time) {
	payment.InvoiceID = req.InvoiceID
	payment.Amount = req.Amount
	payment.Method = req.Method
	payment.TransactionReference = strPtr(req.TransactionReference)
	payment.Notes = strPtr(req.Notes)
	if req.PaymentDate != nil {
		payment.PaymentDate = req.PaymentDate
	} else if payment.PaymentDate == nil {
		payment.PaymentDate = &now
	}
}

// afterChange re-derives the invoice status, refreshes the enrollment's paid amount and drops cached aggregates.
func (s *PaymentService) afterChange(ctx context.Context, invoiceID string) {
	invoice, err := s.invoices.SyncStatus(ctx, invoiceID)
	if err != nil {
		s.logger.Warn("failed to sync invoice status", zap.String("invoice_id", invoiceID), zap.Error(err))
	} else if err := s.enrollments.RefreshPaidAmount(ctx, invoice.EnrollmentID); err != nil {
		s.logger.Warn("failed to refresh enrollment paid amount", zap.String("enrollment_id", invoice.EnrollmentID), zap.Error(err))
	}
	s.cache.InvalidateAggregates(ctx)
}

// Create records a payment; recordedBy is the acting user id.
func (s *PaymentService) Create(ctx context.Context, req PaymentRequest, recordedBy string) (*models.Payment, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	payment := &models.Payment{RecordedBy: strPtr(recordedBy)}
	applyPaymentRequest(payment, req, s.now())
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		if err := s.checkBalance(ctx, tx, req, ""); err != nil {
			return err
		}
		return s.payments.CreateTx(ctx, tx, payment)
	})
	if err != nil {
		return nil, txError(err, "failed to record payment")
	}
	if s.metrics != nil {
		s.metrics.RecordPayment(string(payment.Method))
	}
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("invoice_id", payment.InvoiceID),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	s.afterChange(ctx, payment.InvoiceID)
	return payment, nil
}

// Update edits a payment; the balance check excludes the payment being edited.
func (s *PaymentService) Update(ctx context.Context, id string, req PaymentRequest) (*models.Payment, error) {
	existing, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment not found", "failed to load payment")
	}
	if existing.InvoiceID != req.InvoiceID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a payment cannot move to another invoice")
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	payment := existing.Payment
	applyPaymentRequest(&payment, req, s.now())
	err = s.tx(ctx, func(tx *sqlx.Tx) error {
		if err := s.checkBalance(ctx, tx, req, id); err != nil {
			return err
		}
		return s.payments.UpdateTx(ctx, tx, &payment)
	})
	if err != nil {
		return nil, txError(err, "failed to update payment")
	}
	s.afterChange(ctx, payment.InvoiceID)
	return &payment, nil
}

// Delete removes a payment and re-derives the invoice balance.
func (s *PaymentService) Delete(ctx context.Context, id string) error {
	existing, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "payment not found", "failed to load payment")
	}
	if err := s.payments.Delete(ctx, id); err != nil {
		return lookupError(err, "payment not found", "failed to delete payment")
	}
	s.afterChange(ctx, existing.InvoiceID)
	return nil
}
