package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/finance"
	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/repository"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type invoiceRepository interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceView, int, error)
	FindByID(ctx context.Context, id string) (*models.InvoiceView, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	Update(ctx context.Context, invoice *models.Invoice) error
	UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) error
	Delete(ctx context.Context, id string) error
}

type invoicePaymentSummer interface {
	SumByInvoice(ctx context.Context, invoiceID, excludeID string) (decimal.Decimal, error)
}

type enrollmentLookup interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

// InvoiceRequest is the payload for manual invoices and invoice edits.
type InvoiceRequest struct {
	EnrollmentID string          `json:"enrollment_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      *time.Time      `json:"due_date"`
	Notes        string          `json:"notes"`
}

// InvoiceService manages invoices and derives their status from payments.
type InvoiceService struct {
	invoices    invoiceRepository
	payments    invoicePaymentSummer
	enrollments enrollmentLookup
	sequences   sequenceGenerator
	cache       aggregateInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(invoices invoiceRepository, payments invoicePaymentSummer, enrollments enrollmentLookup, sequences sequenceGenerator, cache aggregateInvalidator, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoices:    invoices,
		payments:    payments,
		enrollments: enrollments,
		sequences:   sequences,
		cache:       orNoop(cache),
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// reconcile fills the paid amount, remainder and derived status of view.
func (s *InvoiceService) reconcile(ctx context.Context, view *models.InvoiceView) error {
	paid, err := s.payments.SumByInvoice(ctx, view.ID, "")
	if err != nil {
		return err
	}
	view.PaidAmount = paid
	view.Remaining = view.Amount.Sub(paid)
	view.Status = finance.DeriveStatus(view.Amount, paid, view.DueDate, s.now())
	return nil
}

// List returns invoices with their reconciled balance.
func (s *InvoiceService) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceView, *models.Pagination, error) {
	switch filter.Status {
	case "", models.InvoiceStatusPaid, models.InvoiceStatusPartial, models.InvoiceStatusUnpaid, models.InvoiceStatusOverdue:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be payée, partielle, impayée or en retard")
	}
	filter.Today = s.now()
	items, total, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list invoices")
	}
	for i := range items {
		if err := s.reconcile(ctx, &items[i]); err != nil {
			return nil, nil, internalError(err, "failed to reconcile invoices")
		}
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one invoice with its reconciled balance.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.InvoiceView, error) {
	view, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "invoice not found", "failed to load invoice")
	}
	if err := s.reconcile(ctx, view); err != nil {
		return nil, internalError(err, "failed to reconcile invoice")
	}
	return view, nil
}

func (s *InvoiceService) validate(req InvoiceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid invoice payload")
	}
	if !req.Amount.IsPositive() {
		return appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	return nil
}

// Create issues a manual invoice for an enrollment.
func (s *InvoiceService) Create(ctx context.Context, req InvoiceRequest) (*models.Invoice, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	year := s.now().Year()
	seq, err := s.sequences.Next(ctx, repository.SequenceInvoice, year)
	if err != nil {
		return nil, internalError(err, "failed to allocate invoice number")
	}
	studentID := enrollment.StudentID
	invoice := &models.Invoice{
		EnrollmentID:  enrollment.ID,
		StudentID:     &studentID,
		InvoiceNumber: formatNumber(invoiceNumberFormat, year, seq),
		Amount:        req.Amount,
		DueDate:       req.DueDate,
		Notes:         strPtr(req.Notes),
	}
	invoice.Status = finance.DeriveStatus(invoice.Amount, decimal.Zero, invoice.DueDate, s.now())
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, internalError(err, "failed to create invoice")
	}
	s.cache.InvalidateAggregates(ctx)
	return invoice, nil
}

// Update edits amount, due date and notes; the amount cannot drop below what is already paid.
func (s *InvoiceService) Update(ctx context.Context, id string, req InvoiceRequest) (*models.InvoiceView, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	view, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "invoice not found", "failed to load invoice")
	}
	paid, err := s.payments.SumByInvoice(ctx, id, "")
	if err != nil {
		return nil, internalError(err, "failed to reconcile invoice")
	}
	if req.Amount.LessThan(paid) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount is lower than the sum already paid")
	}
	invoice := view.Invoice
	invoice.Amount = req.Amount
	invoice.DueDate = req.DueDate
	invoice.Notes = strPtr(req.Notes)
	invoice.Status = finance.DeriveStatus(invoice.Amount, paid, invoice.DueDate, s.now())
	if err := s.invoices.Update(ctx, &invoice); err != nil {
		return nil, internalError(err, "failed to update invoice")
	}
	view.Invoice = invoice
	view.PaidAmount = paid
	view.Remaining = invoice.Amount.Sub(paid)
	s.cache.InvalidateAggregates(ctx)
	return view, nil
}

// Delete removes an invoice and, through the database cascade, its payments.
func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	if err := s.invoices.Delete(ctx, id); err != nil {
		return lookupError(err, "invoice not found", "failed to delete invoice")
	}
	s.cache.InvalidateAggregates(ctx)
	return nil
}

// SyncStatus persists the status derived from the current payments.
func (s *InvoiceService) SyncStatus(ctx context.Context, id string) (*models.InvoiceView, error) {
	view, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.invoices.UpdateStatus(ctx, id, view.Status); err != nil {
		return nil, internalError(err, "failed to update invoice status")
	}
	return view, nil
}
