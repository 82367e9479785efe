package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type memoryInvoices struct {
	items    map[string]models.Invoice
	statuses map[string]models.InvoiceStatus
	created  []*models.Invoice
	filter   models.InvoiceFilter
	locked   []string
}

func newMemoryInvoices(items ...models.Invoice) *memoryInvoices {
	m := &memoryInvoices{items: map[string]models.Invoice{}, statuses: map[string]models.InvoiceStatus{}}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

func (m *memoryInvoices) List(_ context.Context, filter models.InvoiceFilter) ([]models.InvoiceView, int, error) {
	m.filter = filter
	out := make([]models.InvoiceView, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, models.InvoiceView{Invoice: item})
	}
	return out, len(out), nil
}

func (m *memoryInvoices) FindByID(_ context.Context, id string) (*models.InvoiceView, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.InvoiceView{Invoice: item}, nil
}

func (m *memoryInvoices) LockAmountTx(_ context.Context, _ *sqlx.Tx, id string) (decimal.Decimal, error) {
	item, ok := m.items[id]
	if !ok {
		return decimal.Zero, sql.ErrNoRows
	}
	m.locked = append(m.locked, id)
	return item.Amount, nil
}

func (m *memoryInvoices) Create(_ context.Context, invoice *models.Invoice) error {
	invoice.ID = "inv-manual"
	m.items[invoice.ID] = *invoice
	m.created = append(m.created, invoice)
	return nil
}

func (m *memoryInvoices) Update(_ context.Context, invoice *models.Invoice) error {
	m.items[invoice.ID] = *invoice
	return nil
}

func (m *memoryInvoices) UpdateStatus(_ context.Context, id string, status models.InvoiceStatus) error {
	m.statuses[id] = status
	return nil
}

func (m *memoryInvoices) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

// memoryPayments backs both the invoice reconciliation and the payment service.
type memoryPayments struct {
	items map[string]models.Payment
	seq   int
}

func newMemoryPayments(items ...models.Payment) *memoryPayments {
	m := &memoryPayments{items: map[string]models.Payment{}}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

func (m *memoryPayments) List(context.Context, models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	out := make([]models.PaymentDetail, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, models.PaymentDetail{Payment: item})
	}
	return out, len(out), nil
}

func (m *memoryPayments) FindByID(_ context.Context, id string) (*models.PaymentDetail, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.PaymentDetail{Payment: item}, nil
}

func (m *memoryPayments) SumByInvoice(_ context.Context, invoiceID, excludeID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, item := range m.items {
		if item.InvoiceID == invoiceID && item.ID != excludeID {
			sum = sum.Add(item.Amount)
		}
	}
	return sum, nil
}

func (m *memoryPayments) SumByInvoiceTx(ctx context.Context, _ *sqlx.Tx, invoiceID, excludeID string) (decimal.Decimal, error) {
	return m.SumByInvoice(ctx, invoiceID, excludeID)
}

func (m *memoryPayments) CreateTx(_ context.Context, _ *sqlx.Tx, payment *models.Payment) error {
	m.seq++
	payment.ID = "pay-" + string(rune('0'+m.seq))
	m.items[payment.ID] = *payment
	return nil
}

func (m *memoryPayments) UpdateTx(_ context.Context, _ *sqlx.Tx, payment *models.Payment) error {
	m.items[payment.ID] = *payment
	return nil
}

func (m *memoryPayments) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

var billingToday = time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

func newInvoiceFixture(payments *memoryPayments, invoices ...models.Invoice) (*InvoiceService, *memoryInvoices, *countingInvalidator) {
	repo := newMemoryInvoices(invoices...)
	cache := &countingInvalidator{}
	enrollments := &fakeEnrollmentLookup{items: map[string]models.EnrollmentDetail{
		"e1": {Enrollment: models.Enrollment{ID: "e1", StudentID: "st1"}},
	}}
	svc := NewInvoiceService(repo, payments, enrollments, &fakeSequences{}, cache, nil, nil)
	svc.now = func() time.Time { return billingToday }
	return svc, repo, cache
}

func TestInvoiceGetDerivesStatus(t *testing.T) {
	past := time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)
	future := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	payments := newMemoryPayments(
		models.Payment{ID: "p1", InvoiceID: "partial", Amount: decimal.NewFromInt(300)},
		models.Payment{ID: "p2", InvoiceID: "paid", Amount: decimal.NewFromInt(500)},
		models.Payment{ID: "p3", InvoiceID: "late", Amount: decimal.NewFromInt(100)},
	)
	svc, _, _ := newInvoiceFixture(payments,
		models.Invoice{ID: "partial", Amount: decimal.NewFromInt(500), DueDate: &future},
		models.Invoice{ID: "paid", Amount: decimal.NewFromInt(500), DueDate: &past},
		models.Invoice{ID: "late", Amount: decimal.NewFromInt(500), DueDate: &past},
		models.Invoice{ID: "fresh", Amount: decimal.NewFromInt(500)},
	)
	ctx := context.Background()

	cases := map[string]models.InvoiceStatus{
		"partial": models.InvoiceStatusPartial,
		"paid":    models.InvoiceStatusPaid,
		"late":    models.InvoiceStatusOverdue,
		"fresh":   models.InvoiceStatusUnpaid,
	}
	for id, want := range cases {
		view, err := svc.Get(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, want, view.Status, id)
	}

	view, err := svc.Get(ctx, "partial")
	require.NoError(t, err)
	assert.Equal(t, "300", view.PaidAmount.String())
	assert.Equal(t, "200", view.Remaining.String())

	_, err = svc.Get(ctx, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestInvoiceCreateAllocatesNumber(t *testing.T) {
	svc, repo, cache := newInvoiceFixture(newMemoryPayments())

	invoice, err := svc.Create(context.Background(), InvoiceRequest{EnrollmentID: "e1", Amount: decimal.NewFromInt(15000), Notes: "  "})
	require.NoError(t, err)
	assert.Equal(t, "FAC-2024-00001", invoice.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusUnpaid, invoice.Status)
	require.NotNil(t, invoice.StudentID)
	assert.Equal(t, "st1", *invoice.StudentID)
	assert.Nil(t, invoice.Notes)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, 1, cache.calls)

	_, err = svc.Create(context.Background(), InvoiceRequest{EnrollmentID: "e1", Amount: decimal.Zero})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestInvoiceUpdateCannotDropBelowPaid(t *testing.T) {
	payments := newMemoryPayments(models.Payment{ID: "p1", InvoiceID: "i1", Amount: decimal.NewFromInt(400)})
	svc, _, _ := newInvoiceFixture(payments, models.Invoice{ID: "i1", EnrollmentID: "e1", Amount: decimal.NewFromInt(1000)})
	ctx := context.Background()

	_, err := svc.Update(ctx, "i1", InvoiceRequest{EnrollmentID: "e1", Amount: decimal.NewFromInt(300)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	view, err := svc.Update(ctx, "i1", InvoiceRequest{EnrollmentID: "e1", Amount: decimal.NewFromInt(400)})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, view.Status)
	assert.True(t, view.Remaining.IsZero())
}

func TestInvoiceSyncStatusPersists(t *testing.T) {
	payments := newMemoryPayments(models.Payment{ID: "p1", InvoiceID: "i1", Amount: decimal.NewFromInt(1000)})
	svc, repo, _ := newInvoiceFixture(payments, models.Invoice{ID: "i1", Amount: decimal.NewFromInt(1000), Status: models.InvoiceStatusUnpaid})

	view, err := svc.SyncStatus(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, view.Status)
	assert.Equal(t, models.InvoiceStatusPaid, repo.statuses["i1"])
}

func TestInvoiceListPassesStatusAndToday(t *testing.T) {
	svc, repo, _ := newInvoiceFixture(newMemoryPayments(), models.Invoice{ID: "i1", Amount: decimal.NewFromInt(500)})

	_, pagination, err := svc.List(context.Background(), models.InvoiceFilter{Status: models.InvoiceStatusOverdue, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, models.InvoiceStatusOverdue, repo.filter.Status)
	assert.Equal(t, billingToday, repo.filter.Today)
}

func TestInvoiceListRejectsUnknownStatus(t *testing.T) {
	svc, repo, _ := newInvoiceFixture(newMemoryPayments())

	_, _, err := svc.List(context.Background(), models.InvoiceFilter{Status: "annulée"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.filter.Status)
}
