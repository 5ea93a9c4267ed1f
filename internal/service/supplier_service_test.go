package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/model"
	"github.com/ndevops25/e-commerce-microservices/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory SupplierRepository stub ────────────────────────────────────────

type stubSupplierRepo struct {
	suppliers  map[uuid.UUID]*model.Supplier
	contacts   map[uuid.UUID][]model.SupplierContact
	deliveries map[uuid.UUID]*model.Delivery
}

func newStubSupplierRepo() *stubSupplierRepo {
	return &stubSupplierRepo{
		suppliers:  make(map[uuid.UUID]*model.Supplier),
		contacts:   make(map[uuid.UUID][]model.SupplierContact),
		deliveries: make(map[uuid.UUID]*model.Delivery),
	}
}

func (r *stubSupplierRepo) Create(_ context.Context, s *model.Supplier) error {
	for _, existing := range r.suppliers {
		if existing.TaxID == s.TaxID {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *s
	r.suppliers[s.ID] = &cp
	return nil
}

func (r *stubSupplierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubSupplierRepo) List(_ context.Context) ([]model.Supplier, error) {
	result := make([]model.Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		result = append(result, *s)
	}
	return result, nil
}

func (r *stubSupplierRepo) Update(_ context.Context, s *model.Supplier) error {
	cp := *s
	r.suppliers[s.ID] = &cp
	return nil
}

func (r *stubSupplierRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s, ok := r.suppliers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Active = active
	return nil
}

func (r *stubSupplierRepo) CreateContact(_ context.Context, c *model.SupplierContact) error {
	r.contacts[c.SupplierID] = append(r.contacts[c.SupplierID], *c)
	return nil
}

func (r *stubSupplierRepo) ListContacts(_ context.Context, supplierID uuid.UUID) ([]model.SupplierContact, error) {
	return append([]model.SupplierContact(nil), r.contacts[supplierID]...), nil
}

func (r *stubSupplierRepo) ClearPrimary(_ context.Context, supplierID uuid.UUID) error {
	list := r.contacts[supplierID]
	for i := range list {
		list[i].IsPrimary = false
	}
	return nil
}

func (r *stubSupplierRepo) CreateDelivery(_ context.Context, d *model.Delivery) error {
	cp := *d
	r.deliveries[d.ID] = &cp
	return nil
}

func (r *stubSupplierRepo) FindDeliveryByID(_ context.Context, id uuid.UUID) (*model.Delivery, error) {
	d, ok := r.deliveries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *stubSupplierRepo) ListDeliveries(_ context.Context, supplierID uuid.UUID) ([]model.Delivery, error) {
	var result []model.Delivery
	for _, d := range r.deliveries {
		if d.SupplierID == supplierID {
			result = append(result, *d)
		}
	}
	return result, nil
}

func (r *stubSupplierRepo) UpdateDelivery(_ context.Context, d *model.Delivery) error {
	cp := *d
	r.deliveries[d.ID] = &cp
	return nil
}

func (r *stubSupplierRepo) ListPendingRetries(_ context.Context, now time.Time, limit int) ([]model.Delivery, error) {
	var result []model.Delivery
	for _, d := range r.deliveries {
		if d.PropagationStatus == model.PropagationPending && d.NextRetryAt != nil && !d.NextRetryAt.After(now) {
			result = append(result, *d)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *stubSupplierRepo) RescheduleRetry(_ context.Context, id uuid.UUID, next time.Time) error {
	d, ok := r.deliveries[id]
	if !ok || d.PropagationStatus != model.PropagationPending {
		return nil
	}
	cp := next
	d.NextRetryAt = &cp
	return nil
}

var _ repository.SupplierRepository = (*stubSupplierRepo)(nil)

// ── Dispatcher stub ──────────────────────────────────────────────────────────

type stubDispatcher struct {
	enqueued []uuid.UUID
	fail     bool
}

func (d *stubDispatcher) EnqueuePropagation(_ context.Context, deliveryID uuid.UUID) error {
	if d.fail {
		return errors.New("redis unavailable")
	}
	d.enqueued = append(d.enqueued, deliveryID)
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func seedSupplier(repo *stubSupplierRepo, active bool) *model.Supplier {
	s := &model.Supplier{
		ID:        uuid.New(),
		LegalName: "Acme Wholesale Ltd",
		TaxID:     uuid.NewString()[:13],
		Email:     "orders@acme.test",
		Active:    active,
	}
	repo.suppliers[s.ID] = s
	return s
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestCreateSupplier_DuplicateTaxID(t *testing.T) {
	repo := newStubSupplierRepo()
	svc := NewSupplierService(repo, &stubDispatcher{})

	req := dto.CreateSupplierRequest{LegalName: "Acme", TaxID: "20-12345678-9", Email: "a@acme.test"}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRecordDelivery_InactiveSupplier(t *testing.T) {
	repo := newStubSupplierRepo()
	dispatcher := &stubDispatcher{}
	svc := NewSupplierService(repo, dispatcher)

	sup := seedSupplier(repo, false)
	_, err := svc.RecordDelivery(context.Background(), sup.ID, dto.RecordDeliveryRequest{
		ProductID: uuid.New(), QuantityDelta: 10,
	})
	assert.ErrorIs(t, err, ErrSupplierInactive)
	assert.Empty(t, dispatcher.enqueued)
}

func TestRecordDelivery_PendingAndEnqueued(t *testing.T) {
	repo := newStubSupplierRepo()
	dispatcher := &stubDispatcher{}
	svc := NewSupplierService(repo, dispatcher)

	sup := seedSupplier(repo, true)
	cost := decimal.NewFromFloat(12.50)
	resp, err := svc.RecordDelivery(context.Background(), sup.ID, dto.RecordDeliveryRequest{
		ProductID: uuid.New(), QuantityDelta: 10, UnitCost: &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PropagationPending, resp.PropagationStatus)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, resp.ID, dispatcher.enqueued[0])
}

func TestRecordDelivery_EnqueueFailureLeavesForRedrive(t *testing.T) {
	repo := newStubSupplierRepo()
	svc := NewSupplierService(repo, &stubDispatcher{fail: true})

	sup := seedSupplier(repo, true)
	resp, err := svc.RecordDelivery(context.Background(), sup.ID, dto.RecordDeliveryRequest{
		ProductID: uuid.New(), QuantityDelta: 10,
	})

	// The request still succeeds: the delivery is durable and the cron
	// picks it up via next_retry_at.
	require.NoError(t, err)
	assert.Equal(t, model.PropagationPending, resp.PropagationStatus)
	stored := repo.deliveries[resp.ID]
	require.NotNil(t, stored.NextRetryAt)

	overdue, err := repo.ListPendingRetries(context.Background(), time.Now().Add(time.Second), 10)
	require.NoError(t, err)
	assert.Len(t, overdue, 1)
}

func TestAddContact_PrimaryHandover(t *testing.T) {
	repo := newStubSupplierRepo()
	svc := NewSupplierService(repo, &stubDispatcher{})

	sup := seedSupplier(repo, true)
	first, err := svc.AddContact(context.Background(), sup.ID, dto.CreateContactRequest{
		Name: "Ana", Email: "ana@acme.test", IsPrimary: true,
	})
	require.NoError(t, err)
	assert.True(t, first.IsPrimary)

	second, err := svc.AddContact(context.Background(), sup.ID, dto.CreateContactRequest{
		Name: "Bruno", Email: "bruno@acme.test", IsPrimary: true,
	})
	require.NoError(t, err)
	assert.True(t, second.IsPrimary)

	contacts, err := svc.ListContacts(context.Background(), sup.ID)
	require.NoError(t, err)
	primaries := 0
	for _, c := range contacts {
		if c.IsPrimary {
			primaries++
			assert.Equal(t, "Bruno", c.Name)
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestGetDelivery_WrongSupplier(t *testing.T) {
	repo := newStubSupplierRepo()
	svc := NewSupplierService(repo, &stubDispatcher{})

	owner := seedSupplier(repo, true)
	other := seedSupplier(repo, true)
	resp, err := svc.RecordDelivery(context.Background(), owner.ID, dto.RecordDeliveryRequest{
		ProductID: uuid.New(), QuantityDelta: 5,
	})
	require.NoError(t, err)

	_, err = svc.GetDelivery(context.Background(), other.ID, resp.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetryDelivery_FailedResetsAndEnqueues(t *testing.T) {
	repo := newStubSupplierRepo()
	dispatcher := &stubDispatcher{}
	svc := NewSupplierService(repo, dispatcher)

	sup := seedSupplier(repo, true)
	lastErr := "products responded 422"
	d := &model.Delivery{
		ID:                uuid.New(),
		SupplierID:        sup.ID,
		ProductID:         uuid.New(),
		QuantityDelta:     5,
		DeliveredAt:       time.Now(),
		PropagationStatus: model.PropagationFailed,
		Attempts:          5,
		LastError:         &lastErr,
	}
	repo.deliveries[d.ID] = d

	resp, err := svc.RetryDelivery(context.Background(), sup.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropagationPending, resp.PropagationStatus)
	assert.Nil(t, resp.LastError)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, d.ID, dispatcher.enqueued[0])
}

func TestRetryDelivery_AppliedIsNoOp(t *testing.T) {
	repo := newStubSupplierRepo()
	dispatcher := &stubDispatcher{}
	svc := NewSupplierService(repo, dispatcher)

	sup := seedSupplier(repo, true)
	d := &model.Delivery{
		ID:                uuid.New(),
		SupplierID:        sup.ID,
		ProductID:         uuid.New(),
		QuantityDelta:     5,
		DeliveredAt:       time.Now(),
		PropagationStatus: model.PropagationApplied,
		Attempts:          1,
	}
	repo.deliveries[d.ID] = d

	resp, err := svc.RetryDelivery(context.Background(), sup.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PropagationApplied, resp.PropagationStatus)
	assert.Empty(t, dispatcher.enqueued)
}
