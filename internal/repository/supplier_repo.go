package repository

import (
	"context"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SupplierRepository defines the data access contract for suppliers, their
// contacts, and their delivery history.
type SupplierRepository interface {
	Create(ctx context.Context, s *model.Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	List(ctx context.Context) ([]model.Supplier, error)
	Update(ctx context.Context, s *model.Supplier) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	CreateContact(ctx context.Context, c *model.SupplierContact) error
	ListContacts(ctx context.Context, supplierID uuid.UUID) ([]model.SupplierContact, error)
	// ClearPrimary demotes the current primary contact, if any.
	ClearPrimary(ctx context.Context, supplierID uuid.UUID) error

	CreateDelivery(ctx context.Context, d *model.Delivery) error
	FindDeliveryByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
	ListDeliveries(ctx context.Context, supplierID uuid.UUID) ([]model.Delivery, error)
	UpdateDelivery(ctx context.Context, d *model.Delivery) error

	// ListPendingRetries returns pending deliveries whose next_retry_at has
	// passed, oldest first, for the re-drive cron.
	ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.Delivery, error)

	// RescheduleRetry bumps next_retry_at only while the delivery is still
	// pending, so it never overwrites a concurrent apply.
	RescheduleRetry(ctx context.Context, id uuid.UUID, next time.Time) error
}

type supplierRepo struct{ db *gorm.DB }

func NewSupplierRepository(db *gorm.DB) SupplierRepository { return &supplierRepo{db: db} }

func (r *supplierRepo) Create(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *supplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var s model.Supplier
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *supplierRepo) List(ctx context.Context) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := r.db.WithContext(ctx).Order("legal_name ASC").Find(&suppliers).Error
	return suppliers, err
}

func (r *supplierRepo) Update(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Omit("Contacts", "Deliveries").Save(s).Error
}

func (r *supplierRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&model.Supplier{}).Where("id = ?", id).Update("active", active).Error
}

func (r *supplierRepo) CreateContact(ctx context.Context, c *model.SupplierContact) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *supplierRepo) ListContacts(ctx context.Context, supplierID uuid.UUID) ([]model.SupplierContact, error) {
	var contacts []model.SupplierContact
	err := r.db.WithContext(ctx).Where("supplier_id = ?", supplierID).Order("created_at ASC").Find(&contacts).Error
	return contacts, err
}

func (r *supplierRepo) ClearPrimary(ctx context.Context, supplierID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.SupplierContact{}).
		Where("supplier_id = ? AND is_primary = true", supplierID).
		Update("is_primary", false).Error
}

func (r *supplierRepo) CreateDelivery(ctx context.Context, d *model.Delivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *supplierRepo) FindDeliveryByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	var d model.Delivery
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	return &d, err
}

func (r *supplierRepo) ListDeliveries(ctx context.Context, supplierID uuid.UUID) ([]model.Delivery, error) {
	var deliveries []model.Delivery
	err := r.db.WithContext(ctx).Where("supplier_id = ?", supplierID).Order("delivered_at DESC").Find(&deliveries).Error
	return deliveries, err
}

func (r *supplierRepo) UpdateDelivery(ctx context.Context, d *model.Delivery) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *supplierRepo) ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.Delivery, error) {
	var deliveries []model.Delivery
	err := r.db.WithContext(ctx).
		Where("propagation_status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", model.PropagationPending, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&deliveries).Error
	return deliveries, err
}

func (r *supplierRepo) RescheduleRetry(ctx context.Context, id uuid.UUID, next time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Delivery{}).
		Where("id = ? AND propagation_status = ?", id, model.PropagationPending).
		Update("next_retry_at", next).Error
}
