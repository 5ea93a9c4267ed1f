package service

import (
	"context"
	"errors"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/dto"
	"github.com/ndevops25/e-commerce-microservices/internal/model"
	"github.com/ndevops25/e-commerce-microservices/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DeliveryDispatcher hands a freshly recorded delivery to the propagation
// worker. The supplier write path never waits for propagation.
type DeliveryDispatcher interface {
	EnqueuePropagation(ctx context.Context, deliveryID uuid.UUID) error
}

// SupplierService defines business operations for the supplier registry.
type SupplierService interface {
	Create(ctx context.Context, req dto.CreateSupplierRequest) (dto.SupplierResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.SupplierResponse, error)
	List(ctx context.Context) ([]dto.SupplierResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateSupplierRequest) (dto.SupplierResponse, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	AddContact(ctx context.Context, supplierID uuid.UUID, req dto.CreateContactRequest) (dto.ContactResponse, error)
	ListContacts(ctx context.Context, supplierID uuid.UUID) ([]dto.ContactResponse, error)

	RecordDelivery(ctx context.Context, supplierID uuid.UUID, req dto.RecordDeliveryRequest) (dto.DeliveryResponse, error)
	ListDeliveries(ctx context.Context, supplierID uuid.UUID) ([]dto.DeliveryResponse, error)
	GetDelivery(ctx context.Context, supplierID, deliveryID uuid.UUID) (dto.DeliveryResponse, error)
	RetryDelivery(ctx context.Context, supplierID, deliveryID uuid.UUID) (dto.DeliveryResponse, error)
}

type supplierService struct {
	repo       repository.SupplierRepository
	dispatcher DeliveryDispatcher
}

func NewSupplierService(repo repository.SupplierRepository, dispatcher DeliveryDispatcher) SupplierService {
	return &supplierService{repo: repo, dispatcher: dispatcher}
}

func mapSupplier(s model.Supplier) dto.SupplierResponse {
	return dto.SupplierResponse{
		ID:           s.ID,
		LegalName:    s.LegalName,
		TradingName:  s.TradingName,
		TaxID:        s.TaxID,
		Email:        s.Email,
		Phone:        s.Phone,
		PaymentTerms: s.PaymentTerms,
		Active:       s.Active,
	}
}

func mapDelivery(d model.Delivery) dto.DeliveryResponse {
	return dto.DeliveryResponse{
		ID:                d.ID,
		SupplierID:        d.SupplierID,
		ProductID:         d.ProductID,
		QuantityDelta:     d.QuantityDelta,
		UnitCost:          d.UnitCost,
		InvoiceNumber:     d.InvoiceNumber,
		DeliveredAt:       d.DeliveredAt,
		PropagationStatus: d.PropagationStatus,
		Attempts:          d.Attempts,
		LastError:         d.LastError,
		NextRetryAt:       d.NextRetryAt,
	}
}

func (s *supplierService) Create(ctx context.Context, req dto.CreateSupplierRequest) (dto.SupplierResponse, error) {
	sup := &model.Supplier{
		ID:           uuid.New(),
		LegalName:    req.LegalName,
		TradingName:  req.TradingName,
		TaxID:        req.TaxID,
		Email:        req.Email,
		Phone:        req.Phone,
		PaymentTerms: req.PaymentTerms,
		Active:       true,
	}
	if err := s.repo.Create(ctx, sup); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SupplierResponse{}, ErrAlreadyExists
		}
		return dto.SupplierResponse{}, err
	}
	return mapSupplier(*sup), nil
}

func (s *supplierService) Get(ctx context.Context, id uuid.UUID) (dto.SupplierResponse, error) {
	sup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SupplierResponse{}, ErrNotFound
		}
		return dto.SupplierResponse{}, err
	}
	return mapSupplier(*sup), nil
}

func (s *supplierService) List(ctx context.Context) ([]dto.SupplierResponse, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.SupplierResponse, 0, len(list))
	for _, sup := range list {
		result = append(result, mapSupplier(sup))
	}
	return result, nil
}

func (s *supplierService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateSupplierRequest) (dto.SupplierResponse, error) {
	sup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SupplierResponse{}, ErrNotFound
		}
		return dto.SupplierResponse{}, err
	}

	if req.LegalName != nil {
		sup.LegalName = *req.LegalName
	}
	if req.TradingName != nil {
		sup.TradingName = req.TradingName
	}
	if req.Email != nil {
		sup.Email = *req.Email
	}
	if req.Phone != nil {
		sup.Phone = req.Phone
	}
	if req.PaymentTerms != nil {
		sup.PaymentTerms = req.PaymentTerms
	}

	if err := s.repo.Update(ctx, sup); err != nil {
		return dto.SupplierResponse{}, err
	}
	return mapSupplier(*sup), nil
}

// SetActive flips the active flag. Deactivation blocks future deliveries but
// leaves the existing delivery history untouched.
func (s *supplierService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.repo.SetActive(ctx, id, active)
}

func (s *supplierService) AddContact(ctx context.Context, supplierID uuid.UUID, req dto.CreateContactRequest) (dto.ContactResponse, error) {
	if _, err := s.repo.FindByID(ctx, supplierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ContactResponse{}, ErrNotFound
		}
		return dto.ContactResponse{}, err
	}

	// A new primary demotes the previous one.
	if req.IsPrimary {
		if err := s.repo.ClearPrimary(ctx, supplierID); err != nil {
			return dto.ContactResponse{}, err
		}
	}

	c := &model.SupplierContact{
		ID:         uuid.New(),
		SupplierID: supplierID,
		Name:       req.Name,
		Position:   req.Position,
		Email:      req.Email,
		Phone:      req.Phone,
		IsPrimary:  req.IsPrimary,
	}
	if err := s.repo.CreateContact(ctx, c); err != nil {
		return dto.ContactResponse{}, err
	}
	return dto.ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Position:  c.Position,
		Email:     c.Email,
		Phone:     c.Phone,
		IsPrimary: c.IsPrimary,
	}, nil
}

func (s *supplierService) ListContacts(ctx context.Context, supplierID uuid.UUID) ([]dto.ContactResponse, error) {
	if _, err := s.repo.FindByID(ctx, supplierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	contacts, err := s.repo.ListContacts(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		result = append(result, dto.ContactResponse{
			ID:        c.ID,
			Name:      c.Name,
			Position:  c.Position,
			Email:     c.Email,
			Phone:     c.Phone,
			IsPrimary: c.IsPrimary,
		})
	}
	return result, nil
}

// RecordDelivery creates the delivery in pending state and hands it to the
// propagation worker. The response is returned immediately — the contract is
// "delivery recorded", not "stock updated".
func (s *supplierService) RecordDelivery(ctx context.Context, supplierID uuid.UUID, req dto.RecordDeliveryRequest) (dto.DeliveryResponse, error) {
	sup, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DeliveryResponse{}, ErrNotFound
		}
		return dto.DeliveryResponse{}, err
	}
	if !sup.Active {
		return dto.DeliveryResponse{}, ErrSupplierInactive
	}

	deliveredAt := time.Now().UTC()
	if req.DeliveredAt != nil {
		deliveredAt = *req.DeliveredAt
	}

	d := &model.Delivery{
		ID:                uuid.New(),
		SupplierID:        supplierID,
		ProductID:         req.ProductID,
		QuantityDelta:     req.QuantityDelta,
		UnitCost:          req.UnitCost,
		InvoiceNumber:     req.InvoiceNumber,
		Notes:             req.Notes,
		DeliveredAt:       deliveredAt,
		PropagationStatus: model.PropagationPending,
	}
	if err := s.repo.CreateDelivery(ctx, d); err != nil {
		return dto.DeliveryResponse{}, err
	}

	if err := s.dispatcher.EnqueuePropagation(ctx, d.ID); err != nil {
		// The delivery is durably recorded; schedule it for the re-drive
		// cron instead of failing the request.
		log.Warn().Err(err).Str("delivery_id", d.ID.String()).Msg("propagation enqueue failed, leaving for re-drive")
		now := time.Now().UTC()
		d.NextRetryAt = &now
		_ = s.repo.UpdateDelivery(ctx, d)
	}

	return mapDelivery(*d), nil
}

func (s *supplierService) ListDeliveries(ctx context.Context, supplierID uuid.UUID) ([]dto.DeliveryResponse, error) {
	if _, err := s.repo.FindByID(ctx, supplierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	deliveries, err := s.repo.ListDeliveries(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		result = append(result, mapDelivery(d))
	}
	return result, nil
}

func (s *supplierService) GetDelivery(ctx context.Context, supplierID, deliveryID uuid.UUID) (dto.DeliveryResponse, error) {
	d, err := s.repo.FindDeliveryByID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DeliveryResponse{}, ErrNotFound
		}
		return dto.DeliveryResponse{}, err
	}
	if d.SupplierID != supplierID {
		return dto.DeliveryResponse{}, ErrNotFound
	}
	return mapDelivery(*d), nil
}

// RetryDelivery re-drives a failed delivery. Safe even if the failed attempt
// actually succeeded remotely: the products-side ledger makes the re-apply a
// no-op. Applied deliveries return unchanged.
func (s *supplierService) RetryDelivery(ctx context.Context, supplierID, deliveryID uuid.UUID) (dto.DeliveryResponse, error) {
	d, err := s.repo.FindDeliveryByID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DeliveryResponse{}, ErrNotFound
		}
		return dto.DeliveryResponse{}, err
	}
	if d.SupplierID != supplierID {
		return dto.DeliveryResponse{}, ErrNotFound
	}

	if d.PropagationStatus == model.PropagationApplied {
		return mapDelivery(*d), nil
	}

	if d.PropagationStatus == model.PropagationFailed {
		d.PropagationStatus = model.PropagationPending
		d.NextRetryAt = nil
		d.LastError = nil
		if err := s.repo.UpdateDelivery(ctx, d); err != nil {
			return dto.DeliveryResponse{}, err
		}
	}

	if err := s.dispatcher.EnqueuePropagation(ctx, d.ID); err != nil {
		return dto.DeliveryResponse{}, err
	}
	return mapDelivery(*d), nil
}
