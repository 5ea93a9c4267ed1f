package peer

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service names used as keys into the client's base URL map.
const (
	ServiceCategories = "categories"
	ServiceSuppliers  = "suppliers"
	ServiceProducts   = "products"
)

// Reference existence checks. Both return (false, nil) when the peer answered
// authoritatively that the id does not exist (or the record is inactive), and
// a non-nil error — usually ErrUpstreamUnavailable — when no authoritative
// answer could be obtained.

type categoryRef struct {
	ID     uuid.UUID `json:"id"`
	Active bool      `json:"active"`
}

// CategoryExists checks that a category id exists and is active.
func (c *Client) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	resp, err := c.Call(ctx, ServiceCategories, http.MethodGet, "/categories/"+id.String(), nil, "")
	if err != nil {
		var sem *SemanticError
		if errors.As(err, &sem) && sem.IsNotFound() {
			return false, nil
		}
		return false, err
	}
	var ref categoryRef
	if err := resp.Decode(&ref); err != nil {
		return false, err
	}
	return ref.Active, nil
}

type supplierRef struct {
	ID     uuid.UUID `json:"id"`
	Active bool      `json:"active"`
}

// SupplierActive checks that a supplier id exists and is active.
func (c *Client) SupplierActive(ctx context.Context, id uuid.UUID) (bool, error) {
	resp, err := c.Call(ctx, ServiceSuppliers, http.MethodGet, "/suppliers/"+id.String(), nil, "")
	if err != nil {
		var sem *SemanticError
		if errors.As(err, &sem) && sem.IsNotFound() {
			return false, nil
		}
		return false, err
	}
	var ref supplierRef
	if err := resp.Decode(&ref); err != nil {
		return false, err
	}
	return ref.Active, nil
}

// ProductDetail is the read-only slice of a product the reviews service shows.
type ProductDetail struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// GetProduct fetches product display data from the products service.
func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error) {
	resp, err := c.Call(ctx, ServiceProducts, http.MethodGet, "/products/"+id.String(), nil, "")
	if err != nil {
		return nil, err
	}
	var d ProductDetail
	if err := resp.Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ApplyOutcome mirrors the products service's answer to an idempotent
// stock/price mutation.
type ApplyOutcome struct {
	ProductID      uuid.UUID       `json:"product_id"`
	StockQty       int             `json:"stock_qty"`
	Price          decimal.Decimal `json:"price"`
	AlreadyApplied bool            `json:"already_applied"`
}

type stockDeltaPayload struct {
	Delta      int    `json:"delta"`
	DeliveryID string `json:"delivery_id"`
}

// ApplyStockDelta asks the products service for an idempotent stock change
// keyed by deliveryID. Safe to call again after a lost response.
func (c *Client) ApplyStockDelta(ctx context.Context, productID uuid.UUID, delta int, deliveryID string) (*ApplyOutcome, error) {
	payload := stockDeltaPayload{Delta: delta, DeliveryID: deliveryID}
	resp, err := c.Call(ctx, ServiceProducts, http.MethodPatch, "/products/"+productID.String()+"/stock", payload, deliveryID)
	if err != nil {
		return nil, err
	}
	var out ApplyOutcome
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

type priceChangePayload struct {
	NewPrice   decimal.Decimal `json:"new_price"`
	DeliveryID string          `json:"delivery_id"`
}

// ApplyPriceChange asks the products service for an idempotent price change
// keyed by deliveryID.
func (c *Client) ApplyPriceChange(ctx context.Context, productID uuid.UUID, newPrice decimal.Decimal, deliveryID string) (*ApplyOutcome, error) {
	payload := priceChangePayload{NewPrice: newPrice, DeliveryID: deliveryID}
	resp, err := c.Call(ctx, ServiceProducts, http.MethodPatch, "/products/"+productID.String()+"/price", payload, deliveryID)
	if err != nil {
		return nil, err
	}
	var out ApplyOutcome
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
