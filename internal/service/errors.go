package service

import "errors"

// Domain error taxonomy. Handlers map these to HTTP statuses; every one of
// them means the write was rejected and persisted state is unchanged.
var (
	// ErrNotFound — the addressed entity does not exist in this service.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — unique field collision (slug, sku, tax id).
	ErrAlreadyExists = errors.New("already exists")

	// ErrReferenceNotFound — a foreign id was validated against its owning
	// service and authoritatively does not exist (or is inactive).
	ErrReferenceNotFound = errors.New("referenced entity not found")

	// ErrConflict — optimistic version mismatch; caller must re-read and retry.
	ErrConflict = errors.New("version conflict")

	// ErrCycleDetected — a parent reassignment would make a category its own
	// ancestor.
	ErrCycleDetected = errors.New("cycle detected in category hierarchy")

	// ErrSupplierInactive — deliveries may only be recorded for active
	// suppliers.
	ErrSupplierInactive = errors.New("supplier is inactive")

	// ErrInsufficientStock — the stock delta would drive stock_qty negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidTransition — a terminal review state cannot move again.
	ErrInvalidTransition = errors.New("invalid status transition")
)
