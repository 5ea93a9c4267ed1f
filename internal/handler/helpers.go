package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/ndevops25/e-commerce-microservices/internal/apierror"
	"github.com/ndevops25/e-commerce-microservices/internal/peer"
	"github.com/ndevops25/e-commerce-microservices/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps service errors onto HTTP statuses. The distinction that
// matters most: a missing referenced entity is a semantic rejection (422), a
// missing addressed entity is a plain 404, and an unreachable peer is 503 so
// the caller knows to retry rather than to fix the request.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.New("not found"))
	case errors.Is(err, service.ErrReferenceNotFound):
		c.JSON(http.StatusUnprocessableEntity, apierror.New("referenced entity does not exist"))
	case errors.Is(err, service.ErrCycleDetected):
		c.JSON(http.StatusUnprocessableEntity, apierror.New("operation would create a cycle in the category tree"))
	case errors.Is(err, service.ErrSupplierInactive):
		c.JSON(http.StatusUnprocessableEntity, apierror.New("supplier is inactive"))
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusUnprocessableEntity, apierror.New("stock cannot go negative"))
	case errors.Is(err, service.ErrAlreadyExists):
		c.JSON(http.StatusConflict, apierror.New("resource already exists"))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, apierror.New("version conflict, reload and retry"))
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, apierror.New("invalid status transition"))
	case errors.Is(err, peer.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, apierror.New("a dependent service is unavailable, retry later"))
	default:
		var sem *peer.SemanticError
		if errors.As(err, &sem) {
			c.JSON(http.StatusUnprocessableEntity, apierror.New(sem.Detail))
			return
		}
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	}
}

// parseID reads a uuid path param, writing a 400 on failure.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}
