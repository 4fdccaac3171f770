package handler

import (
	"errors"
	"net/http"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository"
	"github.com/gin-gonic/gin"
)

const (
	scopeProduct    = "product"
	scopeOrder      = "order"
	scopeCreditCard = "credit_card"
)

const (
	codeMissingFields   = "missing-fields"
	codeOutOfInventory  = "out-of-inventory"
	codeAlreadyPaid     = "already-paid"
	codeCardDeclined    = "card-declined"
	codeUnknownProvince = "unknown-province"
	codeNotFound        = "not-found"
	codeInternal        = "internal-error"
)

type apiError struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type errorEnvelope struct {
	Errors map[string]apiError `json:"errors"`
}

func abortWithError(c *gin.Context, status int, scope, code, name string) {
	c.AbortWithStatusJSON(status, errorEnvelope{
		Errors: map[string]apiError{scope: {Code: code, Name: name}},
	})
}

func missingFields(c *gin.Context, scope string) {
	abortWithError(c, http.StatusUnprocessableEntity, scope, codeMissingFields,
		"One or more required fields are missing")
}

// cardDeclined is the only error answered without the errors wrapper.
func cardDeclined(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		scopeCreditCard: apiError{Code: codeCardDeclined, Name: "The credit card was declined"},
	})
}

// serviceError maps a service error to its response. It reports false for
// errors without a client facing mapping.
func serviceError(c *gin.Context, scope string, err error) bool {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		abortWithError(c, http.StatusNotFound, scopeOrder, codeNotFound, "Order not found")
	case errors.Is(err, repository.ErrProductNotFound):
		abortWithError(c, http.StatusNotFound, scopeProduct, codeNotFound, "Product not found")
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidCreditCard):
		missingFields(c, scope)
	case errors.Is(err, domain.ErrMissingShippingInformation):
		abortWithError(c, http.StatusUnprocessableEntity, scope, codeMissingFields,
			"Customer information is required before applying a credit card")
	case errors.Is(err, domain.ErrOutOfInventory):
		abortWithError(c, http.StatusUnprocessableEntity, scope, codeOutOfInventory,
			"The requested product is not in inventory")
	case errors.Is(err, domain.ErrAlreadyPaid):
		abortWithError(c, http.StatusUnprocessableEntity, scope, codeAlreadyPaid,
			"The order has already been paid")
	case errors.Is(err, domain.ErrUnknownProvince):
		abortWithError(c, http.StatusUnprocessableEntity, scope, codeUnknownProvince,
			"Shipping to this province is not supported")
	default:
		return false
	}
	return true
}

func internalError(c *gin.Context, scope string) {
	abortWithError(c, http.StatusInternalServerError, scope, codeInternal, "Internal server error")
}
