package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"retail-bank-core/internal/domain"
)

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper. decimal.Decimal fields validate as
// numbers, so tags like gt=0 apply to them.
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	return &ValidationHelper{validator: v}
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// Validate runs ValidateStruct and wraps any failure in sentinel with a field summary.
func (vh *ValidationHelper) Validate(sentinel error, s any) error {
	err := vh.ValidateStruct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}

	details := ValidationDetails(verrs)
	fields := make([]string, 0, len(details))
	for field, tag := range details {
		fields = append(fields, field+" failed '"+tag+"'")
	}
	sort.Strings(fields)
	return fmt.Errorf("%w: %s", sentinel, strings.Join(fields, ", "))
}

// ValidationDetails maps each failing field to the tag that rejected it.
func ValidationDetails(err error) map[string]string {
	details := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}

// validateAmount rejects non-positive amounts and amounts with sub-cent precision.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero, got %s", domain.ErrInvalidAmount, amount)
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w: amount has more than two decimal places: %s", domain.ErrInvalidAmount, amount)
	}
	return nil
}
