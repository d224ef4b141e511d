package validation

import (
	"fmt"
	"strings"

	errors "github.com/frahmantamala/shopbot-engine/internal"
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
	}
}

// Field returns a pointer into the builder's slice; finish chaining one field before adding the next.
func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	}
	return 0, false
}

func (fv *FieldValidator) Required() *FieldValidator {
	name := fv.FieldName
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		required := errors.NewValidationFieldError(name, fmt.Sprintf("%s is required", name), errors.ErrCodeValidationFailed)
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return required
			}
		case *string:
			if v == nil || strings.TrimSpace(*v) == "" {
				return required
			}
		default:
			if n, ok := asInt64(value); ok && n == 0 {
				return required
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinInt(min int64, code errors.ErrorCode) *FieldValidator {
	name := fv.FieldName
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := asInt64(value); ok && v < min {
			return errors.NewValidationFieldError(name, fmt.Sprintf("%s must be at least %d", name, min), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxInt(max int64, code errors.ErrorCode) *FieldValidator {
	name := fv.FieldName
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := asInt64(value); ok && v > max {
			return errors.NewValidationFieldError(name, fmt.Sprintf("%s must not exceed %d", name, max), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	name := fv.FieldName
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok && len(v) > max {
			return errors.NewValidationFieldError(name, fmt.Sprintf("%s must not exceed %d characters", name, max), errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) OneOf(code errors.ErrorCode, allowed ...string) *FieldValidator {
	name := fv.FieldName
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := value.(string)
		if !ok {
			return nil
		}
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return errors.NewValidationFieldError(name, fmt.Sprintf("%s must be one of %s", name, strings.Join(allowed, ", ")), code)
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			appErr := validator(field.Value)
			if appErr == nil {
				continue
			}
			if details, ok := appErr.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
				continue
			}
			validationErrors = append(validationErrors, errors.ValidationError{
				Field:   field.FieldName,
				Message: appErr.Message,
				Code:    string(appErr.Code),
			})
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

// ValidateQuantity accepts a strictly positive unit count.
func ValidateQuantity(field string, qty int) *errors.AppError {
	validator := NewValidator()
	validator.Field(field, qty).
		MinInt(1, errors.ErrCodeInvalidQuantity).
		MaxInt(100000, errors.ErrCodeInvalidQuantity)
	return validator.Validate()
}

func ValidatePaymentMethod(method string) *errors.AppError {
	validator := NewValidator()
	validator.Field("payment_method", method).
		Required().
		OneOf(errors.ErrCodeInvalidMethod, "qris", "manual_bank_transfer")
	return validator.Validate()
}

func ValidateAmount(amount int64) *errors.AppError {
	validator := NewValidator()
	validator.Field("amount", amount).
		MinInt(1, errors.ErrCodeInvalidAmount)
	return validator.Validate()
}
