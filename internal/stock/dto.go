package stock

import (
	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/core/common/validation"
)

type SetQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (r SetQuantityRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("quantity", r.Quantity).Custom(func(value interface{}) *errors.AppError {
		if q, ok := value.(*int); !ok || q == nil {
			return errors.NewValidationFieldError("quantity", "quantity is required", errors.ErrCodeValidationFailed)
		}
		return nil
	})
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
