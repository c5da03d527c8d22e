package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-room-schedule/internal/schedule"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
)

// NewValidator returns a validator with the schedule specific rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hourlabel", func(fl validator.FieldLevel) bool {
		return schedule.IsHourLabel(fl.Field().String())
	})
	return v
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
