package validator

import (
	"bookit/pkg/logger"
	"bookit/pkg/model"
	"bookit/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type AvailabilityValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAvailabilityValidator(log *logger.Logger) *AvailabilityValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to initialize availability validator", "error", err)
	}

	return &AvailabilityValidator{
		validate: v,
		logger:   log,
	}
}

// Validate checks the request shape and that the window is not empty.
// "24:00" is accepted as an end of day.
func (v *AvailabilityValidator) Validate(req *model.AvailabilityRuleRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}

	start, err := model.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return validation.ValidationErrors{{Field: "start_time", Message: err.Error()}}
	}
	end, err := model.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return validation.ValidationErrors{{Field: "end_time", Message: err.Error()}}
	}

	if !end.After(start) {
		return validation.ValidationErrors{{
			Field:   "end_time",
			Message: "end_time must be after start_time",
		}}
	}
	return nil
}
