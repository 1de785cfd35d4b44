package validator

import (
	"bookit/pkg/logger"
	"bookit/pkg/model"
	"bookit/pkg/validation"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate    *validator.Validate
	logger      *logger.Logger
	minPriority int
	maxPriority int
}

func NewBookingValidator(log *logger.Logger, minPriority, maxPriority int) *BookingValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to initialize booking validator", "error", err)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate:    v,
		logger:      log,
		minPriority: minPriority,
		maxPriority: maxPriority,
	}
}

func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}

	var errs validation.ValidationErrors

	if !req.EndTime.After(req.StartTime) {
		errs = append(errs, validation.ValidationError{
			Field:   "end_time",
			Message: "end_time must be after start_time",
		})
	}

	if req.Priority != nil && (*req.Priority < v.minPriority || *req.Priority > v.maxPriority) {
		errs = append(errs, validation.ValidationError{
			Field:   "priority",
			Message: fmt.Sprintf("priority must be between %d and %d", v.minPriority, v.maxPriority),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateReject requires a reason of at least minLength characters.
func (v *BookingValidator) ValidateReject(req *model.RejectRequest, minLength int) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}

	if utf8.RuneCountInString(req.Reason) < minLength {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "reason",
				Message: fmt.Sprintf("reason must be at least %d characters", minLength),
			},
		}
	}
	return nil
}
