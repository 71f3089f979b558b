package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// BookingValidator checks quote and create requests: struct tags first,
// then the temporal rules tags cannot express.
type BookingValidator struct {
	validate       *validator.Validate
	clockSkewGrace time.Duration
	maxWindow      time.Duration
	logger         *logger.Logger
}

func NewBookingValidator(clockSkewGrace time.Duration, log *logger.Logger) *BookingValidator {
	return &BookingValidator{
		validate:       validator.New(),
		clockSkewGrace: clockSkewGrace,
		maxWindow:      30 * 24 * time.Hour,
		logger:         log,
	}
}

func (v *BookingValidator) ValidateQuoteRequest(req *model.QuoteRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return v.toValidationErrors(err)
	}
	return v.validateWindow(req.StartTime, req.EndTime)
}

func (v *BookingValidator) ValidateCreateRequest(req *model.CreateBookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return v.toValidationErrors(err)
	}
	return v.validateWindow(req.StartTime, req.EndTime)
}

// validateWindow enforces the temporal rules: the window starts no
// earlier than now minus a small clock-skew grace, ends after it starts,
// and stays within a sane maximum length.
func (v *BookingValidator) validateWindow(start, end time.Time) error {
	var errs ValidationErrors

	now := time.Now().UTC()
	if start.Before(now.Add(-v.clockSkewGrace)) {
		errs = append(errs, ValidationError{
			Field:   "start_time",
			Message: "start time must not be in the past",
		})
	}
	if !end.After(start) {
		errs = append(errs, ValidationError{
			Field:   "end_time",
			Message: "end time must be after start time",
		})
	}
	if end.Sub(start) > v.maxWindow {
		errs = append(errs, ValidationError{
			Field:   "end_time",
			Message: fmt.Sprintf("booking window cannot exceed %s", v.maxWindow),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) toValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var out ValidationErrors
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "mongodb":
		return "must be a valid object id"
	case "gtfield":
		return "must be greater than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed validation rule '" + fe.Tag() + "'"
	}
}
