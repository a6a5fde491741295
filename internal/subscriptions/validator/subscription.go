package validator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"parkhub/pkg/logger"
	"parkhub/pkg/model"
	"parkhub/pkg/timeutil"
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

type SubscriptionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSubscriptionValidator(log *logger.Logger) *SubscriptionValidator {
	return &SubscriptionValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *SubscriptionValidator) Validate(subscription *model.Subscription) error {
	if err := v.validate.Struct(subscription); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if err := model.ValidateWeeklySlots(subscription.WeeklySlots); err != nil {
		return ValidationErrors{
			ValidationError{Field: "WeeklySlots", Message: err.Error()},
		}
	}

	return nil
}

// ValidateSlotsWithinHours checks that every requested slot falls entirely
// inside the facility's opening windows for its weekday. An always-open
// facility accepts any slot.
func (v *SubscriptionValidator) ValidateSlotsWithinHours(slots map[string][]model.Slot, facility *model.Facility) error {
	for day, daySlots := range slots {
		d, err := strconv.Atoi(day)
		if err != nil || d < 0 || d > 6 {
			return ValidationErrors{
				ValidationError{Field: "WeeklySlots", Message: fmt.Sprintf("day key must be 0-6, got %q", day)},
			}
		}
		for _, slot := range daySlots {
			startMin, err := timeutil.ParseHHMM(slot.Start)
			if err != nil {
				return ValidationErrors{
					ValidationError{Field: "WeeklySlots", Message: fmt.Sprintf("day %s: %v", day, err)},
				}
			}
			endMin, err := timeutil.ParseHHMM(slot.End)
			if err != nil {
				return ValidationErrors{
					ValidationError{Field: "WeeklySlots", Message: fmt.Sprintf("day %s: %v", day, err)},
				}
			}
			if !facility.CoversDayWindow(time.Weekday(d), startMin, endMin) {
				return ValidationErrors{
					ValidationError{
						Field:   "WeeklySlots",
						Message: fmt.Sprintf("day %s: slot %s-%s falls outside the facility's opening hours", day, slot.Start, slot.End),
					},
				}
			}
		}
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
