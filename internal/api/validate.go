package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/giftcard-console/internal/model"
)

// newValidator returns a validator that knows the marketplace enums.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notification_type", func(fl validator.FieldLevel) bool {
		return oneOf(model.NotificationType(fl.Field().String()), model.NotificationTypes)
	})
	_ = v.RegisterValidation("activity_category", func(fl validator.FieldLevel) bool {
		return oneOf(model.ActivityCategory(fl.Field().String()), model.ActivityCategories)
	})
	_ = v.RegisterValidation("activity_severity", func(fl validator.FieldLevel) bool {
		return oneOf(model.ActivitySeverity(fl.Field().String()), model.ActivitySeverities)
	})
	return v
}

func oneOf[T comparable](v T, all []T) bool {
	for _, a := range all {
		if a == v {
			return true
		}
	}
	return false
}

// ValidateNotificationFilter checks f after normalization.
func (c *Client) ValidateNotificationFilter(f model.NotificationFilter) error {
	if err := c.validate.Struct(f.Normalize()); err != nil {
		return fmt.Errorf("invalid notification filter: %s", formatValidationError(err))
	}
	return nil
}

// ValidateActivityFilter checks f after normalization, including the
// date range order.
func (c *Client) ValidateActivityFilter(f model.ActivityFilter) error {
	f = f.Normalize()
	if err := c.validate.Struct(f); err != nil {
		return fmt.Errorf("invalid activity filter: %s", formatValidationError(err))
	}
	// YYYY-MM-DD compares lexically.
	if f.StartDate != "" && f.EndDate != "" && f.StartDate > f.EndDate {
		return fmt.Errorf("invalid activity filter: start date is after end date")
	}
	return nil
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fieldErrorMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date like 2006-01-02", field)
	case "notification_type", "activity_category", "activity_severity":
		return fmt.Sprintf("%s has unknown value %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
