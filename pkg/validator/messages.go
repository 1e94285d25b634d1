package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormatValidationError turns binding errors into a single readable message
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return strings.Join(messages, ", ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please add a %s", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s can not be more than %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s can not be more than %s", field, fe.Param())
	case "plain_min":
		if fe.Param() == "1" {
			return fmt.Sprintf("Please add a %s", field)
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have exactly %s values", field, fe.Param())
	case "oneof", "facility_category", "weekday", "eq":
		return fmt.Sprintf("%s has an invalid value '%v'", field, fe.Value())
	case "contact_email", "email":
		return ErrInvalidEmail.Error()
	case "website_url":
		return ErrInvalidWebsite.Error()
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Name":        "name",
		"Description": "description",
		"Campus":      "campus",
		"Category":    "category",
		"Location":    "location",
		"Coordinates": "coordinates",
		"Title":       "title",
		"Text":        "text",
		"Rating":      "rating",
		"Email":       "email",
		"Password":    "password",
		"Day":         "day",
		"Open":        "opening time",
		"Close":       "closing time",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}
