package validator

import (
	"fmt"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var facilityCategories = map[string]bool{
	"classroom": true, "general use": true, "laboratory": true, "office": true,
	"residential": true, "special use": true, "study": true, "support": true, "other": true,
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true, "weekdays": true,
}

var registerOnce sync.Once

// RegisterRules installs the custom binding tags on gin's validator engine:
// facility_category, contact_email, website_url, weekday and plain_min.
func RegisterRules() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = Register(v)
	})
	return err
}

// Register installs the custom tags on v
func Register(v *validator.Validate) error {
	contact := NewContactValidator()

	rules := map[string]validator.Func{
		"facility_category": func(fl validator.FieldLevel) bool {
			return facilityCategories[fl.Field().String()]
		},
		"contact_email": func(fl validator.FieldLevel) bool {
			return contact.ValidateEmail(fl.Field().String()) == nil
		},
		"website_url": func(fl validator.FieldLevel) bool {
			return contact.ValidateWebsite(fl.Field().String()) == nil
		},
		"weekday": func(fl validator.FieldLevel) bool {
			return weekdays[fl.Field().String()]
		},
		// plain_min=N counts characters left after StripHTML
		"plain_min": func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return utf8.RuneCountInString(StripHTML(fl.Field().String())) >= n
		},
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s rule: %w", tag, err)
		}
	}
	return nil
}
