package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactValidator_Email(t *testing.T) {
	v := NewContactValidator()

	valid := []string{"info@ug.edu.gh", "balme.library@ug.edu.gh", "a-b@c.com"}
	for _, email := range valid {
		t.Run(email, func(t *testing.T) {
			assert.NoError(t, v.ValidateEmail(email))
		})
	}

	invalid := []string{"", "no-at-sign", "x@y", "x@y.longtld", "@ug.edu.gh"}
	for _, email := range invalid {
		t.Run("invalid "+email, func(t *testing.T) {
			assert.ErrorIs(t, v.ValidateEmail(email), ErrInvalidEmail)
		})
	}
}

func TestContactValidator_Website(t *testing.T) {
	v := NewContactValidator()

	assert.NoError(t, v.ValidateWebsite("https://www.ug.edu.gh"))
	assert.NoError(t, v.ValidateWebsite("http://library.ug.edu.gh/hours?day=monday"))
	assert.ErrorIs(t, v.ValidateWebsite("ftp://ug.edu.gh"), ErrInvalidWebsite)
	assert.ErrorIs(t, v.ValidateWebsite("ug.edu.gh"), ErrInvalidWebsite)
}

func TestContactValidator_Phone(t *testing.T) {
	v := NewContactValidator()

	assert.NoError(t, v.ValidatePhone("+233 30 221 3820"))
	assert.ErrorIs(t, v.ValidatePhone("+233 30 221 3820 ext 1234"), ErrPhoneTooLong)
}

type ruleFixture struct {
	Category string `validate:"facility_category"`
	Day      string `validate:"weekday"`
	Email    string `validate:"omitempty,contact_email"`
	Website  string `validate:"omitempty,website_url"`
}

func TestRegister_CustomRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	ok := ruleFixture{Category: "general use", Day: "weekdays", Email: "info@ug.edu.gh", Website: "https://ug.edu.gh"}
	assert.NoError(t, v.Struct(ok))

	bad := ruleFixture{Category: "general_use", Day: "Funday", Email: "nope", Website: "nope"}
	err := v.Struct(bad)
	require.Error(t, err)

	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 4)

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "category has an invalid value 'general_use'")
	assert.Contains(t, msg, ErrInvalidEmail.Error())
	assert.Contains(t, msg, ErrInvalidWebsite.Error())
}

func TestFormatValidationError_Lengths(t *testing.T) {
	type review struct {
		Title  string `validate:"required,min=10,max=100"`
		Rating int    `validate:"min=1,max=10"`
	}

	v := validator.New()
	err := v.Struct(review{Title: "short", Rating: 11})
	require.Error(t, err)

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "title must be at least 10 characters")
	assert.Contains(t, msg, "rating can not be more than 10")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Balme Library", "balme-library"},
		{"  Great Hall (JCR)  ", "great-hall-jcr"},
		{"Night-Market  Stalls", "night-market-stalls"},
		{"Lab #3", "lab-3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Great place to study", StripHTML("<b>Great</b> place to study<script>alert(1)</script>"))
}

func TestRegister_PlainMinCountsTextWithoutMarkup(t *testing.T) {
	type review struct {
		Text        string `validate:"required,plain_min=10"`
		Description string `validate:"required,plain_min=1"`
	}

	v := validator.New()
	require.NoError(t, Register(v))

	assert.NoError(t, v.Struct(review{Text: "<i>Quiet and well lit</i>", Description: "Library"}))

	err := v.Struct(review{Text: "<b>hi</b>xx", Description: "<p></p>"})
	require.Error(t, err)

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "text must be at least 10 characters")
	assert.Contains(t, msg, "Please add a description")
}
