package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidEmail indicates a contact email does not match the accepted shape
	ErrInvalidEmail = errors.New("please add a valid email")

	// ErrInvalidWebsite indicates a website is not an http or https URL
	ErrInvalidWebsite = errors.New("please use a valid URL with HTTP or HTTPS")

	// ErrPhoneTooLong indicates a phone number longer than MaxPhoneLength
	ErrPhoneTooLong = errors.New("phone number can not be longer than 20 characters")
)

// MaxPhoneLength is the longest accepted contact phone
const MaxPhoneLength = 20

var (
	emailRegex   = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)
	websiteRegex = regexp.MustCompile(`^https?://(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&/=]*)$`)
)

// ContactValidator checks the contact fields shared by facilities and rooms
type ContactValidator struct{}

// NewContactValidator creates a new contact validator instance
func NewContactValidator() *ContactValidator {
	return &ContactValidator{}
}

// ValidateEmail validates a contact email address
func (v *ContactValidator) ValidateEmail(email string) error {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateWebsite validates a website URL
func (v *ContactValidator) ValidateWebsite(website string) error {
	if !websiteRegex.MatchString(strings.TrimSpace(website)) {
		return ErrInvalidWebsite
	}
	return nil
}

// ValidatePhone validates a contact phone number
func (v *ContactValidator) ValidatePhone(phone string) error {
	if len(phone) > MaxPhoneLength {
		return ErrPhoneTooLong
	}
	return nil
}
