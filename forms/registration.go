package forms

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Register modal input names.
const (
	FieldEmail      = "email"
	FieldPassword   = "password"
	FieldAgreeTerms = "agreeTerms"
)

// Field scoped messages for the register modal.
const (
	MsgEmailRequired    = "Email is required"
	MsgPasswordRequired = "Password is required"
	MsgTermsRequired    = "Please agree to the Terms and Privacy Policy."
)

// Registration is the payload of the register modal.
type Registration struct {
	Email      string
	Password   string
	AgreeTerms bool
}

// NewRegistrationForm declares the register modal inputs.
func NewRegistrationForm() *State {
	return NewState(FieldEmail, FieldPassword).WithCheckbox(FieldAgreeTerms)
}

// RegistrationFromState reads the register modal payload out of a form.
func RegistrationFromState(s *State) Registration {
	return Registration{
		Email:      s.Value(FieldEmail),
		Password:   s.Value(FieldPassword),
		AgreeTerms: s.Checked(FieldAgreeTerms),
	}
}

type requiredCheck struct {
	field   string
	value   func(r Registration) any
	message string
	creds   bool
}

// order matters: the first failing check wins
var registrationChecks = []requiredCheck{
	{
		field:   FieldEmail,
		value:   func(r Registration) any { return r.Email },
		message: MsgEmailRequired,
		creds:   true,
	},
	{
		field:   FieldPassword,
		value:   func(r Registration) any { return r.Password },
		message: MsgPasswordRequired,
		creds:   true,
	},
	{
		field:   FieldAgreeTerms,
		value:   func(r Registration) any { return r.AgreeTerms },
		message: MsgTermsRequired,
	},
}

// Check runs the required checks in order and returns the first failure.
// Social sign up passes requireCredentials=false, leaving only the terms
// agreement.
func (r Registration) Check(requireCredentials bool) *FieldError {
	for _, c := range registrationChecks {
		if c.creds && !requireCredentials {
			continue
		}
		if err := validation.Validate(c.value(r), validation.Required.Error(c.message)); err != nil {
			return &FieldError{Field: c.field, Message: c.message}
		}
	}
	return nil
}

// Normalized trims the email. Passwords are kept verbatim.
func (r Registration) Normalized() Registration {
	r.Email = strings.TrimSpace(r.Email)
	return r
}
