package forms

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

// Personal step input names.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldPhone     = "phone"
)

const (
	MsgFirstNameRequired = "First name is required"
	MsgLastNameRequired  = "Last name is required"
	MsgPhoneInvalid      = "Please enter a valid phone number"
)

// DefaultPhoneRegion is used for numbers typed without a country code.
const DefaultPhoneRegion = "US"

// NewPersonalForm declares the personal information step inputs.
func NewPersonalForm() *State {
	return NewState(FieldFirstName, FieldLastName, FieldPhone)
}

// ValidatePersonal checks the personal step, records field errors on the
// form and rewrites the phone number in E.164 on success.
func ValidatePersonal(s *State, region string) bool {
	s.ClearErrors()

	if region == "" {
		region = DefaultPhoneRegion
	}

	first := strings.TrimSpace(s.Value(FieldFirstName))
	last := strings.TrimSpace(s.Value(FieldLastName))

	if err := validation.Validate(first, validation.Required, validation.Length(1, 200)); err != nil {
		s.SetError(FieldFirstName, MsgFirstNameRequired)
	}
	if err := validation.Validate(last, validation.Required, validation.Length(1, 200)); err != nil {
		s.SetError(FieldLastName, MsgLastNameRequired)
	}

	phone := strings.TrimSpace(s.Value(FieldPhone))
	if phone != "" {
		normalized, ok := NormalizePhone(phone, region)
		if !ok {
			s.SetError(FieldPhone, MsgPhoneInvalid)
		} else {
			s.Change(FieldPhone, normalized)
		}
	}

	return !s.HasErrors()
}

// NormalizePhone parses raw and formats it as E.164.
func NormalizePhone(raw, region string) (string, bool) {
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}
