package forms

import "strings"

// Verification steps in the order they are presented.
const (
	StepPersonal = "personal"
	StepAddress  = "address"
)

// Steps is an ordered multi-step form.
type Steps []string

// DefaultVerifySteps is the settings verification flow.
var DefaultVerifySteps = Steps{StepPersonal, StepAddress}

// Index returns the position of step, -1 if unknown.
func (s Steps) Index(step string) int {
	step = strings.ToLower(strings.TrimSpace(step))
	for i, v := range s {
		if v == step {
			return i
		}
	}
	return -1
}

// Has reports whether step is part of the flow.
func (s Steps) Has(step string) bool {
	return s.Index(step) >= 0
}

// First returns the first step.
func (s Steps) First() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Next returns the step after step. ok is false on the last or unknown step.
func (s Steps) Next(step string) (string, bool) {
	i := s.Index(step)
	if i < 0 || i+1 >= len(s) {
		return "", false
	}
	return s[i+1], true
}

// Previous returns the step before step. ok is false on the first step.
func (s Steps) Previous(step string) (string, bool) {
	i := s.Index(step)
	if i <= 0 {
		return "", false
	}
	return s[i-1], true
}

// Last reports whether step is the final step.
func (s Steps) Last(step string) bool {
	i := s.Index(step)
	return i >= 0 && i == len(s)-1
}

// NewStepForm returns an empty form for a known step.
func NewStepForm(step string) (*State, bool) {
	switch strings.ToLower(step) {
	case StepPersonal:
		return NewPersonalForm(), true
	case StepAddress:
		return NewAddressForm(), true
	}
	return nil, false
}
