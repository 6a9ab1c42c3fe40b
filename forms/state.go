// Package forms holds per-field form state for the lobby modals and the
// multi-step settings forms.
package forms

import (
	"sort"
	"strings"
	"sync"
)

// FieldSource looks up a submitted form value by input name.
type FieldSource func(key string) string

// FieldError is a validation message scoped to a single input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	return e.Field + ": " + e.Message
}

// State maps input names to their current value. Text inputs and check
// boxes are kept apart so a submit packages only the text values.
type State struct {
	mu      sync.RWMutex
	fields  []string
	flags   []string
	values  map[string]string
	checks  map[string]bool
	errors  map[string]string
	initial map[string]string
}

// NewState declares the text fields a form owns.
func NewState(fields ...string) *State {
	s := &State{
		values:  make(map[string]string, len(fields)),
		checks:  map[string]bool{},
		errors:  map[string]string{},
		initial: make(map[string]string, len(fields)),
	}
	for _, f := range fields {
		s.declare(f, "")
	}
	return s
}

// WithCheckbox declares a boolean input.
func (s *State) WithCheckbox(names ...string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		if _, ok := s.checks[n]; ok {
			continue
		}
		s.flags = append(s.flags, n)
		s.checks[n] = false
	}
	return s
}

// WithDefault sets the initial value restored by Reset.
func (s *State) WithDefault(name, value string) *State {
	s.declare(name, value)
	return s
}

func (s *State) declare(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[name]; !ok {
		s.fields = append(s.fields, name)
	}
	s.values[name] = value
	s.initial[name] = value
}

// Change updates exactly one field. Unknown names are ignored.
func (s *State) Change(name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[name]; !ok {
		return false
	}
	s.values[name] = value
	return true
}

// Check updates exactly one check box. Unknown names are ignored.
func (s *State) Check(name string, checked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checks[name]; !ok {
		return false
	}
	s.checks[name] = checked
	return true
}

// Value returns the current text value of a field.
func (s *State) Value(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// Checked returns the current value of a check box.
func (s *State) Checked(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checks[name]
}

// Values returns a copy of the text values.
func (s *State) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Fields returns the declared text fields in declaration order.
func (s *State) Fields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.fields...)
}

// SetError sets the message displayed next to a field.
func (s *State) SetError(field, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		delete(s.errors, field)
		return
	}
	s.errors[field] = message
}

// Error returns the message for a field.
func (s *State) Error(field string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors[field]
}

// Errors returns a copy of every field error.
func (s *State) Errors() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// HasErrors reports whether any field has an error.
func (s *State) HasErrors() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.errors) > 0
}

// ClearErrors drops every field error.
func (s *State) ClearErrors() {
	s.mu.Lock()
	s.errors = map[string]string{}
	s.mu.Unlock()
}

// ApplyError stores a FieldError, clearing previous errors so only one
// message is shown.
func (s *State) ApplyError(fe *FieldError) {
	s.ClearErrors()
	if fe != nil {
		s.SetError(fe.Field, fe.Message)
	}
}

// Reset restores initial values and clears errors and check boxes.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.initial {
		s.values[k] = v
	}
	for k := range s.checks {
		s.checks[k] = false
	}
	s.errors = map[string]string{}
}

// Submit packages a copy of every text value and hands it to fn. It
// performs no validation.
func (s *State) Submit(fn func(values map[string]string) error) error {
	if fn == nil {
		return nil
	}
	return fn(s.Values())
}

// Bind pulls every declared input from src through Change and Check.
// Check boxes follow HTML semantics: any non empty value other than
// "false" or "off" means checked.
func (s *State) Bind(src FieldSource) {
	if src == nil {
		return
	}
	for _, f := range s.Fields() {
		s.Change(f, src(f))
	}

	s.mu.RLock()
	flags := append([]string(nil), s.flags...)
	s.mu.RUnlock()

	for _, f := range flags {
		s.Check(f, isChecked(src(f)))
	}
}

// View returns a template friendly snapshot.
func (s *State) View() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string]any, len(s.values)+len(s.checks))
	for k, v := range s.values {
		values[k] = v
	}
	for k, v := range s.checks {
		values[k] = v
	}

	errs := make(map[string]any, len(s.errors))
	keys := make([]string, 0, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return map[string]any{
		"values":       values,
		"errors":       errs,
		"error_fields": keys,
	}
}

func isChecked(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "false", "off", "0":
		return false
	default:
		return true
	}
}
