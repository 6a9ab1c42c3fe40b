package forms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateChangeUpdatesOnlyNamedField(t *testing.T) {
	s := NewAddressForm()

	assert.True(t, s.Change(FieldCity, "Lisbon"))
	assert.Equal(t, map[string]string{
		FieldAddress:    "",
		FieldPostalCode: "",
		FieldCity:       "Lisbon",
	}, s.Values())

	assert.False(t, s.Change("unknown", "x"))
	assert.NotContains(t, s.Values(), "unknown")
}

func TestStateSubmitPackagesCopy(t *testing.T) {
	s := NewAddressForm()
	s.Change(FieldAddress, "1 Infinity Lane")
	s.Change(FieldPostalCode, "95014")

	var got map[string]string
	err := s.Submit(func(values map[string]string) error {
		got = values
		values[FieldCity] = "mutated"
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "1 Infinity Lane", got[FieldAddress])
	assert.Equal(t, "", s.Value(FieldCity), "callback must not mutate form state")
}

func TestStateSubmitReturnsCallbackError(t *testing.T) {
	s := NewAddressForm()
	boom := errors.New("boom")
	assert.ErrorIs(t, s.Submit(func(map[string]string) error { return boom }), boom)
	assert.NoError(t, s.Submit(nil))
}

func TestStateBindReadsDeclaredInputs(t *testing.T) {
	s := NewRegistrationForm()
	src := map[string]string{
		FieldEmail:      "a@b.com",
		FieldPassword:   "secret",
		FieldAgreeTerms: "on",
		"injected":      "nope",
	}

	s.Bind(func(key string) string { return src[key] })

	reg := RegistrationFromState(s)
	assert.Equal(t, Registration{Email: "a@b.com", Password: "secret", AgreeTerms: true}, reg)
	assert.NotContains(t, s.Values(), "injected")
}

func TestStateBindCheckboxValues(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"off":   false,
		"false": false,
		"0":     false,
		"on":    true,
		"true":  true,
		"1":     true,
	}
	for raw, want := range cases {
		s := NewRegistrationForm()
		s.Bind(func(key string) string {
			if key == FieldAgreeTerms {
				return raw
			}
			return ""
		})
		assert.Equal(t, want, s.Checked(FieldAgreeTerms), "raw=%q", raw)
	}
}

func TestStateResetRestoresDefaults(t *testing.T) {
	s := NewState("country").WithDefault("country", "PT").WithCheckbox("newsletter")
	s.Change("country", "ES")
	s.Check("newsletter", true)
	s.SetError("country", "bad")

	s.Reset()

	assert.Equal(t, "PT", s.Value("country"))
	assert.False(t, s.Checked("newsletter"))
	assert.False(t, s.HasErrors())
}

func TestStateApplyErrorKeepsSingleMessage(t *testing.T) {
	s := NewRegistrationForm()
	s.SetError(FieldEmail, MsgEmailRequired)

	s.ApplyError(&FieldError{Field: FieldAgreeTerms, Message: MsgTermsRequired})

	assert.Equal(t, map[string]string{FieldAgreeTerms: MsgTermsRequired}, s.Errors())

	s.ApplyError(nil)
	assert.False(t, s.HasErrors())
}

func TestStateView(t *testing.T) {
	s := NewRegistrationForm()
	s.Change(FieldEmail, "a@b.com")
	s.SetError(FieldPassword, MsgPasswordRequired)

	view := s.View()
	values := view["values"].(map[string]any)
	errs := view["errors"].(map[string]any)

	assert.Equal(t, "a@b.com", values[FieldEmail])
	assert.Equal(t, false, values[FieldAgreeTerms])
	assert.Equal(t, MsgPasswordRequired, errs[FieldPassword])
	assert.Equal(t, []string{FieldPassword}, view["error_fields"])
}
