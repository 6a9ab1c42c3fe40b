package forms

// Address step input names.
const (
	FieldAddress    = "address"
	FieldPostalCode = "postalCode"
	FieldCity       = "city"
)

// NewAddressForm declares the address step inputs. The step submits
// whatever was typed; it has no validation.
func NewAddressForm() *State {
	return NewState(FieldAddress, FieldPostalCode, FieldCity)
}
