package enums

import "fmt"

// CallbackKind identifies which gateway landing delivered a callback.
type CallbackKind string

const (
	CallbackKindReturn CallbackKind = "return"
	CallbackKindCancel CallbackKind = "cancel"
	CallbackKindNotify CallbackKind = "notify"
)

var validCallbackKinds = []CallbackKind{
	CallbackKindReturn,
	CallbackKindCancel,
	CallbackKindNotify,
}

// String implements fmt.Stringer.
func (c CallbackKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CallbackKind.
func (c CallbackKind) IsValid() bool {
	for _, candidate := range validCallbackKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCallbackKind converts raw input into a CallbackKind.
func ParseCallbackKind(value string) (CallbackKind, error) {
	for _, candidate := range validCallbackKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid callback kind %q", value)
}
