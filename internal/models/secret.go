package models

import (
	"encoding/json"
	"fmt"
)

const maskedValue = "*** masked ***"

// Secret holds a credential or PII value. It never renders its content
// through fmt, JSON or zap; callers must call Expose explicitly.
type Secret struct {
	value string
}

// NewSecret wraps value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Expose returns the wrapped value. Call it only at the wire boundary.
func (s Secret) Expose() string {
	return s.value
}

func (s Secret) IsEmpty() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return maskedValue
}

func (s Secret) GoString() string {
	return maskedValue
}

func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(maskedValue))
}

// MarshalJSON always renders the mask.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(maskedValue)
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(maskedValue), nil
}

// UnmarshalJSON accepts the raw value so secrets can be loaded from
// configuration storage.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.value = raw
	return nil
}
