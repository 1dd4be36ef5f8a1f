package domain

import (
	"bytes"
	"encoding/json"
)

// Value is a forecast datum that may be absent. The zero Value is absent.
// Present-but-blank ("") and absent are distinct, but both serialize as "".
type Value struct {
	s  string
	ok bool
}

// Present wraps a datum found in the payload.
func Present(s string) Value {
	return Value{s: s, ok: true}
}

// Get returns the datum and whether it was present.
func (v Value) Get() (string, bool) {
	return v.s, v.ok
}

// IsPresent reports whether the datum was found in the payload.
func (v Value) IsPresent() bool {
	return v.ok
}

// String returns the datum, or "" when absent.
func (v Value) String() string {
	return v.s
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.s)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Present(s)
	return nil
}
