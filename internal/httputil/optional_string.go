package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a JSON string field that remembers whether it appeared
// in the document at all. *string collapses "absent" and "null" into one
// nil; PATCH-style endpoints need all three states (absent = leave alone,
// null = clear, value = set).
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON runs only when the field is present, so Present is set
// unconditionally; a literal null leaves Value nil.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
