// Package fields turns the untyped option maps of channel configs into
// validated structs.
package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"scorepusher/lib/validation"
)

// Error lists every field of a channel config that failed validation.
type Error = validation.Error

// Decode converts fields into T, rejecting unknown keys, then checks the
// `validate` tags of T.
func Decode[T any](fields map[string]any) (T, error) {
	var out T

	encoded, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.DisallowUnknownFields()
	err = decoder.Decode(&out)
	if err != nil {
		return out, &Error{Problems: []string{err.Error()}}
	}

	err = validation.Struct(out)
	if err != nil {
		return out, err
	}
	return out, nil
}

// Text is a string option that may be written as a bare number, like a
// telegram chat id.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&n); err != nil {
		return fmt.Errorf("expected a string or a number, got %s", string(data))
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string {
	return string(t)
}

// List is a string list option that may also be written as one string.
type List []string

func (l *List) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = List{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or a list of strings, got %s", string(data))
	}
	*l = many
	return nil
}
