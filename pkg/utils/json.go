package utils

import (
	"encoding/json"
)

// MustMarshalJSON marshals v and panics on failure. Only for values whose
// shape the caller controls, such as fixtures and static payloads.
func MustMarshalJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic("failed to marshal JSON: " + err.Error())
	}
	return data
}

// UnmarshalJSON decodes data into v, returning the decoder's error verbatim.
func UnmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
