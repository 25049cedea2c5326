package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// ResultEntry is one operator-defined result from the provider's analysis
// blobs. Fields beyond these three are provider extensions; the raw blob is
// what gets stored and forwarded, this shape exists for callers that want to
// inspect it.
type ResultEntry struct {
	Value     json.RawMessage `json:"value,omitempty"`
	Rationale string          `json:"rationale,omitempty"`
	Score     *float64        `json:"score,omitempty"`
}

// ResultSet is an open map of criterion name to result. The provider's
// operators define the keys; nothing here validates them.
type ResultSet map[string]ResultEntry

// DecodeResultSet parses a stored JSONB blob into a ResultSet. A nil or
// empty blob decodes to an empty, non-nil map.
func DecodeResultSet(blob datatypes.JSON) (ResultSet, error) {
	rs := ResultSet{}
	if len(blob) == 0 {
		return rs, nil
	}
	if err := json.Unmarshal(blob, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}
