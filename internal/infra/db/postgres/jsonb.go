package postgres

import (
	"encoding/json"

	"openapp-settlement/internal/domain/model"
)

// Metadata travels as explicit JSONB bytes so the named map type never
// depends on driver-side reflection.
func marshalMeta(m model.Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func unmarshalMeta(b []byte) (model.Metadata, error) {
	if len(b) == 0 {
		return model.Metadata{}, nil
	}
	var m model.Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
