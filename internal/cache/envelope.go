package cache

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope tags. The first byte of every stored value says how to decode
// the rest.
const (
	tagString     byte = 's'
	tagSerialized byte = 'j'
)

var errEmptyEnvelope = errors.New("empty cache envelope")

// encode wraps v in a tagged envelope. Strings are stored verbatim,
// everything else is JSON-serialized.
func encode[V any](v V) ([]byte, error) {
	if s, ok := any(v).(string); ok {
		out := make([]byte, 0, len(s)+1)
		out = append(out, tagString)
		return append(out, s...), nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, tagSerialized)
	return append(out, payload...), nil
}

func decode[V any](raw []byte) (V, error) {
	var v V
	if len(raw) == 0 {
		return v, errEmptyEnvelope
	}

	tag, payload := raw[0], raw[1:]
	switch tag {
	case tagString:
		p, ok := any(&v).(*string)
		if !ok {
			return v, fmt.Errorf("string envelope cannot decode into %T", v)
		}
		*p = string(payload)
		return v, nil
	case tagSerialized:
		if err := json.Unmarshal(payload, &v); err != nil {
			return v, fmt.Errorf("decode cache envelope: %w", err)
		}
		return v, nil
	default:
		return v, fmt.Errorf("unknown cache envelope tag %q", tag)
	}
}
