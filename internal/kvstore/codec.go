package kvstore

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes rec with msgpack.
func Encode(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(map[string]any(rec)); err != nil {
		return nil, fmt.Errorf("kvstore: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a record produced by Encode. Numbers come back as int64 or
// float64.
func Decode(data []byte) (Record, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("kvstore: decode: %w", err)
	}
	return Normalize(m), nil
}

// Normalize converts the numeric types decoders produce into int64 and
// float64.
func Normalize(m map[string]any) Record {
	out := make(Record, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
