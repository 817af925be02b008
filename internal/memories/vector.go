package memories

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Embeddings are persisted in one canonical encoding: a packed little-endian
// float32 blob. Earlier versions of the runtime wrote embeddings as JSON
// array text on one code path, so DecodeVector also accepts that form; every
// read path decodes through DecodeVector so the two historical encodings
// never leak past this file.

// EncodeVector packs a vector as little-endian float32. Returns nil for an
// empty vector so the column stays NULL.
func EncodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector reads either a packed float32 blob or legacy JSON array text.
func DecodeVector(raw []byte) ([]float32, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	// Legacy rows stored the vector as JSON text.
	if raw[0] == '[' {
		var legacy []float32
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("memories: decode legacy embedding: %w", err)
		}
		return legacy, nil
	}

	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("memories: embedding blob length %d is not a multiple of 4", len(raw))
	}
	v := make([]float32, len(raw)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return v, nil
}
