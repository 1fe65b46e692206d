package storage

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

// Serialized array fields (tags, suggested contexts) and embedding blobs
// are encoded and decoded only at this persistence edge. The in-memory
// entity always holds native slices; decode failures map to an absent
// value, never a fatal error, so corruption in one row cannot abort a
// multi-row scan.

// encodeStringSlice serializes a string slice to its compact JSON form.
// Nil and empty slices encode to NULL so the column stays sparse.
func encodeStringSlice(values []string) interface{} {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(data)
}

// decodeStringSlice parses a serialized string array. Malformed input is
// recovered as nil.
func decodeStringSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice.
// A blob whose length is not a multiple of four is malformed and
// decodes to nil.
func deserializeVector(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}
