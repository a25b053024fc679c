package corpus

import (
	"encoding/binary"
	"math"

	domcorpus "github.com/kailas-cloud/evidex/internal/domain/corpus"
)

// buildHashFields converts an entry into the flat map written with HSET.
func buildHashFields(e domcorpus.Entry) map[string]string {
	m := make(map[string]string, len(e.Record)+1)
	for k, v := range e.Record {
		m[k] = v
	}
	m[vectorField] = vectorToBytes(e.Vector)
	return m
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
