// Package vector provides float32 vector math and the byte codec shared by
// the cluster engine and the storage layer.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between a and b,
// clamped to [-1, 1]. Zero-norm inputs yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	sim := InnerProduct(a, b) / (na * nb)
	return math.Max(-1, math.Min(1, sim))
}

// EuclideanDistance returns the Euclidean distance between a and b.
// Mismatched lengths yield +Inf so a bad pair never looks close.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Mean returns the coordinate-wise arithmetic mean of the given vectors.
// Returns nil for an empty input. Accumulation is done in float64.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dims := len(vectors[0])
	acc := make([]float64, dims)
	for _, v := range vectors {
		for i := range v {
			acc[i] += float64(v[i])
		}
	}
	n := float64(len(vectors))
	out := make([]float32, dims)
	for i := range acc {
		out[i] = float32(acc[i] / n)
	}
	return out
}

// Validate checks that v is non-empty, finite, and (when dims > 0) of the
// expected dimensionality.
func Validate(v []float32, dims int) error {
	if len(v) == 0 {
		return fmt.Errorf("empty vector")
	}
	if dims > 0 && len(v) != dims {
		return fmt.Errorf("dimension mismatch: got %d, expected %d", len(v), dims)
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite value at index %d", i)
		}
	}
	return nil
}

// ToBytes encodes a vector as little-endian float32 bytes.
func ToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

// FromBytes decodes little-endian float32 bytes into a vector.
func FromBytes(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
