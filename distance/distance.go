// Package distance provides the distance functions used by the store,
// the k-means trainer and the search strategies.
//
// All float32 kernels are backed by github.com/viterin/vek, which picks
// SIMD implementations (AVX2/AVX512 on x86-64, NEON on ARM64) at runtime.
// The kernels assume both vectors have the same length; vek panics on a
// length mismatch, which is treated as a programmer error.
package distance

import (
	"fmt"

	"github.com/viterin/vek/vek32"
)

// L2 calculates the Euclidean (L2) distance between two vectors.
func L2(a, b []float32) float32 {
	return vek32.Distance(a, b)
}

// SquaredL2 calculates the squared L2 distance between two vectors.
// It preserves the ordering of L2 and avoids the square root; use it
// when only relative distances matter.
func SquaredL2(a, b []float32) float32 {
	d := vek32.Distance(a, b)
	return d * d
}

// Dot calculates the dot product of two vectors.
func Dot(a, b []float32) float32 {
	return vek32.Dot(a, b)
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricSquaredL2
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricSquaredL2:
		return "SquaredL2"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return L2, nil
	case MetricSquaredL2:
		return SquaredL2, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
