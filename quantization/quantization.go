// Package quantization provides the reduced-precision view codecs used by
// the store for cheap approximate comparisons.
package quantization

import (
	"errors"
	"math"

	"github.com/picovec/picovec/distance"
)

// Reducer derives a lossy, reduced-precision view from a full-precision
// vector and compares two such views.
//
// The store encodes every vector once at insert time and search strategies
// compare views with ApproxDistance before rescoring against the
// full-precision data.
type Reducer interface {
	// Encode derives the reduced view. The result must not alias v.
	Encode(v []float32) []float32

	// ApproxDistance compares two encoded views.
	ApproxDistance(a, b []float32) float32
}

// DefaultPrefixWidth is the reduced-view width used when none is configured.
const DefaultPrefixWidth = 2

// PrefixReducer keeps the first Width coordinates of a vector as its
// reduced view. It is a placeholder for a learned codec: truncation has no
// recall guarantees, it just makes the approximate scan cheap.
type PrefixReducer struct {
	width int
}

// NewPrefixReducer creates a PrefixReducer with the given width.
func NewPrefixReducer(width int) (*PrefixReducer, error) {
	if width <= 0 {
		return nil, errors.New("quantization: prefix width must be positive")
	}
	return &PrefixReducer{width: width}, nil
}

// Width returns the configured prefix width.
func (p *PrefixReducer) Width() int {
	return p.width
}

// Encode returns the first Width coordinates of v, or all of v when it is
// shorter. No padding is applied.
func (p *PrefixReducer) Encode(v []float32) []float32 {
	n := min(p.width, len(v))
	out := make([]float32, n)
	copy(out, v[:n])
	return out
}

// ApproxDistance is the L2 distance between two prefix views.
func (p *PrefixReducer) ApproxDistance(a, b []float32) float32 {
	return distance.L2(a, b)
}

// ScalarReducer is an 8-bit scalar quantization codec: each coordinate is
// linearly mapped from [min, max] to one of 256 levels and stored as the
// level's reconstruction value. Train must be called before Encode.
type ScalarReducer struct {
	min     float32
	max     float32
	trained bool
}

// NewScalarReducer creates an untrained ScalarReducer.
func NewScalarReducer() *ScalarReducer {
	return &ScalarReducer{}
}

// Train calibrates the reducer by finding min/max values across all vectors.
func (s *ScalarReducer) Train(vectors [][]float32) error {
	if len(vectors) == 0 {
		return errors.New("quantization: no vectors provided for training")
	}

	s.min = math.MaxFloat32
	s.max = -math.MaxFloat32

	for _, vec := range vectors {
		for _, val := range vec {
			if val < s.min {
				s.min = val
			}
			if val > s.max {
				s.max = val
			}
		}
	}

	// Degenerate range: all values identical.
	if s.min == s.max {
		s.max = s.min + 1
	}

	s.trained = true
	return nil
}

// IsTrained returns whether Train has been called.
func (s *ScalarReducer) IsTrained() bool {
	return s.trained
}

// Encode snaps every coordinate to its nearest of 256 levels in [min, max].
func (s *ScalarReducer) Encode(v []float32) []float32 {
	if !s.trained {
		panic("quantization: ScalarReducer not trained")
	}

	scale := (s.max - s.min) / 255.0
	out := make([]float32, len(v))

	for i, val := range v {
		if val < s.min {
			val = s.min
		} else if val > s.max {
			val = s.max
		}
		level := float32(uint8((val-s.min)/scale + 0.5))
		out[i] = level*scale + s.min
	}

	return out
}

// ApproxDistance is the L2 distance between two quantized views.
func (s *ScalarReducer) ApproxDistance(a, b []float32) float32 {
	return distance.L2(a, b)
}
