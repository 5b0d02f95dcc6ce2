package kmeans

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/picovec/picovec/distance"
)

var (
	// ErrNoVectors is returned when training is attempted on an empty dataset.
	ErrNoVectors = errors.New("kmeans: no vectors to cluster")

	// ErrInvalidClusterCount is returned when k is not positive.
	ErrInvalidClusterCount = errors.New("kmeans: cluster count must be positive")

	// ErrTooFewVectors is returned when k exceeds the dataset size, so k
	// distinct seeds cannot be drawn.
	ErrTooFewVectors = errors.New("kmeans: fewer vectors than clusters")
)

// Sampler draws k distinct indices in [0, n) uniformly at random without
// replacement. It is the only source of randomness in training.
type Sampler interface {
	Sample(n, k int) []int
}

type randSampler struct {
	rand *rand.Rand
}

// NewSampler creates a Sampler backed by math/rand with the given seed.
func NewSampler(seed int64) Sampler {
	return &randSampler{rand: rand.New(rand.NewSource(seed))} // nolint gosec
}

func (s *randSampler) Sample(n, k int) []int {
	return s.rand.Perm(n)[:k]
}

// Options contains configuration options for the trainer.
type Options struct {
	// Metric selects the distance function used during assignment.
	Metric distance.Metric

	// Sampler provides the seeding randomness. If nil, a time-seeded
	// sampler is used.
	Sampler Sampler

	// ReseedEmptyClusters re-initializes a cluster that received no
	// members from a random data point. When false (the default) an
	// empty cluster keeps its previous centroid, which can leave dead
	// clusters permanently empty.
	ReseedEmptyClusters bool
}

// DefaultOptions contains the default configuration options for the trainer.
var DefaultOptions = Options{
	Metric: distance.MetricL2,
}

// Trainer trains centroids from a dataset using Lloyd's algorithm.
type Trainer struct {
	distFunc distance.Func
	sampler  Sampler
	reseed   bool
}

// New creates a new trainer.
func New(optFns ...func(o *Options)) (*Trainer, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	distFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	sampler := opts.Sampler
	if sampler == nil {
		sampler = NewSampler(time.Now().UnixNano())
	}

	return &Trainer{
		distFunc: distFunc,
		sampler:  sampler,
		reseed:   opts.ReseedEmptyClusters,
	}, nil
}

// Train returns the final centroids after exactly maxIters passes over the
// dataset. There is no early-convergence check: centroid i is always the
// evolved version of initial centroid i, and maxIters == 0 returns the
// sampled seeds unchanged.
func (t *Trainer) Train(vectors [][]float32, k, maxIters int) ([][]float32, error) {
	n := len(vectors)
	if n == 0 {
		return nil, ErrNoVectors
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidClusterCount, k)
	}
	if k > n {
		return nil, fmt.Errorf("%w: %d vectors for k=%d", ErrTooFewVectors, n, k)
	}

	// Seed centroids from k distinct data points.
	centroids := make([][]float32, k)
	for i, idx := range t.sampler.Sample(n, k) {
		centroids[i] = slices.Clone(vectors[idx])
	}

	members := make([][]int, k)

	for iter := 0; iter < maxIters; iter++ {
		// Assignment step.
		for j := range members {
			members[j] = members[j][:0]
		}
		for i, vec := range vectors {
			c := NearestIndex(vec, centroids, t.distFunc)
			members[c] = append(members[c], i)
		}

		// Update step: move each centroid to the mean of its members.
		for j, idxs := range members {
			if len(idxs) == 0 {
				if t.reseed {
					centroids[j] = slices.Clone(vectors[t.sampler.Sample(n, 1)[0]])
				}
				// Empty cluster keeps its previous centroid.
				continue
			}

			cluster := make([][]float32, len(idxs))
			for m, idx := range idxs {
				cluster[m] = vectors[idx]
			}
			centroids[j] = Mean(cluster)
		}
	}

	return centroids, nil
}

// NearestIndex returns the position of the candidate with minimum distance
// to query. Exact ties resolve to the lowest index. Returns -1 if
// candidates is empty; callers must guard against that.
func NearestIndex(query []float32, candidates [][]float32, distFunc distance.Func) int {
	best := -1
	var minDist float32

	for i, c := range candidates {
		d := distFunc(query, c)
		if best == -1 || d < minDist {
			minDist = d
			best = i
		}
	}

	return best
}

// Mean returns the coordinate-wise arithmetic mean of the given vectors.
// Calling it with an empty slice is a caller error and panics.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		panic("kmeans: mean of empty vector list")
	}

	sum := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		vek32.Add_Inplace(sum, v)
	}
	vek32.MulNumber_Inplace(sum, 1/float32(len(vectors)))

	return sum
}
