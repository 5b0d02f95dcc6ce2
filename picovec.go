package picovec

import (
	"fmt"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/picovec/picovec/distance"
	"github.com/picovec/picovec/kmeans"
	"github.com/picovec/picovec/persistence"
	"github.com/picovec/picovec/quantization"
)

// Store owns a dataset of fixed-dimension vectors in two index-aligned
// views: dense (full precision) and reduced (codec output). A vector's
// position in the views is its handle, assigned at insertion and never
// reused or reassigned.
//
// The optional IVF index (centroids plus buckets) is a snapshot taken by
// BuildIndex: vectors added afterwards are unreachable through the IVF
// strategy until BuildIndex runs again.
type Store struct {
	dense   [][]float32
	reduced [][]float32

	// dimension is fixed by the first Add; 0 while the store is empty.
	dimension int

	centroids [][]float32
	buckets   map[int]*roaring.Bitmap

	reducer     quantization.Reducer
	sampler     kmeans.Sampler
	logger      *Logger
	snapshotFns []func(o *persistence.Options)
	reseedEmpty bool
}

// New creates an empty store.
func New(optFns ...Option) *Store {
	opts := options{
		logger: NoopLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	reducer := opts.reducer
	if reducer == nil {
		// The error is unreachable for a positive constant width.
		reducer, _ = quantization.NewPrefixReducer(quantization.DefaultPrefixWidth)
	}

	sampler := opts.sampler
	if sampler == nil {
		sampler = kmeans.NewSampler(time.Now().UnixNano())
	}

	return &Store{
		reducer:     reducer,
		sampler:     sampler,
		logger:      opts.logger,
		snapshotFns: opts.snapshotFns,
		reseedEmpty: opts.reseedEmpty,
	}
}

// Add appends a vector to the store and returns its handle. The vector is
// copied; both views grow by exactly one entry. The first Add fixes the
// store dimension and later calls must match it.
func (s *Store) Add(v []float32) (int, error) {
	if len(v) == 0 {
		return 0, ErrEmptyVector
	}

	if s.dimension == 0 {
		s.dimension = len(v)
	} else if len(v) != s.dimension {
		return 0, &ErrDimensionMismatch{Expected: s.dimension, Actual: len(v)}
	}

	vec := slices.Clone(v)
	s.dense = append(s.dense, vec)
	s.reduced = append(s.reduced, s.reducer.Encode(vec))

	return len(s.dense) - 1, nil
}

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	return len(s.dense)
}

// Dimension returns the store dimension, or 0 while the store is empty.
func (s *Store) Dimension() int {
	return s.dimension
}

// Indexed reports whether BuildIndex has populated the IVF index.
func (s *Store) Indexed() bool {
	return s.centroids != nil && s.buckets != nil
}

// Vector returns a copy of the full-precision vector for the given handle.
func (s *Store) Vector(handle int) ([]float32, bool) {
	if handle < 0 || handle >= len(s.dense) {
		return nil, false
	}
	return slices.Clone(s.dense[handle]), true
}

// BuildIndex trains k centroids over the full-precision dataset with
// maxIters k-means passes, then assigns every stored vector to the bucket
// of its nearest centroid. Any previous index is replaced; on error the
// existing index is left untouched.
func (s *Store) BuildIndex(k, maxIters int) error {
	if len(s.dense) == 0 {
		err := ErrEmptyStore
		s.logger.LogBuildIndex(k, maxIters, 0, err)
		return err
	}

	trainer, err := kmeans.New(func(o *kmeans.Options) {
		o.Sampler = s.sampler
		o.ReseedEmptyClusters = s.reseedEmpty
	})
	if err != nil {
		return err
	}

	centroids, err := trainer.Train(s.dense, k, maxIters)
	if err != nil {
		s.logger.LogBuildIndex(k, maxIters, len(s.dense), err)
		return fmt.Errorf("picovec: train centroids: %w", err)
	}

	buckets := make(map[int]*roaring.Bitmap, k)
	for c := range k {
		buckets[c] = roaring.New()
	}
	for i, vec := range s.dense {
		c := kmeans.NearestIndex(vec, centroids, distance.L2)
		buckets[c].Add(uint32(i))
	}

	s.centroids = centroids
	s.buckets = buckets
	s.logger.LogBuildIndex(k, maxIters, len(s.dense), nil)

	return nil
}

// Centroids returns a copy of the trained centroids, or nil if the index
// has not been built.
func (s *Store) Centroids() [][]float32 {
	if s.centroids == nil {
		return nil
	}
	out := make([][]float32, len(s.centroids))
	for i, c := range s.centroids {
		out[i] = slices.Clone(c)
	}
	return out
}

// Stats describes the current state of the IVF index.
type Stats struct {
	Vectors     int
	Dimension   int
	Clusters    int
	BucketSizes map[int]uint64
}

// Stats returns bucket occupancy for the current index. Clusters is 0 when
// no index has been built.
func (s *Store) Stats() Stats {
	st := Stats{
		Vectors:   len(s.dense),
		Dimension: s.dimension,
	}
	if s.buckets == nil {
		return st
	}

	st.Clusters = len(s.centroids)
	st.BucketSizes = make(map[int]uint64, len(s.buckets))
	for c, bm := range s.buckets {
		st.BucketSizes[c] = bm.GetCardinality()
	}
	return st
}

// SaveToFile writes the dense view to path in the flat snapshot format.
// Saving an empty store succeeds without touching the filesystem. Reduced
// views and the IVF index are not persisted.
func (s *Store) SaveToFile(path string) error {
	if len(s.dense) == 0 {
		s.logger.Debug("snapshot save skipped: store is empty", "path", path)
		return nil
	}

	err := persistence.SaveToFile(path, s.dense, s.snapshotFns...)
	s.logger.LogSnapshot("save", path, len(s.dense), err)
	return err
}

// LoadFromFile reads a snapshot from path into a new store. Every loaded
// vector goes through the normal Add path, so reduced views are rebuilt;
// the IVF index is not, and must be rebuilt by the caller.
func LoadFromFile(path string, optFns ...Option) (*Store, error) {
	s := New(optFns...)

	vectors, err := persistence.LoadFromFile(path, s.snapshotFns...)
	if err != nil {
		s.logger.LogSnapshot("load", path, 0, err)
		return nil, err
	}

	for _, vec := range vectors {
		if _, err := s.Add(vec); err != nil {
			return nil, fmt.Errorf("picovec: restore vector: %w", err)
		}
	}

	s.logger.LogSnapshot("load", path, len(vectors), nil)
	return s, nil
}
