package picovec

import (
	"github.com/picovec/picovec/kmeans"
	"github.com/picovec/picovec/persistence"
	"github.com/picovec/picovec/quantization"
)

type options struct {
	reducer     quantization.Reducer
	sampler     kmeans.Sampler
	logger      *Logger
	snapshotFns []func(o *persistence.Options)
	reseedEmpty bool
}

// Option configures store construction.
type Option func(*options)

// WithReducer configures the codec used to derive reduced views.
//
// The default is a 2-coordinate prefix reducer. Changing the reducer on a
// store that will be loaded from a snapshot changes the reduced views that
// are rebuilt during the load.
func WithReducer(r quantization.Reducer) Option {
	return func(o *options) {
		if r != nil {
			o.reducer = r
		}
	}
}

// WithSampler configures the sampling capability used to seed k-means
// centroids in BuildIndex. Inject a fixed-seed sampler for deterministic
// index builds.
func WithSampler(s kmeans.Sampler) Option {
	return func(o *options) {
		o.sampler = s
	}
}

// WithLogger configures the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithSnapshotCompression enables zstd compression for SaveToFile and
// LoadFromFile. Compressed snapshots are not byte-compatible with the flat
// layout; a store saved with this option must be loaded with it too.
func WithSnapshotCompression() Option {
	return func(o *options) {
		o.snapshotFns = append(o.snapshotFns, func(po *persistence.Options) {
			po.Compression = true
		})
	}
}

// WithReseedEmptyClusters opts into re-initializing dead k-means clusters
// from a random data point during BuildIndex. By default an empty cluster
// keeps its stale centroid, which can leave it permanently empty.
func WithReseedEmptyClusters() Option {
	return func(o *options) {
		o.reseedEmpty = true
	}
}
