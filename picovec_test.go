package picovec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picovec/picovec/distance"
	"github.com/picovec/picovec/kmeans"
	"github.com/picovec/picovec/quantization"
)

func mustAdd(t *testing.T, s *Store, vectors ...[]float32) {
	t.Helper()
	for _, v := range vectors {
		_, err := s.Add(v)
		require.NoError(t, err)
	}
}

func TestAdd(t *testing.T) {
	t.Run("SequentialHandles", func(t *testing.T) {
		s := New()

		for want := range 5 {
			handle, err := s.Add([]float32{float32(want), 0, 0})
			require.NoError(t, err)
			assert.Equal(t, want, handle)
		}
		assert.Equal(t, 5, s.Len())
		assert.Equal(t, 3, s.Dimension())
	})

	t.Run("ReducedViewDerivation", func(t *testing.T) {
		s := New()
		mustAdd(t, s,
			[]float32{1, 2, 3, 4},
			[]float32{5, 6, 7, 8},
		)

		// Default reducer keeps the first 2 coordinates.
		assert.Equal(t, []float32{1, 2}, s.reduced[0])
		assert.Equal(t, []float32{5, 6}, s.reduced[1])
		assert.Len(t, s.reduced, s.Len())
	})

	t.Run("ShortVectorNoPadding", func(t *testing.T) {
		s := New()
		mustAdd(t, s, []float32{9})

		assert.Equal(t, []float32{9}, s.reduced[0])
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		s := New()
		mustAdd(t, s, []float32{1, 2, 3})

		_, err := s.Add([]float32{1, 2})
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 3, dm.Expected)
		assert.Equal(t, 2, dm.Actual)
	})

	t.Run("EmptyVector", func(t *testing.T) {
		s := New()
		_, err := s.Add(nil)
		assert.ErrorIs(t, err, ErrEmptyVector)
	})

	t.Run("CopiesInput", func(t *testing.T) {
		s := New()
		v := []float32{1, 2, 3}
		mustAdd(t, s, v)

		v[0] = 99
		got, ok := s.Vector(0)
		require.True(t, ok)
		assert.Equal(t, []float32{1, 2, 3}, got)
	})
}

func TestVector(t *testing.T) {
	s := New()
	mustAdd(t, s, []float32{1, 2})

	_, ok := s.Vector(-1)
	assert.False(t, ok)
	_, ok = s.Vector(1)
	assert.False(t, ok)

	got, ok := s.Vector(0)
	require.True(t, ok)

	// Mutating the returned copy must not touch the store.
	got[0] = 42
	again, _ := s.Vector(0)
	assert.Equal(t, []float32{1, 2}, again)
}

func TestBuildIndex(t *testing.T) {
	t.Run("PartitionsAllHandles", func(t *testing.T) {
		s := New(WithSampler(kmeans.NewSampler(1)))
		mustAdd(t, s,
			[]float32{1, 1, 1, 1},
			[]float32{1.1, 1, 1, 1},
			[]float32{0.9, 1, 1, 1},
			[]float32{10, 10, 10, 10},
			[]float32{10.1, 10, 10, 10},
		)

		require.NoError(t, s.BuildIndex(2, 5))
		require.True(t, s.Indexed())

		// Every handle appears in exactly one bucket.
		seen := make(map[uint32]int)
		for _, bm := range s.buckets {
			it := bm.Iterator()
			for it.HasNext() {
				seen[it.Next()]++
			}
		}
		assert.Len(t, seen, 5)
		for handle, count := range seen {
			assert.Equalf(t, 1, count, "handle %d in %d buckets", handle, count)
		}
	})

	t.Run("EmptyStore", func(t *testing.T) {
		s := New()
		assert.ErrorIs(t, s.BuildIndex(2, 5), ErrEmptyStore)
		assert.False(t, s.Indexed())
	})

	t.Run("InvalidClusterCount", func(t *testing.T) {
		s := New()
		mustAdd(t, s, []float32{1, 2})
		assert.ErrorIs(t, s.BuildIndex(0, 5), kmeans.ErrInvalidClusterCount)
	})

	t.Run("TooFewVectors", func(t *testing.T) {
		s := New()
		mustAdd(t, s, []float32{1, 2}, []float32{3, 4})
		assert.ErrorIs(t, s.BuildIndex(3, 5), kmeans.ErrTooFewVectors)
	})

	t.Run("FailedBuildKeepsOldIndex", func(t *testing.T) {
		s := New(WithSampler(kmeans.NewSampler(1)))
		mustAdd(t, s, []float32{1, 2}, []float32{3, 4})

		require.NoError(t, s.BuildIndex(2, 3))
		old := s.Centroids()

		require.Error(t, s.BuildIndex(5, 3))
		assert.Equal(t, old, s.Centroids())
	})

	t.Run("RebuildReplacesIndex", func(t *testing.T) {
		s := New(WithSampler(kmeans.NewSampler(1)))
		mustAdd(t, s,
			[]float32{0, 0}, []float32{1, 1}, []float32{10, 10}, []float32{11, 11},
		)

		require.NoError(t, s.BuildIndex(2, 5))
		require.NoError(t, s.BuildIndex(4, 5))
		assert.Len(t, s.centroids, 4)
		assert.Len(t, s.buckets, 4)
	})

	t.Run("SnapshotSemantics", func(t *testing.T) {
		// Vectors added after BuildIndex stay outside every bucket.
		s := New(WithSampler(kmeans.NewSampler(1)))
		mustAdd(t, s, []float32{0, 0}, []float32{10, 10})
		require.NoError(t, s.BuildIndex(2, 5))

		mustAdd(t, s, []float32{5, 5})

		var indexed uint64
		for _, bm := range s.buckets {
			indexed += bm.GetCardinality()
		}
		assert.Equal(t, uint64(2), indexed)
		assert.Equal(t, 3, s.Len())
	})

	t.Run("Deterministic", func(t *testing.T) {
		build := func() [][]float32 {
			s := New(WithSampler(kmeans.NewSampler(99)))
			mustAdd(t, s,
				[]float32{0, 0}, []float32{1, 0}, []float32{9, 9}, []float32{10, 9},
			)
			require.NoError(t, s.BuildIndex(2, 4))
			return s.Centroids()
		}

		assert.Equal(t, build(), build())
	})
}

func TestStats(t *testing.T) {
	s := New(WithSampler(kmeans.NewSampler(1)))

	st := s.Stats()
	assert.Equal(t, 0, st.Vectors)
	assert.Equal(t, 0, st.Clusters)
	assert.Nil(t, st.BucketSizes)

	mustAdd(t, s, []float32{0, 0}, []float32{1, 1}, []float32{10, 10})
	require.NoError(t, s.BuildIndex(2, 5))

	st = s.Stats()
	assert.Equal(t, 3, st.Vectors)
	assert.Equal(t, 2, st.Dimension)
	assert.Equal(t, 2, st.Clusters)

	var total uint64
	for _, n := range st.BucketSizes {
		total += n
	}
	assert.Equal(t, uint64(3), total)
}

func TestSaveLoad(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.bin")

		s := New()
		mustAdd(t, s,
			[]float32{1, 2, 3},
			[]float32{4, 5, 6},
		)
		require.NoError(t, s.SaveToFile(path))

		loaded, err := LoadFromFile(path)
		require.NoError(t, err)

		require.Equal(t, s.Len(), loaded.Len())
		for i := range s.dense {
			assert.Equal(t, s.dense[i], loaded.dense[i])
		}

		// Reduced views are rebuilt through the Add path; the index is not.
		assert.Equal(t, s.reduced, loaded.reduced)
		assert.False(t, loaded.Indexed())
	})

	t.Run("EmptySaveTouchesNothing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.bin")

		require.NoError(t, New().SaveToFile(path))
		_, err := os.Stat(path)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("EmptySaveDoesNotOverwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.bin")
		require.NoError(t, os.WriteFile(path, []byte("precious"), 0o644))

		require.NoError(t, New().SaveToFile(path))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("precious"), raw)
	})

	t.Run("LoadZeroByteFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.bin")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := LoadFromFile(path)
		assert.Error(t, err)
	})

	t.Run("LoadSubHeaderFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short.bin")
		require.NoError(t, os.WriteFile(path, make([]byte, 7), 0o644))

		_, err := LoadFromFile(path)
		assert.Error(t, err)
	})

	t.Run("LoadMissingFile", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.bin"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("CompressedRoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.zst")

		s := New(WithSnapshotCompression())
		mustAdd(t, s, []float32{1, 2, 3}, []float32{4, 5, 6})
		require.NoError(t, s.SaveToFile(path))

		loaded, err := LoadFromFile(path, WithSnapshotCompression())
		require.NoError(t, err)
		assert.Equal(t, s.dense, loaded.dense)

		// Without the option the zstd stream is not a valid snapshot.
		_, err = LoadFromFile(path)
		assert.Error(t, err)
	})
}

func TestWithReducer(t *testing.T) {
	t.Run("WiderPrefix", func(t *testing.T) {
		p, err := quantization.NewPrefixReducer(3)
		require.NoError(t, err)

		s := New(WithReducer(p))
		mustAdd(t, s, []float32{1, 2, 3, 4})
		assert.Equal(t, []float32{1, 2, 3}, s.reduced[0])
	})

	t.Run("ScalarReducer", func(t *testing.T) {
		sr := quantization.NewScalarReducer()
		require.NoError(t, sr.Train([][]float32{{0, 0}, {10, 10}}))

		s := New(WithReducer(sr))
		mustAdd(t, s, []float32{2, 8}, []float32{7, 3})

		res, ok := s.Search([]float32{2.1, 7.9}, BruteForce)
		require.True(t, ok)
		assert.Equal(t, 0, res.Handle)
		assert.InDelta(t, distance.L2([]float32{2, 8}, []float32{2.1, 7.9}), res.Distance, 1e-6)
	})
}
