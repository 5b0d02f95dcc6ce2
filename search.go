package picovec

import (
	"fmt"

	"github.com/picovec/picovec/distance"
	"github.com/picovec/picovec/kmeans"
)

// Strategy selects the search algorithm. The set is closed: BruteForce and
// IVF are the only strategies.
type Strategy int

const (
	// BruteForce scans the reduced view of every stored vector and
	// rescores the single winner against its full-precision vector.
	// Always produces a result on a non-empty store.
	BruteForce Strategy = iota

	// IVF probes only the bucket of the query's nearest centroid with
	// exact distances. Requires a prior BuildIndex.
	IVF
)

func (st Strategy) String() string {
	switch st {
	case BruteForce:
		return "BruteForce"
	case IVF:
		return "IVF"
	default:
		return fmt.Sprintf("Unknown(%d)", int(st))
	}
}

// SearchResult is the best match found by a search strategy.
type SearchResult struct {
	// Handle is the stable positional identifier of the matched vector.
	Handle int

	// Distance is the exact L2 distance between query and match.
	Distance float32
}

// Search returns the closest stored vector to query under the given
// strategy. The boolean is false when the strategy cannot produce a
// result: an empty store, an IVF search before BuildIndex, or a query
// landing in an empty bucket.
func (s *Store) Search(query []float32, strategy Strategy) (SearchResult, bool) {
	switch strategy {
	case BruteForce:
		return s.bruteForceSearch(query)
	case IVF:
		return s.ivfSearch(query)
	default:
		s.logger.Warn("unknown search strategy", "strategy", int(strategy))
		return SearchResult{}, false
	}
}

// bruteForceSearch runs the approximate-then-exact two-phase scan: the
// cheap pass ranks every reduced view against the query's reduced view,
// then the one winner is rescored with an exact distance. Only that single
// candidate is rescored, so the result is only as good as the reduced-view
// ranking; that is the intended accuracy/speed tradeoff.
func (s *Store) bruteForceSearch(query []float32) (SearchResult, bool) {
	if len(s.reduced) == 0 {
		return SearchResult{}, false
	}

	queryView := s.reducer.Encode(query)

	best := -1
	var bestDist float32
	for i, view := range s.reduced {
		d := s.reducer.ApproxDistance(view, queryView)
		if best == -1 || d < bestDist {
			bestDist = d
			best = i
		}
	}

	return SearchResult{
		Handle:   best,
		Distance: distance.L2(s.dense[best], query),
	}, true
}

// ivfSearch probes exactly one bucket. Recall is bounded by whether the
// true nearest neighbor was assigned to the same bucket as the query's
// nearest centroid; neighboring clusters are not probed.
func (s *Store) ivfSearch(query []float32) (SearchResult, bool) {
	if !s.Indexed() {
		s.logger.Warn("ivf search on unbuilt index; call BuildIndex first")
		return SearchResult{}, false
	}

	c := kmeans.NearestIndex(query, s.centroids, distance.L2)

	bucket, ok := s.buckets[c]
	if !ok || bucket.IsEmpty() {
		s.logger.Debug("ivf bucket empty", "cluster", c)
		return SearchResult{}, false
	}

	best := -1
	var bestDist float32
	it := bucket.Iterator()
	for it.HasNext() {
		handle := int(it.Next())
		d := distance.L2(s.dense[handle], query)
		if best == -1 || d < bestDist {
			bestDist = d
			best = handle
		}
	}

	return SearchResult{Handle: best, Distance: bestDist}, true
}
