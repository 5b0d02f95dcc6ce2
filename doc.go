// Package picovec is a minimal in-memory approximate-nearest-neighbor
// (ANN) vector index.
//
// A Store keeps every vector in two parallel views: the full-precision
// coordinates and a reduced-precision view derived by a pluggable codec
// (a 2-coordinate prefix by default). BuildIndex trains k-means centroids
// over the full-precision data and assigns every vector to its nearest
// centroid's bucket, producing an inverted-file (IVF) index. Search runs
// one of two strategies:
//
//   - BruteForce scans the reduced view of every vector and rescores the
//     single winner against its full-precision coordinates.
//   - IVF finds the query's nearest centroid and scans only that bucket
//     with exact distances.
//
// The dense view can be snapshotted to a flat binary file and restored;
// reduced views are rebuilt on load and the index must be rebuilt by the
// caller.
//
// Quick start:
//
//	store := picovec.New()
//	for _, v := range vectors {
//	    if _, err := store.Add(v); err != nil {
//	        return err
//	    }
//	}
//	if err := store.BuildIndex(8, 10); err != nil {
//	    return err
//	}
//	if res, ok := store.Search(query, picovec.IVF); ok {
//	    fmt.Println(res.Handle, res.Distance)
//	}
//
// A Store is a single mutable resource with no internal locking. All
// operations run synchronously on the caller's goroutine; callers must not
// mutate the store concurrently with reads from another goroutine.
package picovec
