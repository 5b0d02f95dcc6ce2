// Package kmeans implements k-means clustering (Lloyd's algorithm).
//
// It is used to train the centroids of the inverted-file (IVF) index.
// Centroid seeding draws from an injected Sampler so training is
// deterministic under a fixed seed.
package kmeans
