// Package clustering groups conversation segments into project clusters
// via UMAP+HDBSCAN (spec §4.5, the primary path; inputs smaller than the
// UMAP neighbor count skip UMAP and go straight to HDBSCAN) or, when a
// fixed cluster count is wanted, KMeans (spec §4.6).
package clustering

import "github.com/google/uuid"

// Point is one embedded segment entering the clusterer.
type Point struct {
	SegmentID uuid.UUID
	Vector    []float64
}

// Options configures RunUMAPHDBSCAN.
type Options struct {
	UMAPDimensions int
	UMAPNeighbors  int
	MinClusterSize int
	MinPoints      int
	RandomSeed     int64
}

// KMeansOptions configures RunKMeans.
type KMeansOptions struct {
	ClusterCount     int
	MaxIterations    int
	OutlierThreshold float64
	Seed             int64
}

// Cluster is one extracted group of points, noise excluded.
type Cluster struct {
	ID               int
	MemberSegmentIDs []uuid.UUID
	Confidence       float64
	AvgOutlierScore  float64
	OutlierCount     int
}

// Result is a clusterer's full output. Cluster ids <= 0 never appear here
// — those points are reported only via NoiseSegmentIDs.
type Result struct {
	Clusters        []Cluster
	NoiseSegmentIDs []uuid.UUID
	UMAPDimensions  int // 0 when UMAP was skipped (fallback path)
}

// ProgressFunc reports fractional progress in [0, 1]; callers may pass nil.
type ProgressFunc func(fraction float64)
