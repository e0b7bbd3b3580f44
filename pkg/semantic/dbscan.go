package semantic

import "github.com/orneryd/linkaudit/pkg/vector"

// noiseLabel marks points that belong to no cluster.
const noiseLabel = -1

// dbscan runs density-based clustering over the points with cosine distance.
//
// Returns one label per point: 0..n-1 for cluster membership, noiseLabel for
// noise. A point is a core point when at least minPts points (itself
// included) sit within eps. Expansion visits points in index order, so the
// labeling is deterministic for identical input.
func dbscan(points [][]float32, eps float64, minPts int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = noiseLabel
	}

	visited := make([]bool, n)
	nextCluster := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			continue
		}

		labels[i] = nextCluster
		expandCluster(points, labels, visited, neighbors, nextCluster, eps, minPts)
		nextCluster++
	}

	return labels
}

// expandCluster grows one cluster from a core point's neighborhood,
// breadth-first. Border points join the cluster but do not expand it.
func expandCluster(points [][]float32, labels []int, visited []bool, seeds []int, cluster int, eps float64, minPts int) {
	for k := 0; k < len(seeds); k++ {
		j := seeds[k]

		if !visited[j] {
			visited[j] = true
			neighbors := regionQuery(points, j, eps)
			if len(neighbors) >= minPts {
				seeds = append(seeds, neighbors...)
			}
		}

		if labels[j] == noiseLabel {
			labels[j] = cluster
		}
	}
}

// regionQuery returns the indices within eps of point i, i included.
func regionQuery(points [][]float32, i int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if vector.CosineDistance(points[i], points[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
