package cluster

import (
	"math"
	"math/rand"

	"github.com/hyperjump/latentfs/internal/vector"
)

// kmeansResult holds one converged K-Means partition.
type kmeansResult struct {
	assignments []int       // point index -> cluster index, len == len(points)
	centroids   [][]float32 // len == k
	inertia     float64     // sum of squared distances to assigned centroids
}

// runKMeans partitions points into k clusters using Lloyd's algorithm with
// k-means++ seeding. The whole run is deterministic for a given seed: nInit
// restarts are seeded with seed, seed+1, ... and the lowest-inertia partition
// wins. Iterations are capped by maxIterations per restart.
func runKMeans(points [][]float32, k, maxIterations, nInit int, seed int64) kmeansResult {
	if len(points) == 0 || k <= 0 {
		return kmeansResult{}
	}
	if k > len(points) {
		k = len(points)
	}
	if nInit < 1 {
		nInit = 1
	}

	best := kmeansResult{inertia: math.Inf(1)}
	for restart := 0; restart < nInit; restart++ {
		rng := rand.New(rand.NewSource(seed + int64(restart)))
		res := kmeansOnce(points, k, maxIterations, rng)
		if res.inertia < best.inertia {
			best = res
		}
	}
	return best
}

func kmeansOnce(points [][]float32, k, maxIterations int, rng *rand.Rand) kmeansResult {
	centroids := seedCentroids(points, k, rng)
	assignments := make([]int, len(points))
	for i := range assignments {
		assignments[i] = -1
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			c := nearestCentroid(p, centroids)
			if c != assignments[i] {
				assignments[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		recomputeCentroids(points, assignments, centroids)
		reseedEmptyClusters(points, assignments, centroids)
	}

	var inertia float64
	for i, p := range points {
		d := vector.EuclideanDistance(p, centroids[assignments[i]])
		inertia += d * d
	}
	return kmeansResult{assignments: assignments, centroids: centroids, inertia: inertia}
}

// seedCentroids picks k initial centroids with k-means++: the first uniformly
// at random, each next one weighted by squared distance to the nearest
// already-chosen centroid.
func seedCentroids(points [][]float32, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)
	first := points[rng.Intn(len(points))]
	centroids = append(centroids, cloneVec(first))

	dist2 := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := vector.EuclideanDistance(p, centroids[0])
			min := d * d
			for _, c := range centroids[1:] {
				d = vector.EuclideanDistance(p, c)
				if d*d < min {
					min = d * d
				}
			}
			dist2[i] = min
			total += min
		}
		if total == 0 {
			// All remaining points coincide with a centroid; pick uniformly.
			centroids = append(centroids, cloneVec(points[rng.Intn(len(points))]))
			continue
		}
		target := rng.Float64() * total
		idx := len(points) - 1
		var acc float64
		for i, d := range dist2 {
			acc += d
			if acc >= target {
				idx = i
				break
			}
		}
		centroids = append(centroids, cloneVec(points[idx]))
	}
	return centroids
}

// nearestCentroid returns the index of the closest centroid; ties go to the
// lowest index so assignment is deterministic.
func nearestCentroid(p []float32, centroids [][]float32) int {
	best, bestDist := 0, math.Inf(1)
	for j, c := range centroids {
		if d := vector.EuclideanDistance(p, c); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

func recomputeCentroids(points [][]float32, assignments []int, centroids [][]float32) {
	k := len(centroids)
	dims := len(points[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for j := range sums {
		sums[j] = make([]float64, dims)
	}
	for i, p := range points {
		j := assignments[i]
		counts[j]++
		for d, v := range p {
			sums[j][d] += float64(v)
		}
	}
	for j := 0; j < k; j++ {
		if counts[j] == 0 {
			continue // reseeded separately
		}
		c := make([]float32, dims)
		for d := range c {
			c[d] = float32(sums[j][d] / float64(counts[j]))
		}
		centroids[j] = c
	}
}

// reseedEmptyClusters moves each empty cluster's centroid onto the point
// farthest from its currently assigned centroid, so no cluster stays empty
// across an iteration.
func reseedEmptyClusters(points [][]float32, assignments []int, centroids [][]float32) {
	counts := make([]int, len(centroids))
	for _, a := range assignments {
		counts[a]++
	}
	taken := make(map[int]bool)
	for j, n := range counts {
		if n > 0 {
			continue
		}
		farIdx, farDist := -1, -1.0
		for i, p := range points {
			if taken[i] {
				continue
			}
			if d := vector.EuclideanDistance(p, centroids[assignments[i]]); d > farDist {
				farIdx, farDist = i, d
			}
		}
		if farIdx < 0 {
			continue
		}
		taken[farIdx] = true
		centroids[j] = cloneVec(points[farIdx])
	}
}

func cloneVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
