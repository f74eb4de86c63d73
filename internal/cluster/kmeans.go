// Package cluster implements seeded k-means clustering and the silhouette
// quality score over dense float feature matrices.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrTooFewPoints is returned when the matrix has fewer rows than clusters.
	ErrTooFewPoints = errors.New("fewer points than clusters")
	// ErrTooFewDistinct is returned when fewer than k distinct points exist.
	ErrTooFewDistinct = errors.New("fewer distinct points than clusters")
	// ErrNonFinite is returned when a feature value is NaN or infinite.
	ErrNonFinite = errors.New("feature matrix contains non-finite values")
)

// Options controls a k-means fit.
type Options struct {
	K             int
	Seed          uint64
	Restarts      int     // independent k-means++ initialisations; best inertia wins
	MaxIterations int     // Lloyd iterations per restart
	Tolerance     float64 // relative to mean per-dimension variance
}

// DefaultOptions mirrors the conventional scikit-style defaults.
func DefaultOptions() Options {
	return Options{
		K:             3,
		Seed:          42,
		Restarts:      10,
		MaxIterations: 300,
		Tolerance:     1e-4,
	}
}

// Model is the outcome of a fit.
type Model struct {
	Centroids  [][]float64
	Labels     []int
	Inertia    float64
	Iterations int
}

// KMeans partitions points into opts.K clusters. The same points and options
// always produce the same labels.
func KMeans(points [][]float64, opts Options) (*Model, error) {
	if opts.K <= 0 {
		return nil, fmt.Errorf("invalid cluster count %d", opts.K)
	}
	if len(points) < opts.K {
		return nil, ErrTooFewPoints
	}
	for _, p := range points {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ErrNonFinite
			}
		}
	}
	if countDistinct(points, opts.K) < opts.K {
		return nil, ErrTooFewDistinct
	}
	if opts.Restarts <= 0 {
		opts.Restarts = 1
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 300
	}

	tol := opts.Tolerance * meanVariance(points)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	var best *Model
	for r := 0; r < opts.Restarts; r++ {
		centroids := seedPlusPlus(points, opts.K, rng)
		m := lloyd(points, centroids, opts.MaxIterations, tol)
		if best == nil || m.Inertia < best.Inertia {
			best = m
		}
	}
	return best, nil
}

// seedPlusPlus picks initial centroids with D² weighting.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.IntN(len(points))]
	centroids = append(centroids, clone(first))

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = sqDist(p, first)
	}

	for len(centroids) < k {
		total := floats.Sum(dist)
		var idx int
		if total == 0 {
			idx = rng.IntN(len(points))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			idx = len(points) - 1
			for i, d := range dist {
				acc += d
				if acc > target && d > 0 {
					idx = i
					break
				}
			}
			// land on a point not already chosen
			for dist[idx] == 0 {
				idx = (idx + 1) % len(points)
			}
		}
		c := clone(points[idx])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points, centroids [][]float64, maxIter int, tol float64) *Model {
	k := len(centroids)
	dim := len(points[0])
	labels := make([]int, len(points))

	iter := 0
	for iter < maxIter {
		iter++
		assign(points, centroids, labels)

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		next := make([][]float64, k)
		for c := range next {
			if counts[c] == 0 {
				// empty cluster: take the point farthest from its centroid
				far := farthest(points, centroids, labels)
				next[c] = clone(points[far])
				labels[far] = c
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			next[c] = sums[c]
		}

		shift := 0.0
		for c := range next {
			shift += sqDist(next[c], centroids[c])
		}
		centroids = next
		if shift <= tol {
			break
		}
	}

	assign(points, centroids, labels)
	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centroids[labels[i]])
	}
	return &Model{Centroids: centroids, Labels: labels, Inertia: inertia, Iterations: iter}
}

func assign(points, centroids [][]float64, labels []int) {
	for i, p := range points {
		bestC, bestD := 0, math.Inf(1)
		for c, ctr := range centroids {
			if d := sqDist(p, ctr); d < bestD {
				bestC, bestD = c, d
			}
		}
		labels[i] = bestC
	}
}

func farthest(points, centroids [][]float64, labels []int) int {
	idx, maxD := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > maxD {
			idx, maxD = i, d
		}
	}
	return idx
}

func meanVariance(points [][]float64) float64 {
	dim := len(points[0])
	n := float64(len(points))
	total := 0.0
	col := make([]float64, len(points))
	for j := 0; j < dim; j++ {
		for i, p := range points {
			col[i] = p[j]
		}
		mean := floats.Sum(col) / n
		v := 0.0
		for _, x := range col {
			v += (x - mean) * (x - mean)
		}
		total += v / n
	}
	return total / float64(dim)
}

// countDistinct counts distinct rows, stopping early once limit is reached.
func countDistinct(points [][]float64, limit int) int {
	var distinct [][]float64
	for _, p := range points {
		seen := false
		for _, d := range distinct {
			if floats.Equal(p, d) {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, p)
			if len(distinct) >= limit {
				return len(distinct)
			}
		}
	}
	return len(distinct)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
