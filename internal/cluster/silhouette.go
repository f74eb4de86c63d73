package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Silhouette returns the mean silhouette coefficient of the labelling in
// [-1, 1]. Rows in singleton clusters contribute 0. When fewer than two or
// more than len(points)-1 clusters are present the score is 0.
func Silhouette(points [][]float64, labels []int) float64 {
	n := len(points)
	if n == 0 || len(labels) != n {
		return 0
	}

	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 || len(sizes) > n-1 {
		return 0
	}

	total := 0.0
	sums := make(map[int]float64, len(sizes))
	for i := range points {
		clear(sums)
		for j := range points {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(points[i], points[j], 2)
		}

		own := labels[i]
		if sizes[own] == 1 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for l, size := range sizes {
			if l == own {
				continue
			}
			if mean := sums[l] / float64(size); mean < b {
				b = mean
			}
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n)
}
