package segmentation

import "math"

// DeriveFeatures fills CTR and CPC on every record in place. Zero
// denominators and any non-finite quotient yield 0.
func DeriveFeatures(ds Dataset) {
	for i := range ds {
		ds[i].CTR = safeDiv(ds[i].Clicks, ds[i].Impressions)
		ds[i].CPC = safeDiv(ds[i].Spend, ds[i].Clicks)
	}
}

// FeatureMatrix returns the unscaled (Spend, CTR, CPC) vector per record.
// The same matrix feeds both clustering and the silhouette score.
func FeatureMatrix(ds Dataset) [][]float64 {
	m := make([][]float64, len(ds))
	for i, r := range ds {
		m[i] = []float64{r.Spend, r.CTR, r.CPC}
	}
	return m
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	q := num / den
	if math.IsInf(q, 0) || math.IsNaN(q) {
		return 0
	}
	return q
}
