package segmentation

// TotalSpend sums Spend over the whole dataset.
func TotalSpend(ds Dataset) float64 {
	total := 0.0
	for _, r := range ds {
		total += r.Spend
	}
	return total
}

// EstimateSavings sums Spend over rows whose ad_group is in risky. risky must
// be the set returned by RiskyGroups for the same run.
func EstimateSavings(ds Dataset, risky []int) float64 {
	if len(risky) == 0 {
		return 0
	}
	set := make(map[int]struct{}, len(risky))
	for _, g := range risky {
		set[g] = struct{}{}
	}
	total := 0.0
	for _, r := range ds {
		if _, ok := set[r.AdGroup]; ok {
			total += r.Spend
		}
	}
	return total
}
