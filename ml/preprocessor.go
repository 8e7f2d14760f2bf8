package ml

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FeatureStat summarises one column of a dataset.
type FeatureStat struct {
	Name string
	Min  float64
	Max  float64
	Mean float64
}

// Describe returns per-feature min, max and mean in FeatureNames order.
func Describe(d *Dataset) []FeatureStat {
	if d.Len() == 0 {
		return nil
	}
	stats := make([]FeatureStat, FeatureCount)
	for j, name := range FeatureNames {
		col := mat.Col(nil, j, d.X)
		stats[j] = FeatureStat{
			Name: name,
			Min:  floats.Min(col),
			Max:  floats.Max(col),
			Mean: stat.Mean(col, nil),
		}
	}
	return stats
}

// PositiveRate is the share of rows labelled 1.
func PositiveRate(d *Dataset) float64 {
	if d.Len() == 0 {
		return 0
	}
	positives := 0
	for _, label := range d.Y {
		positives += label
	}
	return float64(positives) / float64(d.Len())
}
