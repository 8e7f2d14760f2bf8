package ml

import "errors"

// LabelColumn is the binary outcome column of the training dataset.
const LabelColumn = "success"

// FeatureCount is the length of every feature vector.
const FeatureCount = 9

// FeatureNames is the one ordered feature schema shared by training and
// prediction. Vectors are always laid out in this order.
var FeatureNames = [FeatureCount]string{
	"customer_lat",
	"customer_lng",
	"locker_lat",
	"locker_lng",
	"distance_km",
	"available_compartments",
	"active_pickups",
	"total_compartments",
	"time_of_day",
}

var (
	ErrFeatureCount   = errors.New("feature vector must have 9 values")
	ErrNotTrained     = errors.New("model not trained")
	ErrSchemaMismatch = errors.New("model feature schema does not match")
	ErrMissingColumn  = errors.New("dataset column missing")
)

// Features describes one locker slot assignment candidate.
type Features struct {
	CustomerLat           float64
	CustomerLng           float64
	LockerLat             float64
	LockerLng             float64
	DistanceKm            float64
	AvailableCompartments int
	ActivePickups         int
	TotalCompartments     int
	TimeOfDay             int
}

// Vector lays the features out in FeatureNames order.
func (f Features) Vector() []float64 {
	return []float64{
		f.CustomerLat,
		f.CustomerLng,
		f.LockerLat,
		f.LockerLng,
		f.DistanceKm,
		float64(f.AvailableCompartments),
		float64(f.ActivePickups),
		float64(f.TotalCompartments),
		float64(f.TimeOfDay),
	}
}

func featureIndex(name string) int {
	for i, n := range FeatureNames {
		if n == name {
			return i
		}
	}
	return -1
}

func sameSchema(names []string) bool {
	if len(names) != FeatureCount {
		return false
	}
	for i, name := range names {
		if FeatureNames[i] != name {
			return false
		}
	}
	return true
}

func checkVector(features []float64) error {
	if len(features) != FeatureCount {
		return ErrFeatureCount
	}
	return nil
}
