package ml

import (
	"fmt"
	"strings"
)

// lockerGrid builds a full factorial dataset where a slot succeeds only when
// the locker is close (<= 2.5 km) and has a free compartment.
func lockerGrid() ([][]float64, []int) {
	var features [][]float64
	var labels []int
	for d := 0; d < 10; d++ {
		distance := 0.5 + float64(d)*0.5
		for available := 0; available < 5; available++ {
			for active := 0; active < 3; active++ {
				for _, hour := range []int{8, 14, 20} {
					f := Features{
						CustomerLat:           12.9,
						CustomerLng:           77.6,
						LockerLat:             12.91,
						LockerLng:             77.61,
						DistanceKm:            distance,
						AvailableCompartments: available,
						ActivePickups:         active,
						TotalCompartments:     10,
						TimeOfDay:             hour,
					}
					label := 0
					if distance <= 2.5 && available > 0 {
						label = 1
					}
					features = append(features, f.Vector())
					labels = append(labels, label)
				}
			}
		}
	}
	return features, labels
}

func lockerGridCSV() string {
	features, labels := lockerGrid()
	var b strings.Builder
	b.WriteString(strings.Join(FeatureNames[:], ",") + "," + LabelColumn + "\n")
	for i, row := range features {
		for _, v := range row {
			fmt.Fprintf(&b, "%g,", v)
		}
		fmt.Fprintf(&b, "%d\n", labels[i])
	}
	return b.String()
}

func scenario(available int) Features {
	return Features{
		CustomerLat:           12.9,
		CustomerLng:           77.6,
		LockerLat:             12.91,
		LockerLng:             77.61,
		DistanceKm:            1.2,
		AvailableCompartments: available,
		ActivePickups:         1,
		TotalCompartments:     10,
		TimeOfDay:             14,
	}
}
