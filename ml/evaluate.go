package ml

import "fmt"

// Metrics are holdout scores for the positive (assign) class.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	Samples   int
}

// Evaluate scores model against every row of d. An empty dataset yields
// zero metrics.
func Evaluate(model Classifier, d *Dataset) (Metrics, error) {
	metrics := Metrics{Samples: d.Len()}
	if d.Len() == 0 {
		return metrics, nil
	}

	var correct, truePositive, predictedPositive, actualPositive int
	for i, row := range d.Rows() {
		label, _, err := model.Predict(row)
		if err != nil {
			return Metrics{}, fmt.Errorf("predict row %d: %w", i, err)
		}
		if label == d.Y[i] {
			correct++
		}
		if label == 1 {
			predictedPositive++
		}
		if d.Y[i] == 1 {
			actualPositive++
			if label == 1 {
				truePositive++
			}
		}
	}

	metrics.Accuracy = float64(correct) / float64(d.Len())
	if predictedPositive > 0 {
		metrics.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		metrics.Recall = float64(truePositive) / float64(actualPositive)
	}
	return metrics, nil
}
