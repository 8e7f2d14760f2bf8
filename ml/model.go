package ml

// Classifier is the read-only side of a fitted model used while serving.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
}

type MLModel interface {
	Classifier
	Train(features [][]float64, labels []int) error
	Save(path string) error
	Load(path string) error
}
