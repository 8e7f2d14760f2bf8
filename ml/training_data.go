package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gonum.org/v1/gonum/mat"
)

// Dataset is a labelled feature matrix. Columns of X follow FeatureNames.
type Dataset struct {
	X *mat.Dense
	Y []int
}

// LoadCSV reads a training dataset from path.
func LoadCSV(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	ds, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV parses a headered CSV stream. Columns are matched by name, so the
// file may order them freely, but every feature and the label must be present
// and no other column is accepted. A leading UTF-8 BOM is ignored.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns, labelCol, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var data []float64
	var labels []int
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]float64, FeatureCount)
		for col, raw := range record {
			value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, fmt.Errorf("line %d column %q: non-numeric value %q", line, header[col], raw)
			}
			if col == labelCol {
				if value != 0 && value != 1 {
					return nil, fmt.Errorf("line %d column %q: label must be 0 or 1, got %q", line, LabelColumn, raw)
				}
				labels = append(labels, int(value))
				continue
			}
			row[columns[col]] = value
		}
		data = append(data, row...)
	}
	if len(labels) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return &Dataset{X: mat.NewDense(len(labels), FeatureCount, data), Y: labels}, nil
}

// mapHeader returns, for each CSV column, its index in FeatureNames, plus the
// position of the label column.
func mapHeader(header []string) ([]int, int, error) {
	columns := make([]int, len(header))
	seen := make([]bool, FeatureCount)
	labelCol := -1
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == LabelColumn {
			if labelCol >= 0 {
				return nil, 0, fmt.Errorf("duplicate column %q", name)
			}
			labelCol = i
			columns[i] = -1
			continue
		}
		idx := featureIndex(name)
		if idx < 0 {
			return nil, 0, fmt.Errorf("unexpected column %q", name)
		}
		if seen[idx] {
			return nil, 0, fmt.Errorf("duplicate column %q", name)
		}
		seen[idx] = true
		columns[i] = idx
	}
	if labelCol < 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, LabelColumn)
	}
	for idx, ok := range seen {
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, FeatureNames[idx])
		}
	}
	return columns, labelCol, nil
}

func (d *Dataset) Len() int {
	return len(d.Y)
}

// Rows copies the matrix into one slice per sample.
func (d *Dataset) Rows() [][]float64 {
	rows := make([][]float64, d.Len())
	for i := range rows {
		rows[i] = mat.Row(nil, i, d.X)
	}
	return rows
}

// Split shuffles the rows with the given seed and holds out
// ceil(n*testRatio) of them. Ratios outside (0,1) fall back to 0.2.
func (d *Dataset) Split(testRatio float64, seed int64) (train, holdout *Dataset) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(d.Len())

	nTest := int(math.Ceil(float64(d.Len()) * testRatio))
	return d.subset(indices[nTest:]), d.subset(indices[:nTest])
}

func (d *Dataset) subset(indices []int) *Dataset {
	out := &Dataset{Y: make([]int, len(indices))}
	if len(indices) == 0 {
		return out
	}
	out.X = mat.NewDense(len(indices), FeatureCount, nil)
	for i, idx := range indices {
		out.X.SetRow(i, d.X.RawRowView(idx))
		out.Y[i] = d.Y[idx]
	}
	return out
}
