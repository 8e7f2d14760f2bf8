package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lockerslot/ml"
)

// execute runs a fresh command tree with args and returns everything it
// printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOCKERSLOT_LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeDataset writes a small grid where a slot succeeds when the locker is
// close and has a free compartment. withLabel=false drops the success column.
func writeDataset(t *testing.T, path string, withLabel bool) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(ml.FeatureNames[:], ","))
	if withLabel {
		b.WriteString("," + ml.LabelColumn)
	}
	b.WriteString("\n")
	for d := 0; d < 6; d++ {
		distance := 0.5 + float64(d)
		for available := 0; available < 4; available++ {
			for _, hour := range []int{9, 18} {
				fmt.Fprintf(&b, "12.9,77.6,12.91,77.61,%g,%d,1,10,%d", distance, available, hour)
				if withLabel {
					success := 0
					if distance <= 2.5 && available > 0 {
						success = 1
					}
					fmt.Fprintf(&b, ",%d", success)
				}
				b.WriteString("\n")
			}
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}
