package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/forest-guardian/invisterra/internal/index"
	"github.com/forest-guardian/invisterra/internal/stats"
)

// WriteReport writes the plain-text statistics report of an index grid.
func WriteReport(w io.Writer, idx index.Index, s stats.Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s STATISTICS REPORT\n", idx)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	if s.Count == 0 {
		b.WriteString("No valid pixels.\n")
	} else {
		fmt.Fprintf(&b, "Mean:   %.6f\n", s.Mean)
		fmt.Fprintf(&b, "Median: %.6f\n", s.Median)
		fmt.Fprintf(&b, "Std:    %.6f\n", s.Std)
		fmt.Fprintf(&b, "Min:    %.6f\n", s.Min)
		fmt.Fprintf(&b, "Max:    %.6f\n", s.Max)
		for _, p := range s.Percentiles {
			fmt.Fprintf(&b, "%-8s%.6f\n", "P"+strconv.FormatFloat(p.Rank, 'f', -1, 64)+":", p.Value)
		}
	}
	fmt.Fprintf(&b, "Pixels: %d\n", s.Count)

	_, err := io.WriteString(w, b.String())
	return err
}
