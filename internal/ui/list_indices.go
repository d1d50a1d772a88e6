package ui

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/forest-guardian/invisterra/internal/index"
)

// ListIndices prints the index catalog as an aligned table.
func ListIndices(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tCATEGORY\tBANDS")
	for _, e := range index.Catalog() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.LongName, e.Category, e.Bands)
	}
	return tw.Flush()
}

func optionLine(i int, title string) string {
	return fmt.Sprintf("%d. %s\n", i+1, title)
}
