package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/forest-guardian/invisterra/internal/utils"
	"github.com/forest-guardian/invisterra/internal/zonal"
	"github.com/gocarina/gocsv"
)

var statColumns = []string{"mean", "min", "max", "std", "count"}

// WriteZonalCSV writes one row per record: the sorted union of attribute
// names followed by the statistics. Missing aggregates are empty cells.
// Attributes named like a statistic column are replaced by it.
func WriteZonalCSV(w io.Writer, records []zonal.Record) error {
	names := map[string]struct{}{}
	for _, r := range records {
		for k := range r.Properties {
			names[k] = struct{}{}
		}
	}
	for _, s := range statColumns {
		delete(names, s)
	}
	attrs := utils.GetSortedKeys(names, true)

	writer := gocsv.DefaultCSVWriter(w)
	if err := writer.Write(append(append([]string{}, attrs...), statColumns...)); err != nil {
		return fmt.Errorf("failed to write zonal header: %w", err)
	}
	for i, r := range records {
		row := make([]string, 0, len(attrs)+len(statColumns))
		for _, k := range attrs {
			cell, err := attributeCell(r.Properties[k])
			if err != nil {
				return fmt.Errorf("feature %d attribute %s: %w", i, k, err)
			}
			row = append(row, cell)
		}
		row = append(row,
			floatCell(r.Mean), floatCell(r.Min), floatCell(r.Max), floatCell(r.Std),
			strconv.Itoa(r.Count))
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write zonal row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func attributeCell(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
