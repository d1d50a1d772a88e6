package index

import (
	"fmt"
	"strings"

	"github.com/forest-guardian/invisterra/internal/sentinel"
)

type UnknownIndexError struct {
	Name string
}

func (e *UnknownIndexError) Error() string {
	return fmt.Sprintf("unknown index %q, supported: %s", e.Name, strings.Join(indexNames[:], ", "))
}

// MissingBandsError is returned before any band is read.
type MissingBandsError struct {
	Index    Index
	Missing  []sentinel.BandID
	Required []sentinel.BandID
}

func (e *MissingBandsError) Error() string {
	return fmt.Sprintf("%s requires bands %s, missing %s", e.Index, joinBands(e.Required), joinBands(e.Missing))
}

type ShapeMismatchError struct {
	Band          sentinel.BandID
	Width, Height int
	WantWidth     int
	WantHeight    int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("band %s is %dx%d, expected %dx%d like the first band", e.Band, e.Width, e.Height, e.WantWidth, e.WantHeight)
}

func joinBands(ids []sentinel.BandID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
