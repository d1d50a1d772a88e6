package index

import (
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// CatalogEntry is one row of the `indices` listing.
type CatalogEntry struct {
	Name     string `csv:"index"`
	LongName string `csv:"name"`
	Category string `csv:"category"`
	Bands    string `csv:"bands"`
}

func Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, indexCount)
	for _, i := range All() {
		def := Lookup(i)
		entries = append(entries, CatalogEntry{
			Name:     i.String(),
			LongName: def.LongName,
			Category: string(def.Category),
			Bands:    joinBands(def.Bands),
		})
	}
	return entries
}

// WriteCatalogCSV writes the catalog with a header row.
func WriteCatalogCSV(w io.Writer) error {
	entries := Catalog()
	return gocsv.Marshal(&entries, w)
}

// BandsFor lists the bands an index needs, for prompts and help text.
func BandsFor(i Index) string {
	return strings.ReplaceAll(joinBands(Lookup(i).Bands), ", ", " ")
}
