package trackcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
)

// Write writes tracks in the raw headerless TRACK layout, converting
// vorticity back to vor42 units.
func Write(w io.Writer, tracks []domain.Track) error {
	cw := csv.NewWriter(w)
	for _, t := range tracks {
		for _, o := range t.Observations {
			rec := []string{
				strconv.FormatInt(t.ID, 10),
				o.Time.UTC().Format(DateLayouts[0]),
				strconv.FormatFloat(o.Lon, 'f', 2, 64),
				strconv.FormatFloat(o.Lat, 'f', 2, 64),
				strconv.FormatFloat(domain.Vor42FromVorticity(o.Vorticity), 'f', 5, 64),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write track %d: %w", t.ID, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes tracks to path.
func WriteFile(path string, tracks []domain.Track) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, tracks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
