package density

import "fmt"

// Units is the unit string attached to every density variable.
const Units = "occurrences per 10^6 km^2 per month"

// Dataset is a named collection of fields on one grid, written as a single
// NetCDF file.
type Dataset struct {
	Name   string
	Title  string
	RunID  string
	Fields []*Field
}

// Field returns the field with the given name.
func (d *Dataset) Field(name string) (*Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Check reports the first field whose grid differs from the first one.
func (d *Dataset) Check() error {
	if len(d.Fields) == 0 {
		return fmt.Errorf("dataset %q: %w", d.Name, ErrNoObservations)
	}
	for _, f := range d.Fields[1:] {
		if !sameGrid(d.Fields[0], f) {
			return fmt.Errorf("dataset %q field %q: %w", d.Name, f.Name, ErrGridMismatch)
		}
	}
	return nil
}
