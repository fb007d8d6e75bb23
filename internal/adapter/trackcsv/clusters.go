package trackcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
)

// ParseClusters reads a track_id,cluster table. offset is added to every
// label so zero-based k-means output can be reported from 1.
func ParseClusters(r io.Reader, offset int) (domain.ClusterAssignment, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read clusters: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read clusters: %w: track_id", ErrMissingColumn)
	}

	idCol, clCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "track_id":
			idCol = i
		case "cluster":
			clCol = i
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("read clusters: %w: track_id", ErrMissingColumn)
	}
	if clCol < 0 {
		return nil, fmt.Errorf("read clusters: %w: cluster", ErrMissingColumn)
	}

	out := make(domain.ClusterAssignment, len(rows)-1)
	for i, row := range rows[1:] {
		id, err := strconv.ParseInt(strings.TrimSpace(row[idCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read clusters line %d: %w: track_id %q", i+2, ErrBadRow, row[idCol])
		}
		label, err := strconv.Atoi(strings.TrimSpace(row[clCol]))
		if err != nil {
			return nil, fmt.Errorf("read clusters line %d: %w: cluster %q", i+2, ErrBadRow, row[clCol])
		}
		out[id] = label + offset
	}
	return out, nil
}

// ReadClusters parses the cluster file at path.
func ReadClusters(path string, offset int) (domain.ClusterAssignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clusters: %w", err)
	}
	defer f.Close()
	return ParseClusters(f, offset)
}
