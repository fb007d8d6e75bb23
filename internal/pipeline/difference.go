package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/cyclone-climatology/internal/density"
	"github.com/couchcryptid/cyclone-climatology/internal/domain"
)

// PhasePair is a consecutive pair of phases compared in difference maps.
type PhasePair struct {
	From, To domain.Phase
}

// Name is the field name of the pair's difference, e.g. "mature_to_decay".
func (p PhasePair) Name() string {
	return string(p.From) + "_to_" + string(p.To)
}

// DefaultPhasePairs are the life-cycle transitions compared by default.
// Residual is left out.
func DefaultPhasePairs() []PhasePair {
	return []PhasePair{
		{domain.PhaseIncipient, domain.PhaseIntensification},
		{domain.PhaseIntensification, domain.PhaseMature},
		{domain.PhaseMature, domain.PhaseDecay},
	}
}

// DifferenceDatasetName names the difference dataset of a season.
func DifferenceDatasetName(s domain.Season) string {
	if s == domain.AllYear {
		return "track_density_difference"
	}
	return "track_density_difference_" + string(s)
}

// ExportDifferences sums each phase over the regional datasets, min-max
// normalises the sums and writes Normalize(To) - Normalize(From) for every
// pair whose phases are present.
func (x *DensityExporter) ExportDifferences(ctx context.Context, s domain.Season, regional []*density.Dataset, pairs []PhasePair) (*density.Dataset, error) {
	name := DifferenceDatasetName(s)
	sums := make(map[domain.Phase]*density.Field)
	sumOf := func(p domain.Phase) (*density.Field, error) {
		if f, ok := sums[p]; ok {
			return f, nil
		}
		var parts []*density.Field
		for _, ds := range regional {
			if f, ok := ds.Field(string(p)); ok {
				parts = append(parts, f)
			}
		}
		if len(parts) == 0 {
			return nil, nil
		}
		f, err := density.Sum(string(p), parts...)
		if err != nil {
			return nil, fmt.Errorf("sum %s: %w", p, err)
		}
		sums[p] = f
		return f, nil
	}

	var fields []*density.Field
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		from, err := sumOf(pair.From)
		if err != nil {
			return nil, err
		}
		to, err := sumOf(pair.To)
		if err != nil {
			return nil, err
		}
		if from == nil || to == nil {
			x.logger.Warn("phase missing from regional datasets, skipping pair", "dataset", name, "pair", pair.Name())
			continue
		}
		d, err := density.Difference(pair.Name(), from, to)
		if err != nil {
			return nil, fmt.Errorf("difference %s: %w", pair.Name(), err)
		}
		fields = append(fields, d)
		x.metrics.DensityFields.Inc()
		x.progress.Done()
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("export differences %s: %w", name, density.ErrNoObservations)
	}

	ds := &density.Dataset{
		Name:   name,
		Title:  fmt.Sprintf("normalised track density difference %s", s),
		RunID:  x.runID,
		Fields: fields,
	}
	if err := x.loader.LoadDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", name, err)
	}
	x.logger.Info("difference dataset written", "dataset", name, "fields", len(fields))
	return ds, nil
}
