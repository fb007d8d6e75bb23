package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
)

// SliceSource serves tracks from memory in order.
type SliceSource struct {
	tracks []domain.Track
	next   int
}

// NewTrackSource returns a TrackSource over tracks.
func NewTrackSource(tracks []domain.Track) *SliceSource {
	return &SliceSource{tracks: tracks}
}

// Next returns the next track, or io.EOF when exhausted.
func (s *SliceSource) Next(ctx context.Context) (domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return domain.Track{}, err
	}
	if s.next >= len(s.tracks) {
		return domain.Track{}, io.EOF
	}
	t := s.tracks[s.next]
	s.next++
	return t, nil
}

// MultiLoader fans a batch out to several loaders in order, stopping at the
// first failure.
type MultiLoader []PeriodsLoader

func (m MultiLoader) LoadBatch(ctx context.Context, batch []domain.TrackPeriods) error {
	for _, l := range m {
		if err := l.LoadBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every loader that implements io.Closer.
func (m MultiLoader) Close() error {
	var errs []error
	for _, l := range m {
		if c, ok := l.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
