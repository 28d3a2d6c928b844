// Package position abstracts the device position feed. The engine never
// acquires positions itself; it subscribes to a Source and receives
// updates in delivery order.
package position

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rideline/navigator/internal/lib/geo"
)

// Source delivers position updates to a callback. Subscribe returns a
// cancel func that releases the subscription; updates stop after cancel.
type Source interface {
	Subscribe(ctx context.Context, fn func(geo.Coordinate)) (cancel func(), err error)
}

// Getter reads the current device position. An error means no fix.
type Getter func(ctx context.Context) (geo.Coordinate, error)

// Options tunes the polling cadence
type Options struct {
	// MinInterval is the poll period
	MinInterval time.Duration
	// MinDistanceMeters suppresses updates closer than this to the last
	// emitted position; 0 emits every poll
	MinDistanceMeters float64
}

// DefaultOptions matches the observed app cadence: a few seconds between
// polls, 10 m minimum movement.
func DefaultOptions() Options {
	return Options{
		MinInterval:       3 * time.Second,
		MinDistanceMeters: 10,
	}
}

// PollingSource adapts a Getter into a Source by polling on a ticker
type PollingSource struct {
	getter Getter
	opts   Options
	logger *zap.Logger
}

// NewPollingSource creates a polling adapter around getter
func NewPollingSource(getter Getter, opts Options, logger *zap.Logger) (*PollingSource, error) {
	if getter == nil {
		return nil, errors.New("position getter is required")
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultOptions().MinInterval
	}
	return &PollingSource{getter: getter, opts: opts, logger: logger}, nil
}

// Subscribe starts the poll loop. Updates are delivered from a single
// goroutine, so callers see them strictly in order.
func (s *PollingSource) Subscribe(ctx context.Context, fn func(geo.Coordinate)) (func(), error) {
	if fn == nil {
		return nil, errors.New("subscriber callback is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(s.opts.MinInterval)
		defer ticker.Stop()

		var last *geo.Coordinate
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pos, err := s.getter(ctx)
				if err != nil {
					if ctx.Err() == nil {
						s.logger.Warn("position read failed", zap.Error(err))
					}
					continue
				}

				if last != nil && s.opts.MinDistanceMeters > 0 {
					moved := geo.Distance(*last, pos, geo.EarthRadiusKm) * 1000
					if moved < s.opts.MinDistanceMeters {
						continue
					}
				}

				p := pos
				last = &p
				fn(pos)
			}
		}
	}()

	return cancel, nil
}
