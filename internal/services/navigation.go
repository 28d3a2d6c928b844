// Package services orchestrates the route and navigation libraries
// behind the HTTP surface.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rideline/navigator/internal/cache"
	"github.com/rideline/navigator/internal/clients/directions"
	"github.com/rideline/navigator/internal/clients/position"
	"github.com/rideline/navigator/internal/config"
	"github.com/rideline/navigator/internal/lib/geo"
	"github.com/rideline/navigator/internal/lib/navigation"
	"github.com/rideline/navigator/internal/lib/route"
	"github.com/rideline/navigator/internal/lib/suggest"
)

// ErrRouteNotFound is returned for unknown or expired route IDs
var ErrRouteNotFound = errors.New("route not found")

// ErrSessionNotFound is returned for unknown navigation sessions
var ErrSessionNotFound = errors.New("navigation session not found")

// DirectionsProvider is the slice of the directions client the service
// needs; tests substitute a fake.
type DirectionsProvider interface {
	Get(ctx context.Context, origin, destination geo.Coordinate, waypoints []geo.Coordinate) (*directions.Response, error)
}

// NavigationService owns route assembly, the session registry and
// progress broadcasting.
type NavigationService struct {
	provider  DirectionsProvider
	assembler *route.Assembler
	cache     *cache.Cache
	hub       *ProgressHub
	cfg       *config.Config
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*navigation.Tracker
}

// NewNavigationService creates the service
func NewNavigationService(provider DirectionsProvider, c *cache.Cache, hub *ProgressHub, cfg *config.Config, logger *zap.Logger) *NavigationService {
	return &NavigationService{
		provider:  provider,
		assembler: route.NewAssembler(logger),
		cache:     c,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
		sessions:  make(map[string]*navigation.Tracker),
	}
}

// PreviewRoute fetches directions and assembles a route. Provider
// failures degrade to the straight-line route rather than erroring:
// navigation stays usable through an outage.
func (s *NavigationService) PreviewRoute(ctx context.Context, origin, destination geo.Coordinate, waypoints []geo.Coordinate) (*route.Route, error) {
	if !origin.Valid() || !destination.Valid() {
		return nil, fmt.Errorf("invalid origin or destination coordinates")
	}

	tripKey := cache.TripKey(origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude)
	if len(waypoints) == 0 {
		var cached route.Route
		if found, err := s.cache.Get(tripKey, &cached); err == nil && found {
			s.logger.Debug("route cache hit", zap.String("key", tripKey))
			return &cached, nil
		}
	}

	raw, err := s.provider.Get(ctx, origin, destination, waypoints)
	if err != nil {
		var provErr *directions.ProviderError
		if !errors.As(err, &provErr) {
			return nil, fmt.Errorf("failed to fetch directions: %w", err)
		}
		s.logger.Warn("directions provider unavailable, serving degraded route", zap.Error(err))
		raw = nil // assembler degrades on nil
	}

	r := s.assembler.Assemble(raw, origin, destination)

	if !r.IsDegraded && len(waypoints) == 0 {
		if err := s.cache.Set(tripKey, r, s.cfg.Cache.RouteTTL()); err != nil {
			s.logger.Warn("failed to cache route", zap.Error(err))
		}
	}
	// Always retrievable by ID while fresh, degraded or not
	if err := s.cache.Set(cache.RouteKey(r.ID), r, s.cfg.Cache.RouteTTL()); err != nil {
		s.logger.Warn("failed to cache route by id", zap.Error(err))
	}

	return r, nil
}

// GetRoute looks a previously assembled route up by ID
func (s *NavigationService) GetRoute(id string) (*route.Route, error) {
	var r route.Route
	found, err := s.cache.Get(cache.RouteKey(id), &r)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached route: %w", err)
	}
	if !found {
		return nil, ErrRouteNotFound
	}
	return &r, nil
}

// StartNavigation creates a tracker session for a previewed route and
// returns the session ID.
func (s *NavigationService) StartNavigation(routeID string) (string, error) {
	r, err := s.GetRoute(routeID)
	if err != nil {
		return "", err
	}

	tracker := navigation.NewTracker(navigation.Config{
		TurnAdvanceThresholdKm: s.cfg.Navigation.TurnAdvanceThresholdKm,
	}, s.logger)

	sessionID, err := tracker.Start(r)
	if err != nil {
		return "", fmt.Errorf("failed to start navigation: %w", err)
	}

	tracker.OnComplete(func() {
		s.logger.Info("trip completed", zap.String("session_id", sessionID))
	})

	s.mu.Lock()
	s.sessions[sessionID] = tracker
	s.mu.Unlock()

	return sessionID, nil
}

// UpdatePosition applies a position update to a session and broadcasts
// the resulting progress to any watchers.
func (s *NavigationService) UpdatePosition(sessionID string, pos geo.Coordinate) (navigation.Progress, error) {
	tracker, ok := s.tracker(sessionID)
	if !ok {
		return navigation.Progress{}, ErrSessionNotFound
	}

	progress := tracker.OnPositionUpdate(pos)
	s.hub.Broadcast(sessionID, progress)

	if progress.IsCompleted {
		s.removeSession(sessionID)
	}

	return progress, nil
}

// AttachPositionSource feeds a session from a device position getter,
// polling at the configured cadence and applying every delivered update.
// The returned cancel releases the subscription; the tracker also
// releases it when the session reaches a terminal state.
func (s *NavigationService) AttachPositionSource(ctx context.Context, sessionID string, getter position.Getter) (func(), error) {
	tracker, ok := s.tracker(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	src, err := position.NewPollingSource(getter, position.Options{
		MinInterval:       s.cfg.Position.MinInterval(),
		MinDistanceMeters: s.cfg.Position.MinDistanceMeters,
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create position source: %w", err)
	}

	cancel, err := src.Subscribe(ctx, func(pos geo.Coordinate) {
		if _, err := s.UpdatePosition(sessionID, pos); err != nil {
			s.logger.Debug("position update after session end",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to position source: %w", err)
	}

	tracker.SetUnsubscribe(cancel)
	return cancel, nil
}

// StopNavigation cancels a session. Stopping an unknown or already
// stopped session is not an error.
func (s *NavigationService) StopNavigation(sessionID string) {
	tracker, ok := s.tracker(sessionID)
	if !ok {
		return
	}

	tracker.Stop()
	s.hub.Broadcast(sessionID, tracker.Snapshot())
	s.removeSession(sessionID)
}

// SessionProgress returns the current snapshot for a session
func (s *NavigationService) SessionProgress(sessionID string) (navigation.Progress, error) {
	tracker, ok := s.tracker(sessionID)
	if !ok {
		return navigation.Progress{}, ErrSessionNotFound
	}
	return tracker.Snapshot(), nil
}

// RankSuggestions sorts candidates by distance from origin using the
// configured search radius
func (s *NavigationService) RankSuggestions(origin geo.Coordinate, candidates []suggest.Suggestion) []suggest.Ranked {
	return suggest.Rank(origin, candidates, s.cfg.Suggest.RadiusKm)
}

func (s *NavigationService) tracker(sessionID string) (*navigation.Tracker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.sessions[sessionID]
	return t, ok
}

func (s *NavigationService) removeSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}
