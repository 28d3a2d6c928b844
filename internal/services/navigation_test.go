package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rideline/navigator/internal/cache"
	"github.com/rideline/navigator/internal/clients/directions"
	"github.com/rideline/navigator/internal/config"
	"github.com/rideline/navigator/internal/lib/geo"
	"github.com/rideline/navigator/internal/lib/polyline"
	"github.com/rideline/navigator/internal/lib/suggest"
)

var (
	testOrigin      = geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	testDestination = geo.Coordinate{Latitude: 37.3382, Longitude: -121.8863}
)

// fakeProvider returns a canned response or error
type fakeProvider struct {
	resp  *directions.Response
	err   error
	calls int
}

func (f *fakeProvider) Get(ctx context.Context, origin, destination geo.Coordinate, waypoints []geo.Coordinate) (*directions.Response, error) {
	f.calls++
	return f.resp, f.err
}

func workingResponse() *directions.Response {
	fragment := polyline.Encode([]geo.Coordinate{
		{Latitude: 37.7749, Longitude: -122.4194},
		{Latitude: 37.7000, Longitude: -122.3000},
	})
	return &directions.Response{
		Status: "OK",
		Routes: []directions.RawRoute{{
			Legs: []directions.Leg{{
				Steps: []directions.Step{
					{
						HTMLInstructions: "Head <b>south</b>",
						Distance:         directions.TextValue{Text: "1 mi", Value: 1600},
						Duration:         directions.TextValue{Text: "3 mins", Value: 180},
						EndLocation:      directions.LatLng{Lat: 37.70, Lng: -122.30},
						Polyline:         directions.Polyline{Points: fragment},
					},
					{
						HTMLInstructions: "Arrive",
						Distance:         directions.TextValue{Text: "0.1 mi", Value: 160},
						Duration:         directions.TextValue{Text: "1 min", Value: 60},
						EndLocation:      directions.LatLng{Lat: 37.3382, Lng: -121.8863},
						Polyline:         directions.Polyline{Points: fragment},
					},
				},
			}},
		}},
	}
}

func newTestService(provider DirectionsProvider) *NavigationService {
	logger := zap.NewNop()
	return NewNavigationService(provider, cache.New(logger), NewProgressHub(), config.Default(), logger)
}

func TestPreviewRoute_AssemblesAndCaches(t *testing.T) {
	provider := &fakeProvider{resp: workingResponse()}
	svc := newTestService(provider)

	r, err := svc.PreviewRoute(context.Background(), testOrigin, testDestination, nil)
	require.NoError(t, err)
	assert.False(t, r.IsDegraded)
	assert.Len(t, r.Steps, 2)
	assert.Equal(t, 1, provider.calls)

	// Second preview for the same trip hits the cache
	again, err := svc.PreviewRoute(context.Background(), testOrigin, testDestination, nil)
	require.NoError(t, err)
	assert.Equal(t, r.ID, again.ID)
	assert.Equal(t, 1, provider.calls)
}

func TestPreviewRoute_DegradesOnProviderError(t *testing.T) {
	provider := &fakeProvider{err: &directions.ProviderError{Status: "OVER_QUERY_LIMIT"}}
	svc := newTestService(provider)

	r, err := svc.PreviewRoute(context.Background(), testOrigin, testDestination, nil)
	require.NoError(t, err, "provider outages degrade, they do not error")
	assert.True(t, r.IsDegraded)
	assert.Equal(t, []geo.Coordinate{testOrigin, testDestination}, r.Path)
	assert.Empty(t, r.Steps)
}

func TestPreviewRoute_DegradedNotTripCached(t *testing.T) {
	provider := &fakeProvider{err: &directions.ProviderError{Status: "UNKNOWN_ERROR"}}
	svc := newTestService(provider)

	_, err := svc.PreviewRoute(context.Background(), testOrigin, testDestination, nil)
	require.NoError(t, err)

	// A later preview retries the provider instead of serving the
	// degraded fallback from cache
	provider.err = nil
	provider.resp = workingResponse()
	r, err := svc.PreviewRoute(context.Background(), testOrigin, testDestination, nil)
	require.NoError(t, err)
	assert.False(t, r.IsDegraded)
}

func TestPreviewRoute_InvalidCoordinates(t *testing.T) {
	svc := newTestService(&fakeProvider{resp: workingResponse()})

	_, err := svc.PreviewRoute(context.Background(), geo.Coordinate{Latitude: 200}, testDestination, nil)
	assert.Error(t, err)
}

func TestNavigationLifecycle(t *testing.T) {
	svc := newTestService(&fakeProvider{resp: workingResponse()})

	r, err := svc.PreviewRoute(context.Background(), testOrigin, testDestination, nil)
	require.NoError(t, err)

	sessionID, err := svc.StartNavigation(r.ID)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	// Far from the first turn: no advance
	p, err := svc.UpdatePosition(sessionID, geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194})
	require.NoError(t, err)
	assert.Equal(t, 0, p.StepIndex)
	assert.True(t, p.IsActive)

	// At step 1's end
	p, err = svc.UpdatePosition(sessionID, geo.Coordinate{Latitude: 37.70, Longitude: -122.30})
	require.NoError(t, err)
	assert.Equal(t, 1, p.StepIndex)

	// At the final step's end: completed, session torn down
	p, err = svc.UpdatePosition(sessionID, geo.Coordinate{Latitude: 37.3382, Longitude: -121.8863})
	require.NoError(t, err)
	assert.True(t, p.IsCompleted)

	_, err = svc.UpdatePosition(sessionID, testOrigin)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStartNavigation_UnknownRoute(t *testing.T) {
	svc := newTestService(&fakeProvider{resp: workingResponse()})

	_, err := svc.StartNavigation("no-such-route")
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestStopNavigation_Idempotent(t *testing.T) {
	svc := newTestService(&fakeProvider{resp: workingResponse()})

	r, err := svc.PreviewRoute(context.Background(), testOrigin, testDestination, nil)
	require.NoError(t, err)
	sessionID, err := svc.StartNavigation(r.ID)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		svc.StopNavigation(sessionID)
		svc.StopNavigation(sessionID)
		svc.StopNavigation("never-existed")
	})

	_, err = svc.SessionProgress(sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAttachPositionSource_DrivesSessionToCompletion(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.Default()
	cfg.Position.MinIntervalMs = 5
	cfg.Position.MinDistanceMeters = 0
	svc := NewNavigationService(&fakeProvider{resp: workingResponse()}, cache.New(logger), NewProgressHub(), cfg, logger)

	r, err := svc.PreviewRoute(context.Background(), testOrigin, testDestination, nil)
	require.NoError(t, err)
	sessionID, err := svc.StartNavigation(r.ID)
	require.NoError(t, err)

	// First fix reaches step 1's end, every later fix the destination
	var polls int32
	getter := func(ctx context.Context) (geo.Coordinate, error) {
		if atomic.AddInt32(&polls, 1) == 1 {
			return geo.Coordinate{Latitude: 37.70, Longitude: -122.30}, nil
		}
		return geo.Coordinate{Latitude: 37.3382, Longitude: -121.8863}, nil
	}

	cancel, err := svc.AttachPositionSource(context.Background(), sessionID, getter)
	require.NoError(t, err)
	defer cancel()

	assert.Eventually(t, func() bool {
		_, err := svc.SessionProgress(sessionID)
		return errors.Is(err, ErrSessionNotFound)
	}, 2*time.Second, 10*time.Millisecond, "completed session should be torn down")
}

func TestAttachPositionSource_UnknownSession(t *testing.T) {
	svc := newTestService(&fakeProvider{resp: workingResponse()})

	getter := func(ctx context.Context) (geo.Coordinate, error) { return testOrigin, nil }
	_, err := svc.AttachPositionSource(context.Background(), "no-such-session", getter)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRankSuggestions_UsesConfiguredRadius(t *testing.T) {
	svc := newTestService(&fakeProvider{resp: workingResponse()})

	ranked := svc.RankSuggestions(testOrigin, []suggest.Suggestion{
		{Label: "Near", Location: geo.Coordinate{Latitude: 37.7793, Longitude: -122.4193}},
		{Label: "Far", Location: testDestination},
	})

	require.Len(t, ranked, 1)
	assert.Equal(t, "Near", ranked[0].Label)
}
