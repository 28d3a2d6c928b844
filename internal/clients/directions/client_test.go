package directions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rideline/navigator/internal/lib/geo"
)

var (
	testOrigin      = geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	testDestination = geo.Coordinate{Latitude: 37.3382, Longitude: -121.8863}
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/directions/json", r.URL.Path)
		assert.Equal(t, "driving", r.URL.Query().Get("mode"))
		assert.NotEmpty(t, r.URL.Query().Get("origin"))
		assert.NotEmpty(t, r.URL.Query().Get("destination"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"routes": [{
				"summary": "US-101 S",
				"overview_polyline": {"points": "_p~iF~ps|U_ulLnnqC"},
				"legs": [{
					"distance": {"text": "48.1 mi", "value": 77400},
					"duration": {"text": "55 mins", "value": 3300},
					"steps": [{
						"html_instructions": "Head <b>south</b> on Main St",
						"distance": {"text": "0.2 mi", "value": 320},
						"duration": {"text": "1 min", "value": 60},
						"end_location": {"lat": 37.77, "lng": -122.41},
						"polyline": {"points": "_p~iF~ps|U"},
						"maneuver": "turn-left"
					}]
				}]
			}]
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zap.NewNop(), WithBaseURL(server.URL))
	resp, err := client.Get(context.Background(), testOrigin, testDestination, nil)
	require.NoError(t, err)

	require.True(t, resp.OK())
	require.Len(t, resp.Routes, 1)
	require.Len(t, resp.Routes[0].Legs, 1)
	require.Len(t, resp.Routes[0].Legs[0].Steps, 1)

	step := resp.Routes[0].Legs[0].Steps[0]
	assert.Equal(t, "Head <b>south</b> on Main St", step.HTMLInstructions)
	assert.Equal(t, "turn-left", step.Maneuver)
	assert.Equal(t, 320.0, step.Distance.Value)
	assert.Equal(t, 37.77, step.EndLocation.Lat)
}

func TestClient_Get_Waypoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("waypoints"), "|")
		w.Write([]byte(`{"status": "OK", "routes": [{"legs": []}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zap.NewNop(), WithBaseURL(server.URL))
	_, err := client.Get(context.Background(), testOrigin, testDestination, []geo.Coordinate{
		{Latitude: 37.6, Longitude: -122.1},
		{Latitude: 37.5, Longitude: -122.0},
	})
	require.NoError(t, err)
}

func TestClient_Get_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "routes": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zap.NewNop(), WithBaseURL(server.URL))
	_, err := client.Get(context.Background(), testOrigin, testDestination, nil)
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "ZERO_RESULTS", provErr.Status)
}

func TestClient_Get_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("test-key", zap.NewNop(), WithBaseURL(server.URL))
	_, err := client.Get(context.Background(), testOrigin, testDestination, nil)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
}

func TestClient_Get_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"status": "OK", "routes": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zap.NewNop(), WithBaseURL(server.URL), WithTimeout(20*time.Millisecond))
	_, err := client.Get(context.Background(), testOrigin, testDestination, nil)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
}
