package weatherapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreakwatch/outbreakwatch/internal/airquality"
	"github.com/outbreakwatch/outbreakwatch/internal/airquality/weatherapi"
)

func TestClient_CurrentByCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "28.7041,77.1025", r.URL.Query().Get("q"))
		assert.Equal(t, "yes", r.URL.Query().Get("aqi"))
		assert.Equal(t, "****", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"current": {
				"last_updated_epoch": 1700000000,
				"air_quality": {"pm2_5": 182.4, "pm10": 240.1, "us-epa-index": 5}
			}
		}`))
	}))
	defer server.Close()

	client := weatherapi.NewClient(weatherapi.ClientConfig{
		APIKey:     "****",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	r, err := client.CurrentByCoordinates(context.Background(), 28.7041, 77.1025)
	require.NoError(t, err)
	assert.Equal(t, 182.4, r.PM25)
	assert.Equal(t, 240.1, r.PM10)
	require.NotNil(t, r.USEPAIndex)
	assert.Equal(t, 5, *r.USEPAIndex)
	assert.Equal(t, int64(1700000000), r.UpdatedAt.Unix())
}

func TestClient_CurrentByName_MissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Puducherry", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current": {"air_quality": {}}}`))
	}))
	defer server.Close()

	client := weatherapi.NewClient(weatherapi.ClientConfig{
		APIKey:     "****",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	r, err := client.CurrentByName(context.Background(), "Puducherry")
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.PM25)
	assert.Nil(t, r.USEPAIndex)
}

func TestClient_EPAIndexRounding(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"2", 2},
		{"2.0", 2},
		{"2.6", 3},
		{"5.4", 5},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"current": {"air_quality": {"pm2_5": 41.5, "us-epa-index": ` + tt.raw + `}}}`))
			}))
			defer server.Close()

			client := weatherapi.NewClient(weatherapi.ClientConfig{
				APIKey:     "****",
				BaseURL:    server.URL,
				HTTPClient: http.DefaultClient,
			})

			r, err := client.CurrentByName(context.Background(), "Kerala")
			require.NoError(t, err)
			assert.Equal(t, 41.5, r.PM25)
			require.NotNil(t, r.USEPAIndex)
			assert.Equal(t, tt.want, *r.USEPAIndex)
		})
	}
}

func TestClient_NoMatchingLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 1006, "message": "No matching location found."}}`))
	}))
	defer server.Close()

	client := weatherapi.NewClient(weatherapi.ClientConfig{
		APIKey:     "****",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.CurrentByName(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, airquality.ErrNoDataForLocation)
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := weatherapi.NewClient(weatherapi.ClientConfig{
		APIKey:     "****",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.CurrentByCoordinates(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := weatherapi.NewClient(weatherapi.ClientConfig{
		APIKey:     "****",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.CurrentByName(context.Background(), "Goa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode current response")
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, weatherapi.ProviderName, weatherapi.NewClient(weatherapi.ClientConfig{}).Name())
}
