package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocoder_Google(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "22901", r.URL.Query().Get("address"))
		assert.Equal(t, "maps-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{
			"geometry":{"location":{"lat":38.07,"lng":-78.49}},
			"address_components":[
				{"long_name":"22901","short_name":"22901","types":["postal_code"]},
				{"long_name":"Charlottesville","short_name":"Charlottesville","types":["locality","political"]},
				{"long_name":"Virginia","short_name":"VA","types":["administrative_area_level_1","political"]}
			]}]}`))
	}))
	defer server.Close()

	geocoder := NewGeocoderWithConfig(GeocoderConfig{GoogleAPIKey: "maps-key", GoogleURL: server.URL}, nil)
	location := geocoder.Geocode(context.Background(), "22901")
	require.NotNil(t, location)
	assert.Equal(t, "Charlottesville", location.City)
	assert.Equal(t, "VA", location.State)
	assert.InDelta(t, 38.07, location.Lat, 0.001)
	assert.InDelta(t, -78.49, location.Lng, 0.001)
}

func TestGeocoder_Nominatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "78701", r.URL.Query().Get("postalcode"))
		assert.Equal(t, "US", r.URL.Query().Get("country"))
		assert.Equal(t, "Empower-Social-App", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"30.27","lon":"-97.74","address":{"town":"Austin","state":"Texas"}}]`))
	}))
	defer server.Close()

	geocoder := NewGeocoderWithConfig(GeocoderConfig{NominatimURL: server.URL}, nil)
	location := geocoder.Geocode(context.Background(), "78701")
	require.NotNil(t, location)
	assert.Equal(t, "Austin", location.City)
	assert.Equal(t, "TX", location.State)
}

func TestGeocoder_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"no results", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`[]`)) }},
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }},
		{"bad latitude", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"lat":"north","lon":"-97.74","address":{"city":"Austin"}}]`))
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			geocoder := NewGeocoderWithConfig(GeocoderConfig{NominatimURL: server.URL}, nil)
			assert.Nil(t, geocoder.Geocode(context.Background(), "00000"))
		})
	}

	assert.Nil(t, NewGeocoder("", nil).Geocode(context.Background(), ""))
}

func TestStateCode(t *testing.T) {
	assert.Equal(t, "VA", stateCode("Virginia"))
	assert.Equal(t, "DC", stateCode("District of Columbia"))
	assert.Equal(t, "Ontario", stateCode("Ontario"))
}
