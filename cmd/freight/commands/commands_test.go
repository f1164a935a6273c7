package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/freightcast/backend/pkg/config"
)

func TestMaskPassword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://app:s3cret@db:5432/freight", "postgres://app:%2A%2A%2A@db:5432/freight"},
		{"postgres://db:5432/freight", "postgres://db:5432/freight"},
		{"::not a url", "::not a url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskPassword(tt.in))
	}
}

func TestServiceConfig(t *testing.T) {
	sc := serviceConfig(config.ForecastConfig{
		P: 2, D: 1, Q: 0,
		Horizon:         14,
		RouteLimit:      10,
		MinRouteHistory: 40,
		ModelVersion:    "v2-deadbeef",
		Workers:         4,
		FitTimeout:      time.Minute,
	})

	assert.Equal(t, "(2,1,0)", sc.Order.String())
	assert.Equal(t, 14, sc.Horizon)
	assert.Equal(t, 10, sc.RouteLimit)
	assert.Equal(t, 40, sc.MinRouteHistory)
	assert.Equal(t, "v2-deadbeef", sc.ModelVersion)
	assert.Equal(t, 4, sc.Workers)
	assert.Equal(t, time.Minute, sc.FitTimeout)
}
