package handlers

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/driftd/internal/modules/analytics"
)

func TestMetricsPayloadIsAlwaysEncodable(t *testing.T) {
	// NaN and Inf cannot be represented in JSON; the payload must map them
	// to null instead of failing the whole response.
	m := analytics.Metrics{
		TotalReturnPct: 10,
		Volatility:     math.NaN(),
		Sharpe:         math.NaN(),
		Sortino:        math.Inf(1),
		Calmar:         math.Inf(1),
		ProfitFactor:   math.Inf(1),
		SampleCount:    2,
	}

	payload := MetricsPayload(m)
	_, err := json.Marshal(payload)
	require.NoError(t, err)

	assert.Nil(t, payload["volatility"])
	assert.Nil(t, payload["sharpe"])
	assert.Nil(t, payload["sortino"])
	assert.Equal(t, 10.0, payload["total_return_pct"])
}
