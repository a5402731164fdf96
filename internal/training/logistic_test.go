package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogisticFitSeparable(t *testing.T) {
	// One informative feature, clean separation around zero.
	x := [][]float64{{-2}, {-1.5}, {-1}, {-0.5}, {0.5}, {1}, {1.5}, {2}}
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	model := newLogisticModel(1)
	model.fit(x, y, 0.1, 2000)

	for i, features := range x {
		assert.Equal(t, y[i] == 1, model.classify(features), "sample %d", i)
	}
	assert.Greater(t, model.weights[0], 0.0)
}

func TestSigmoidBounds(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 1e-9)
	assert.Less(t, sigmoid(-20), 1e-6)
	assert.Greater(t, sigmoid(20), 1-1e-6)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	assert.InDelta(t, 0.0, percentile(sorted, 10), 1e-9)
	assert.InDelta(t, 0.5, percentile(sorted, 30), 1e-9)
	assert.InDelta(t, 1.0, percentile(sorted, 50), 1e-9)
}
