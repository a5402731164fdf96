package training

import (
	"math"
)

// logisticModel is a from-scratch binary logistic regression classifier:
// sigmoid over a weighted feature sum, fitted with batch gradient descent.
// Deliberately simple; the cost is O(epochs * samples * features).
type logisticModel struct {
	weights []float64
	bias    float64
}

func newLogisticModel(features int) *logisticModel {
	return &logisticModel{weights: make([]float64, features)}
}

// fit runs batch gradient descent over the full training set.
func (m *logisticModel) fit(x [][]float64, y []float64, learningRate float64, epochs int) {
	n := float64(len(x))
	if n == 0 {
		return
	}

	for epoch := 0; epoch < epochs; epoch++ {
		gradients := make([]float64, len(m.weights))
		biasGradient := 0.0

		for i, features := range x {
			err := m.predict(features) - y[i]
			for j, f := range features {
				gradients[j] += err * f
			}
			biasGradient += err
		}

		for j := range m.weights {
			m.weights[j] -= learningRate * gradients[j] / n
		}
		m.bias -= learningRate * biasGradient / n
	}
}

// predict returns the fraud probability in (0,1).
func (m *logisticModel) predict(features []float64) float64 {
	z := m.bias
	for j, w := range m.weights {
		if j < len(features) {
			z += w * features[j]
		}
	}
	return sigmoid(z)
}

// classify applies the 0.5 decision boundary.
func (m *logisticModel) classify(features []float64) bool {
	return m.predict(features) >= 0.5
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
