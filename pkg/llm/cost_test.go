package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"empty", "", 0},
		{"single char rounds up", "a", 1},
		{"exact multiple", "abcd", 1},
		{"five chars", "abcde", 2},
		{"longer text", strings.Repeat("x", 400), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.input))
		})
	}
}

func TestEstimateCost(t *testing.T) {
	assert.Equal(t, 0.0, EstimateCost(0, 0))
	assert.InDelta(t, 0.03, EstimateCost(1000, 0), 1e-9)
	assert.InDelta(t, 0.06, EstimateCost(0, 1000), 1e-9)
	assert.InDelta(t, 0.09, EstimateCost(1000, 1000), 1e-9)
	assert.InDelta(t, 0.045, EstimateCost(500, 500), 1e-9)
}
