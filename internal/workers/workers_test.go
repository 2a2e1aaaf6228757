package workers

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		configured int
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit",
			multiplier: 2.0,
			limit:      1,
			minExpect:  1,
			maxExpect:  1,
		},
		{
			name:       "Tiny multiplier floors at one",
			multiplier: 0.0001,
			minExpect:  1,
			maxExpect:  1,
		},
		{
			name:       "Configured value wins",
			configured: 3,
			multiplier: 2.0,
			minExpect:  3,
			maxExpect:  3,
		},
		{
			name:       "Configured value capped by limit",
			configured: 32,
			multiplier: 2.0,
			limit:      8,
			minExpect:  8,
			maxExpect:  8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.configured, tt.multiplier, tt.limit)
			assert.GreaterOrEqual(t, got, tt.minExpect)
			assert.LessOrEqual(t, got, tt.maxExpect)
		})
	}
}

func TestForIO(t *testing.T) {
	got := ForIO(0, 8)
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 8)

	assert.Equal(t, 5, ForIO(5, 8))
}
