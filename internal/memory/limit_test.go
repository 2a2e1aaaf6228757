package memory

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func restoreMemoryLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestConfigureLimit(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantSrc   string
		wantLimit int64
		wantRatio float64
	}{
		{"nothing set", nil, "none", 0, 0},
		{"container limit", map[string]string{"MEMORY_LIMIT": "1073741824"}, "MEMORY_LIMIT", 805306368, 0.75},
		{"custom ratio", map[string]string{"MEMORY_LIMIT": "1000", "MEMORY_RATIO": "0.5"}, "MEMORY_LIMIT", 500, 0.5},
		{"ratio out of range", map[string]string{"MEMORY_LIMIT": "1000", "MEMORY_RATIO": "1.5"}, "MEMORY_LIMIT", 750, 0.75},
		{"bad ratio", map[string]string{"MEMORY_LIMIT": "1000", "MEMORY_RATIO": "most"}, "MEMORY_LIMIT", 750, 0.75},
		{"bad limit", map[string]string{"MEMORY_LIMIT": "512Mi"}, "none", 0, 0},
		{"negative limit", map[string]string{"MEMORY_LIMIT": "-5"}, "none", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreMemoryLimit(t)

			res := ConfigureLimit(envMap(tt.env))
			assert.Equal(t, tt.wantSrc, res.Source)
			assert.Equal(t, tt.wantLimit, res.GoMemLimit)
			assert.Equal(t, tt.wantRatio, res.Ratio)
			assert.Equal(t, tt.wantLimit > 0, res.Configured)
			if tt.wantLimit > 0 {
				assert.Equal(t, tt.wantLimit, debug.SetMemoryLimit(-1))
			}
		})
	}
}

func TestConfigureLimitExplicitGOMEMLIMIT(t *testing.T) {
	restoreMemoryLimit(t)
	debug.SetMemoryLimit(256 << 20)

	res := ConfigureLimit(envMap(map[string]string{"GOMEMLIMIT": "256MiB", "MEMORY_LIMIT": "1000"}))
	assert.Equal(t, "GOMEMLIMIT", res.Source)
	assert.True(t, res.Configured)
	assert.Equal(t, int64(256<<20), res.GoMemLimit)
	assert.Equal(t, int64(256<<20), debug.SetMemoryLimit(-1), "MEMORY_LIMIT is ignored")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{512 << 20, "512.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}
