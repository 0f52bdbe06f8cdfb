package output_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stackflow/internal/output"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		filled  int
	}{
		{"empty", 0, 0},
		{"half", 50, 5},
		{"full", 100, 10},
		{"overflow is clamped", 250, 10},
		{"negative is clamped", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := output.ProgressBar(tt.percent, 10)
			require.Equal(t, tt.filled, strings.Count(bar, "█"))
			require.Equal(t, 10-tt.filled, strings.Count(bar, " "))
		})
	}
}

func TestPrettySamplingStatus(t *testing.T) {
	s := output.PrettySamplingStatus(output.SamplingStatus{
		PassRate:  20,
		Threads:   4,
		Symbols:   128,
		Modules:   7,
		QueueUtil: 30,
	})
	require.Contains(t, s, "Passes/s:   20")
	require.Contains(t, s, "Threads:   4")
	require.Contains(t, s, "Symbols:   128")
	require.Contains(t, s, "Modules:   7")
	require.Contains(t, s, " 30%")
}
