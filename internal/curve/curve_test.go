package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessRate_GraceWindow(t *testing.T) {
	for k := uint32(0); k < GraceAttempts; k++ {
		assert.Equal(t, MaxRate, SuccessRate(k), "attempt %d", k)
		assert.True(t, Guaranteed(SuccessRate(k)))
	}
	assert.False(t, Guaranteed(SuccessRate(GraceAttempts)))
}

func TestSuccessRate_FixedPoints(t *testing.T) {
	tests := []struct {
		attempts uint32
		want     uint16
	}{
		{3, 32768}, // 65535 / 2
		{4, 15716}, // 65535 / (1 + 2·log2 3)
		{5, 9362},  // 65535 / 7
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SuccessRate(tc.attempts), "attempt %d", tc.attempts)
	}
}

func TestSuccessRate_Monotonic(t *testing.T) {
	prev := SuccessRate(0)
	for k := uint32(1); k < uint32(Len())+50; k++ {
		cur := SuccessRate(k)
		require.LessOrEqual(t, cur, prev, "attempt %d", k)
		prev = cur
	}
}

func TestSuccessRate_Floor(t *testing.T) {
	assert.Equal(t, Floor, SuccessRate(uint32(Len()-1)))
	assert.Equal(t, Floor, SuccessRate(uint32(Len())))
	assert.Equal(t, Floor, SuccessRate(1_000_000))

	ratio := float64(Floor) / float64(MaxRate)
	assert.InDelta(t, 0.0024, ratio, 0.0001)
	assert.Greater(t, Len(), GraceAttempts+1)
}
