package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdsOrdered(t *testing.T) {
	t.Parallel()

	prevDeath := 0.0
	for s := VeryHigh; s >= VeryLow; s-- {
		warning, death := s.Thresholds()
		assert.Less(t, warning, death, s.String())
		assert.Greater(t, death, prevDeath, s.String())
		prevDeath = death
	}
}

func TestParseSensitivity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected Sensitivity
		err      bool
	}{
		{name: "plain", input: "medium", expected: Medium},
		{name: "dashed", input: "Very-High", expected: VeryHigh},
		{name: "unknown", input: "extreme", err: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, err := ParseSensitivity(tc.input)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}
}

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	s, err := m.Sensitivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, Medium, s)

	require.NoError(t, m.SetSensitivity(ctx, Low))
	s, _ = m.Sensitivity(ctx)
	assert.Equal(t, Low, s)

	assert.Error(t, m.SetSensitivity(ctx, Sensitivity(9)))
}
