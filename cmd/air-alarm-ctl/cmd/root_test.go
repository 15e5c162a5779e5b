package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseOnOff accepts on/off case-insensitively.
func TestParseOnOff(t *testing.T) {
	t.Parallel()

	on, err := parseOnOff("ON")
	require.NoError(t, err)
	require.True(t, on)

	on, err = parseOnOff("off")
	require.NoError(t, err)
	require.False(t, on)

	_, err = parseOnOff("maybe")
	require.Error(t, err)
}

// TestThresholdUpdate only carries flags set on the command line.
func TestThresholdUpdate(t *testing.T) {
	require.NoError(t, thresholdsCmd.Flags().Set("co2", "1400"))

	update := thresholdUpdate(thresholdsCmd)
	require.NotNil(t, update.CO2)
	require.Equal(t, 1400, *update.CO2)
	require.Nil(t, update.Temperature)
	require.Nil(t, update.CO2Critical)
}
