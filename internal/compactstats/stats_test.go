package compactstats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeReportsBytesSavedWhenSizeShrinks(t *testing.T) {
	result := Compute(100, 40)
	require.Equal(t, uint64(100), result.OldSize)
	require.Equal(t, uint64(40), result.NewSize)
	require.Equal(t, int64(60), result.BytesSaved)
}

func TestComputeClampsBytesSavedToZeroWhenSizeGrows(t *testing.T) {
	result := Compute(40, 100)
	require.Equal(t, uint64(40), result.OldSize)
	require.Equal(t, uint64(100), result.NewSize)
	require.Equal(t, int64(0), result.BytesSaved)
}

func TestComputeBytesSavedNeverNegative(t *testing.T) {
	result := Compute(0, 1)
	require.GreaterOrEqual(t, result.BytesSaved, int64(0))
}
