package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedOffset(t *testing.T) {
	_, offset := Now().Zone()
	require.Equal(t, 3*60*60, offset)
}

func TestDayBoundary(t *testing.T) {
	// 22:30 UTC is already the next day in UTC+3
	utc := time.Date(2025, time.March, 10, 22, 30, 0, 0, time.UTC)
	local := utc.In(Location)
	require.Equal(t, 11, local.Day())
	require.Equal(t, 1, local.Hour())
}
