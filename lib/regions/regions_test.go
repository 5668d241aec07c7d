package regions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	require.False(t, Valid(0))
	require.False(t, Valid(-3))
	require.False(t, Valid(82))
	require.True(t, Valid(Min))
	require.True(t, Valid(34))
	require.True(t, Valid(Max))
}

func TestName(t *testing.T) {
	require.Equal(t, "Adana", Name(1))
	require.Equal(t, "İstanbul", Name(34))
	require.Equal(t, "Düzce", Name(81))
	require.Equal(t, "", Name(0))
	require.Equal(t, "", Name(99))
}

func TestTableCoversAllCodes(t *testing.T) {
	seen := map[string]int{}
	for code := Min; code <= Max; code++ {
		name := Name(code)
		require.NotEmpty(t, name, "code %d has no name", code)
		require.NotContains(t, seen, name, "name %q reused by %d and %d", name, seen[name], code)
		seen[name] = code
	}
}
