package eczane

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5551234567", "05551234567"},
		{"05551234567", "05551234567"},
		{"(0555) 123 45 67", "05551234567"},
		{"0 555 123 45 67", "05551234567"},
		{"555 123 45 67", "05551234567"},
		// anything that isn't a national number after stripping is
		// passed through untouched
		{"abc", "abc"},
		{"", ""},
		{"905551234567", "905551234567"},
		{"12345", "12345"},
		{"+90 555 123 45 67", "+90 555 123 45 67"},
	}

	for _, c := range cases {
		require.Equal(t, c.want, NormalizePhone(c.in), "input %q", c.in)
	}
}
