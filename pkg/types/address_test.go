package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitName(t *testing.T) {
	cases := []struct {
		in, first, last string
	}{
		{"Budi Santoso", "Budi", "Santoso"},
		{"Siti Nur Aisyah", "Siti", "Nur Aisyah"},
		{"Mononym", "Mononym", ""},
		{"  Padded Name ", "Padded", "Name"},
	}
	for _, tc := range cases {
		first, last := SplitName(tc.in)
		require.Equal(t, tc.first, first, tc.in)
		require.Equal(t, tc.last, last, tc.in)
	}
}

func TestJSONMapScan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"method":"snap"}`)))
	require.Equal(t, "snap", m["method"])

	require.NoError(t, m.Scan(nil))
	require.Nil(t, m)

	require.Error(t, m.Scan(42))
}
