package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatAttributes(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
	}{
		{raw: `{}`, expected: ""},
		{
			raw:      `{"stock_symbol":"ACM","head_office_address":"1 Main St."}`,
			expected: "head_office_address: 1 Main St.\nstock_symbol: ACM",
		},
		{raw: `not json`, expected: "not json"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, formatAttributes(test.raw))
	}
}
