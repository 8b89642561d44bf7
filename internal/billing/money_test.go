package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	cases := map[float64]int64{
		0:      0,
		29.99:  2999,
		0.1:    10,
		19.995: 2000,
		1200:   120000,
	}
	for in, want := range cases {
		got, err := ToMinorUnits(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "price %v", in)
	}

	_, err := ToMinorUnits(-1)
	assert.Error(t, err)
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "29.99 USD", FormatMinorUnits(2999, "usd"))
	assert.Equal(t, "0.05", FormatMinorUnits(5, ""))
}
