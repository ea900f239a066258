package vcf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{"1:100-200", Region{"1", 100, 200}, false},
		{"chr2:1,000-2,000", Region{"chr2", 1000, 2000}, false},
		{"X:500", Region{"X", 500, math.MaxInt32}, false},
		{"X", Region{"X", 1, math.MaxInt32}, false},
		{":1-2", Region{}, true},
		{"1:0-10", Region{}, true},
		{"1:20-10", Region{}, true},
		{"1:a-10", Region{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRegion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegion_StringAndContains(t *testing.T) {
	r := Region{Chrom: "1", Start: 10, End: 20}
	assert.Equal(t, "1:10-20", r.String())
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(21))

	again, err := ParseRegion(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, again)
}
