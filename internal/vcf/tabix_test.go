package vcf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTabixTwoSamples(t *testing.T) *TabixReader {
	t.Helper()
	r, err := OpenTabix(findTestFile(t, "two_samples.vcf.gz"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func positions(t *testing.T, lines []FieldMap) []int64 {
	t.Helper()
	var out []int64
	for _, l := range lines {
		out = append(out, l.Pos())
	}
	return out
}

func TestOpen_TabixReader(t *testing.T) {
	path := findTestFile(t, "two_samples.vcf.gz")
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	tr, ok := r.(*TabixReader)
	require.True(t, ok, "expected *TabixReader for an indexed file, got %T", r)
	assert.Equal(t, path, tr.Path())
	assert.Equal(t, []string{"1", "2"}, tr.Chromosomes())
	assert.Equal(t, []string{"G1", "G2"}, tr.RawSampleNames())
	assert.Len(t, tr.ColumnNames(), 11)
	assert.Equal(t, "VCFv4.2", tr.Header().FileFormat)
}

func TestTabixReader_Query(t *testing.T) {
	r := openTabixTwoSamples(t)

	tests := []struct {
		name       string
		chrom      string
		start, end int64
		want       []int64
	}{
		{"sub-range", "1", 150, 350, []int64{200, 300}},
		{"single base", "1", 300, 300, []int64{300}},
		{"inclusive bounds", "1", 100, 200, []int64{100, 200}},
		{"whole chromosome", "1", 1, 1000, []int64{100, 200, 300, 500}},
		{"start at zero", "1", 0, 100, []int64{100}},
		{"largest indexable end", "1", 1, 1<<29 - 1, []int64{100, 200, 300, 500}},
		{"gap between lines", "1", 101, 199, nil},
		{"second chromosome", "2", 1, 500, []int64{50}},
		{"past the last indexed tile", "1", 20000, 30000, nil},
		{"unknown chromosome", "X", 1, 1000, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := r.Query(context.Background(), tt.chrom, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, positions(t, lines))
			for _, l := range lines {
				assert.Equal(t, tt.chrom, l["CHROM"])
			}
		})
	}
}

func TestTabixReader_MatchesMemoryReader(t *testing.T) {
	indexed := openTabixTwoSamples(t)
	memory := openTwoSamples(t)
	ctx := context.Background()

	windows := [][2]int64{{1, 1000}, {1, 99}, {100, 100}, {150, 350}, {201, 499}, {300, 600}, {1, 60}, {51, 1000}}
	for _, chrom := range []string{"1", "2", "X"} {
		for _, w := range windows {
			want, err := memory.Query(ctx, chrom, w[0], w[1])
			require.NoError(t, err)
			got, err := indexed.Query(ctx, chrom, w[0], w[1])
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s:%d-%d", chrom, w[0], w[1])
		}
	}

	// Repeated queries seek back into the same stream.
	first, err := indexed.Query(ctx, "1", 1, 1000)
	require.NoError(t, err)
	again, err := indexed.Query(ctx, "1", 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestTabixReader_CancelledContext(t *testing.T) {
	r := openTabixTwoSamples(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Query(ctx, "1", 150, 350)
	var rqe *RangeQueryError
	require.True(t, errors.As(err, &rqe), "expected RangeQueryError, got %v", err)
	assert.Equal(t, Region{Chrom: "1", Start: 150, End: 350}, rqe.Region)
	assert.Equal(t, r.Path(), rqe.Path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenTabix_MissingIndex(t *testing.T) {
	src, err := os.ReadFile(findTestFile(t, "two_samples.vcf.gz"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "unindexed.vcf.gz")
	require.NoError(t, os.WriteFile(path, src, 0o644))

	_, err = OpenTabix(path)
	var foe *FileOpenError
	require.True(t, errors.As(err, &foe), "expected FileOpenError, got %v", err)
	assert.Equal(t, path+".tbi", foe.Path)

	// Without an index, Open falls back to reading the BGZF file whole.
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.IsType(t, &MemoryReader{}, r)
	lines, err := r.Query(context.Background(), "1", 150, 350)
	require.NoError(t, err)
	assert.Equal(t, []int64{200, 300}, positions(t, lines))
}
