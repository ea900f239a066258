package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sync/internal/variant"
)

func snp(pos int64) *variant.Variant {
	return variant.Restore(variant.SNP, 0, "1", nil, "S1", 1, pos, 0, 0, 0)
}

func del(pos, length int64) *variant.Variant {
	return variant.Restore(variant.Deletion, length, "1", nil, "S1", 1, pos, 0, 0, 0)
}

func TestTrack_IndexOrder(t *testing.T) {
	tr := New("G1", "1")
	tr.AddVariant(300, snp(300))
	tr.AddVariant(100, snp(100))
	tr.AddVariant(200, snp(200))

	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, []int64{100, 200, 300}, tr.Positions())

	pos, v, ok := tr.AtIndex(1)
	require.True(t, ok)
	assert.Equal(t, int64(200), pos)
	assert.Equal(t, int64(200), v.GenomePosition())

	_, _, ok = tr.AtIndex(3)
	assert.False(t, ok)
}

func TestTrack_LastWriteWins(t *testing.T) {
	tr := New("G1", "1")
	first := snp(100)
	second := del(100, 2)
	tr.AddVariant(100, first)
	tr.AddVariant(100, second)

	assert.Equal(t, 1, tr.Len())
	got, ok := tr.At(100)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestTrack_BlankAfterRebuild(t *testing.T) {
	tr := New("G1", "1")
	tr.AddVariant(100, snp(100))
	tr.AddVariant(300, snp(300))
	tr.RebuildIndex()

	b := tr.AddBlank(200, 4)
	assert.Equal(t, variant.Blank, b.Kind())
	assert.Equal(t, int64(4), b.Length())
	assert.Equal(t, []int64{100, 200, 300}, tr.Positions())
}

func TestTrack_Remove(t *testing.T) {
	tr := New("G1", "1")
	tr.AddVariant(100, snp(100))
	tr.AddVariant(200, snp(200))
	before := tr.Version()

	assert.True(t, tr.Remove(100))
	assert.False(t, tr.Remove(100))
	assert.Equal(t, []int64{200}, tr.Positions())
	assert.Greater(t, tr.Version(), before)
}

func TestTrack_Floor(t *testing.T) {
	tr := New("G1", "1")
	tr.AddVariant(100, snp(100))
	tr.AddVariant(200, snp(200))

	_, _, ok := tr.Floor(99)
	assert.False(t, ok)

	pos, _, ok := tr.Floor(150)
	require.True(t, ok)
	assert.Equal(t, int64(100), pos)

	pos, _, ok = tr.Floor(200)
	require.True(t, ok)
	assert.Equal(t, int64(200), pos)
}

func TestTrack_Cursors(t *testing.T) {
	tr := New("G1", "1")
	d := del(100, 5)
	tr.AddVariant(100, d)
	tr.AddVariant(150, snp(150))
	tr.RebuildIndex()

	tr.SetCurrentPosition(100)
	assert.True(t, tr.IsFirstPosition())
	assert.False(t, tr.HasPrevious())
	assert.Same(t, d, tr.CurrentVariant())
	assert.Same(t, d, tr.PreviousVariant(), "falls back to the current variant")
	assert.Equal(t, int64(100), tr.GenomePosition())

	tr.UpdatePreviousPosition(120)
	assert.False(t, tr.HasPrevious(), "no entry at 120")
	tr.UpdatePreviousPosition(100)
	require.True(t, tr.HasPrevious())

	tr.SetCurrentPosition(150)
	assert.False(t, tr.IsFirstPosition())
	assert.Same(t, d, tr.PreviousVariant())
	// Deletion skips reference 101-105: reference 150 is own position 145.
	assert.Equal(t, int64(145), tr.GenomePosition())

	tr.ResetCursors()
	assert.False(t, tr.HasPrevious())
}

func TestTrack_HasKind(t *testing.T) {
	tr := New("G1", "1")
	tr.AddVariant(100, snp(100))
	assert.True(t, tr.HasKind(variant.SNP))
	assert.False(t, tr.HasKind(variant.Deletion))
}

func TestTrack_SetSNPsEnabled(t *testing.T) {
	tr := New("G1", "1")
	plain := snp(100)
	padded := snp(200)
	require.NoError(t, padded.AddExtraOffset(3))
	tr.AddVariant(100, plain)
	tr.AddVariant(200, padded)
	tr.AddVariant(300, del(300, 2))
	tr.RebuildIndex()

	nextMeta := padded.NextMetaGenomePosition()
	version := tr.Version()

	assert.Equal(t, 2, tr.SetSNPsEnabled(false))
	assert.False(t, tr.SNPsEnabled())
	assert.Equal(t, 0, tr.SetSNPsEnabled(false))
	assert.Greater(t, tr.Version(), version)

	tr.View(func(tr *Track) {
		assert.Equal(t, []int64{200, 300}, tr.Positions())
		b, ok := tr.At(200)
		require.True(t, ok)
		assert.Equal(t, variant.Blank, b.Kind())
		assert.Equal(t, int64(3), b.Length())
		assert.Equal(t, nextMeta, b.NextMetaGenomePosition())
	})

	assert.Equal(t, 2, tr.SetSNPsEnabled(true))
	assert.Equal(t, []int64{100, 200, 300}, tr.Positions())
	got, _ := tr.At(200)
	assert.Same(t, padded, got)
}
