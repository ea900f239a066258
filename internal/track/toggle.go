package track

import (
	"slices"

	"github.com/inodb/vibe-sync/internal/variant"
)

// View runs fn with the track read-locked. Viewport queries go through View
// so they never observe a half-applied SNP toggle.
func (t *Track) View(fn func(*Track)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn(t)
}

// Version changes whenever the track's entries change.
func (t *Track) Version() uint64 { return t.version.Load() }

// SNPsEnabled reports whether SNP entries are currently shown.
func (t *Track) SNPsEnabled() bool { return t.snpsEnabled.Load() }

// SetSNPsEnabled removes or restores the track's SNP entries. Other kinds are
// untouched. A removed SNP that carries meta-genome padding is replaced by a
// blank of the padding length, so the offset chain of later entries holds.
// It returns the number of entries toggled.
func (t *Track) SetSNPsEnabled(enabled bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enabled == t.snpsEnabled.Load() {
		return 0
	}
	t.snpsEnabled.Store(enabled)

	n := 0
	if !enabled {
		t.disabled = make(map[int64]*variant.Variant)
		for pos, v := range t.variants {
			if v.Kind() != variant.SNP {
				continue
			}
			t.disabled[pos] = v
			if v.ExtraOffset() > 0 {
				t.variants[pos] = variant.Restore(variant.Blank, v.ExtraOffset(), v.Chrom(), nil, "", 0,
					v.GenomePosition(), v.InitialReferenceOffset(), v.InitialMetaGenomeOffset(), 0)
			} else {
				delete(t.variants, pos)
			}
			n++
		}
	} else {
		for pos, v := range t.disabled {
			t.variants[pos] = v
			n++
		}
		t.disabled = nil
	}

	if n > 0 {
		t.RebuildIndex()
		t.version.Add(1)
	}
	return n
}

// DisabledSNP returns the SNP hidden at pos by SetSNPsEnabled(false).
func (t *Track) DisabledSNP(pos int64) (*variant.Variant, bool) {
	v, ok := t.disabled[pos]
	return v, ok
}

// DisabledPositions returns the positions of hidden SNPs.
func (t *Track) DisabledPositions() []int64 {
	out := make([]int64, 0, len(t.disabled))
	for pos := range t.disabled {
		out = append(out, pos)
	}
	slices.Sort(out)
	return out
}
