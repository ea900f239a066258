// Package track holds the per-(genome, chromosome) ordered variant container
// the compiler scans and the viewport layer reads.
package track

import (
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/inodb/vibe-sync/internal/variant"
)

// Track is an ordered container of variants keyed by reference position,
// with a derived dense position index and the current/previous cursors used
// by the compiler.
//
// Mutating methods are not synchronized: during compilation a track is owned
// by a single chromosome worker. After compilation, readers go through View
// and the SNP toggle through SetSNPsEnabled, which take the track lock.
type Track struct {
	genome string
	chrom  string

	mu       sync.RWMutex
	variants map[int64]*variant.Variant
	index    []int64
	dirty    bool

	current     int64
	previous    int64
	hasPrevious bool

	// disabled SNPs keyed by position, restored by SetSNPsEnabled(true).
	disabled    map[int64]*variant.Variant
	snpsEnabled atomic.Bool
	version     atomic.Uint64
}

// New creates an empty track for genome on chrom.
func New(genome, chrom string) *Track {
	t := &Track{
		genome:   genome,
		chrom:    chrom,
		variants: make(map[int64]*variant.Variant),
	}
	t.snpsEnabled.Store(true)
	return t
}

// Genome returns the genome name.
func (t *Track) Genome() string { return t.genome }

// Chrom returns the chromosome name.
func (t *Track) Chrom() string { return t.chrom }

// AddVariant inserts v at reference position pos. An existing entry at pos
// is replaced (last write wins).
func (t *Track) AddVariant(pos int64, v *variant.Variant) {
	if _, exists := t.variants[pos]; !exists {
		t.insertIndex(pos)
	}
	t.variants[pos] = v
	t.version.Add(1)
}

// AddBlank inserts a blank placeholder of length at pos and returns it.
func (t *Track) AddBlank(pos, length int64) *variant.Variant {
	b := variant.NewBlank(t.chrom, length)
	t.AddVariant(pos, b)
	return b
}

// Remove deletes the entry at pos. It reports whether one existed.
func (t *Track) Remove(pos int64) bool {
	if _, ok := t.variants[pos]; !ok {
		return false
	}
	delete(t.variants, pos)
	if !t.dirty {
		if i, found := slices.BinarySearch(t.index, pos); found {
			t.index = slices.Delete(t.index, i, i+1)
		}
	}
	if t.hasPrevious && t.previous == pos {
		t.hasPrevious = false
	}
	t.version.Add(1)
	return true
}

// insertIndex keeps a clean index sorted without a full rebuild.
func (t *Track) insertIndex(pos int64) {
	if t.dirty {
		return
	}
	n := len(t.index)
	if n == 0 || t.index[n-1] < pos {
		t.index = append(t.index, pos)
		return
	}
	i, _ := slices.BinarySearch(t.index, pos)
	t.index = slices.Insert(t.index, i, pos)
}

// RebuildIndex sorts the variant positions into the dense index.
func (t *Track) RebuildIndex() {
	t.index = t.index[:0]
	for pos := range t.variants {
		t.index = append(t.index, pos)
	}
	slices.Sort(t.index)
	t.dirty = false
}

// Invalidate marks the index stale; the next index lookup rebuilds it.
func (t *Track) Invalidate() { t.dirty = true }

func (t *Track) ensureIndex() {
	if t.dirty || len(t.index) != len(t.variants) {
		t.RebuildIndex()
	}
}

// Len returns the number of entries.
func (t *Track) Len() int { return len(t.variants) }

// AtIndex returns the position and variant at index i of the sorted index.
func (t *Track) AtIndex(i int) (int64, *variant.Variant, bool) {
	t.ensureIndex()
	if i < 0 || i >= len(t.index) {
		return 0, nil, false
	}
	pos := t.index[i]
	return pos, t.variants[pos], true
}

// Positions returns a copy of the sorted reference positions.
func (t *Track) Positions() []int64 {
	t.ensureIndex()
	return slices.Clone(t.index)
}

// Variants returns the variants in reference position order.
func (t *Track) Variants() []*variant.Variant {
	t.ensureIndex()
	out := make([]*variant.Variant, len(t.index))
	for i, pos := range t.index {
		out[i] = t.variants[pos]
	}
	return out
}

// At returns the variant at reference position pos.
func (t *Track) At(pos int64) (*variant.Variant, bool) {
	v, ok := t.variants[pos]
	return v, ok
}

// Floor returns the last entry at or before pos.
func (t *Track) Floor(pos int64) (int64, *variant.Variant, bool) {
	t.ensureIndex()
	i := sort.Search(len(t.index), func(i int) bool { return t.index[i] > pos })
	if i == 0 {
		return 0, nil, false
	}
	p := t.index[i-1]
	return p, t.variants[p], true
}

// HasKind reports whether any entry has kind k.
func (t *Track) HasKind(k variant.Kind) bool {
	for _, v := range t.variants {
		if v.Kind() == k {
			return true
		}
	}
	return false
}

// ResetCursors clears the current and previous cursors.
func (t *Track) ResetCursors() {
	t.current = 0
	t.previous = 0
	t.hasPrevious = false
}

// SetCurrentPosition moves the current cursor to reference position p.
func (t *Track) SetCurrentPosition(p int64) { t.current = p }

// CurrentPosition returns the current cursor.
func (t *Track) CurrentPosition() int64 { return t.current }

// CurrentVariant returns the variant at the current cursor, or nil.
func (t *Track) CurrentVariant() *variant.Variant {
	return t.variants[t.current]
}

// UpdatePreviousPosition moves the previous cursor to p, but only when the
// track has an entry at p.
func (t *Track) UpdatePreviousPosition(p int64) {
	if _, ok := t.variants[p]; ok {
		t.previous = p
		t.hasPrevious = true
	}
}

// HasPrevious reports whether the previous cursor has been set.
func (t *Track) HasPrevious() bool { return t.hasPrevious }

// PreviousVariant returns the variant at the previous cursor. Before the
// previous cursor is first set it falls back to the current variant.
func (t *Track) PreviousVariant() *variant.Variant {
	if t.hasPrevious {
		return t.variants[t.previous]
	}
	return t.CurrentVariant()
}

// IsFirstPosition reports whether no entry precedes the current cursor.
func (t *Track) IsFirstPosition() bool {
	t.ensureIndex()
	i := sort.Search(len(t.index), func(i int) bool { return t.index[i] >= t.current })
	return i == 0
}

// GenomePosition resolves the own-genome coordinate of the current cursor.
// At the first position it is the reference position itself; afterwards the
// own-genome line advances by the same delta as the reference line since the
// previous entry's end.
func (t *Track) GenomePosition() int64 {
	if t.IsFirstPosition() || !t.hasPrevious {
		return t.current
	}
	prev := t.variants[t.previous]
	return prev.NextGenomePosition() + (t.current - prev.NextReferenceGenomePosition())
}
