package compile

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
)

type event struct {
	pos    int64
	kind   variant.Kind
	length int64
}

func newTrack(name, chrom string, events ...event) *track.Track {
	t := track.New(name, chrom)
	for _, e := range events {
		t.AddVariant(e.pos, variant.Restore(e.kind, e.length, chrom, nil, name, 1, e.pos, 0, 0, 0))
	}
	return t
}

func chromosomes(lengths map[string]int64) *genome.ChromosomeSet {
	s := genome.NewChromosomeSet()
	for name, l := range lengths {
		s.Add(name, l)
	}
	return s
}

func at(t *testing.T, tr *track.Track, pos int64) *variant.Variant {
	t.Helper()
	v, ok := tr.At(pos)
	require.True(t, ok, "%s has no entry at %d", tr.Genome(), pos)
	return v
}

func TestCompile_ScenarioA(t *testing.T) {
	g1 := newTrack("G1", "1", event{500, variant.Insertion, 3}, event{700, variant.SNP, 0})
	g2 := newTrack("G2", "1", event{100, variant.SNP, 0}, event{700, variant.SNP, 0})
	ref := track.New(genome.ReferenceName, "1")
	lengths := chromosomes(map[string]int64{"1": 1000})

	stats, err := New(Options{Strict: true}).CompileChromosome("1",
		map[string]*track.Track{"G1": g1, "G2": g2}, ref, lengths)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Insertions)
	assert.Equal(t, 1, stats.Blanks)
	assert.Equal(t, int64(3), stats.LengthAdded)
	assert.Equal(t, int64(1003), lengths.Length("1"))

	ins := at(t, g1, 500)
	assert.Equal(t, variant.Insertion, ins.Kind())
	assert.Equal(t, int64(3), ins.Length())

	blank := at(t, g2, 500)
	assert.Equal(t, variant.Blank, blank.Kind())
	assert.Equal(t, int64(3), blank.Length())

	assert.Equal(t, ins.NextMetaGenomePosition(), blank.NextMetaGenomePosition())
	assert.Equal(t, ins.NextMetaGenomePosition(), at(t, ref, 500).NextMetaGenomePosition())

	// Downstream variants share the meta-genome coordinate.
	assert.Equal(t, int64(703), at(t, g1, 700).MetaGenomePosition())
	assert.Equal(t, int64(703), at(t, g2, 700).MetaGenomePosition())
	assert.Equal(t, int64(700), at(t, g1, 700).ReferenceGenomePosition())
	assert.Equal(t, int64(703), at(t, g1, 700).GenomePosition(), "G1 carries 3 extra own bases")
	assert.Equal(t, int64(700), at(t, g2, 700).GenomePosition())
}

func TestCompile_ScenarioB(t *testing.T) {
	g1 := newTrack("G1", "1", event{200, variant.Insertion, 5})
	g2 := newTrack("G2", "1", event{200, variant.Insertion, 2}, event{300, variant.SNP, 0})
	ref := track.New(genome.ReferenceName, "1")
	lengths := chromosomes(map[string]int64{"1": 1000})

	stats, err := New(Options{Strict: true}).CompileChromosome("1",
		map[string]*track.Track{"G1": g1, "G2": g2}, ref, lengths)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Blanks)
	assert.Equal(t, int64(1005), lengths.Length("1"))

	long, short := at(t, g1, 200), at(t, g2, 200)
	assert.Equal(t, int64(0), long.ExtraOffset())
	assert.Equal(t, int64(3), short.ExtraOffset())
	assert.Equal(t, int64(206), long.NextMetaGenomePosition())
	assert.Equal(t, int64(206), short.NextMetaGenomePosition())

	snp := at(t, g2, 300)
	assert.Equal(t, int64(305), snp.MetaGenomePosition())
	assert.Equal(t, int64(302), snp.GenomePosition())
	assert.Equal(t, int64(300), snp.ReferenceGenomePosition())
}

func TestCompile_DeletionAbsorbsPadding(t *testing.T) {
	// G1 deletes reference 301-303; G2 inserts 4 bases after reference 302.
	g1 := newTrack("G1", "1", event{300, variant.Deletion, 3}, event{400, variant.SNP, 0})
	g2 := newTrack("G2", "1", event{302, variant.Insertion, 4}, event{400, variant.SNP, 0})
	ref := track.New(genome.ReferenceName, "1")
	lengths := chromosomes(map[string]int64{"1": 1000})

	stats, err := New(Options{Strict: true}).CompileChromosome("1",
		map[string]*track.Track{"G1": g1, "G2": g2}, ref, lengths)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Blanks)
	_, ok := g1.At(302)
	assert.False(t, ok, "no blank inside the genome's own deletion")
	assert.Equal(t, int64(4), at(t, g1, 300).ExtraOffset())

	assert.Equal(t, int64(404), at(t, g1, 400).MetaGenomePosition())
	assert.Equal(t, int64(404), at(t, g2, 400).MetaGenomePosition())
	assert.Equal(t, int64(397), at(t, g1, 400).GenomePosition())
	assert.Equal(t, int64(404), at(t, g2, 400).GenomePosition())
}

func TestCompile_OverlapDropped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g1 := newTrack("G1", "1", event{100, variant.Deletion, 5}, event{102, variant.Insertion, 2}, event{200, variant.SNP, 0})
	ref := track.New(genome.ReferenceName, "1")
	lengths := chromosomes(map[string]int64{"1": 1000})

	c := New(Options{})
	c.SetLogger(zap.New(core))
	stats, err := c.CompileChromosome("1", map[string]*track.Track{"G1": g1}, ref, lengths)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Insertions)
	assert.Equal(t, []int64{100, 200}, g1.Positions())
	assert.Equal(t, int64(1000), lengths.Length("1"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "dropping variant", logs.All()[0].Message)
}

func TestCompile_OverlapPanicsWhenStrict(t *testing.T) {
	g1 := newTrack("G1", "1", event{100, variant.Deletion, 5}, event{103, variant.SNP, 0})
	ref := track.New(genome.ReferenceName, "1")
	lengths := chromosomes(map[string]int64{"1": 1000})

	assert.PanicsWithError(t, "invariant violation for G1 at 1:103: overlaps DELETION ending at reference 105", func() {
		_, _ = New(Options{Strict: true}).CompileChromosome("1", map[string]*track.Track{"G1": g1}, ref, lengths)
	})
}

func TestCompile_FastPath(t *testing.T) {
	g1 := newTrack("G1", "1", event{100, variant.SNP, 0}, event{300, variant.Structural, 5000})
	g2 := newTrack("G2", "1", event{100, variant.SNP, 0})
	ref := track.New(genome.ReferenceName, "1")
	lengths := chromosomes(map[string]int64{"1": 1000})

	stats, err := New(Options{}).CompileChromosome("1",
		map[string]*track.Track{"G1": g1, "G2": g2}, ref, lengths)
	require.NoError(t, err)

	assert.True(t, stats.FastPath)
	assert.Equal(t, 2, stats.Positions)
	assert.Equal(t, 0, ref.Len())
	assert.Equal(t, int64(1000), lengths.Length("1"))
	sv := at(t, g1, 300)
	assert.Equal(t, int64(300), sv.MetaGenomePosition())
	assert.Equal(t, int64(301), sv.NextMetaGenomePosition(), "structural variants do not shift coordinates")
}

func TestCompile_UnknownChromosome(t *testing.T) {
	_, err := New(Options{}).CompileChromosome("9", map[string]*track.Track{}, track.New(genome.ReferenceName, "9"), genome.NewChromosomeSet())
	assert.Error(t, err)
}

// randomTracks builds n genomes with random, possibly overlapping events.
func randomTracks(rng *rand.Rand, n int, chrom string) map[string]*track.Track {
	kinds := []variant.Kind{variant.SNP, variant.SNP, variant.Insertion, variant.Deletion, variant.Structural}
	tracks := make(map[string]*track.Track, n)
	for g := range n {
		name := string(rune('A' + g))
		var events []event
		for pos := int64(1 + rng.Intn(10)); pos < 2000; pos += int64(1 + rng.Intn(40)) {
			k := kinds[rng.Intn(len(kinds))]
			var length int64
			switch k {
			case variant.Insertion, variant.Deletion:
				length = int64(1 + rng.Intn(8))
			case variant.Structural:
				length = int64(rng.Intn(100))
			}
			events = append(events, event{pos, k, length})
		}
		tracks[name] = newTrack(name, chrom, events...)
	}
	return tracks
}

func TestCompile_Properties(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		tracks := randomTracks(rng, 4, "1")
		ref := track.New(genome.ReferenceName, "1")
		lengths := chromosomes(map[string]int64{"1": 2000})

		stats, err := New(Options{}).CompileChromosome("1", tracks, ref, lengths)
		require.NoError(t, err)
		assert.Equal(t, 2000+stats.LengthAdded, lengths.Length("1"))

		// Meta-genome shift before each reference position, from the
		// reference track's blanks.
		shiftBefore := func(p int64) int64 {
			var shift int64
			for _, pos := range ref.Positions() {
				if pos >= p {
					break
				}
				shift += at(t, ref, pos).Length()
			}
			return shift
		}

		for name, tr := range tracks {
			positions := tr.Positions()
			var prev *variant.Variant
			for _, p := range positions {
				v := at(t, tr, p)

				// Offset chaining.
				if prev != nil {
					assert.Equal(t, prev.NextReferenceOffset(), v.InitialReferenceOffset(), "seed %d %s@%d ref offset", seed, name, p)
					assert.Equal(t, prev.NextMetaGenomeOffset(), v.InitialMetaGenomeOffset(), "seed %d %s@%d meta offset", seed, name, p)
					assert.GreaterOrEqual(t, v.GenomePosition(), prev.NextGenomePosition())
				}
				assert.GreaterOrEqual(t, v.ExtraOffset(), int64(0))

				// Meta-genome convergence: every genome, and the reference,
				// agrees on the meta-genome coordinate of p.
				assert.Equal(t, p, v.ReferenceGenomePosition(), "seed %d %s@%d", seed, name, p)
				assert.Equal(t, p+shiftBefore(p), v.MetaGenomePosition(), "seed %d %s@%d", seed, name, p)
				prev = v
			}
		}

		for _, p := range ref.Positions() {
			assert.Equal(t, p+shiftBefore(p), at(t, ref, p).MetaGenomePosition())
		}
	}
}

func TestCompileAll(t *testing.T) {
	lengths := chromosomes(map[string]int64{"1": 1000, "2": 500, "3": 300})
	jobs := []Job{
		{Seq: 0, Chrom: "1", Tracks: map[string]*track.Track{"G1": newTrack("G1", "1", event{10, variant.Insertion, 2})}, Reference: track.New(genome.ReferenceName, "1")},
		{Seq: 1, Chrom: "2", Tracks: map[string]*track.Track{"G1": newTrack("G1", "2", event{10, variant.SNP, 0})}, Reference: track.New(genome.ReferenceName, "2")},
		{Seq: 2, Chrom: "3", Tracks: map[string]*track.Track{"G1": newTrack("G1", "3", event{10, variant.Insertion, 7})}, Reference: track.New(genome.ReferenceName, "3")},
	}

	var order []string
	err := OrderedCollect(New(Options{Workers: 3}).CompileAll(context.Background(), jobs, lengths), func(r Result) error {
		require.NoError(t, r.Err)
		order = append(order, r.Chrom)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, order)
	assert.Equal(t, int64(1002), lengths.Length("1"))
	assert.Equal(t, int64(500), lengths.Length("2"))
	assert.Equal(t, int64(307), lengths.Length("3"))
}

func TestCompileAll_Cancelled(t *testing.T) {
	lengths := chromosomes(map[string]int64{"1": 1000})
	jobs := []Job{{Seq: 0, Chrom: "1", Tracks: map[string]*track.Track{"G1": newTrack("G1", "1", event{10, variant.Insertion, 2})}, Reference: track.New(genome.ReferenceName, "1")}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var results []Result
	for r := range New(Options{Workers: 1}).CompileAll(ctx, jobs, lengths) {
		results = append(results, r)
	}
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.Equal(t, int64(1000), lengths.Length("1"))
}
