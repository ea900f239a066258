package session

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sync/internal/compile"
	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/vcf"
)

func testHeader(t *testing.T) *vcf.Header {
	t.Helper()
	h, err := vcf.ParseHeaderLines([]string{
		"##fileformat=VCFv4.2",
		`##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth">`,
		`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`,
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tG1\tG2",
	})
	require.NoError(t, err)
	return h
}

func addLine(t *testing.T, h *vcf.Header, tracks map[string]*track.Track, pos, ref, alt, gt1, gt2 string) *variant.Record {
	t.Helper()
	rec := variant.NewRecord(vcf.FieldMap{
		"CHROM": "1", "POS": pos, "ID": ".", "REF": ref, "ALT": alt, "QUAL": "50",
		"FILTER": "PASS", "INFO": "DP=9", "FORMAT": "GT", "G1": gt1, "G2": gt2,
	}, h)
	for _, sample := range []string{"G1", "G2"} {
		for _, allele := range variant.SampleGenotype(rec, sample).Alleles() {
			kind, length, ok := variant.Classify(rec, allele)
			require.True(t, ok)
			v, err := variant.New(kind, length, rec, sample, allele)
			require.NoError(t, err)
			tracks[sample].AddVariant(rec.Pos, v)
		}
	}
	return rec
}

type coords struct {
	Kind                                 variant.Kind
	Genome, Ref, Meta, NextRef, NextMeta int64
	NextGenome, ExtraOffset, Length      int64
}

func snapshotCoords(tr *track.Track) map[int64]coords {
	out := make(map[int64]coords)
	for i := 0; ; i++ {
		pos, v, ok := tr.AtIndex(i)
		if !ok {
			return out
		}
		out[pos] = coords{
			Kind: v.Kind(), Genome: v.GenomePosition(), Ref: v.ReferenceGenomePosition(),
			Meta: v.MetaGenomePosition(), NextRef: v.NextReferenceGenomePosition(),
			NextMeta: v.NextMetaGenomePosition(), NextGenome: v.NextGenomePosition(),
			ExtraOffset: v.ExtraOffset(), Length: v.Length(),
		}
	}
}

func compiledTracks(t *testing.T) (map[string]*track.Track, *track.Track) {
	t.Helper()
	h := testHeader(t)
	tracks := map[string]*track.Track{"G1": track.New("G1", "1"), "G2": track.New("G2", "1")}
	addLine(t, h, tracks, "100", "A", "G", "0|1", "1|1")
	addLine(t, h, tracks, "200", "A", "AGGGGG", "1/1", "0/0")
	addLine(t, h, tracks, "200", "A", "AGG", "0/0", "1/1")
	addLine(t, h, tracks, "300", "ACCC", "A", "0/0", "0/1")
	addLine(t, h, tracks, "450", "T", "C", "1/1", "0/0")

	ref := track.New(genome.ReferenceName, "1")
	lengths := genome.NewChromosomeSet()
	lengths.Add("1", 1000)
	_, err := compile.New(compile.Options{Strict: true}).CompileChromosome("1", tracks, ref, lengths)
	require.NoError(t, err)
	return tracks, ref
}

func TestSnapshot_RoundTripPreservesCoordinates(t *testing.T) {
	tracks, ref := compiledTracks(t)
	tracks["G1"].SetSNPsEnabled(false)

	snap := New()
	snap.Chromosomes = []Chromosome{{Name: "1", Length: 1005}}
	for _, name := range []string{"G1", "G2"} {
		snap.AddTrack(tracks[name])
	}
	snap.AddTrack(ref)

	// G1 and G2 share the line at 100; it is stored once.
	assert.Len(t, snap.Records, 5)
	assert.Len(t, snap.Headers, 1)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, snap))
	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, decoded.ID)
	assert.Equal(t, snap.Chromosomes, decoded.Chromosomes)

	restored, err := decoded.Rebuild()
	require.NoError(t, err)
	require.Len(t, restored, 3)

	byGenome := make(map[string]*track.Track)
	for _, tr := range restored {
		byGenome[tr.Genome()] = tr
	}

	for name, tr := range map[string]*track.Track{"G1": tracks["G1"], "G2": tracks["G2"], genome.ReferenceName: ref} {
		got := byGenome[name]
		require.NotNil(t, got, name)
		assert.Equal(t, tr.SNPsEnabled(), got.SNPsEnabled(), name)
		assert.Equal(t, snapshotCoords(tr), snapshotCoords(got), name)
	}

	// Re-enabling SNPs after restore brings back the original lines.
	byGenome["G1"].SetSNPsEnabled(true)
	tracks["G1"].SetSNPsEnabled(true)
	assert.Equal(t, snapshotCoords(tracks["G1"]), snapshotCoords(byGenome["G1"]))

	v, ok := byGenome["G1"].At(100)
	require.True(t, ok)
	dp, ok := v.Record().Info("DP")
	require.True(t, ok)
	assert.Equal(t, 9, dp)
	assert.True(t, v.IsPhased())

	g1, _ := byGenome["G1"].At(100)
	g2, _ := byGenome["G2"].At(100)
	assert.Same(t, g1.Record(), g2.Record(), "shared payload survives the round trip")
}

func TestSnapshot_RebuildRejectsBadIndex(t *testing.T) {
	snap := &Snapshot{
		Tracks: []Track{{Genome: "G1", Chrom: "1", SNPsEnabled: true, Entries: []Entry{{Pos: 1, Kind: variant.SNP, Record: 3}}}},
	}
	_, err := snap.Rebuild()
	assert.Error(t, err)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a gob stream")))
	assert.Error(t, err)
}
