package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		ref, alt   string
		info       string
		allele     int
		wantKind   Kind
		wantLength int64
		wantOK     bool
	}{
		{"snp", "A", "G", ".", 1, SNP, 0, true},
		{"mnp", "AT", "GC", ".", 1, SNP, 0, true},
		{"insertion", "A", "AGGG", ".", 1, Insertion, 3, true},
		{"deletion", "ATGC", "A", ".", 1, Deletion, 3, true},
		{"second allele", "A", "G,AGG", ".", 2, Insertion, 2, true},
		{"symbolic with SVLEN", "A", "<DEL>", "SVLEN=-250", 1, Structural, 250, true},
		{"symbolic with END", "A", "<DUP>", "END=160", 1, Structural, 60, true},
		{"breakend", "A", "A[2:300[", ".", 1, Structural, 0, true},
		{"spanning deletion", "A", "*", ".", 1, 0, 0, false},
		{"missing alt", "A", ".", ".", 1, 0, 0, false},
		{"allele out of range", "A", "G", ".", 2, 0, 0, false},
		{"reference allele", "A", "G", ".", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord(t, "100", tt.ref, tt.alt, tt.info, "1/1")
			kind, length, ok := Classify(rec, tt.allele)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, kind)
				assert.Equal(t, tt.wantLength, length)
			}
		})
	}
}

func TestParseGenotype(t *testing.T) {
	tests := []struct {
		gt   string
		want Genotype
	}{
		{"0/1", Genotype{A: 0, B: 1}},
		{"1|1", Genotype{A: 1, B: 1, Phased: true}},
		{"./.", Genotype{A: -1, B: -1}},
		{".|1", Genotype{A: -1, B: 1, Phased: true}},
		{"1", Genotype{A: 1, B: -1}},
		{"0/1/2", Genotype{A: 0, B: 1}},
		{"", Genotype{A: -1, B: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.gt, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGenotype(tt.gt))
		})
	}
}

func TestGenotype_Alleles(t *testing.T) {
	assert.Empty(t, ParseGenotype("0/0").Alleles())
	assert.False(t, ParseGenotype("0/0").HasVariant())
	assert.False(t, ParseGenotype("./.").HasVariant())
	assert.Equal(t, []int{1}, ParseGenotype("1/1").Alleles())
	assert.Equal(t, []int{1, 2}, ParseGenotype("1|2").Alleles())
	assert.Equal(t, []int{2}, ParseGenotype("0/2").Alleles())
	assert.True(t, ParseGenotype("0|1").HasVariant())
}

func TestKind_ParseAndString(t *testing.T) {
	for _, k := range []Kind{SNP, Insertion, Deletion, Structural, Blank, Mix} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	k, err := ParseKind(" ins ")
	require.NoError(t, err)
	assert.Equal(t, Insertion, k)

	_, err = ParseKind("inversion")
	assert.Error(t, err)

	var u Kind
	require.NoError(t, u.UnmarshalText([]byte("DEL")))
	assert.Equal(t, Deletion, u)
	text, err := Deletion.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DELETION", string(text))
}

func TestKindSet(t *testing.T) {
	s := NewKindSet(SNP, Deletion)
	assert.True(t, s.Has(SNP))
	assert.False(t, s.Has(Insertion))
	assert.Equal(t, []Kind{SNP, Deletion}, s.Kinds())
	assert.Equal(t, "{SNP,DELETION}", s.String())

	s = s.Remove(SNP).Add(Blank)
	assert.Equal(t, []Kind{Deletion, Blank}, s.Kinds())
	assert.True(t, AllFileKinds.Has(Structural))
	assert.False(t, AllFileKinds.Has(Blank))
}

func TestRegistry_CanManage(t *testing.T) {
	r := NewRegistry()
	r.Record("G1", SNP)
	r.Record("G1", Insertion)
	r.Record("G2", Deletion)

	assert.True(t, r.CanManage("G1", SNP))
	assert.True(t, r.CanManage("G1", Insertion))
	assert.False(t, r.CanManage("G1", Deletion))
	assert.True(t, r.CanManage("G2", Deletion))
	assert.False(t, r.CanManage("G3", SNP))
	assert.Equal(t, NewKindSet(SNP, Insertion), r.Kinds("G1"))
}
