package variant

import (
	"strconv"
	"strings"
)

// BlankQuality is the quality reported by blank placeholders.
const BlankQuality = 100

// Genotype is a parsed GT value. Missing alleles are -1; B is -1 for haploid calls.
type Genotype struct {
	A, B   int
	Phased bool
}

// ParseGenotype parses a GT sub-field such as "0/1", "1|1", "./." or "1".
func ParseGenotype(gt string) Genotype {
	g := Genotype{A: -1, B: -1}
	if gt == "" {
		return g
	}

	sep := strings.IndexAny(gt, "/|")
	if sep < 0 {
		g.A = parseAllele(gt)
		return g
	}
	g.Phased = gt[sep] == '|'
	g.A = parseAllele(gt[:sep])
	rest := gt[sep+1:]
	// Polyploid calls keep only the first two alleles.
	if next := strings.IndexAny(rest, "/|"); next >= 0 {
		rest = rest[:next]
	}
	g.B = parseAllele(rest)
	return g
}

func parseAllele(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// Alleles returns the distinct non-reference allele indices carried.
func (g Genotype) Alleles() []int {
	var out []int
	for _, a := range []int{g.A, g.B} {
		if a > 0 && (len(out) == 0 || out[0] != a) {
			out = append(out, a)
		}
	}
	return out
}

// HasVariant reports whether at least one allele is non-reference.
func (g Genotype) HasVariant() bool {
	return g.A > 0 || g.B > 0
}

// genotype returns the sample's GT, or a homozygous-alternate call for blanks.
func (v *Variant) genotype() Genotype {
	if v.kind == Blank || v.record == nil {
		return Genotype{A: 1, B: 1}
	}
	return SampleGenotype(v.record, v.sample)
}

// GT returns the two allele indices of the sample's genotype.
// Blank placeholders report (1, 1).
func (v *Variant) GT() (int, int) {
	g := v.genotype()
	return g.A, g.B
}

// IsPhased reports whether the sample's genotype uses the phased separator.
func (v *Variant) IsPhased() bool {
	return v.genotype().Phased
}

// Quality returns the QUAL column. Blank placeholders report BlankQuality.
func (v *Variant) Quality() float64 {
	if v.kind == Blank || v.record == nil {
		return BlankQuality
	}
	return v.record.Fields.Qual()
}

// ID returns the ID column, "." for blanks.
func (v *Variant) ID() string {
	if v.record == nil {
		return "."
	}
	return v.record.Fields["ID"]
}

// Ref returns the reference allele, "" for blanks.
func (v *Variant) Ref() string {
	if v.record == nil {
		return ""
	}
	return v.record.Ref
}

// Alt returns the alternate allele carried by the sample, "" for blanks.
func (v *Variant) Alt() string {
	if v.record == nil || v.allele < 1 || v.allele > len(v.record.Alts) {
		return ""
	}
	return v.record.Alts[v.allele-1]
}
