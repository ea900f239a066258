package vcf

import (
	"strconv"
	"strings"
)

// Chrom returns the CHROM column (e.g., "12", "chr12").
func (f FieldMap) Chrom() string { return f["CHROM"] }

// Pos returns the 1-based POS column, or 0 if it does not parse.
func (f FieldMap) Pos() int64 {
	pos, err := strconv.ParseInt(f["POS"], 10, 64)
	if err != nil {
		return 0
	}
	return pos
}

// Ref returns the reference allele.
func (f FieldMap) Ref() string { return f["REF"] }

// Alts returns the alternate alleles; nil when ALT is missing.
func (f FieldMap) Alts() []string {
	alt := f["ALT"]
	if alt == "" || alt == "." {
		return nil
	}
	return strings.Split(alt, ",")
}

// Qual returns the QUAL column, or 0 when missing.
func (f FieldMap) Qual() float64 {
	q := f["QUAL"]
	if q == "" || q == "." {
		return 0
	}
	v, _ := strconv.ParseFloat(q, 64)
	return v
}

// Pass reports whether the line passed all filters.
func (f FieldMap) Pass() bool {
	return f["FILTER"] == "PASS"
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}
