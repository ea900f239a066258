package variant

import (
	"strings"

	"github.com/inodb/vibe-sync/internal/vcf"
)

// Classify returns the kind and length of ALT allele number allele (1-based)
// of rec. ok is false when the allele does not describe a variant event
// (missing, spanning-deletion "*" or out of range).
func Classify(rec *Record, allele int) (kind Kind, length int64, ok bool) {
	if allele < 1 || allele > len(rec.Alts) {
		return 0, 0, false
	}
	alt := rec.Alts[allele-1]
	ref := rec.Ref

	switch {
	case alt == "" || alt == "." || alt == "*":
		return 0, 0, false
	case isSymbolic(alt):
		return Structural, structuralLength(rec, allele), true
	case len(alt) == len(ref):
		return SNP, 0, true
	case len(alt) > len(ref):
		return Insertion, int64(len(alt) - len(ref)), true
	default:
		return Deletion, int64(len(ref) - len(alt)), true
	}
}

func isSymbolic(alt string) bool {
	return strings.HasPrefix(alt, "<") || strings.ContainsAny(alt, "[]")
}

// structuralLength reads SVLEN for the allele, falling back to END - POS.
func structuralLength(rec *Record, allele int) int64 {
	if v, ok := rec.Info("SVLEN"); ok {
		switch n := v.(type) {
		case int:
			return abs(int64(n))
		case []any:
			if allele <= len(n) {
				if i, ok := n[allele-1].(int); ok {
					return abs(int64(i))
				}
			}
		}
	}
	if v, ok := rec.Info("END"); ok {
		if end, ok := v.(int); ok && int64(end) > rec.Pos {
			return int64(end) - rec.Pos
		}
	}
	return 0
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func vcfFormat(rec *Record, sample, id string) (string, bool) {
	return vcf.LookupFormat(rec.Fields["FORMAT"], rec.Fields[sample], id)
}

// SampleGenotype returns the parsed GT of sample on rec.
func SampleGenotype(rec *Record, sample string) Genotype {
	raw, ok := vcfFormat(rec, sample, "GT")
	if !ok {
		return Genotype{A: -1, B: -1}
	}
	return ParseGenotype(raw)
}
