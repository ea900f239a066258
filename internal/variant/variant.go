package variant

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-sync/internal/vcf"
)

var (
	// ErrInsideInsertion is returned when a genome position lies strictly
	// inside an insertion and therefore has no reference coordinate.
	ErrInsideInsertion = errors.New("position lies inside an insertion")

	// ErrBeforeVariant is returned when a genome position precedes the variant.
	ErrBeforeVariant = errors.New("position precedes the variant")

	// ErrNegativeOffset is returned when an offset change would decrease extraOffset.
	ErrNegativeOffset = errors.New("extra offset can only grow")
)

// Record is the immutable payload of one variant file line. A Record is
// shared by every genome whose sample column is on that line.
type Record struct {
	Chrom  string
	Pos    int64
	Ref    string
	Alts   []string
	Fields vcf.FieldMap
	Header *vcf.Header
}

// NewRecord wraps a raw field map read from a file with the given header.
func NewRecord(fields vcf.FieldMap, header *vcf.Header) *Record {
	return &Record{
		Chrom:  fields.Chrom(),
		Pos:    fields.Pos(),
		Ref:    fields.Ref(),
		Alts:   fields.Alts(),
		Fields: fields,
		Header: header,
	}
}

// Info decodes INFO sub-field id using the declared header type.
func (r *Record) Info(id string) (any, bool) {
	if r.Header == nil {
		return nil, false
	}
	return r.Header.InfoValue(r.Fields, id)
}

// Format decodes FORMAT sub-field id of sample using the declared header type.
func (r *Record) Format(sample, id string) (any, bool) {
	if r.Header == nil {
		return nil, false
	}
	return r.Header.FormatValue(r.Fields, sample, id)
}

// Variant is one event of one genome on one chromosome. It holds the offsets
// mapping the genome's own coordinate line onto the reference and meta-genome
// lines; the file payload lives in the shared Record.
type Variant struct {
	kind   Kind
	length int64
	chrom  string
	sample string
	allele int
	record *Record

	genomePosition          int64
	initialReferenceOffset  int64
	initialMetaGenomeOffset int64
	extraOffset             int64
}

// New creates a variant read from a file. allele is the 1-based ALT index
// carried by the sample.
func New(kind Kind, length int64, record *Record, sample string, allele int) (*Variant, error) {
	if record == nil {
		return nil, fmt.Errorf("%s variant requires a record", kind)
	}
	if kind == Blank || kind == Mix {
		return nil, fmt.Errorf("%s variants cannot be read from a file", kind)
	}
	if length < 0 {
		return nil, fmt.Errorf("%s variant at %s:%d has negative length %d", kind, record.Chrom, record.Pos, length)
	}
	return &Variant{
		kind:           kind,
		length:         length,
		chrom:          record.Chrom,
		sample:         sample,
		allele:         allele,
		record:         record,
		genomePosition: record.Pos,
	}, nil
}

// NewBlank creates a synthetic placeholder of the given length.
func NewBlank(chrom string, length int64) *Variant {
	if length < 0 {
		length = 0
	}
	return &Variant{kind: Blank, length: length, chrom: chrom}
}

// Restore rebuilds a variant from persisted state.
func Restore(kind Kind, length int64, chrom string, record *Record, sample string, allele int,
	genomePosition, referenceOffset, metaGenomeOffset, extraOffset int64) *Variant {
	return &Variant{
		kind:                    kind,
		length:                  length,
		chrom:                   chrom,
		sample:                  sample,
		allele:                  allele,
		record:                  record,
		genomePosition:          genomePosition,
		initialReferenceOffset:  referenceOffset,
		initialMetaGenomeOffset: metaGenomeOffset,
		extraOffset:             extraOffset,
	}
}

// Kind returns the variant kind.
func (v *Variant) Kind() Kind { return v.kind }

// Length returns the event length in bases (0 for SNPs).
func (v *Variant) Length() int64 { return v.length }

// Chrom returns the chromosome name.
func (v *Variant) Chrom() string { return v.chrom }

// Sample returns the raw sample name the variant was read for.
func (v *Variant) Sample() string { return v.sample }

// Allele returns the 1-based ALT index carried by the sample (0 for blanks).
func (v *Variant) Allele() int { return v.allele }

// Record returns the shared file payload, nil for blanks.
func (v *Variant) Record() *Record { return v.record }

// GenomePosition returns the position on the genome's own coordinate line.
func (v *Variant) GenomePosition() int64 { return v.genomePosition }

// InitialReferenceOffset maps GenomePosition to the reference line.
func (v *Variant) InitialReferenceOffset() int64 { return v.initialReferenceOffset }

// InitialMetaGenomeOffset maps GenomePosition to the meta-genome line.
func (v *Variant) InitialMetaGenomeOffset() int64 { return v.initialMetaGenomeOffset }

// ExtraOffset is the meta-genome padding added after this variant.
func (v *Variant) ExtraOffset() int64 { return v.extraOffset }

// SetGenomePosition sets the position on the genome's own coordinate line.
func (v *Variant) SetGenomePosition(p int64) { v.genomePosition = p }

// SetInitialReferenceOffset sets the reference offset at the variant start.
func (v *Variant) SetInitialReferenceOffset(o int64) { v.initialReferenceOffset = o }

// SetInitialMetaGenomeOffset sets the meta-genome offset at the variant start.
func (v *Variant) SetInitialMetaGenomeOffset(o int64) { v.initialMetaGenomeOffset = o }

// AddExtraOffset accumulates meta-genome padding. It never decreases the offset.
func (v *Variant) AddExtraOffset(n int64) error {
	if n < 0 {
		return fmt.Errorf("add %d to extra offset of %s at %s:%d: %w",
			n, v.kind, v.chrom, v.ReferenceGenomePosition(), ErrNegativeOffset)
	}
	v.extraOffset += n
	return nil
}

// ReferenceGenomePosition returns the reference coordinate of the variant.
func (v *Variant) ReferenceGenomePosition() int64 {
	return v.genomePosition + v.initialReferenceOffset
}

// MetaGenomePosition returns the meta-genome coordinate of the variant.
func (v *Variant) MetaGenomePosition() int64 {
	return v.genomePosition + v.initialMetaGenomeOffset
}

// insertedLength is the number of own-genome bases the variant adds after
// its anchor position.
func (v *Variant) insertedLength() int64 {
	if v.kind == Insertion {
		return v.length
	}
	return 0
}

// skippedLength is the number of reference bases the genome jumps over
// after the anchor position.
func (v *Variant) skippedLength() int64 {
	if v.kind == Deletion {
		return v.length
	}
	return 0
}

// paddingLength is the number of meta-genome positions the genome leaves
// empty after the anchor position, excluding extraOffset.
func (v *Variant) paddingLength() int64 {
	switch v.kind {
	case Deletion, Blank:
		return v.length
	default:
		return 0
	}
}

// InsertedLength is the number of own-genome bases inserted after the
// anchor position: the length for insertions, 0 otherwise.
func (v *Variant) InsertedLength() int64 { return v.insertedLength() }

// NextGenomePosition returns the first own-genome position after the variant.
func (v *Variant) NextGenomePosition() int64 {
	return v.genomePosition + 1 + v.insertedLength()
}

// NextReferenceGenomePositionAt maps own-genome position p, at or after the
// variant and before the next event of the same genome, to the reference line.
// Positions strictly inside an insertion have no reference coordinate.
func (v *Variant) NextReferenceGenomePositionAt(p int64) (int64, error) {
	delta := p - v.genomePosition
	switch {
	case delta < 0:
		return 0, ErrBeforeVariant
	case delta == 0:
		return v.ReferenceGenomePosition(), nil
	case delta <= v.insertedLength():
		return 0, ErrInsideInsertion
	}
	return v.ReferenceGenomePosition() + delta - v.insertedLength() + v.skippedLength(), nil
}

// NextMetaGenomePositionAt maps own-genome position p, at or after the
// variant and before the next event of the same genome, to the meta-genome
// line. extraOffset applies once p is past the inserted bases.
func (v *Variant) NextMetaGenomePositionAt(p int64) (int64, error) {
	delta := p - v.genomePosition
	switch {
	case delta < 0:
		return 0, ErrBeforeVariant
	case delta == 0:
		return v.MetaGenomePosition(), nil
	case delta <= v.insertedLength():
		return v.MetaGenomePosition() + delta, nil
	}
	return v.MetaGenomePosition() + delta + v.paddingLength() + v.extraOffset, nil
}

// NextReferenceGenomePosition returns the reference coordinate of NextGenomePosition.
func (v *Variant) NextReferenceGenomePosition() int64 {
	p, _ := v.NextReferenceGenomePositionAt(v.NextGenomePosition())
	return p
}

// NextMetaGenomePosition returns the meta-genome coordinate of NextGenomePosition.
func (v *Variant) NextMetaGenomePosition() int64 {
	p, _ := v.NextMetaGenomePositionAt(v.NextGenomePosition())
	return p
}

// NextReferenceOffset is the reference offset the next variant of the same
// genome must start with.
func (v *Variant) NextReferenceOffset() int64 {
	return v.NextReferenceGenomePosition() - v.NextGenomePosition()
}

// NextMetaGenomeOffset is the meta-genome offset the next variant of the
// same genome must start with.
func (v *Variant) NextMetaGenomeOffset() int64 {
	return v.NextMetaGenomePosition() - v.NextGenomePosition()
}

// ChainFrom sets the variant's genome position and initial offsets so that it
// continues prev's coordinate lines at reference position refPos. A nil prev
// starts the chain: the genome position equals refPos and offsets are zero.
func (v *Variant) ChainFrom(prev *Variant, refPos int64) {
	if prev == nil {
		v.genomePosition = refPos
		v.initialReferenceOffset = 0
		v.initialMetaGenomeOffset = 0
		return
	}
	v.genomePosition = prev.NextGenomePosition() + (refPos - prev.NextReferenceGenomePosition())
	v.initialReferenceOffset = prev.NextReferenceOffset()
	v.initialMetaGenomeOffset = prev.NextMetaGenomeOffset()
}

func (v *Variant) String() string {
	return fmt.Sprintf("%s %s:%d len=%d gp=%d ref=%d meta=%d extra=%d",
		v.kind, v.chrom, v.ReferenceGenomePosition(), v.length,
		v.genomePosition, v.initialReferenceOffset, v.initialMetaGenomeOffset, v.extraOffset)
}
