package metagenome

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/compile"
	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/vcf"
	"github.com/inodb/vibe-sync/internal/viewport"
)

// ViewportQuery returns the display intervals of genome on chrom within the
// meta-genome window [start, stop], fitted at pixelsPerBase.
func (c *Context) ViewportQuery(name, chrom string, start, stop int64, pixelsPerBase float64) ([]viewport.Interval, error) {
	if pixelsPerBase <= 0 || math.IsNaN(pixelsPerBase) || math.IsInf(pixelsPerBase, 0) {
		return nil, fmt.Errorf("pixels per base must be positive and finite, got %v", pixelsPerBase)
	}
	if stop < start {
		return nil, fmt.Errorf("window stop %d precedes start %d", stop, start)
	}
	st, err := c.current()
	if err != nil {
		return nil, err
	}
	byChrom, ok := st.viewports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGenome, name)
	}
	vp, ok := byChrom[chrom]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChromosome, chrom)
	}
	return vp.Window(pixelsPerBase, start, stop), nil
}

// ChromosomeLength returns the compiled meta-genome length of chrom.
func (c *Context) ChromosomeLength(chrom string) (int64, error) {
	st, err := c.current()
	if err != nil {
		return 0, err
	}
	ch, ok := st.lengths.Get(chrom)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChromosome, chrom)
	}
	return ch.Length(), nil
}

// Chromosomes returns the chromosome names in natural order.
func (c *Context) Chromosomes() []string {
	st, err := c.current()
	if err != nil {
		return nil
	}
	return genome.SortedNames(st.lengths.Names())
}

// Genomes returns the project genomes sorted by display name.
func (c *Context) Genomes() []genome.Genome {
	st, err := c.current()
	if err != nil {
		return nil
	}
	out := make([]genome.Genome, 0, len(st.genomes))
	for _, name := range st.genomeNames() {
		out = append(out, *st.genomes[name])
	}
	return out
}

// Stats returns the per-chromosome compile statistics of the last
// Synchronize, in chromosome order.
func (c *Context) Stats() []compile.Stats {
	st, err := c.current()
	if err != nil {
		return nil
	}
	return append([]compile.Stats(nil), st.stats...)
}

// Track returns the track of genome on chrom. genome.ReferenceName selects
// the reference track.
func (c *Context) Track(name, chrom string) (*track.Track, error) {
	st, err := c.current()
	if err != nil {
		return nil, err
	}
	return st.lookup(name, chrom)
}

func (st *state) lookup(name, chrom string) (*track.Track, error) {
	if _, ok := st.lengths.Get(chrom); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChromosome, chrom)
	}
	if name == genome.ReferenceName {
		return st.reference[chrom], nil
	}
	byChrom, ok := st.tracks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGenome, name)
	}
	t, ok := byChrom[chrom]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChromosome, chrom)
	}
	return t, nil
}

// VariantAt returns the entry of genome at reference position pos on chrom.
// ok is false when the genome has no entry there.
func (c *Context) VariantAt(name, chrom string, pos int64) (v *variant.Variant, ok bool, err error) {
	t, err := c.Track(name, chrom)
	if err != nil {
		return nil, false, err
	}
	t.View(func(t *track.Track) {
		v, ok = t.At(pos)
	})
	return v, ok, nil
}

// FieldValue decodes an INFO or FORMAT sub-field of v's file line using the
// declared header type. A value that does not match its declared type is
// logged and reported as absent.
func (c *Context) FieldValue(v *variant.Variant, section vcf.Section, key string) (any, bool) {
	rec := v.Record()
	if rec == nil || rec.Header == nil {
		return nil, false
	}

	var (
		value any
		ok    bool
		err   error
	)
	switch section {
	case vcf.SectionINFO:
		value, ok, err = rec.Header.DecodeInfo(rec.Fields, key)
	case vcf.SectionFORMAT:
		value, ok, err = rec.Header.DecodeFormat(rec.Fields, v.Sample(), key)
	default:
		return nil, false
	}
	if err != nil {
		c.logger.Warn("field type mismatch",
			zap.String("chrom", rec.Chrom),
			zap.Int64("pos", rec.Pos),
			zap.String("section", string(section)),
			zap.String("key", key),
			zap.Error(err))
		return nil, false
	}
	return value, ok
}

// SetSNPsEnabled shows or hides the SNPs of genome on every chromosome and
// returns the number of entries toggled.
func (c *Context) SetSNPsEnabled(name string, enabled bool) (int, error) {
	st, err := c.current()
	if err != nil {
		return 0, err
	}
	byChrom, ok := st.tracks[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownGenome, name)
	}
	n := 0
	for _, t := range byChrom {
		n += t.SetSNPsEnabled(enabled)
	}
	return n, nil
}

// CanManage reports whether genome has variants of kind k.
func (c *Context) CanManage(name string, k variant.Kind) bool {
	st, err := c.current()
	if err != nil {
		return false
	}
	return st.registry.CanManage(name, k)
}
