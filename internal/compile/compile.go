// Package compile synchronizes the coordinate lines of every genome on a
// chromosome. It walks the reference positions once, chains each genome's
// offsets forward, and pads genomes with blanks wherever another genome
// inserts bases, so all genomes share one meta-genome coordinate line.
package compile

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/metrics"
	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
)

// Options configures a Compiler.
type Options struct {
	// Workers is the number of chromosomes compiled in parallel.
	// 0 uses runtime.NumCPU().
	Workers int
	// Strict panics on an InvariantViolation instead of dropping the variant.
	Strict bool
}

// Stats summarizes the compilation of one chromosome.
type Stats struct {
	Chrom       string
	Positions   int   // distinct reference positions scanned
	Insertions  int   // positions at which at least one genome inserts
	Blanks      int   // blank placeholders added to genome tracks
	Skipped     int   // variants dropped for overlapping an earlier event
	LengthAdded int64 // bases the chromosome grew by
	FastPath    bool  // no insertion or deletion on the chromosome
}

// Compiler runs the synchronization scan.
type Compiler struct {
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates a compiler.
func New(opts Options) *Compiler {
	return &Compiler{opts: opts, logger: zap.NewNop()}
}

// SetLogger sets the logger for warning and info messages.
func (c *Compiler) SetLogger(l *zap.Logger) {
	c.logger = l
}

// SetMetrics sets the collector compile results are recorded on.
func (c *Compiler) SetMetrics(m *metrics.Collector) {
	c.metrics = m
}

// CompileChromosome synchronizes every genome track on chrom. tracks maps
// genome name to its track on chrom; ref is the reference track. The
// chromosome length in lengths grows by the longest insertion at each
// insertion event.
func (c *Compiler) CompileChromosome(chrom string, tracks map[string]*track.Track, ref *track.Track, lengths *genome.ChromosomeSet) (Stats, error) {
	start := time.Now()
	stats := Stats{Chrom: chrom}

	if _, ok := lengths.Get(chrom); !ok {
		return stats, fmt.Errorf("compile %s: unknown chromosome", chrom)
	}

	names := make([]string, 0, len(tracks))
	for name := range tracks {
		names = append(names, name)
	}
	slices.Sort(names)

	ordered := make([]*track.Track, len(names))
	shifting := false
	for i, name := range names {
		t := tracks[name]
		t.RebuildIndex()
		t.ResetCursors()
		ordered[i] = t
		if t.HasKind(variant.Insertion) || t.HasKind(variant.Deletion) {
			shifting = true
		}
	}
	ref.RebuildIndex()
	ref.ResetCursors()

	positions := unionPositions(ordered)
	stats.Positions = len(positions)

	var err error
	if shifting {
		err = c.scan(chrom, positions, ordered, ref, lengths, &stats)
	} else {
		stats.FastPath = true
		c.chainOnly(ordered)
	}

	for _, t := range ordered {
		t.RebuildIndex()
		t.ResetCursors()
	}
	ref.RebuildIndex()
	ref.ResetCursors()

	c.metrics.ObserveCompile(time.Since(start), stats.Insertions, stats.Blanks, stats.Skipped)
	if err != nil {
		return stats, err
	}

	c.logger.Debug("compiled chromosome",
		zap.String("chrom", chrom),
		zap.Int("positions", stats.Positions),
		zap.Int("insertions", stats.Insertions),
		zap.Int("blanks", stats.Blanks),
		zap.Int64("length_added", stats.LengthAdded),
		zap.Bool("fast_path", stats.FastPath))
	return stats, nil
}

// unionPositions returns the sorted union of all tracks' positions.
func unionPositions(tracks []*track.Track) []int64 {
	var all []int64
	for _, t := range tracks {
		all = append(all, t.Positions()...)
	}
	slices.Sort(all)
	return slices.Compact(all)
}

// chainOnly handles chromosomes without insertions or deletions. Nothing
// shifts, so every variant sits at its reference position with zero offsets.
func (c *Compiler) chainOnly(tracks []*track.Track) {
	for _, t := range tracks {
		for i := 0; ; i++ {
			pos, v, ok := t.AtIndex(i)
			if !ok {
				break
			}
			v.ChainFrom(nil, pos)
		}
	}
}

func (c *Compiler) scan(chrom string, positions []int64, tracks []*track.Track, ref *track.Track, lengths *genome.ChromosomeSet, stats *Stats) error {
	for _, p := range positions {
		var maxLength int64

		// Chain every genome that has an event at p.
		for _, t := range tracks {
			t.SetCurrentPosition(p)
			v := t.CurrentVariant()
			if v == nil {
				continue
			}
			prev := predecessor(t)
			if prev != nil && p < prev.NextReferenceGenomePosition() {
				c.violation(&InvariantViolation{
					Genome: t.Genome(),
					Chrom:  chrom,
					Pos:    p,
					Reason: fmt.Sprintf("overlaps %s ending at reference %d", prev.Kind(), prev.NextReferenceGenomePosition()-1),
				})
				t.Remove(p)
				stats.Skipped++
				continue
			}
			v.ChainFrom(prev, p)
			if v.Kind() == variant.Insertion && v.Length() > maxLength {
				maxLength = v.Length()
			}
		}

		if maxLength > 0 {
			stats.Insertions++
			for _, t := range tracks {
				if err := c.pad(t, p, maxLength, stats); err != nil {
					return err
				}
			}

			blank := ref.AddBlank(p, maxLength)
			blank.ChainFrom(predecessor(ref), p)
			ref.UpdatePreviousPosition(p)

			if _, err := lengths.Grow(chrom, maxLength); err != nil {
				return err
			}
			stats.LengthAdded += maxLength
		}

		for _, t := range tracks {
			t.UpdatePreviousPosition(p)
		}
	}
	return nil
}

// pad aligns genome track t with an insertion of maxLength at p.
func (c *Compiler) pad(t *track.Track, p, maxLength int64, stats *Stats) error {
	if v := t.CurrentVariant(); v != nil {
		return c.addExtra(t, v, p, maxLength-v.InsertedLength())
	}

	prev := predecessor(t)
	if prev != nil && prev.Kind() == variant.Deletion && p < prev.NextReferenceGenomePosition() {
		// The genome has no base at p: its own deletion spans the anchor, so
		// the deletion's end absorbs the padding.
		return c.addExtra(t, prev, p, maxLength)
	}

	blank := t.AddBlank(p, maxLength)
	blank.ChainFrom(prev, p)
	stats.Blanks++
	return nil
}

func (c *Compiler) addExtra(t *track.Track, v *variant.Variant, p, n int64) error {
	if err := v.AddExtraOffset(n); err != nil {
		return &InvariantViolation{Genome: t.Genome(), Chrom: t.Chrom(), Pos: p, Reason: err.Error()}
	}
	return nil
}

// predecessor returns the entry preceding the current cursor, or nil at the
// first position of the track.
func predecessor(t *track.Track) *variant.Variant {
	if !t.HasPrevious() {
		return nil
	}
	return t.PreviousVariant()
}

// violation panics in strict mode and logs otherwise.
func (c *Compiler) violation(v *InvariantViolation) {
	if c.opts.Strict {
		panic(v)
	}
	c.logger.Warn("dropping variant",
		zap.String("genome", v.Genome),
		zap.String("chrom", v.Chrom),
		zap.Int64("pos", v.Pos),
		zap.String("reason", v.Reason))
}
