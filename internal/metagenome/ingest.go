package metagenome

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/compile"
	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/session"
	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/vcf"
)

// maxQueryEnd is the largest position a tabix index can address.
const maxQueryEnd = 1<<29 - 1

// Synchronize loads every group's files and compiles all chromosomes.
//
// Loading runs first and holds no lock. A group whose file cannot be opened
// is dropped; a file with a malformed header or data line is skipped. A
// failed range query keeps the lines read before the failure, so the
// affected track may be incomplete. Every such failure is returned in a
// *SyncError once the remaining groups are compiled and installed.
func (c *Context) Synchronize(ctx context.Context, a Associations) error {
	st := newState()
	var errs []error

	for name, length := range a.Chromosomes {
		st.lengths.Add(name, length)
	}

	for _, group := range a.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		g, err := c.ingestGroup(ctx, group, a)
		if err != nil {
			c.logger.Warn("dropping genome group", zap.String("group", group), zap.Error(err))
			errs = append(errs, &GroupError{Group: group, Err: err})
			continue
		}
		errs = append(errs, g.merge(st)...)
	}

	for _, err := range c.compileAll(ctx, st) {
		errs = append(errs, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.install(st)
	c.logger.Info("synchronized project",
		zap.Int("genomes", len(st.genomes)),
		zap.Int("chromosomes", len(st.lengths.Names())),
		zap.Int("errors", len(errs)))

	if len(errs) > 0 {
		return &SyncError{Errs: errs}
	}
	return nil
}

// groupLoad is the result of reading one group's files.
type groupLoad struct {
	name     string
	genomes  []*genome.Genome
	tracks   map[string]map[string]*track.Track
	registry map[string]variant.KindSet
	headers  map[*vcf.Header]string
	files    []session.Fingerprint
	contigs  map[string]int64 // header contig lengths and furthest line end
	explicit map[string]int64
	errs     []error
}

func (g *groupLoad) track(name, chrom string) *track.Track {
	byChrom, ok := g.tracks[name]
	if !ok {
		byChrom = make(map[string]*track.Track)
		g.tracks[name] = byChrom
	}
	t, ok := byChrom[chrom]
	if !ok {
		t = track.New(name, chrom)
		byChrom[chrom] = t
	}
	return t
}

func (g *groupLoad) extend(chrom string, length int64) {
	if length > g.contigs[chrom] {
		g.contigs[chrom] = length
	}
}

// merge moves the group into st. A genome already loaded by an earlier
// group keeps its first definition; the clash is reported.
func (g *groupLoad) merge(st *state) []error {
	errs := g.errs
	for _, gn := range g.genomes {
		if prev, dup := st.genomes[gn.Name()]; dup {
			errs = append(errs, &GroupError{Group: g.name,
				Err: fmt.Errorf("genome %s already defined by group %s", gn.Name(), prev.Group)})
			delete(g.tracks, gn.Name())
			delete(g.registry, gn.Name())
			continue
		}
		st.genomes[gn.Name()] = gn
	}
	for name, byChrom := range g.tracks {
		if _, ok := st.tracks[name]; !ok {
			st.tracks[name] = byChrom
		}
	}
	for name, kinds := range g.registry {
		for _, k := range kinds.Kinds() {
			st.registry.Record(name, k)
		}
	}
	for h, path := range g.headers {
		st.headers[h] = path
	}
	st.files = append(st.files, g.files...)

	for chrom, length := range g.contigs {
		if len(g.explicit) > 0 {
			if _, ok := g.explicit[chrom]; !ok {
				continue
			}
			// Fixed lengths only grow to cover lines past their end.
			if length <= g.explicit[chrom] {
				continue
			}
		}
		st.lengths.Add(chrom, length)
	}
	return errs
}

// ingestGroup reads every file of group. It returns an error only when the
// whole group must be dropped.
func (c *Context) ingestGroup(ctx context.Context, group string, a Associations) (*groupLoad, error) {
	g := &groupLoad{
		name:     group,
		tracks:   make(map[string]map[string]*track.Track),
		registry: make(map[string]variant.KindSet),
		headers:  make(map[*vcf.Header]string),
		contigs:  make(map[string]int64),
		explicit: a.Chromosomes,
	}
	seen := make(map[string]bool)

	for _, path := range a.Files[group] {
		r, err := vcf.Open(path)
		if err != nil {
			var openErr *vcf.FileOpenError
			if errors.As(err, &openErr) {
				return nil, err
			}
			c.logger.Warn("skipping variant file", zap.String("group", group), zap.String("path", path), zap.Error(err))
			g.errs = append(g.errs, &GroupError{Group: group, Err: err})
			continue
		}
		if fp, err := session.StatFile(path); err == nil {
			g.files = append(g.files, fp)
		}

		names := a.Names[group]
		if len(names) == 0 {
			names = make(map[string]string)
			for _, raw := range r.RawSampleNames() {
				names[raw] = raw
			}
		}
		for _, raw := range r.RawSampleNames() {
			display, ok := names[raw]
			if !ok || seen[raw] {
				continue
			}
			seen[raw] = true
			g.genomes = append(g.genomes, &genome.Genome{RawName: raw, DisplayName: display, Group: group})
		}

		err = c.ingestFile(ctx, g, r, names, a)
		r.Close()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var rqe *vcf.RangeQueryError
			if !errors.As(err, &rqe) {
				return nil, err
			}
			c.logger.Warn("range query failed, keeping partial results",
				zap.String("group", group), zap.String("path", path), zap.Error(err))
			g.errs = append(g.errs, &GroupError{Group: group, Err: err})
		}
	}

	for raw, display := range a.Names[group] {
		if !seen[raw] {
			c.logger.Warn("sample not found in group files",
				zap.String("group", group), zap.String("sample", raw), zap.String("genome", display))
		}
	}
	sort.Slice(g.genomes, func(i, j int) bool { return g.genomes[i].Name() < g.genomes[j].Name() })
	return g, nil
}

// ingestFile reads every chromosome of r into g's tracks. One Record is
// built per line and shared by every genome carrying an alternate allele.
func (c *Context) ingestFile(ctx context.Context, g *groupLoad, r vcf.Reader, names map[string]string, a Associations) error {
	h := r.Header()
	g.headers[h] = r.Path()
	for _, contig := range h.Contigs {
		g.extend(contig.ID, contig.Length)
	}

	chroms := slices.Clone(r.Chromosomes())
	if len(a.Chromosomes) > 0 {
		chroms = chroms[:0]
		for name := range a.Chromosomes {
			chroms = append(chroms, name)
		}
	}
	sort.Strings(chroms)

	samples := r.RawSampleNames()
	for _, chrom := range chroms {
		lines, err := r.Query(ctx, chrom, 1, maxQueryEnd)
		for _, fields := range lines {
			rec := variant.NewRecord(fields, h)
			g.extend(chrom, rec.Pos+int64(len(rec.Ref))-1)
			for _, raw := range samples {
				display, ok := names[raw]
				if !ok {
					continue
				}
				c.addAlleles(g, rec, raw, display, a.Types)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) addAlleles(g *groupLoad, rec *variant.Record, raw, display string, types map[string]variant.KindSet) {
	for _, allele := range variant.SampleGenotype(rec, raw).Alleles() {
		kind, length, ok := variant.Classify(rec, allele)
		if !ok {
			continue
		}
		if allowed, filtered := types[display]; filtered && !allowed.Has(kind) {
			continue
		}
		v, err := variant.New(kind, length, rec, raw, allele)
		if err != nil {
			c.logger.Warn("skipping variant", zap.String("genome", display),
				zap.String("chrom", rec.Chrom), zap.Int64("pos", rec.Pos), zap.Error(err))
			continue
		}
		g.registry[display] = g.registry[display].Add(kind)
		g.track(display, rec.Chrom).AddVariant(rec.Pos, v)
	}
}

// compileAll gives every genome a track on every chromosome, adds the
// reference tracks and compiles all chromosomes in parallel.
func (c *Context) compileAll(ctx context.Context, st *state) []error {
	chroms := genome.SortedNames(st.lengths.Names())
	jobs := make([]compile.Job, 0, len(chroms))
	for i, chrom := range chroms {
		tracks := make(map[string]*track.Track, len(st.genomes))
		for _, name := range st.genomeNames() {
			tracks[name] = st.trackFor(name, chrom)
		}
		ref := track.New(genome.ReferenceName, chrom)
		st.reference[chrom] = ref
		jobs = append(jobs, compile.Job{Seq: i, Chrom: chrom, Tracks: tracks, Reference: ref})
	}

	// Tracks on chromosomes with no known length cannot be compiled.
	for name, byChrom := range st.tracks {
		for chrom := range byChrom {
			if _, ok := st.lengths.Get(chrom); !ok {
				c.logger.Warn("dropping track on unknown chromosome", zap.String("genome", name), zap.String("chrom", chrom))
				delete(byChrom, chrom)
			}
		}
	}

	var errs []error
	_ = compile.OrderedCollect(c.newCompiler().CompileAll(ctx, jobs, st.lengths), func(r compile.Result) error {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("compile chromosome %s: %w", r.Chrom, r.Err))
			return nil
		}
		st.stats = append(st.stats, r.Stats)
		return nil
	})
	return errs
}
