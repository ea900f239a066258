// Package metagenome owns the synchronization state of one open project:
// its genomes, chromosome lengths, compiled tracks and viewports. A Context
// replaces process-wide managers; the host creates one per project.
package metagenome

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/compile"
	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/metrics"
	"github.com/inodb/vibe-sync/internal/session"
	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/vcf"
	"github.com/inodb/vibe-sync/internal/viewport"
)

// Associations describes what to synchronize.
type Associations struct {
	// Groups lists genome group names in load order.
	Groups []string
	// Files maps a group to its variant files.
	Files map[string][]string
	// Names maps a group to raw sample name → display name. A group without
	// an entry loads every sample column under its raw name.
	Names map[string]map[string]string
	// Types maps a display name to the variant kinds loaded for it. A genome
	// without an entry loads every kind.
	Types map[string]variant.KindSet
	// Chromosomes fixes the chromosomes and their reference lengths. When
	// empty, the ##contig lines and data lines of the files decide.
	Chromosomes map[string]int64
}

// Option configures a Context.
type Option func(*Context)

// WithWorkers sets the number of chromosomes compiled in parallel.
func WithWorkers(n int) Option {
	return func(c *Context) { c.compileOpts.Workers = n }
}

// WithStrict makes invariant violations panic instead of being skipped.
func WithStrict(strict bool) Option {
	return func(c *Context) { c.compileOpts.Strict = strict }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithMetrics sets the collector compile and viewport activity is recorded on.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Context) { c.metrics = m }
}

// Context is the synchronization state of one project. Queries are safe for
// concurrent use; Synchronize and Restore swap the state atomically.
type Context struct {
	compileOpts compile.Options
	logger      *zap.Logger
	metrics     *metrics.Collector

	mu    sync.RWMutex
	state *state
}

// state is everything one Synchronize or Restore produces.
type state struct {
	lengths   *genome.ChromosomeSet
	genomes   map[string]*genome.Genome // by display name
	tracks    map[string]map[string]*track.Track
	reference map[string]*track.Track
	viewports map[string]map[string]*viewport.Viewport
	registry  *variant.Registry
	headers   map[*vcf.Header]string // header → source path
	files     []session.Fingerprint
	stats     []compile.Stats
}

func newState() *state {
	return &state{
		lengths:   genome.NewChromosomeSet(),
		genomes:   make(map[string]*genome.Genome),
		tracks:    make(map[string]map[string]*track.Track),
		reference: make(map[string]*track.Track),
		viewports: make(map[string]map[string]*viewport.Viewport),
		registry:  variant.NewRegistry(),
		headers:   make(map[*vcf.Header]string),
	}
}

// New creates an empty context.
func New(opts ...Option) *Context {
	c := &Context{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) newCompiler() *compile.Compiler {
	comp := compile.New(c.compileOpts)
	comp.SetLogger(c.logger)
	comp.SetMetrics(c.metrics)
	return comp
}

func (c *Context) current() (*state, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == nil {
		return nil, ErrNotSynchronized
	}
	return c.state, nil
}

func (c *Context) install(st *state) {
	for name, byChrom := range st.tracks {
		st.viewports[name] = make(map[string]*viewport.Viewport, len(byChrom))
		for chrom, t := range byChrom {
			vp := viewport.New(t)
			vp.SetMetrics(c.metrics)
			st.viewports[name][chrom] = vp
		}
	}
	st.viewports[genome.ReferenceName] = make(map[string]*viewport.Viewport, len(st.reference))
	for chrom, t := range st.reference {
		vp := viewport.New(t)
		vp.SetMetrics(c.metrics)
		st.viewports[genome.ReferenceName][chrom] = vp
	}

	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

// trackFor returns the track of name on chrom, creating it if needed.
func (st *state) trackFor(name, chrom string) *track.Track {
	byChrom, ok := st.tracks[name]
	if !ok {
		byChrom = make(map[string]*track.Track)
		st.tracks[name] = byChrom
	}
	t, ok := byChrom[chrom]
	if !ok {
		t = track.New(name, chrom)
		byChrom[chrom] = t
	}
	return t
}

func (st *state) genomeNames() []string {
	names := make([]string, 0, len(st.genomes))
	for name := range st.genomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
