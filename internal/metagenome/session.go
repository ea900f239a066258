package metagenome

import (
	"fmt"
	"sort"

	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/session"
	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/vcf"
)

// Snapshot captures the synchronized state for persistence.
func (c *Context) Snapshot() (*session.Snapshot, error) {
	st, err := c.current()
	if err != nil {
		return nil, err
	}

	snap := session.New()
	for _, chrom := range genome.SortedNames(st.lengths.Names()) {
		snap.Chromosomes = append(snap.Chromosomes, session.Chromosome{Name: chrom, Length: st.lengths.Length(chrom)})
	}
	for _, name := range st.genomeNames() {
		g := st.genomes[name]
		snap.Genomes = append(snap.Genomes, session.Genome{RawName: g.RawName, DisplayName: g.DisplayName, Group: g.Group})
	}

	headers := make([]*vcf.Header, 0, len(st.headers))
	for h := range st.headers {
		headers = append(headers, h)
	}
	sort.Slice(headers, func(i, j int) bool { return st.headers[headers[i]] < st.headers[headers[j]] })
	for _, h := range headers {
		snap.AddHeader(st.headers[h], h)
	}
	snap.Files = append(snap.Files, st.files...)

	for _, chrom := range genome.SortedNames(st.lengths.Names()) {
		for _, name := range st.genomeNames() {
			if t, ok := st.tracks[name][chrom]; ok {
				snap.AddTrack(t)
			}
		}
		if ref, ok := st.reference[chrom]; ok {
			snap.AddTrack(ref)
		}
	}
	return snap, nil
}

// Restore replaces the context state with snap. No variant file is read.
func (c *Context) Restore(snap *session.Snapshot) error {
	tracks, err := snap.Rebuild()
	if err != nil {
		return err
	}

	st := newState()
	for _, ch := range snap.Chromosomes {
		st.lengths.Add(ch.Name, ch.Length)
	}
	for _, g := range snap.Genomes {
		gn := &genome.Genome{RawName: g.RawName, DisplayName: g.DisplayName, Group: g.Group}
		st.genomes[gn.Name()] = gn
	}
	st.files = append(st.files, snap.Files...)

	for _, t := range tracks {
		if _, ok := st.lengths.Get(t.Chrom()); !ok {
			return fmt.Errorf("restore %s: %w: %s", t.Genome(), ErrUnknownChromosome, t.Chrom())
		}
		if t.Genome() == genome.ReferenceName {
			st.reference[t.Chrom()] = t
			continue
		}
		if _, ok := st.genomes[t.Genome()]; !ok {
			return fmt.Errorf("restore track: %w: %s", ErrUnknownGenome, t.Genome())
		}
		if st.tracks[t.Genome()] == nil {
			st.tracks[t.Genome()] = make(map[string]*track.Track)
		}
		st.tracks[t.Genome()][t.Chrom()] = t
		recordKinds(st.registry, t)
	}
	for _, chrom := range st.lengths.Names() {
		if _, ok := st.reference[chrom]; !ok {
			st.reference[chrom] = track.New(genome.ReferenceName, chrom)
		}
		for name := range st.genomes {
			st.trackFor(name, chrom)
		}
	}

	c.install(st)
	return nil
}

// recordKinds notes the file kinds present on t, hidden SNPs included.
func recordKinds(r *variant.Registry, t *track.Track) {
	for _, v := range t.Variants() {
		if v.Record() != nil {
			r.Record(t.Genome(), v.Kind())
		}
	}
	if len(t.DisabledPositions()) > 0 {
		r.Record(t.Genome(), variant.SNP)
	}
}
