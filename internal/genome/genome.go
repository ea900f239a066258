// Package genome models the samples, sample groups and chromosomes of a
// synchronized project.
package genome

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// ReferenceName is the pseudo-genome standing for the reference sequence.
const ReferenceName = "Reference"

// Genome is one logical sample.
type Genome struct {
	RawName     string // column name in the VCF header
	DisplayName string
	Group       string
}

// Name returns the display name, falling back to the raw name.
func (g *Genome) Name() string {
	if g.DisplayName != "" {
		return g.DisplayName
	}
	return g.RawName
}

// Group maps one or more raw sample names to their source files.
type Group struct {
	Name    string
	Files   []string
	Genomes []*Genome
}

// Chromosome is a name with a mutable reference length. The length only grows.
type Chromosome struct {
	Name   string
	length atomic.Int64
}

// Length returns the current length in bases.
func (c *Chromosome) Length() int64 {
	return c.length.Load()
}

// Grow adds n bases and returns the new length. Negative n is ignored.
func (c *Chromosome) Grow(n int64) int64 {
	if n <= 0 {
		return c.length.Load()
	}
	return c.length.Add(n)
}

// ChromosomeSet is the project's chromosome list. Length growth is atomic so
// chromosomes can be compiled concurrently.
type ChromosomeSet struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]*Chromosome
}

// NewChromosomeSet creates an empty chromosome set.
func NewChromosomeSet() *ChromosomeSet {
	return &ChromosomeSet{byName: make(map[string]*Chromosome)}
}

// Add registers chrom with the given initial length. Registering an existing
// chromosome keeps the larger of the two lengths.
func (s *ChromosomeSet) Add(name string, length int64) *Chromosome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.byName[name]; ok {
		if length > c.Length() {
			c.length.Store(length)
		}
		return c
	}
	c := &Chromosome{Name: name}
	c.length.Store(length)
	s.byName[name] = c
	s.order = append(s.order, name)
	return c
}

// Get returns the named chromosome.
func (s *ChromosomeSet) Get(name string) (*Chromosome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byName[name]
	return c, ok
}

// Length returns the length of the named chromosome, or 0 if unknown.
func (s *ChromosomeSet) Length(name string) int64 {
	if c, ok := s.Get(name); ok {
		return c.Length()
	}
	return 0
}

// Grow adds n bases to the named chromosome.
func (s *ChromosomeSet) Grow(name string, n int64) (int64, error) {
	c, ok := s.Get(name)
	if !ok {
		return 0, fmt.Errorf("unknown chromosome %q", name)
	}
	return c.Grow(n), nil
}

// Names returns chromosome names in registration order.
func (s *ChromosomeSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Lengths returns a copy of the name → length map.
func (s *ChromosomeSet) Lengths() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := make(map[string]int64, len(s.byName))
	for name, c := range s.byName {
		m[name] = c.Length()
	}
	return m
}

// SortedNames returns chromosome names in natural order (1, 2, ..., 10, X).
func SortedNames(names []string) []string {
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool { return lessChrom(out[i], out[j]) })
	return out
}

func lessChrom(a, b string) bool {
	na, aNum := chromNumber(a)
	nb, bNum := chromNumber(b)
	switch {
	case aNum && bNum:
		return na < nb
	case aNum:
		return true
	case bNum:
		return false
	default:
		return a < b
	}
}

func chromNumber(name string) (int, bool) {
	if len(name) > 3 && name[:3] == "chr" {
		name = name[3:]
	}
	n := 0
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
