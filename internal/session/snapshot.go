// Package session saves and restores compiled synchronization state.
// A Snapshot holds chromosome lengths, every track entry with its offsets,
// and the header and line payloads the entries point to, each stored once.
package session

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/vcf"
)

// ErrNotFound is returned when a named session does not exist in a store.
var ErrNotFound = errors.New("session not found")

// Snapshot is the persisted state of a synchronized project.
type Snapshot struct {
	ID          string
	CreatedAt   time.Time
	Chromosomes []Chromosome
	Genomes     []Genome
	Headers     []Header
	Records     []Record
	Tracks      []Track
	Files       []Fingerprint

	records map[*variant.Record]int
	headers map[*vcf.Header]int
}

// Chromosome is a chromosome name and its compiled length.
type Chromosome struct {
	Name   string
	Length int64
}

// Genome is a persisted sample identity.
type Genome struct {
	RawName     string
	DisplayName string
	Group       string
}

// Header holds the raw header lines of one variant file.
type Header struct {
	Path  string
	Lines []string
}

// Record is one variant file line. Header indexes Snapshot.Headers, -1
// when the line has no header.
type Record struct {
	Header int
	Fields map[string]string
}

// Track is the persisted content of one (genome, chromosome) track.
type Track struct {
	Genome      string
	Chrom       string
	SNPsEnabled bool
	Entries     []Entry
}

// Entry is one track entry with its offsets. Record indexes
// Snapshot.Records and is -1 for blanks.
type Entry struct {
	Pos              int64
	Kind             variant.Kind
	Length           int64
	Sample           string
	Allele           int
	Record           int
	GenomePosition   int64
	ReferenceOffset  int64
	MetaGenomeOffset int64
	ExtraOffset      int64
}

// New creates an empty snapshot with a fresh id.
func New() *Snapshot {
	return &Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// AddHeader registers the header of the file at path so records can refer
// to it. Registering the same header twice is a no-op.
func (s *Snapshot) AddHeader(path string, h *vcf.Header) int {
	if h == nil {
		return -1
	}
	if s.headers == nil {
		s.headers = make(map[*vcf.Header]int)
	}
	if i, ok := s.headers[h]; ok {
		return i
	}
	s.headers[h] = len(s.Headers)
	s.Headers = append(s.Headers, Header{Path: path, Lines: slices.Clone(h.Lines)})
	return s.headers[h]
}

func (s *Snapshot) addRecord(r *variant.Record) int {
	if r == nil {
		return -1
	}
	if s.records == nil {
		s.records = make(map[*variant.Record]int)
	}
	if i, ok := s.records[r]; ok {
		return i
	}
	h := s.AddHeader("", r.Header)
	s.records[r] = len(s.Records)
	s.Records = append(s.Records, Record{Header: h, Fields: r.Fields})
	return s.records[r]
}

// AddTrack captures t. Hidden SNPs are stored in place of the blanks that
// stand in for them, and the track's SNP toggle state is kept.
func (s *Snapshot) AddTrack(t *track.Track) {
	t.View(func(t *track.Track) {
		positions := t.Positions()
		for _, pos := range t.DisabledPositions() {
			if _, ok := t.At(pos); !ok {
				positions = append(positions, pos)
			}
		}
		slices.Sort(positions)

		out := Track{Genome: t.Genome(), Chrom: t.Chrom(), SNPsEnabled: t.SNPsEnabled()}
		for _, pos := range positions {
			v, hidden := t.DisabledSNP(pos)
			if !hidden {
				v, _ = t.At(pos)
			}
			out.Entries = append(out.Entries, Entry{
				Pos:              pos,
				Kind:             v.Kind(),
				Length:           v.Length(),
				Sample:           v.Sample(),
				Allele:           v.Allele(),
				Record:           s.addRecord(v.Record()),
				GenomePosition:   v.GenomePosition(),
				ReferenceOffset:  v.InitialReferenceOffset(),
				MetaGenomeOffset: v.InitialMetaGenomeOffset(),
				ExtraOffset:      v.ExtraOffset(),
			})
		}
		s.Tracks = append(s.Tracks, out)
	})
}

// Rebuild reconstructs every track. Records are shared between entries
// exactly as they were when captured.
func (s *Snapshot) Rebuild() ([]*track.Track, error) {
	headers := make([]*vcf.Header, len(s.Headers))
	for i, h := range s.Headers {
		parsed, err := vcf.ParseHeaderLines(h.Lines)
		if err != nil {
			return nil, fmt.Errorf("restore header %d (%s): %w", i, h.Path, err)
		}
		headers[i] = parsed
	}

	records := make([]*variant.Record, len(s.Records))
	for i, r := range s.Records {
		var h *vcf.Header
		switch {
		case r.Header >= 0 && r.Header < len(headers):
			h = headers[r.Header]
		case r.Header != -1:
			return nil, fmt.Errorf("restore record %d: header index %d out of range", i, r.Header)
		}
		records[i] = variant.NewRecord(vcf.FieldMap(r.Fields), h)
	}

	tracks := make([]*track.Track, 0, len(s.Tracks))
	for _, ts := range s.Tracks {
		t := track.New(ts.Genome, ts.Chrom)
		for _, e := range ts.Entries {
			var rec *variant.Record
			if e.Record >= 0 {
				if e.Record >= len(records) {
					return nil, fmt.Errorf("restore %s:%s@%d: record index %d out of range", ts.Genome, ts.Chrom, e.Pos, e.Record)
				}
				rec = records[e.Record]
			}
			t.AddVariant(e.Pos, variant.Restore(e.Kind, e.Length, ts.Chrom, rec, e.Sample, e.Allele,
				e.GenomePosition, e.ReferenceOffset, e.MetaGenomeOffset, e.ExtraOffset))
		}
		t.RebuildIndex()
		if !ts.SNPsEnabled {
			t.SetSNPsEnabled(false)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// Encode writes s in gob format.
func Encode(w io.Writer, s *Snapshot) error {
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return nil
}

// Decode reads a gob-encoded snapshot.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
