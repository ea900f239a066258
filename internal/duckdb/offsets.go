package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/variant"
)

// OffsetRow is one exported track entry.
type OffsetRow struct {
	Genome            string
	Chrom             string
	Pos               int64
	Kind              variant.Kind
	Length            int64
	GenomePosition    int64
	ReferencePosition int64
	MetaPosition      int64
	ReferenceOffset   int64
	MetaOffset        int64
	ExtraOffset       int64
	Ref               string
	Alt               string
}

// Rows returns the visible entries of t in position order.
func Rows(t *track.Track) []OffsetRow {
	var rows []OffsetRow
	t.View(func(t *track.Track) {
		for i := 0; ; i++ {
			pos, v, ok := t.AtIndex(i)
			if !ok {
				break
			}
			rows = append(rows, OffsetRow{
				Genome:            t.Genome(),
				Chrom:             t.Chrom(),
				Pos:               pos,
				Kind:              v.Kind(),
				Length:            v.Length(),
				GenomePosition:    v.GenomePosition(),
				ReferencePosition: v.ReferenceGenomePosition(),
				MetaPosition:      v.MetaGenomePosition(),
				ReferenceOffset:   v.InitialReferenceOffset(),
				MetaOffset:        v.InitialMetaGenomeOffset(),
				ExtraOffset:       v.ExtraOffset(),
				Ref:               v.Ref(),
				Alt:               v.Alt(),
			})
		}
	})
	return rows
}

// WriteTracks batch-inserts the entries of tracks using the Appender API.
// Existing rows of the same (genome, chrom) pairs are replaced. It returns
// the number of rows written.
func (s *Store) WriteTracks(tracks []*track.Track) (int, error) {
	if len(tracks) == 0 {
		return 0, nil
	}

	for _, t := range tracks {
		if _, err := s.db.Exec("DELETE FROM variant_offsets WHERE genome=? AND chrom=?", t.Genome(), t.Chrom()); err != nil {
			return 0, fmt.Errorf("clear %s:%s: %w", t.Genome(), t.Chrom(), err)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "variant_offsets")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	n := 0
	for _, t := range tracks {
		for _, r := range Rows(t) {
			if err := appender.AppendRow(
				r.Genome, r.Chrom, r.Pos, r.Kind.String(), r.Length,
				r.GenomePosition, r.ReferencePosition, r.MetaPosition,
				r.ReferenceOffset, r.MetaOffset, r.ExtraOffset,
				r.Ref, r.Alt,
			); err != nil {
				return n, fmt.Errorf("append offset row: %w", err)
			}
			n++
		}
	}

	return n, appender.Flush()
}

// WriteChromosomes records the compiled chromosome lengths.
func (s *Store) WriteChromosomes(lengths map[string]int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for name, length := range lengths {
		if _, err := tx.Exec(`INSERT INTO chromosomes(name, length) VALUES (?, ?)
			ON CONFLICT (name) DO UPDATE SET length = excluded.length`, name, length); err != nil {
			return fmt.Errorf("write chromosome %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// ChromosomeLength returns the exported length of chrom.
func (s *Store) ChromosomeLength(chrom string) (int64, bool, error) {
	var length int64
	err := s.db.QueryRow("SELECT length FROM chromosomes WHERE name=?", chrom).Scan(&length)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query chromosome: %w", err)
	}
	return length, true, nil
}

// Clear removes every exported row.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM variant_offsets"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM chromosomes")
	return err
}

// LookupVariant returns the exported entry of genome at reference position
// pos on chrom, or nil if there is none.
func (s *Store) LookupVariant(genome, chrom string, pos int64) (*OffsetRow, error) {
	rows, err := s.db.Query(`SELECT
		genome, chrom, pos, kind, length,
		genome_pos, ref_pos, meta_pos,
		ref_offset, meta_offset, extra_offset,
		ref, alt
		FROM variant_offsets
		WHERE genome=? AND chrom=? AND pos=?`,
		genome, chrom, pos)
	if err != nil {
		return nil, fmt.Errorf("query variant: %w", err)
	}
	defer rows.Close()

	out, err := scanOffsetRows(rows)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

// MetaRange returns the entries of every genome on chrom whose meta-genome
// position lies in [start, stop], ordered by meta position then genome.
func (s *Store) MetaRange(chrom string, start, stop int64) ([]OffsetRow, error) {
	rows, err := s.db.Query(`SELECT
		genome, chrom, pos, kind, length,
		genome_pos, ref_pos, meta_pos,
		ref_offset, meta_offset, extra_offset,
		ref, alt
		FROM variant_offsets
		WHERE chrom=? AND meta_pos BETWEEN ? AND ?
		ORDER BY meta_pos, genome`, chrom, start, stop)
	if err != nil {
		return nil, fmt.Errorf("query meta range: %w", err)
	}
	defer rows.Close()

	return scanOffsetRows(rows)
}

// CountByKind counts the exported entries on chrom per kind.
func (s *Store) CountByKind(chrom string) (map[variant.Kind]int, error) {
	rows, err := s.db.Query("SELECT kind, count(*) FROM variant_offsets WHERE chrom=? GROUP BY kind", chrom)
	if err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[variant.Kind]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		k, err := variant.ParseKind(name)
		if err != nil {
			return nil, err
		}
		counts[k] = n
	}
	return counts, rows.Err()
}

// Genomes returns the distinct genome names in the export, sorted.
func (s *Store) Genomes() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT genome FROM variant_offsets")
	if err != nil {
		return nil, fmt.Errorf("query genomes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}

// scanOffsetRows scans rows into OffsetRow slices.
func scanOffsetRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]OffsetRow, error) {
	var out []OffsetRow
	for rows.Next() {
		var r OffsetRow
		var kind string
		if err := rows.Scan(
			&r.Genome, &r.Chrom, &r.Pos, &kind, &r.Length,
			&r.GenomePosition, &r.ReferencePosition, &r.MetaPosition,
			&r.ReferenceOffset, &r.MetaOffset, &r.ExtraOffset,
			&r.Ref, &r.Alt,
		); err != nil {
			return nil, fmt.Errorf("scan offset row: %w", err)
		}
		k, err := variant.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		r.Kind = k
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offset rows: %w", err)
	}
	return out, nil
}
