// Package vcf provides indexed VCF file access: header parsing, typed
// INFO/FORMAT decoding and range queries returning raw field maps.
package vcf

import "context"

// FieldMap holds the raw columns of one data line keyed by column name:
// CHROM, POS, ID, REF, ALT, QUAL, FILTER, INFO, FORMAT and one key per sample.
type FieldMap map[string]string

// Reader is the interface for indexed variant files.
// Both tabix-indexed and in-memory readers implement this interface.
type Reader interface {
	// Path returns the file the reader was opened from.
	Path() string

	// Header returns the parsed file header.
	Header() *Header

	// Query returns the lines on chrom whose POS lies in [start, end].
	// Query may block on I/O.
	Query(ctx context.Context, chrom string, start, end int64) ([]FieldMap, error)

	// Chromosomes returns the chromosome names present in the file.
	Chromosomes() []string

	// ColumnNames returns every column name of the #CHROM line.
	ColumnNames() []string

	// RawSampleNames returns the sorted sample column names.
	RawSampleNames() []string

	// Close closes the reader and releases resources.
	Close() error
}
