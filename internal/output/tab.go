// Package output provides tab-delimited writers for display intervals,
// synchronized variants and compile statistics.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-sync/internal/compile"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/viewport"
)

// IntervalWriter writes display intervals in tab-delimited format.
type IntervalWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewIntervalWriter creates a new interval writer.
func NewIntervalWriter(w io.Writer) *IntervalWriter {
	return &IntervalWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Genome",
			"Chrom",
			"Start",
			"Stop",
			"Type",
			"Count",
			"Ref_position",
			"Ref",
			"Alt",
		},
	}
}

// WriteHeader writes the header line.
func (iw *IntervalWriter) WriteHeader() error {
	_, err := iw.w.WriteString(strings.Join(iw.columns, "\t") + "\n")
	return err
}

// Write writes a single interval of genome on chrom.
func (iw *IntervalWriter) Write(genome, chrom string, iv viewport.Interval) error {
	// Merged intervals have no single underlying variant.
	refPos, ref, alt := "-", "-", "-"
	if v := iv.Variant; v != nil {
		refPos = strconv.FormatInt(v.ReferenceGenomePosition(), 10)
		ref = dash(v.Ref())
		alt = dash(v.Alt())
	}

	values := []string{
		genome,
		chrom,
		strconv.FormatInt(iv.Start, 10),
		strconv.FormatInt(iv.Stop, 10),
		iv.Kind.String(),
		strconv.Itoa(iv.Count),
		refPos,
		ref,
		alt,
	}

	_, err := iw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (iw *IntervalWriter) Flush() error {
	return iw.w.Flush()
}

// VariantWriter writes one row per track entry with its offsets.
type VariantWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewVariantWriter creates a new variant writer.
func NewVariantWriter(w io.Writer) *VariantWriter {
	return &VariantWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Genome",
			"Location",
			"Type",
			"Length",
			"Genome_position",
			"Ref_position",
			"Meta_position",
			"Ref_offset",
			"Meta_offset",
			"Extra_offset",
			"ID",
			"Ref",
			"Alt",
			"GT",
			"Phased",
		},
	}
}

// WriteHeader writes the header line.
func (vw *VariantWriter) WriteHeader() error {
	_, err := vw.w.WriteString(strings.Join(vw.columns, "\t") + "\n")
	return err
}

// Write writes the entry v of genome at reference position pos.
func (vw *VariantWriter) Write(genome string, pos int64, v *variant.Variant) error {
	a, b := v.GT()
	phased := "-"
	if v.IsPhased() {
		phased = "YES"
	}

	values := []string{
		genome,
		fmt.Sprintf("%s:%d", v.Chrom(), pos),
		v.Kind().String(),
		strconv.FormatInt(v.Length(), 10),
		strconv.FormatInt(v.GenomePosition(), 10),
		strconv.FormatInt(v.ReferenceGenomePosition(), 10),
		strconv.FormatInt(v.MetaGenomePosition(), 10),
		strconv.FormatInt(v.InitialReferenceOffset(), 10),
		strconv.FormatInt(v.InitialMetaGenomeOffset(), 10),
		strconv.FormatInt(v.ExtraOffset(), 10),
		dash(v.ID()),
		dash(v.Ref()),
		dash(v.Alt()),
		formatGT(a, b, v.IsPhased()),
		phased,
	}

	_, err := vw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (vw *VariantWriter) Flush() error {
	return vw.w.Flush()
}

// WriteStats writes one line per compiled chromosome followed by a total.
func WriteStats(w io.Writer, stats []compile.Stats, lengths map[string]int64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#Chrom\tLength\tPositions\tInsertions\tBlanks\tSkipped\tLength_added\tFast_path\n")

	var total compile.Stats
	for _, s := range stats {
		fast := "-"
		if s.FastPath {
			fast = "YES"
		}
		fmt.Fprintf(bw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			s.Chrom, lengths[s.Chrom], s.Positions, s.Insertions, s.Blanks, s.Skipped, s.LengthAdded, fast)
		total.Positions += s.Positions
		total.Insertions += s.Insertions
		total.Blanks += s.Blanks
		total.Skipped += s.Skipped
		total.LengthAdded += s.LengthAdded
	}
	fmt.Fprintf(bw, "Total\t-\t%d\t%d\t%d\t%d\t%d\t-\n",
		total.Positions, total.Insertions, total.Blanks, total.Skipped, total.LengthAdded)
	return bw.Flush()
}

func formatGT(a, b int, phased bool) string {
	sep := "/"
	if phased {
		sep = "|"
	}
	return allele(a) + sep + allele(b)
}

func allele(n int) string {
	if n < 0 {
		return "."
	}
	return strconv.Itoa(n)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
