package vcf

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Open opens a variant file. A BGZF file with a sibling .tbi index is served
// by a TabixReader; any other (plain or gzipped) VCF is loaded into a
// MemoryReader.
func Open(path string) (Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &FileOpenError{Path: path, Err: err}
	}
	if _, err := os.Stat(path + ".tbi"); err == nil {
		return OpenTabix(path)
	}
	return OpenMemory(path)
}

// MemoryReader holds every data line of a VCF file, sorted by position per
// chromosome, and answers range queries by binary search.
type MemoryReader struct {
	path   string
	header *Header
	chroms []string
	lines  map[string][]memoryLine

	samplesOnce sync.Once
	samples     []string
}

type memoryLine struct {
	pos    int64
	fields FieldMap
}

// OpenMemory reads a plain or gzipped VCF file into memory.
func OpenMemory(path string) (*MemoryReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &FileOpenError{Path: path, Err: err}
	}
	defer file.Close()

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return nil, &FileOpenError{Path: path, Err: fmt.Errorf("read vcf header: %w", err)}
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, &FileOpenError{Path: path, Err: fmt.Errorf("seek vcf file: %w", err)}
	}

	var r io.Reader = file
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, &FileOpenError{Path: path, Err: fmt.Errorf("create gzip reader: %w", err)}
		}
		defer gz.Close()
		r = gz
	}

	m, err := NewMemoryReader(r)
	if err != nil {
		var hpe *HeaderParseError
		if errors.As(err, &hpe) {
			hpe.Path = path
		}
		return nil, err
	}
	m.path = path
	return m, nil
}

// NewMemoryReader parses a VCF stream (e.g., stdin) into memory.
func NewMemoryReader(r io.Reader) (*MemoryReader, error) {
	br := bufio.NewReader(r)
	header, lineNumber, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	m := &MemoryReader{
		path:   "-",
		header: header,
		lines:  make(map[string][]memoryLine),
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		if line == "" && err == io.EOF {
			break
		}
		lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			fields, pos, perr := splitLine(header.Columns, line, lineNumber)
			if perr != nil {
				return nil, perr
			}
			chrom := fields["CHROM"]
			if _, seen := m.lines[chrom]; !seen {
				m.chroms = append(m.chroms, chrom)
			}
			m.lines[chrom] = append(m.lines[chrom], memoryLine{pos: pos, fields: fields})
		}
		if err == io.EOF {
			break
		}
	}

	for _, lines := range m.lines {
		sort.SliceStable(lines, func(i, j int) bool { return lines[i].pos < lines[j].pos })
	}
	return m, nil
}

// readHeader reads and parses VCF header lines up to and including #CHROM.
func readHeader(br *bufio.Reader) (*Header, int, error) {
	var lines []string
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, len(lines), fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			lines = append(lines, line)
			if !strings.HasPrefix(line, "#") || strings.HasPrefix(line, "#CHROM") {
				break
			}
		}
		if err == io.EOF {
			break
		}
	}
	h, err := ParseHeaderLines(lines)
	return h, len(lines), err
}

// splitLine parses a single VCF data line into a FieldMap keyed by column name.
func splitLine(columns []string, line string, lineNumber int) (FieldMap, int64, error) {
	values := strings.Split(line, "\t")
	if len(values) < 8 {
		return nil, 0, &ParseError{
			Line:    lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(values)),
		}
	}
	pos, err := strconv.ParseInt(values[1], 10, 64)
	if err != nil {
		return nil, 0, &ParseError{
			Line:    lineNumber,
			Message: fmt.Sprintf("invalid position: %s", values[1]),
		}
	}

	fields := make(FieldMap, len(columns))
	for i, v := range values {
		if i >= len(columns) {
			break
		}
		fields[columns[i]] = v
	}
	return fields, pos, nil
}

// Path returns the file the reader was opened from ("-" for streams).
func (m *MemoryReader) Path() string { return m.path }

// Header returns the VCF header.
func (m *MemoryReader) Header() *Header { return m.header }

// Chromosomes returns chromosome names in file order.
func (m *MemoryReader) Chromosomes() []string { return m.chroms }

// ColumnNames returns every column of the #CHROM line.
func (m *MemoryReader) ColumnNames() []string { return m.header.Columns }

// RawSampleNames returns the sorted sample names. The result is cached.
func (m *MemoryReader) RawSampleNames() []string {
	m.samplesOnce.Do(func() {
		m.samples = sortedSamples(m.header)
	})
	return m.samples
}

// Query returns lines on chrom with start <= POS <= end.
func (m *MemoryReader) Query(ctx context.Context, chrom string, start, end int64) ([]FieldMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RangeQueryError{Path: m.path, Region: Region{chrom, start, end}, Err: err}
	}
	lines := m.lines[chrom]
	lo := sort.Search(len(lines), func(i int) bool { return lines[i].pos >= start })
	var result []FieldMap
	for i := lo; i < len(lines) && lines[i].pos <= end; i++ {
		result = append(result, lines[i].fields)
	}
	return result, nil
}

// Close releases the loaded lines.
func (m *MemoryReader) Close() error {
	m.lines = nil
	return nil
}

func sortedSamples(h *Header) []string {
	names := append([]string(nil), h.SampleNames()...)
	sort.Strings(names)
	return names
}
