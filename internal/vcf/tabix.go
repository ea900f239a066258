package vcf

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/tabix"
)

// TabixReader answers range queries against a BGZF-compressed VCF file using
// its tabix (.tbi) index.
type TabixReader struct {
	path   string
	file   *os.File
	bgzf   *bgzf.Reader
	index  *tabix.Index
	header *Header

	// bgzf.Reader seeks on every query and is not safe for concurrent use.
	mu sync.Mutex

	samplesOnce sync.Once
	samples     []string
}

// OpenTabix opens path and its path.tbi index.
func OpenTabix(path string) (*TabixReader, error) {
	idxFile, err := os.Open(path + ".tbi")
	if err != nil {
		return nil, &FileOpenError{Path: path + ".tbi", Err: err}
	}
	defer idxFile.Close()

	gz, err := gzip.NewReader(idxFile)
	if err != nil {
		return nil, &FileOpenError{Path: path + ".tbi", Err: fmt.Errorf("create gzip reader: %w", err)}
	}
	defer gz.Close()

	idx, err := tabix.ReadFrom(gz)
	if err != nil {
		return nil, &FileOpenError{Path: path + ".tbi", Err: fmt.Errorf("read tabix index: %w", err)}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FileOpenError{Path: path, Err: err}
	}
	br, err := bgzf.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, &FileOpenError{Path: path, Err: fmt.Errorf("create bgzf reader: %w", err)}
	}

	header, _, err := readHeader(bufio.NewReader(br))
	if err != nil {
		br.Close()
		f.Close()
		var hpe *HeaderParseError
		if errors.As(err, &hpe) {
			hpe.Path = path
		}
		return nil, err
	}

	return &TabixReader{
		path:   path,
		file:   f,
		bgzf:   br,
		index:  idx,
		header: header,
	}, nil
}

// Path returns the indexed file path.
func (t *TabixReader) Path() string { return t.path }

// Header returns the VCF header.
func (t *TabixReader) Header() *Header { return t.header }

// Chromosomes returns the reference names recorded in the index.
func (t *TabixReader) Chromosomes() []string { return t.index.Names() }

// ColumnNames returns every column of the #CHROM line.
func (t *TabixReader) ColumnNames() []string { return t.header.Columns }

// RawSampleNames returns the sorted sample names. The result is cached.
func (t *TabixReader) RawSampleNames() []string {
	t.samplesOnce.Do(func() {
		t.samples = sortedSamples(t.header)
	})
	return t.samples
}

// Query returns lines on chrom with start <= POS <= end.
func (t *TabixReader) Query(ctx context.Context, chrom string, start, end int64) ([]FieldMap, error) {
	region := Region{Chrom: chrom, Start: start, End: end}
	if err := ctx.Err(); err != nil {
		return nil, &RangeQueryError{Path: t.path, Region: region, Err: err}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// tabix coordinates are 0-based half-open. ErrInvalid means start lies
	// past the last indexed tile of chrom.
	chunks, err := t.index.Chunks(chrom, int(max(start-1, 0)), int(end))
	if errors.Is(err, index.ErrNoReference) || errors.Is(err, index.ErrInvalid) {
		return nil, nil
	}
	if err != nil {
		return nil, &RangeQueryError{Path: t.path, Region: region, Err: err}
	}

	cr, err := index.NewChunkReader(t.bgzf, chunks)
	if err != nil {
		return nil, &RangeQueryError{Path: t.path, Region: region, Err: err}
	}
	defer cr.Close()

	var result []FieldMap
	scanner := bufio.NewScanner(cr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, pos, err := splitLine(t.header.Columns, line, lineNumber)
		if err != nil {
			return result, &RangeQueryError{Path: t.path, Region: region, Err: err}
		}
		if fields["CHROM"] != chrom || pos < start || pos > end {
			continue
		}
		result = append(result, fields)
	}
	if err := scanner.Err(); err != nil {
		return result, &RangeQueryError{Path: t.path, Region: region, Err: err}
	}
	return result, nil
}

// Close closes the BGZF stream and the underlying file.
func (t *TabixReader) Close() error {
	t.bgzf.Close()
	return t.file.Close()
}
