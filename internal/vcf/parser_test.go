package vcf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen_MemoryReader(t *testing.T) {
	testFile := findTestFile(t, "two_samples.vcf")

	r, err := Open(testFile)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	if _, ok := r.(*MemoryReader); !ok {
		t.Fatalf("Expected *MemoryReader for unindexed file, got %T", r)
	}
	if r.Path() != testFile {
		t.Errorf("Expected path %s, got %s", testFile, r.Path())
	}

	chroms := r.Chromosomes()
	if len(chroms) != 2 || chroms[0] != "1" || chroms[1] != "2" {
		t.Errorf("Expected chromosomes [1 2], got %v", chroms)
	}
}

func TestQuery_Range(t *testing.T) {
	r, err := OpenMemory(findTestFile(t, "two_samples.vcf"))
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	tests := []struct {
		name       string
		chrom      string
		start, end int64
		wantPos    []string
	}{
		{"whole chromosome", "1", 1, 1000, []string{"100", "200", "300", "500"}},
		{"inclusive bounds", "1", 200, 300, []string{"200", "300"}},
		{"single position", "1", 500, 500, []string{"500"}},
		{"empty window", "1", 101, 199, nil},
		{"other chromosome", "2", 1, 500, []string{"50"}},
		{"unknown chromosome", "X", 1, 500, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := r.Query(context.Background(), tt.chrom, tt.start, tt.end)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			var got []string
			for _, l := range lines {
				got = append(got, l["POS"])
			}
			if strings.Join(got, ",") != strings.Join(tt.wantPos, ",") {
				t.Errorf("Query(%s:%d-%d) = %v, want %v", tt.chrom, tt.start, tt.end, got, tt.wantPos)
			}
		})
	}
}

func TestQuery_FieldMap(t *testing.T) {
	r, err := OpenMemory(findTestFile(t, "two_samples.vcf"))
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}

	lines, err := r.Query(context.Background(), "1", 100, 100)
	if err != nil || len(lines) != 1 {
		t.Fatalf("Expected one line, got %d (err %v)", len(lines), err)
	}
	line := lines[0]

	for _, key := range FixedColumns {
		if _, ok := line[key]; !ok {
			t.Errorf("Missing fixed column %s", key)
		}
	}
	if line["G1"] != "0|1:12" {
		t.Errorf("Expected G1 column 0|1:12, got %q", line["G1"])
	}
	if line.Pos() != 100 || line.Ref() != "A" || line.Qual() != 50 || !line.Pass() {
		t.Errorf("Unexpected typed accessors: pos=%d ref=%s qual=%v pass=%v", line.Pos(), line.Ref(), line.Qual(), line.Pass())
	}
}

func TestQuery_CancelledContext(t *testing.T) {
	r, err := OpenMemory(findTestFile(t, "two_samples.vcf"))
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Query(ctx, "1", 1, 1000)
	var rqe *RangeQueryError
	if !errors.As(err, &rqe) {
		t.Fatalf("Expected RangeQueryError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected wrapped context.Canceled, got %v", err)
	}
}

func TestSampleNames(t *testing.T) {
	r, err := OpenMemory(findTestFile(t, "two_samples.vcf"))
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}

	cols := r.ColumnNames()
	if len(cols) != 11 || cols[0] != "CHROM" {
		t.Errorf("Unexpected columns: %v", cols)
	}

	names := r.RawSampleNames()
	if strings.Join(names, ",") != "G1,G2" {
		t.Errorf("Expected sorted samples [G1 G2], got %v", names)
	}
	// Cached: the same slice comes back.
	if &r.RawSampleNames()[0] != &names[0] {
		t.Error("Expected cached sample names")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.vcf"))
	var foe *FileOpenError
	if !errors.As(err, &foe) {
		t.Fatalf("Expected FileOpenError, got %v", err)
	}
	if !os.IsNotExist(errors.Unwrap(err)) {
		t.Errorf("Expected not-exist cause, got %v", errors.Unwrap(err))
	}
}

func TestOpen_MissingColumnHeader(t *testing.T) {
	_, err := Open(findTestFile(t, "missing_columns.vcf"))
	var hpe *HeaderParseError
	if !errors.As(err, &hpe) {
		t.Fatalf("Expected HeaderParseError, got %v", err)
	}
	if hpe.Path == "" {
		t.Error("Expected the file path on the header error")
	}
}

func TestNewMemoryReader_Gzip(t *testing.T) {
	src, err := os.ReadFile(findTestFile(t, "single_sample.vcf"))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "single.vcf.gz")
	writeGzip(t, path, src)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open gzipped VCF: %v", err)
	}
	lines, err := r.Query(context.Background(), "1", 1, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Errorf("Expected 2 lines, got %d", len(lines))
	}
}

func TestParseError(t *testing.T) {
	_, err := NewMemoryReader(strings.NewReader("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n1\tabc\t.\tA\tG\t.\t.\t.\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ParseError, got %v", err)
	}

	expected := "vcf parse error at line 2: invalid position: abc"
	if err.Error() != expected {
		t.Errorf("Error message mismatch: got %q, want %q", err.Error(), expected)
	}
}

// findTestFile locates a test file in the testdata directory.
func findTestFile(t *testing.T, name string) string {
	t.Helper()

	// Try different relative paths
	paths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "..", "testdata", name),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	t.Fatalf("Test file not found: %s", name)
	return ""
}
