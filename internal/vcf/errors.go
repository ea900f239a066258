package vcf

import "fmt"

// FileOpenError reports a missing or unreadable variant file.
type FileOpenError struct {
	Path string
	Err  error
}

func (e *FileOpenError) Error() string {
	return fmt.Sprintf("open variant file %s: %v", e.Path, e.Err)
}

func (e *FileOpenError) Unwrap() error { return e.Err }

// HeaderParseError represents a malformed VCF header with line context.
type HeaderParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *HeaderParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("vcf header error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("vcf header error at line %d: %s", e.Line, e.Message)
}

// ParseError represents an error during VCF data line parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}

// FieldTypeError reports a sub-field value that does not match its declared type.
type FieldTypeError struct {
	ID    string
	Type  ValueType
	Value string
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %s: value %q is not a valid %s", e.ID, e.Value, e.Type)
}

// RangeQueryError reports an I/O failure during a range query.
type RangeQueryError struct {
	Path   string
	Region Region
	Err    error
}

func (e *RangeQueryError) Error() string {
	return fmt.Sprintf("query %s in %s: %v", e.Region, e.Path, e.Err)
}

func (e *RangeQueryError) Unwrap() error { return e.Err }
