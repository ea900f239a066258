package vcf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FixedColumns are the mandatory VCF columns preceding the sample columns.
var FixedColumns = []string{"CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT"}

// ValueType is the declared scalar type of an INFO or FORMAT sub-field.
type ValueType uint8

// Declared VCF value types.
const (
	InvalidType ValueType = iota
	Integer
	Float
	Flag
	Character
	String
)

func (t ValueType) String() string {
	switch t {
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Flag:
		return "Flag"
	case Character:
		return "Character"
	case String:
		return "String"
	default:
		return "Invalid"
	}
}

// ParseValueType parses the Type= attribute of a header declaration.
func ParseValueType(s string) ValueType {
	switch s {
	case "Integer":
		return Integer
	case "Float":
		return Float
	case "Flag":
		return Flag
	case "Character":
		return Character
	case "String":
		return String
	default:
		return InvalidType
	}
}

// Special Number= values.
const (
	NumberA   = -1 // one value per alternate allele
	NumberR   = -2 // one value per allele including the reference
	NumberG   = -3 // one value per genotype
	NumberDot = -4 // unknown or unbounded
)

// Section names a header declaration section.
type Section string

// Declaration sections.
const (
	SectionALT    Section = "ALT"
	SectionFILTER Section = "FILTER"
	SectionINFO   Section = "INFO"
	SectionFORMAT Section = "FORMAT"
)

// Declaration is a typed ##ALT, ##FILTER, ##INFO or ##FORMAT header line.
type Declaration struct {
	Section     Section
	ID          string
	Number      int
	Type        ValueType
	Description string
}

// Contig is a ##contig header line.
type Contig struct {
	ID     string
	Length int64
}

// Header holds the parsed header of a VCF file.
type Header struct {
	FileFormat string
	Meta       map[string][]string // free-form ##key=value lines
	Alts       map[string]*Declaration
	Filters    map[string]*Declaration
	Infos      map[string]*Declaration
	Formats    map[string]*Declaration
	Contigs    []Contig
	Columns    []string
	Lines      []string // raw header lines in file order
}

func newHeader() *Header {
	return &Header{
		Meta:    make(map[string][]string),
		Alts:    make(map[string]*Declaration),
		Filters: make(map[string]*Declaration),
		Infos:   make(map[string]*Declaration),
		Formats: make(map[string]*Declaration),
	}
}

// ParseHeaderLines builds a Header from raw header lines. The last line must
// be the #CHROM column line.
func ParseHeaderLines(lines []string) (*Header, error) {
	h := newHeader()
	for i, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		h.Lines = append(h.Lines, line)
		switch {
		case strings.HasPrefix(line, "##"):
			if err := h.addMetaLine(line[2:]); err != nil {
				return nil, &HeaderParseError{Line: i + 1, Message: err.Error()}
			}
		case strings.HasPrefix(line, "#CHROM"):
			h.Columns = strings.Split(line[1:], "\t")
			if len(h.Columns) < 8 {
				return nil, &HeaderParseError{
					Line:    i + 1,
					Message: fmt.Sprintf("expected at least 8 header columns, found %d", len(h.Columns)),
				}
			}
			return h, nil
		default:
			return nil, &HeaderParseError{Line: i + 1, Message: "expected #CHROM header line"}
		}
	}
	return nil, &HeaderParseError{Line: len(lines), Message: "no #CHROM header line found"}
}

func (h *Header) addMetaLine(body string) error {
	key, value, ok := strings.Cut(body, "=")
	if !ok {
		return fmt.Errorf("malformed meta line %q", body)
	}
	if key == "fileformat" {
		h.FileFormat = value
	}
	if !strings.HasPrefix(value, "<") || !strings.HasSuffix(value, ">") {
		h.Meta[key] = append(h.Meta[key], value)
		return nil
	}

	attrs, err := parseStructured(value[1 : len(value)-1])
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	switch Section(key) {
	case SectionALT, SectionFILTER, SectionINFO, SectionFORMAT:
		d, err := newDeclaration(Section(key), attrs)
		if err != nil {
			return err
		}
		switch d.Section {
		case SectionALT:
			h.Alts[d.ID] = d
		case SectionFILTER:
			h.Filters[d.ID] = d
		case SectionINFO:
			h.Infos[d.ID] = d
		case SectionFORMAT:
			h.Formats[d.ID] = d
		}
	default:
		if key == "contig" {
			c := Contig{ID: attrs["ID"]}
			if l, ok := attrs["length"]; ok {
				n, err := strconv.ParseInt(l, 10, 64)
				if err != nil {
					return fmt.Errorf("contig %s: invalid length %q", c.ID, l)
				}
				c.Length = n
			}
			h.Contigs = append(h.Contigs, c)
		}
		h.Meta[key] = append(h.Meta[key], value)
	}
	return nil
}

func newDeclaration(section Section, attrs map[string]string) (*Declaration, error) {
	d := &Declaration{
		Section:     section,
		ID:          attrs["ID"],
		Description: attrs["Description"],
		Number:      1,
		Type:        String,
	}
	if d.ID == "" {
		return nil, fmt.Errorf("%s declaration without ID", section)
	}
	if section == SectionINFO || section == SectionFORMAT {
		d.Type = ParseValueType(attrs["Type"])
		if d.Type == InvalidType {
			return nil, fmt.Errorf("%s %s: invalid Type %q", section, d.ID, attrs["Type"])
		}
		n, err := parseNumber(attrs["Number"])
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", section, d.ID, err)
		}
		d.Number = n
		if d.Type == Flag {
			d.Number = 0
		}
	}
	return d, nil
}

func parseNumber(s string) (int, error) {
	switch s {
	case "A":
		return NumberA, nil
	case "R":
		return NumberR, nil
	case "G":
		return NumberG, nil
	case ".", "":
		return NumberDot, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid Number %q", s)
	}
	return n, nil
}

// parseStructured splits the body of a <...> header value into attributes,
// honouring double-quoted values that may contain commas.
func parseStructured(s string) (map[string]string, error) {
	attrs := make(map[string]string)
	for len(s) > 0 {
		key, rest, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("attribute without value in %q", s)
		}
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(rest, `"`) {
			attrs[key], s, _ = strings.Cut(rest, ",")
			continue
		}
		end := strings.Index(rest[1:], `"`)
		if end < 0 {
			return nil, fmt.Errorf("unterminated quote in %q", rest)
		}
		attrs[key] = rest[1 : end+1]
		s = strings.TrimPrefix(rest[end+2:], ",")
	}
	return attrs, nil
}

// SampleNames returns the raw sample names: every column after FORMAT.
func (h *Header) SampleNames() []string {
	if len(h.Columns) <= len(FixedColumns) {
		return nil
	}
	return h.Columns[len(FixedColumns):]
}

// ContigLength returns the declared length of chrom, or 0 when undeclared.
func (h *Header) ContigLength(chrom string) int64 {
	for _, c := range h.Contigs {
		if c.ID == chrom {
			return c.Length
		}
	}
	return 0
}

// Coerce converts raw to the scalar type declared by d. Multi-valued
// declarations yield []any. The missing value "." yields nil.
func Coerce(d *Declaration, raw string) (any, error) {
	if d.Type == Flag {
		return true, nil
	}
	if raw == "." || raw == "" {
		return nil, nil
	}
	if d.Number == 1 {
		return coerceScalar(d, raw)
	}
	parts := strings.Split(raw, ",")
	values := make([]any, len(parts))
	for i, p := range parts {
		if p == "." {
			continue
		}
		v, err := coerceScalar(d, p)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func coerceScalar(d *Declaration, raw string) (any, error) {
	switch d.Type {
	case Integer:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &FieldTypeError{ID: d.ID, Type: d.Type, Value: raw}
		}
		return n, nil
	case Float:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &FieldTypeError{ID: d.ID, Type: d.Type, Value: raw}
		}
		return f, nil
	case Character:
		if utf8.RuneCountInString(raw) != 1 {
			return nil, &FieldTypeError{ID: d.ID, Type: d.Type, Value: raw}
		}
		r, _ := utf8.DecodeRuneInString(raw)
		return r, nil
	default:
		return raw, nil
	}
}

// DecodeInfo returns the typed value of INFO sub-field id. ok is false when
// id is undeclared or absent from the line.
func (h *Header) DecodeInfo(fields FieldMap, id string) (value any, ok bool, err error) {
	d, declared := h.Infos[id]
	if !declared {
		return nil, false, nil
	}
	raw, present := lookupInfo(fields["INFO"], id)
	if !present {
		return nil, false, nil
	}
	v, err := Coerce(d, raw)
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

// InfoValue is DecodeInfo with type errors mapped to a missing value.
func (h *Header) InfoValue(fields FieldMap, id string) (any, bool) {
	v, ok, err := h.DecodeInfo(fields, id)
	if err != nil {
		return nil, false
	}
	return v, ok
}

// DecodeFormat returns the typed value of FORMAT sub-field id for sample.
func (h *Header) DecodeFormat(fields FieldMap, sample, id string) (value any, ok bool, err error) {
	d, declared := h.Formats[id]
	if !declared {
		return nil, false, nil
	}
	raw, present := LookupFormat(fields["FORMAT"], fields[sample], id)
	if !present {
		return nil, false, nil
	}
	v, err := Coerce(d, raw)
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

// FormatValue is DecodeFormat with type errors mapped to a missing value.
func (h *Header) FormatValue(fields FieldMap, sample, id string) (any, bool) {
	v, ok, err := h.DecodeFormat(fields, sample, id)
	if err != nil {
		return nil, false
	}
	return v, ok
}

func lookupInfo(info, id string) (string, bool) {
	if info == "" || info == "." {
		return "", false
	}
	for _, kv := range strings.Split(info, ";") {
		k, v, hasValue := strings.Cut(kv, "=")
		if k != id {
			continue
		}
		if !hasValue {
			return "", true
		}
		return v, true
	}
	return "", false
}

// LookupFormat returns the raw value of sub-field id within a sample column
// described by the FORMAT column format.
func LookupFormat(format, sampleValue, id string) (string, bool) {
	if format == "" || format == "." || sampleValue == "" {
		return "", false
	}
	keys := strings.Split(format, ":")
	values := strings.Split(sampleValue, ":")
	for i, k := range keys {
		if k != id {
			continue
		}
		if i >= len(values) {
			return "", false
		}
		return values[i], true
	}
	return "", false
}
