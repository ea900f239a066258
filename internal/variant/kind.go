// Package variant implements the per-variant offset model linking a genome's
// own coordinates to the reference and meta-genome coordinate lines.
package variant

import (
	"fmt"
	"strings"
)

// Kind is the type of a variant event.
type Kind uint8

// Variant kinds. Blank is a synthetic placeholder and Mix only tags merged
// display intervals; neither is ever read from a file.
const (
	SNP Kind = iota
	Insertion
	Deletion
	Structural
	Blank
	Mix
)

// FileKinds are the kinds that can be read from a variant file.
var FileKinds = []Kind{SNP, Insertion, Deletion, Structural}

func (k Kind) String() string {
	switch k {
	case SNP:
		return "SNP"
	case Insertion:
		return "INSERTION"
	case Deletion:
		return "DELETION"
	case Structural:
		return "STRUCTURAL"
	case Blank:
		return "BLANK"
	case Mix:
		return "MIX"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind parses a kind name. Short forms (INS, DEL, SV) are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SNP", "SNV":
		return SNP, nil
	case "INSERTION", "INS":
		return Insertion, nil
	case "DELETION", "DEL":
		return Deletion, nil
	case "STRUCTURAL", "SV":
		return Structural, nil
	case "BLANK":
		return Blank, nil
	case "MIX":
		return Mix, nil
	}
	return 0, fmt.Errorf("unknown variant kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Shifting reports whether variants of this kind move the own-genome or
// meta-genome coordinate lines relative to the reference.
func (k Kind) Shifting() bool {
	return k == Insertion || k == Deletion || k == Blank
}

// KindSet is a set of kinds.
type KindSet uint8

// NewKindSet returns a set holding kinds.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.Add(k)
	}
	return s
}

// AllFileKinds is the set of every kind a file can hold.
var AllFileKinds = NewKindSet(FileKinds...)

// Add returns s with k added.
func (s KindSet) Add(k Kind) KindSet { return s | 1<<k }

// Remove returns s without k.
func (s KindSet) Remove(k Kind) KindSet { return s &^ (1 << k) }

// Has reports whether k is in s.
func (s KindSet) Has(k Kind) bool { return s&(1<<k) != 0 }

// Kinds returns the members of s in kind order.
func (s KindSet) Kinds() []Kind {
	var out []Kind
	for k := SNP; k <= Mix; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s KindSet) String() string {
	names := make([]string, 0, 4)
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
