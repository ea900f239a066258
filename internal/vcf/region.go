package vcf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Region is a 1-based inclusive chromosome interval.
type Region struct {
	Chrom string
	Start int64
	End   int64
}

// WholeChromosome returns the region spanning every position of chrom.
func WholeChromosome(chrom string) Region {
	return Region{Chrom: chrom, Start: 1, End: math.MaxInt32}
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Start, r.End)
}

// Contains reports whether pos lies inside the region.
func (r Region) Contains(pos int64) bool {
	return pos >= r.Start && pos <= r.End
}

// ParseRegion parses "chrom", "chrom:start" or "chrom:start-end".
// Thousands separators in positions are accepted.
func ParseRegion(s string) (Region, error) {
	chrom, span, hasSpan := strings.Cut(strings.TrimSpace(s), ":")
	if chrom == "" {
		return Region{}, fmt.Errorf("region %q: missing chromosome", s)
	}
	if !hasSpan {
		return WholeChromosome(chrom), nil
	}

	startStr, endStr, hasEnd := strings.Cut(span, "-")
	start, err := parsePosition(startStr)
	if err != nil {
		return Region{}, fmt.Errorf("region %q: start: %w", s, err)
	}
	r := Region{Chrom: chrom, Start: start, End: math.MaxInt32}
	if hasEnd {
		end, err := parsePosition(endStr)
		if err != nil {
			return Region{}, fmt.Errorf("region %q: end: %w", s, err)
		}
		r.End = end
	}
	if r.End < r.Start {
		return Region{}, fmt.Errorf("region %q: end before start", s)
	}
	return r, nil
}

func parsePosition(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("position %d is not 1-based", n)
	}
	return n, nil
}
