package compile

import "fmt"

// InvariantViolation reports input that would break a genome's offset chain,
// such as a variant inside the span of the same genome's earlier deletion.
type InvariantViolation struct {
	Genome string
	Chrom  string
	Pos    int64
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation for %s at %s:%d: %s", e.Genome, e.Chrom, e.Pos, e.Reason)
}
