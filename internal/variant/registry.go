package variant

import "sync"

// Registry records, per genome, the set of variant kinds seen in its files.
// It answers whether a genome/file pairing can serve a query for a kind.
type Registry struct {
	mu   sync.RWMutex
	seen map[string]KindSet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]KindSet)}
}

// Record notes that genome has at least one variant of kind k.
func (r *Registry) Record(genome string, k Kind) {
	r.mu.Lock()
	r.seen[genome] = r.seen[genome].Add(k)
	r.mu.Unlock()
}

// CanManage reports whether genome has variants of kind k.
func (r *Registry) CanManage(genome string, k Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seen[genome].Has(k)
}

// Kinds returns the set of kinds seen for genome.
func (r *Registry) Kinds(genome string) KindSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seen[genome]
}
