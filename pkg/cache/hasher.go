package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"watersupply/pkg/domain"
)

// NetworkHash computes a stable hash of a network's topology and
// capacities, for use as a cache key component. Flows are excluded so
// that topologically identical networks share cache entries.
func NetworkHash(n *domain.Network) string {
	if n == nil {
		return ""
	}

	hash := sha256.Sum256(networkCanonical(n))
	return hex.EncodeToString(hash[:16])
}

// networkCanonical builds a deterministic byte representation. Stations
// and pipes come out of the network already sorted by code.
func networkCanonical(n *domain.Network) []byte {
	var buf []byte

	for _, s := range n.Stations() {
		buf = append(buf, fmt.Sprintf("s:%s:%d:%.6f:%.6f;", s.Code, s.Type, s.MaxDelivery, s.Demand)...)
	}

	for _, p := range n.Pipes() {
		bidi := 0
		if p.Bidirectional {
			bidi = 1
		}
		buf = append(buf, fmt.Sprintf("p:%s:%s:%.6f:%d;", p.From, p.To, p.Capacity, bidi)...)
	}

	return buf
}

// BuildSolveKey builds a cache key for a max-flow result. The endpoint
// pair is part of the key: the same topology solved between different
// source/sink pairs yields different flows. scenario describes the
// exclusion applied, empty for an unrestricted solve. The network hash
// comes first so all entries of one network share a prefix and can be
// invalidated together.
func BuildSolveKey(networkHash, source, sink, operation, scenario string) string {
	if scenario == "" {
		return fmt.Sprintf("solve:%s:%s>%s:%s", networkHash, source, sink, operation)
	}
	return fmt.Sprintf("solve:%s:%s>%s:%s:%s", networkHash, source, sink, operation, scenario)
}
