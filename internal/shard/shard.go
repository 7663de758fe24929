// Package shard implements the virtual/physical IMEI sharding substrate
// (spec.md §4.1, component C1).
//
// Virt computes a deterministic virtual shard id in [0,99] for a
// normalized IMEI. It must stay bit-for-bit identical to the companion
// SQL function calc_virt_imei_shard installed by internal/migrations —
// see the "virt_shard definition" Open Question decision in
// SPEC_FULL.md. Both sides implement FNV-1a 64-bit over the UTF-8 bytes
// of IMEI_norm, reduced mod 100.
package shard

import (
	"fmt"
	"hash/fnv"
)

// NumVirtualShards is the fixed size of the virtual shard space.
const NumVirtualShards = 100

// Virt returns the virtual shard id (0..99) for a normalized IMEI. Virt
// is a pure function: the same imeiNorm always yields the same id.
func Virt(imeiNorm string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(imeiNorm))
	return int(h.Sum64() % NumVirtualShards)
}

// Physical describes a physical shard's virtual-id range, inclusive on
// both ends.
type Physical struct {
	Lo int
	Hi int
}

// TableSuffix returns the child table name suffix "<lo>_<hi>" used in
// physical shard child table names: "<base>_<lo>_<hi>".
func (p Physical) TableSuffix() string {
	return fmt.Sprintf("%d_%d", p.Lo, p.Hi)
}

// Contains reports whether virtual shard v belongs to this physical
// shard's range.
func (p Physical) Contains(v int) bool {
	return v >= p.Lo && v <= p.Hi
}

// Partition splits the virtual shard space [0,99] into numPhysical
// contiguous, roughly equal-sized physical shards. numPhysical must be
// between 1 and NumVirtualShards.
func Partition(numPhysical int) ([]Physical, error) {
	if numPhysical < 1 || numPhysical > NumVirtualShards {
		return nil, fmt.Errorf("shard: numPhysical must be in [1,%d], got %d", NumVirtualShards, numPhysical)
	}
	shards := make([]Physical, 0, numPhysical)
	base := NumVirtualShards / numPhysical
	rem := NumVirtualShards % numPhysical
	lo := 0
	for i := 0; i < numPhysical; i++ {
		size := base
		if i < rem {
			size++
		}
		hi := lo + size - 1
		shards = append(shards, Physical{Lo: lo, Hi: hi})
		lo = hi + 1
	}
	return shards, nil
}

// PhysicalFor returns the physical shard a given virtual shard id
// belongs to under the supplied partitioning.
func PhysicalFor(shards []Physical, v int) (Physical, bool) {
	for _, p := range shards {
		if p.Contains(v) {
			return p, true
		}
	}
	return Physical{}, false
}

// ChildTableName returns the concrete "<base>_<lo>_<hi>" child table
// name for a base table name and physical shard.
func ChildTableName(base string, p Physical) string {
	return fmt.Sprintf("%s_%s", base, p.TableSuffix())
}
