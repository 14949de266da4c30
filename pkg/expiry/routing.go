package expiry

import "time"

// ResolvePartition returns the partition whose range contains expiresAt.
//
// It is a pure function of its inputs: a timestamp and a registry snapshot.
// No clock, no I/O, no side effects. Given the same snapshot and timestamp
// it always returns the same answer.
//
// Only writable partitions (planned or active) are considered; a retiring
// partition never accepts new rows even while its storage still exists.
// When no partition covers the timestamp the caller gets NoPartitionError;
// routing never provisions a partition to cover the gap.
func ResolvePartition(expiresAt time.Time, partitions []Partition) (Partition, error) {
	for i := range partitions {
		p := partitions[i]
		if !p.State.Writable() {
			continue
		}
		if p.Range.Contains(expiresAt) {
			return p, nil
		}
	}
	return Partition{}, NewNoPartitionError(expiresAt)
}
