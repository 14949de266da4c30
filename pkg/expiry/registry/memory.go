package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/saturn/pkg/expiry"
)

// MemoryRegistry implements Registry using in-memory storage.
// All entries are lost when the process exits; it exists for tests and for
// ephemeral runs where durability does not matter.
//
// MemoryRegistry is thread-safe and supports concurrent access using
// sync.RWMutex.
type MemoryRegistry struct {
	// grid is the partition geometry used to validate and sequence ranges.
	grid expiry.Grid

	// partitions maps partition ID to its catalog entry.
	partitions map[expiry.PartitionID]expiry.Partition

	// mu protects access to the partitions map.
	mu sync.RWMutex
}

// NewMemoryRegistry creates a new in-memory partition registry.
func NewMemoryRegistry(grid expiry.Grid) *MemoryRegistry {
	return &MemoryRegistry{
		grid:       grid,
		partitions: make(map[expiry.PartitionID]expiry.Partition),
	}
}

// Register creates a catalog entry for the range, or reports the existing one.
func (m *MemoryRegistry) Register(ctx context.Context, r expiry.Range) (expiry.Partition, error) {
	seq, err := alignRange(m.grid, r)
	if err != nil {
		return expiry.Partition{}, err
	}
	id := expiry.PartitionIDForSequence(seq)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.partitions[id]; ok {
		return expiry.Partition{}, expiry.NewAlreadyExistsError(existing)
	}

	part := expiry.Partition{
		ID:        id,
		Range:     r,
		State:     expiry.StatePlanned,
		Sequence:  seq,
		UpdatedAt: time.Now().UTC(),
	}
	m.partitions[id] = part
	return part, nil
}

// Get returns the partition with the given ID.
func (m *MemoryRegistry) Get(ctx context.Context, id expiry.PartitionID) (expiry.Partition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	part, ok := m.partitions[id]
	if !ok {
		return expiry.Partition{}, expiry.NewPartitionNotFoundError(id)
	}
	return part, nil
}

// List returns all partitions ordered by sequence.
func (m *MemoryRegistry) List(ctx context.Context) ([]expiry.Partition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	parts := make([]expiry.Partition, 0, len(m.partitions))
	for _, p := range m.partitions {
		parts = append(parts, p)
	}
	sortBySequence(parts)
	return parts, nil
}

// ListByState returns partitions in any of the given states, ordered by sequence.
func (m *MemoryRegistry) ListByState(ctx context.Context, states ...expiry.State) ([]expiry.Partition, error) {
	if len(states) == 0 {
		return nil, nil
	}

	wanted := make(map[expiry.State]bool, len(states))
	for _, s := range states {
		wanted[s] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var parts []expiry.Partition
	for _, p := range m.partitions {
		if wanted[p.State] {
			parts = append(parts, p)
		}
	}
	sortBySequence(parts)
	return parts, nil
}

// Transition moves a partition between states with compare-and-set semantics.
func (m *MemoryRegistry) Transition(ctx context.Context, id expiry.PartitionID, from, to expiry.State) (expiry.Partition, error) {
	if err := checkTransition(from, to); err != nil {
		return expiry.Partition{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	part, ok := m.partitions[id]
	if !ok {
		return expiry.Partition{}, expiry.NewPartitionNotFoundError(id)
	}
	if part.State != from {
		return expiry.Partition{}, expiry.NewConflictError(id, from, part.State)
	}

	part.State = to
	part.UpdatedAt = time.Now().UTC()
	m.partitions[id] = part
	return part, nil
}

// Delete removes a partition's catalog entry. Absent entries are ignored.
func (m *MemoryRegistry) Delete(ctx context.Context, id expiry.PartitionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.partitions, id)
	return nil
}

// Close releases resources. For the memory registry this is a no-op.
func (m *MemoryRegistry) Close() error {
	return nil
}

// Size returns the number of catalog entries. Used by tests.
func (m *MemoryRegistry) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.partitions)
}

// Clear removes all catalog entries. Used by tests.
func (m *MemoryRegistry) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partitions = make(map[expiry.PartitionID]expiry.Partition)
}

func sortBySequence(parts []expiry.Partition) {
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].Sequence < parts[j].Sequence
	})
}
