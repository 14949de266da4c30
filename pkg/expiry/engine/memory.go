package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/saturn/pkg/expiry"
)

// MemoryEngine implements the Engine interface using in-memory maps, one
// per partition. All data is lost when the process exits.
//
// MemoryEngine is thread-safe and supports concurrent access using
// sync.RWMutex.
type MemoryEngine struct {
	// partitions maps partition sequence to that partition's rows by owner.
	partitions map[int64]map[string]expiry.Payload

	// mu protects access to the partitions map.
	mu sync.RWMutex
}

// NewMemoryEngine creates a new in-memory payload engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		partitions: make(map[int64]map[string]expiry.Payload),
	}
}

// CreatePartition materializes storage for the partition.
func (m *MemoryEngine) CreatePartition(ctx context.Context, part expiry.Partition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.partitions[part.Sequence]; !ok {
		m.partitions[part.Sequence] = make(map[string]expiry.Payload)
	}
	return nil
}

// DropPartition removes the partition's storage and every row in it.
func (m *MemoryEngine) DropPartition(ctx context.Context, part expiry.Partition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.partitions, part.Sequence)
	return nil
}

// Insert upserts one owner's payload row into the partition.
func (m *MemoryEngine) Insert(ctx context.Context, part expiry.Partition, payload expiry.Payload) error {
	if payload.CoreID == "" {
		return expiry.NewStorageError("memory", "insert", fmt.Errorf("core ID cannot be empty"))
	}
	if payload.ExpiresAt.IsZero() {
		return expiry.NewStorageError("memory", "insert", fmt.Errorf("expiry timestamp cannot be zero"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.partitions[part.Sequence]
	if !ok {
		rows = make(map[string]expiry.Payload)
		m.partitions[part.Sequence] = rows
	}
	rows[payload.CoreID] = copyPayload(payload)
	return nil
}

// DeleteOwner removes an owner's row from the partition.
func (m *MemoryEngine) DeleteOwner(ctx context.Context, part expiry.Partition, coreID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rows, ok := m.partitions[part.Sequence]; ok {
		delete(rows, coreID)
	}
	return nil
}

// GetOwner returns the owner's payload row, or nil when absent.
func (m *MemoryEngine) GetOwner(ctx context.Context, part expiry.Partition, coreID string) (*expiry.Payload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, ok := m.partitions[part.Sequence]
	if !ok {
		return nil, nil
	}
	payload, ok := rows[coreID]
	if !ok {
		return nil, nil
	}
	out := copyPayload(payload)
	return &out, nil
}

// Scan returns all payload rows in the partition ordered by owner.
func (m *MemoryEngine) Scan(ctx context.Context, part expiry.Partition) ([]expiry.Payload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, ok := m.partitions[part.Sequence]
	if !ok {
		return nil, nil
	}

	payloads := make([]expiry.Payload, 0, len(rows))
	for _, p := range rows {
		payloads = append(payloads, copyPayload(p))
	}
	sort.Slice(payloads, func(i, j int) bool {
		return payloads[i].CoreID < payloads[j].CoreID
	})
	return payloads, nil
}

// Count returns the number of payload rows in the partition.
func (m *MemoryEngine) Count(ctx context.Context, part expiry.Partition) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.partitions[part.Sequence])), nil
}

// Close releases resources. For the memory engine this is a no-op.
func (m *MemoryEngine) Close() error {
	return nil
}

// HasPartition reports whether the partition has storage. Used by tests.
func (m *MemoryEngine) HasPartition(part expiry.Partition) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.partitions[part.Sequence]
	return ok
}

// copyPayload returns a deep copy so callers cannot mutate stored rows.
func copyPayload(p expiry.Payload) expiry.Payload {
	out := p
	if p.Attributes != nil {
		out.Attributes = make(map[string]string, len(p.Attributes))
		for k, v := range p.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}
