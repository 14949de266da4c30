package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mercator-hq/saturn/pkg/expiry"
)

// MemoryCoreStore implements CoreStore using in-memory storage.
// All data is lost when the process exits.
//
// MemoryCoreStore is thread-safe and supports concurrent access using
// sync.RWMutex.
type MemoryCoreStore struct {
	// records maps core ID to the stored record.
	records map[string]expiry.CoreRecord

	// mu protects access to the records map.
	mu sync.RWMutex
}

// NewMemoryCoreStore creates a new in-memory core record store.
func NewMemoryCoreStore() *MemoryCoreStore {
	return &MemoryCoreStore{
		records: make(map[string]expiry.CoreRecord),
	}
}

// Save persists a core record, replacing any previous row for the ID.
func (m *MemoryCoreStore) Save(ctx context.Context, record expiry.CoreRecord) error {
	if record.CoreID == "" {
		return expiry.NewStorageError("memory", "save", fmt.Errorf("core ID cannot be empty"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.CoreID] = copyCoreRecord(record)
	return nil
}

// Get returns the core record for the ID, or nil when absent.
func (m *MemoryCoreStore) Get(ctx context.Context, coreID string) (*expiry.CoreRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[coreID]
	if !ok {
		return nil, nil
	}
	out := copyCoreRecord(record)
	return &out, nil
}

// ListStream returns a channel of core records matching the filter.
func (m *MemoryCoreStore) ListStream(ctx context.Context, filter CoreFilter) (<-chan expiry.CoreRecord, <-chan error, error) {
	// Snapshot under the lock so the stream is stable against later writes.
	m.mu.RLock()
	snapshot := make([]expiry.CoreRecord, 0, len(m.records))
	for _, r := range m.records {
		if matchesFilter(r, filter) {
			snapshot = append(snapshot, copyCoreRecord(r))
		}
	}
	m.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].CoreID < snapshot[j].CoreID
	})
	snapshot = applyWindow(snapshot, filter)

	recordsCh := make(chan expiry.CoreRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, r := range snapshot {
			select {
			case recordsCh <- r:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Delete removes a core record. Absent records are ignored.
func (m *MemoryCoreStore) Delete(ctx context.Context, coreID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, coreID)
	return nil
}

// Close releases resources. For the memory store this is a no-op.
func (m *MemoryCoreStore) Close() error {
	return nil
}

// Size returns the number of stored records. Used by tests.
func (m *MemoryCoreStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// matchesFilter applies the non-window filter fields.
func matchesFilter(r expiry.CoreRecord, filter CoreFilter) bool {
	if filter.Kind != "" && r.Kind != filter.Kind {
		return false
	}
	if filter.CoreIDPrefix != "" && !strings.HasPrefix(r.CoreID, filter.CoreIDPrefix) {
		return false
	}
	return true
}

// applyWindow applies offset and limit to an ordered result set.
func applyWindow(records []expiry.CoreRecord, filter CoreFilter) []expiry.CoreRecord {
	if filter.Offset > 0 {
		if filter.Offset >= len(records) {
			return nil
		}
		records = records[filter.Offset:]
	}
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records
}

// copyCoreRecord returns a deep copy so callers cannot mutate stored rows.
func copyCoreRecord(r expiry.CoreRecord) expiry.CoreRecord {
	out := r
	if r.Body != nil {
		out.Body = make(map[string]string, len(r.Body))
		for k, v := range r.Body {
			out.Body[k] = v
		}
	}
	return out
}
