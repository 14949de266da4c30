package expiry

import (
	"fmt"
	"time"
)

// NoPartitionError indicates a write could not be routed because no live
// partition's range contains the payload's expiry timestamp. The write
// path surfaces this to callers unchanged; it never provisions a partition
// inline. Provisioning is maintenance's job.
type NoPartitionError struct {
	ExpiresAt time.Time // Expiry timestamp that routed nowhere
}

// Error implements the error interface.
func (e *NoPartitionError) Error() string {
	return fmt.Sprintf("no partition for range [expires_at=%s]", e.ExpiresAt.Format(time.RFC3339))
}

// NewNoPartitionError creates a new NoPartitionError.
func NewNoPartitionError(expiresAt time.Time) *NoPartitionError {
	return &NoPartitionError{ExpiresAt: expiresAt}
}

// AlreadyExistsError indicates a Register call hit a partition with an equal
// range. Callers treat this as success; Existing carries the entry that won.
type AlreadyExistsError struct {
	Existing Partition // Partition already registered for the range
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("partition already exists [id=%s, range=%s]", e.Existing.ID, e.Existing.Range)
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(existing Partition) *AlreadyExistsError {
	return &AlreadyExistsError{Existing: existing}
}

// ConflictError indicates a compare-and-set transition lost a race: the
// stored state no longer matched the expected one. Callers retry a bounded
// number of times, then skip the partition for the current cycle.
type ConflictError struct {
	ID       PartitionID // Partition whose transition failed
	Expected State       // State the caller expected
	Observed State       // State actually stored
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("registry conflict [id=%s, expected=%s, observed=%s]", e.ID, e.Expected, e.Observed)
}

// NewConflictError creates a new ConflictError.
func NewConflictError(id PartitionID, expected, observed State) *ConflictError {
	return &ConflictError{ID: id, Expected: expected, Observed: observed}
}

// PartitionNotFoundError indicates the registry has no entry for the ID.
type PartitionNotFoundError struct {
	ID PartitionID
}

// Error implements the error interface.
func (e *PartitionNotFoundError) Error() string {
	return fmt.Sprintf("partition not found [id=%s]", e.ID)
}

// NewPartitionNotFoundError creates a new PartitionNotFoundError.
func NewPartitionNotFoundError(id PartitionID) *PartitionNotFoundError {
	return &PartitionNotFoundError{ID: id}
}

// DropError indicates physical storage removal failed after the partition
// entered retiring. The partition stays retiring and is retried on the next
// maintenance cycle; data is never silently stranded.
type DropError struct {
	ID    PartitionID // Partition whose storage could not be dropped
	Cause error       // Underlying error
}

// Error implements the error interface.
func (e *DropError) Error() string {
	return fmt.Sprintf("physical drop failed [id=%s]: %v", e.ID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *DropError) Unwrap() error {
	return e.Cause
}

// NewDropError creates a new DropError.
func NewDropError(id PartitionID, cause error) *DropError {
	return &DropError{ID: id, Cause: cause}
}

// RecordNotFoundError indicates the core record does not exist. An expired
// or absent payload is never an error; only a missing core row is.
type RecordNotFoundError struct {
	CoreID string
}

// Error implements the error interface.
func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record not found [core_id=%s]", e.CoreID)
}

// NewRecordNotFoundError creates a new RecordNotFoundError.
func NewRecordNotFoundError(coreID string) *RecordNotFoundError {
	return &RecordNotFoundError{CoreID: coreID}
}

// MaintenanceRunningError indicates another maintenance run holds the
// advisory mutex. The coordinator maps this to a skipped report; it is a
// normal outcome, not a failure.
type MaintenanceRunningError struct {
	Holder string // Run ID of the current holder, when known
}

// Error implements the error interface.
func (e *MaintenanceRunningError) Error() string {
	if e.Holder != "" {
		return fmt.Sprintf("maintenance already running [holder=%s]", e.Holder)
	}
	return "maintenance already running"
}

// NewMaintenanceRunningError creates a new MaintenanceRunningError.
func NewMaintenanceRunningError(holder string) *MaintenanceRunningError {
	return &MaintenanceRunningError{Holder: holder}
}

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory", etc.)
	Operation string // Operation that failed ("insert", "scan", "create_partition", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// PolicyError indicates an expiration policy failed validation.
type PolicyError struct {
	Field  string // Policy field that failed
	Reason string // Why it failed
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid policy [field=%s]: %s", e.Field, e.Reason)
}

// NewPolicyError creates a new PolicyError.
func NewPolicyError(field, reason string) *PolicyError {
	return &PolicyError{Field: field, Reason: reason}
}
