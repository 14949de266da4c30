package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/expiry"
)

var testEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testGrid() expiry.Grid {
	return expiry.Grid{Epoch: testEpoch, Width: 30 * 24 * time.Hour}
}

func TestMemoryRegistry_Register(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	r := testGrid().RangeForSequence(2)

	part, err := reg.Register(ctx, r)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if part.State != expiry.StatePlanned {
		t.Errorf("Expected state planned, got %s", part.State)
	}
	if part.Sequence != 2 {
		t.Errorf("Expected sequence 2, got %d", part.Sequence)
	}
	if part.ID != expiry.PartitionIDForSequence(2) {
		t.Errorf("Expected derived ID, got %s", part.ID)
	}
	if !part.Range.Equal(r) {
		t.Errorf("Expected range %s, got %s", r, part.Range)
	}
}

func TestMemoryRegistry_RegisterIdempotent(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	r := testGrid().RangeForSequence(0)

	first, err := reg.Register(ctx, r)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err = reg.Register(ctx, r)
	if err == nil {
		t.Fatal("Expected AlreadyExistsError on duplicate registration")
	}
	var exists *expiry.AlreadyExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("Expected AlreadyExistsError, got %v", err)
	}
	if exists.Existing.ID != first.ID {
		t.Errorf("Expected existing partition %s, got %s", first.ID, exists.Existing.ID)
	}
	if reg.Size() != 1 {
		t.Errorf("Expected 1 entry after duplicate registration, got %d", reg.Size())
	}
}

func TestMemoryRegistry_RegisterMisalignedRange(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	g := testGrid()

	tests := []struct {
		name string
		r    expiry.Range
	}{
		{"start off the grid", expiry.Range{Start: testEpoch.Add(time.Hour), End: testEpoch.Add(time.Hour).Add(g.Width)}},
		{"wrong width", expiry.Range{Start: testEpoch, End: testEpoch.Add(g.Width / 2)}},
		{"spans two cells", expiry.Range{Start: testEpoch, End: testEpoch.Add(2 * g.Width)}},
		{"inverted", expiry.Range{Start: testEpoch.Add(g.Width), End: testEpoch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Register(ctx, tt.r); err == nil {
				t.Errorf("Register(%s) succeeded, want alignment error", tt.r)
			}
		})
	}
}

func TestMemoryRegistry_Get(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	part, err := reg.Register(ctx, testGrid().RangeForSequence(1))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := reg.Get(ctx, part.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != part.ID || got.Sequence != part.Sequence {
		t.Errorf("Get returned %+v, want %+v", got, part)
	}

	_, err = reg.Get(ctx, "part_99999999")
	var notFound *expiry.PartitionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected PartitionNotFoundError, got %v", err)
	}
}

func TestMemoryRegistry_ListOrdering(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	// Register out of order.
	for _, seq := range []int64{3, 0, 2, 1} {
		if _, err := reg.Register(ctx, testGrid().RangeForSequence(seq)); err != nil {
			t.Fatalf("Register(%d) failed: %v", seq, err)
		}
	}

	parts, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(parts) != 4 {
		t.Fatalf("Expected 4 partitions, got %d", len(parts))
	}
	for i, p := range parts {
		if p.Sequence != int64(i) {
			t.Errorf("Position %d has sequence %d, want %d", i, p.Sequence, i)
		}
	}
}

func TestMemoryRegistry_ListByState(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	g := testGrid()

	p0, _ := reg.Register(ctx, g.RangeForSequence(0))
	p1, _ := reg.Register(ctx, g.RangeForSequence(1))
	if _, err := reg.Register(ctx, g.RangeForSequence(2)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Activate two of the three.
	for _, id := range []expiry.PartitionID{p0.ID, p1.ID} {
		if _, err := reg.Transition(ctx, id, expiry.StatePlanned, expiry.StateActive); err != nil {
			t.Fatalf("Transition failed: %v", err)
		}
	}

	active, err := reg.ListByState(ctx, expiry.StateActive)
	if err != nil {
		t.Fatalf("ListByState failed: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("Expected 2 active partitions, got %d", len(active))
	}

	both, err := reg.ListByState(ctx, expiry.StateActive, expiry.StatePlanned)
	if err != nil {
		t.Fatalf("ListByState failed: %v", err)
	}
	if len(both) != 3 {
		t.Errorf("Expected 3 partitions, got %d", len(both))
	}

	none, err := reg.ListByState(ctx)
	if err != nil {
		t.Fatalf("ListByState with no states failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected empty result for no states, got %d", len(none))
	}
}

func TestMemoryRegistry_Transition(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	part, err := reg.Register(ctx, testGrid().RangeForSequence(0))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := reg.Transition(ctx, part.ID, expiry.StatePlanned, expiry.StateActive)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if got.State != expiry.StateActive {
		t.Errorf("Expected state active, got %s", got.State)
	}

	// Replaying the same transition must conflict: the stored state moved on.
	_, err = reg.Transition(ctx, part.ID, expiry.StatePlanned, expiry.StateActive)
	var conflict *expiry.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError on replay, got %v", err)
	}
	if conflict.Observed != expiry.StateActive {
		t.Errorf("Expected observed state active, got %s", conflict.Observed)
	}
}

func TestMemoryRegistry_TransitionIllegal(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	part, err := reg.Register(ctx, testGrid().RangeForSequence(0))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Planned cannot jump straight to retiring.
	if _, err := reg.Transition(ctx, part.ID, expiry.StatePlanned, expiry.StateRetiring); err == nil {
		t.Error("Expected error for illegal transition planned to retiring")
	}

	// Unknown partition.
	_, err = reg.Transition(ctx, "part_99999999", expiry.StatePlanned, expiry.StateActive)
	var notFound *expiry.PartitionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected PartitionNotFoundError, got %v", err)
	}
}

func TestMemoryRegistry_TransitionConcurrent(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	part, err := reg.Register(ctx, testGrid().RangeForSequence(0))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := reg.Transition(ctx, part.ID, expiry.StatePlanned, expiry.StateActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	// Many goroutines race to retire the same partition; exactly one wins.
	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Transition(ctx, part.ID, expiry.StateActive, expiry.StateRetiring); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Errorf("Expected exactly 1 winning transition, got %d", won)
	}
}

func TestMemoryRegistry_Delete(t *testing.T) {
	reg := NewMemoryRegistry(testGrid())
	defer reg.Close()

	ctx := context.Background()
	part, err := reg.Register(ctx, testGrid().RangeForSequence(0))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := reg.Delete(ctx, part.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if reg.Size() != 0 {
		t.Errorf("Expected empty registry after delete, got %d entries", reg.Size())
	}

	// Deleting again is not an error.
	if err := reg.Delete(ctx, part.ID); err != nil {
		t.Errorf("Delete of absent entry failed: %v", err)
	}
}
