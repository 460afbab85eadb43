package storage

import (
	"sync"
	"testing"
)

// TestLRUKReplacer tests basic construction and initial state
func TestLRUKReplacer(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	if replacer == nil {
		t.Fatal("LRU-K replacer should not be nil")
	}

	if replacer.Size() != 0 {
		t.Errorf("Expected initial size 0, got %d", replacer.Size())
	}

	_, ok := replacer.Evict()
	if ok {
		t.Error("Empty replacer should not produce a victim")
	}
}

// TestLRUKInvalidHistoryDepth tests that k=0 is rejected at construction
func TestLRUKInvalidHistoryDepth(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for k=0")
		}
	}()

	NewLRUKReplacer(8, 0)
}

// TestLRUKEvictOldestAmongInfinite tests the classic LRU tie-break
// among frames that all have fewer than k accesses
func TestLRUKEvictOldestAmongInfinite(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	// Single access each: frames 1..4 at logical times 1..4
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.RecordAccess(2, AccessUnspecified)
	replacer.RecordAccess(3, AccessUnspecified)
	replacer.RecordAccess(4, AccessUnspecified)

	replacer.SetEvictable(1, true)
	replacer.SetEvictable(2, true)
	replacer.SetEvictable(3, true)
	replacer.SetEvictable(4, true)

	if replacer.Size() != 4 {
		t.Errorf("Expected size 4, got %d", replacer.Size())
	}

	// All have infinite distance, the oldest single access wins
	victim, ok := replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 1 {
		t.Errorf("Expected victim 1, got %d", victim)
	}

	// Re-access frame 1: fresh history, now the newest
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.SetEvictable(1, true)

	victim, ok = replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 2 {
		t.Errorf("Expected victim 2, got %d", victim)
	}
}

// TestLRUKInfiniteBeatsFinite tests that a frame with insufficient
// history is always preferred over one with k or more accesses
func TestLRUKInfiniteBeatsFinite(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	// Frame 5 has a full history of two accesses
	replacer.RecordAccess(5, AccessUnspecified)
	replacer.RecordAccess(5, AccessUnspecified)
	// Frame 6 has only one, so its backward distance is infinite
	replacer.RecordAccess(6, AccessUnspecified)

	replacer.SetEvictable(5, true)
	replacer.SetEvictable(6, true)

	victim, ok := replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 6 {
		t.Errorf("Expected victim 6, got %d", victim)
	}

	victim, ok = replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 5 {
		t.Errorf("Expected victim 5, got %d", victim)
	}
}

// TestLRUKBackwardDistance tests victim selection among frames with
// full histories: the largest distance to the k-th most recent access wins
func TestLRUKBackwardDistance(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	// Frame 0: accesses at t=1,2. Frame 1: accesses at t=3,4.
	replacer.RecordAccess(0, AccessUnspecified)
	replacer.RecordAccess(0, AccessUnspecified)
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.RecordAccess(1, AccessUnspecified)

	replacer.SetEvictable(0, true)
	replacer.SetEvictable(1, true)

	// Frame 0's second-most-recent access is older
	victim, ok := replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 0 {
		t.Errorf("Expected victim 0, got %d", victim)
	}
}

// TestLRUKHistoryTruncation tests that only the k most recent accesses
// count: an old burst of accesses ages out of the history window
func TestLRUKHistoryTruncation(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	// Frame 0 gets a burst at t=1..3, then nothing.
	// With k=2 its retained window is t=2,3.
	replacer.RecordAccess(0, AccessUnspecified)
	replacer.RecordAccess(0, AccessUnspecified)
	replacer.RecordAccess(0, AccessUnspecified)

	// Frame 1 at t=4,5: its retained window starts later.
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.RecordAccess(1, AccessUnspecified)

	replacer.SetEvictable(0, true)
	replacer.SetEvictable(1, true)

	victim, ok := replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 0 {
		t.Errorf("Expected victim 0, got %d", victim)
	}
}

// TestLRUKSetEvictableIdempotent tests that repeated toggles do not
// drift the evictable count
func TestLRUKSetEvictableIdempotent(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	replacer.RecordAccess(3, AccessUnspecified)

	replacer.SetEvictable(3, true)
	replacer.SetEvictable(3, true)
	if replacer.Size() != 1 {
		t.Errorf("Expected size 1 after double enable, got %d", replacer.Size())
	}

	replacer.SetEvictable(3, false)
	replacer.SetEvictable(3, false)
	if replacer.Size() != 0 {
		t.Errorf("Expected size 0 after double disable, got %d", replacer.Size())
	}
}

// TestLRUKSetEvictableUntracked tests that toggling a frame that was
// never accessed is a no-op
func TestLRUKSetEvictableUntracked(t *testing.T) {
	replacer := NewLRUKReplacer(100, 2)

	replacer.SetEvictable(99, true)
	if replacer.Size() != 0 {
		t.Errorf("Expected size 0 for untracked frame, got %d", replacer.Size())
	}
}

// TestLRUKNonEvictableSkipped tests that pinned frames are never victims
func TestLRUKNonEvictableSkipped(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	replacer.RecordAccess(0, AccessUnspecified)
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.SetEvictable(1, true)

	victim, ok := replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 1 {
		t.Errorf("Expected victim 1, got %d", victim)
	}

	// Only frame 0 remains and it is not evictable
	_, ok = replacer.Evict()
	if ok {
		t.Error("Should not evict a non-evictable frame")
	}
}

// TestLRUKRemove tests explicit removal
func TestLRUKRemove(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	replacer.RecordAccess(2, AccessUnspecified)
	replacer.RecordAccess(2, AccessUnspecified)
	replacer.SetEvictable(2, true)

	replacer.Remove(2)
	if replacer.Size() != 0 {
		t.Errorf("Expected size 0 after removal, got %d", replacer.Size())
	}

	// Removing an untracked frame is a no-op
	replacer.Remove(2)
	if replacer.Size() != 0 {
		t.Errorf("Expected size 0, got %d", replacer.Size())
	}

	// Re-access starts a fresh history: one entry, infinite distance again
	replacer.RecordAccess(2, AccessUnspecified)
	replacer.RecordAccess(3, AccessUnspecified)
	replacer.RecordAccess(3, AccessUnspecified)
	replacer.SetEvictable(2, true)
	replacer.SetEvictable(3, true)

	victim, ok := replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 2 {
		t.Errorf("Expected victim 2 after history reset, got %d", victim)
	}
}

// TestLRUKRemoveNonEvictable tests that removing a pinned frame panics
func TestLRUKRemoveNonEvictable(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)
	replacer.RecordAccess(7, AccessUnspecified)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Expected panic for Remove on non-evictable frame")
		}
		if !IsErrorCode(r.(error), ErrCodeFrameNotEvictable) {
			t.Errorf("Expected frame-not-evictable error, got %v", r)
		}
		// State unchanged
		if replacer.Size() != 0 {
			t.Errorf("Expected size 0, got %d", replacer.Size())
		}
	}()

	replacer.Remove(7)
}

// TestLRUKFrameIDOutOfRange tests the contract check on frame ids
func TestLRUKFrameIDOutOfRange(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	ops := map[string]func(){
		"RecordAccess": func() { replacer.RecordAccess(8, AccessUnspecified) },
		"SetEvictable": func() { replacer.SetEvictable(8, true) },
		"Remove":       func() { replacer.Remove(8) },
	}

	for name, op := range ops {
		func() {
			defer func() {
				r := recover()
				if r == nil {
					t.Errorf("%s: expected panic for out-of-range frame id", name)
					return
				}
				if !IsErrorCode(r.(error), ErrCodeInvalidFrameID) {
					t.Errorf("%s: expected invalid-frame-id error, got %v", name, r)
				}
			}()
			op()
		}()
	}
}

// TestLRUKStats tests the stats snapshot
func TestLRUKStats(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	replacer.RecordAccess(0, AccessLookup)
	replacer.RecordAccess(0, AccessScan)
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.SetEvictable(0, true)

	stats := replacer.GetStats()
	if stats.Capacity != 8 {
		t.Errorf("Expected capacity 8, got %d", stats.Capacity)
	}
	if stats.K != 2 {
		t.Errorf("Expected k 2, got %d", stats.K)
	}
	if stats.TrackedFrames != 2 {
		t.Errorf("Expected 2 tracked frames, got %d", stats.TrackedFrames)
	}
	if stats.EvictableFrames != 1 {
		t.Errorf("Expected 1 evictable frame, got %d", stats.EvictableFrames)
	}
	if stats.Clock != 3 {
		t.Errorf("Expected clock 3, got %d", stats.Clock)
	}
}

// TestLRUKFullScenario walks a mixed workload and checks each victim
func TestLRUKFullScenario(t *testing.T) {
	replacer := NewLRUKReplacer(8, 2)

	// t=1..6
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.RecordAccess(2, AccessUnspecified)
	replacer.RecordAccess(3, AccessUnspecified)
	replacer.RecordAccess(4, AccessUnspecified)
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.RecordAccess(2, AccessUnspecified)

	replacer.SetEvictable(1, true)
	replacer.SetEvictable(2, true)
	replacer.SetEvictable(3, true)
	replacer.SetEvictable(4, true)

	// Frames 3,4 have one access (infinite distance), 3 is older
	expected := []uint32{3, 4, 1, 2}
	for _, want := range expected {
		victim, ok := replacer.Evict()
		if !ok {
			t.Fatalf("Expected victim %d, got none", want)
		}
		if victim != want {
			t.Errorf("Expected victim %d, got %d", want, victim)
		}
	}

	if replacer.Size() != 0 {
		t.Errorf("Expected size 0 after draining, got %d", replacer.Size())
	}
}

// TestLRUKConcurrentAccess tests thread safety under parallel mutation
func TestLRUKConcurrentAccess(t *testing.T) {
	const capacity = 64
	replacer := NewLRUKReplacer(capacity, 2)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed uint32) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				frameID := (seed*1000 + uint32(i)) % capacity
				replacer.RecordAccess(frameID, AccessUnspecified)
				replacer.SetEvictable(frameID, true)
				if i%10 == 0 {
					replacer.Evict()
				}
			}
		}(uint32(g))
	}
	wg.Wait()

	// Drain and verify the evictable count stays consistent
	for {
		before := replacer.Size()
		_, ok := replacer.Evict()
		if !ok {
			if before != 0 {
				t.Errorf("Size %d but no evictable victim", before)
			}
			break
		}
		if replacer.Size() != before-1 {
			t.Errorf("Expected size %d after eviction, got %d", before-1, replacer.Size())
		}
	}
}
