package storage

import (
	"testing"
)

// TestLRUReplacer tests basic LRU replacer functionality
func TestLRUReplacer(t *testing.T) {
	replacer := NewLRUReplacer(5)

	if replacer == nil {
		t.Fatal("LRU replacer should not be nil")
	}

	if replacer.Size() != 0 {
		t.Errorf("Expected initial size 0, got %d", replacer.Size())
	}
}

// TestLRUVictim tests victim selection
func TestLRUVictim(t *testing.T) {
	replacer := NewLRUReplacer(5)

	// Access frames in order: 0, 1, 2
	replacer.RecordAccess(0, AccessUnspecified)
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.RecordAccess(2, AccessUnspecified)
	replacer.SetEvictable(0, true)
	replacer.SetEvictable(1, true)
	replacer.SetEvictable(2, true)

	// Oldest should be 0
	victim, ok := replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 0 {
		t.Errorf("Expected victim 0, got %d", victim)
	}

	// After evicting 0, next should be 1
	victim, ok = replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 1 {
		t.Errorf("Expected victim 1, got %d", victim)
	}
}

// TestLRUReaccess tests that re-accessing a frame moves it to the back
func TestLRUReaccess(t *testing.T) {
	replacer := NewLRUReplacer(5)

	replacer.RecordAccess(0, AccessUnspecified)
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.RecordAccess(2, AccessUnspecified)
	// Frame 0 becomes the most recent
	replacer.RecordAccess(0, AccessUnspecified)

	replacer.SetEvictable(0, true)
	replacer.SetEvictable(1, true)
	replacer.SetEvictable(2, true)

	victim, ok := replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 1 {
		t.Errorf("Expected victim 1, got %d", victim)
	}
}

// TestLRUPinned tests that non-evictable frames are skipped
func TestLRUPinned(t *testing.T) {
	replacer := NewLRUReplacer(5)

	replacer.RecordAccess(0, AccessUnspecified)
	replacer.RecordAccess(1, AccessUnspecified)
	replacer.SetEvictable(0, true)
	replacer.SetEvictable(1, true)

	if replacer.Size() != 2 {
		t.Errorf("Expected size 2, got %d", replacer.Size())
	}

	// Pin the oldest
	replacer.SetEvictable(0, false)
	if replacer.Size() != 1 {
		t.Errorf("Expected size 1 after pin, got %d", replacer.Size())
	}

	victim, ok := replacer.Evict()
	if !ok {
		t.Fatal("Should have a victim")
	}
	if victim != 1 {
		t.Errorf("Expected victim 1, got %d", victim)
	}
}

// TestLRURemove tests explicit removal
func TestLRURemove(t *testing.T) {
	replacer := NewLRUReplacer(5)

	replacer.RecordAccess(3, AccessUnspecified)
	replacer.SetEvictable(3, true)
	replacer.Remove(3)

	if replacer.Size() != 0 {
		t.Errorf("Expected size 0 after removal, got %d", replacer.Size())
	}

	// Untracked removal is a no-op
	replacer.Remove(3)
	if replacer.Size() != 0 {
		t.Errorf("Expected size 0, got %d", replacer.Size())
	}
}

// TestLRUOutOfRange tests the frame id contract check
func TestLRUOutOfRange(t *testing.T) {
	replacer := NewLRUReplacer(5)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Expected panic for out-of-range frame id")
		}
		if !IsErrorCode(r.(error), ErrCodeInvalidFrameID) {
			t.Errorf("Expected invalid-frame-id error, got %v", r)
		}
	}()

	replacer.RecordAccess(5, AccessUnspecified)
}

// TestNewReplacer tests the replacer factory
func TestNewReplacer(t *testing.T) {
	if _, ok := NewReplacer("lru", 8, 2).(*LRUReplacer); !ok {
		t.Error("Expected lru to build an LRUReplacer")
	}
	if _, ok := NewReplacer("lruk", 8, 2).(*LRUKReplacer); !ok {
		t.Error("Expected lruk to build an LRUKReplacer")
	}
	if _, ok := NewReplacer("2q", 8, 2).(*TwoQReplacer); !ok {
		t.Error("Expected 2q to build a TwoQReplacer")
	}
	if _, ok := NewReplacer("arc", 8, 2).(*ARCReplacer); !ok {
		t.Error("Expected arc to build an ARCReplacer")
	}
	if _, ok := NewReplacer("unknown", 8, 2).(*LRUKReplacer); !ok {
		t.Error("Expected unknown algorithm to fall back to LRU-K")
	}
}
