package storage

// AccessType classifies how a frame was referenced.
// Carried for instrumentation and tie-break extensions; the default
// policies do not change behavior based on it.
type AccessType uint8

const (
	AccessUnspecified AccessType = iota
	AccessLookup
	AccessScan
)

// String returns a human-readable name for the access type
func (at AccessType) String() string {
	switch at {
	case AccessLookup:
		return "lookup"
	case AccessScan:
		return "scan"
	default:
		return "unspecified"
	}
}

// Replacer interface for frame replacement policies
// Allows different algorithms (LRU-K, LRU, etc.)
//
// Frame ids must lie in [0, capacity); passing an out-of-range id to any
// operation is a caller bug and panics with a *StorageError. Operations on
// in-range but untracked frames are benign no-ops.
type Replacer interface {
	// RecordAccess records that the given frame was just referenced
	RecordAccess(frameID uint32, accessType AccessType)

	// SetEvictable toggles whether a frame is a candidate for eviction.
	// Untracked frames are ignored.
	SetEvictable(frameID uint32, evictable bool)

	// Evict selects a victim among evictable frames, drops its tracking
	// state, and returns its frame ID. Returns false if nothing is evictable.
	Evict() (uint32, bool)

	// Remove drops a specific evictable frame and its access history,
	// regardless of how the policy would rank it. Untracked frames are
	// ignored; removing a non-evictable frame panics.
	Remove(frameID uint32)

	// Size returns the number of evictable frames
	Size() uint32
}

// NewReplacer creates a replacer based on the specified algorithm
func NewReplacer(algorithm string, capacity uint32, k uint32) Replacer {
	switch algorithm {
	case "lru":
		return NewLRUReplacer(capacity)
	case "2q":
		return NewTwoQReplacer(capacity)
	case "arc":
		return NewARCReplacer(capacity)
	case "lruk":
		return NewLRUKReplacer(capacity, k)
	default:
		// Default to LRU-K for scan resistance
		return NewLRUKReplacer(capacity, k)
	}
}
