package storage

import (
	"sync"
)

// lrukNode tracks the bounded access history of a single frame
type lrukNode struct {
	frameID uint32
	// Logical timestamps of the most recent accesses, oldest first.
	// Length never exceeds k; history[0] is the k-th most recent access
	// once the frame has been referenced k times.
	history   []uint64
	evictable bool
}

// LRUKReplacer implements the LRU-K replacement policy.
//
// LRU-K ranks frames by backward k-distance: the logical time elapsed since
// the k-th most recent access. A frame referenced fewer than k times has
// infinite distance. Eviction picks the maximum distance; frames tied at
// infinity fall back to classic LRU on their oldest retained access. This
// resists sequential scans flushing the hot set, which plain LRU does not.
//
// All state is guarded by a single mutex; every operation is linearizable
// with respect to the others.
type LRUKReplacer struct {
	capacity uint32 // Exclusive upper bound on legal frame ids
	k        uint32
	clock    uint64 // Logical time, incremented once per recorded access
	nodes    map[uint32]*lrukNode
	curSize  uint32 // Number of evictable frames, maintained incrementally
	mutex    sync.Mutex
}

// NewLRUKReplacer creates an LRU-K replacer tracking frame ids in
// [0, capacity) with a history depth of k accesses. k must be at least 1.
func NewLRUKReplacer(capacity uint32, k uint32) *LRUKReplacer {
	if k == 0 {
		panic(ErrInvalidHistoryDepth("NewLRUKReplacer"))
	}
	return &LRUKReplacer{
		capacity: capacity,
		k:        k,
		nodes:    make(map[uint32]*lrukNode),
	}
}

// RecordAccess records that frameID was just referenced.
// A frame seen for the first time starts a fresh history and is not
// evictable until SetEvictable marks it so.
func (r *LRUKReplacer) RecordAccess(frameID uint32, accessType AccessType) {
	r.checkFrameID("RecordAccess", frameID)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.clock++

	node, exists := r.nodes[frameID]
	if !exists {
		node = &lrukNode{
			frameID: frameID,
			history: make([]uint64, 0, r.k),
		}
		r.nodes[frameID] = node
	}

	node.history = append(node.history, r.clock)
	if uint32(len(node.history)) > r.k {
		// Drop the oldest entry; only the last k accesses matter
		copy(node.history, node.history[1:])
		node.history = node.history[:r.k]
	}
}

// SetEvictable toggles whether frameID may be chosen as an eviction victim.
// Untracked frames are ignored. Repeating the current state is a no-op.
func (r *LRUKReplacer) SetEvictable(frameID uint32, evictable bool) {
	r.checkFrameID("SetEvictable", frameID)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	node, exists := r.nodes[frameID]
	if !exists {
		return
	}

	if evictable && !node.evictable {
		node.evictable = true
		r.curSize++
	} else if !evictable && node.evictable {
		node.evictable = false
		r.curSize--
	}
}

// Evict selects the evictable frame with the largest backward k-distance,
// erases its history, and returns its frame ID.
// Returns false if no frame is evictable.
func (r *LRUKReplacer) Evict() (uint32, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.curSize == 0 {
		return 0, false
	}

	var victim *lrukNode
	for _, node := range r.nodes {
		if !node.evictable {
			continue
		}
		if victim == nil || r.ranksBefore(node, victim) {
			victim = node
		}
	}

	delete(r.nodes, victim.frameID)
	r.curSize--
	return victim.frameID, true
}

// ranksBefore reports whether a is a strictly better eviction victim than b.
// Larger backward k-distance wins; among frames tied at infinite distance,
// the smaller oldest retained timestamp wins. The order is total: finite
// distances cannot tie across distinct frames because timestamps are unique,
// so iteration order over the node map never influences the outcome.
func (r *LRUKReplacer) ranksBefore(a, b *lrukNode) bool {
	aInf := uint32(len(a.history)) < r.k
	bInf := uint32(len(b.history)) < r.k

	if aInf != bInf {
		return aInf
	}
	// Same class: the smaller oldest retained timestamp wins. For finite
	// distances this is the larger backward k-distance; for infinite ones
	// it is the classic LRU tie-break.
	return a.history[0] < b.history[0]
}

// Remove drops frameID and its access history irrespective of its backward
// k-distance. Untracked frames are ignored. Removing a frame that is not
// evictable panics: callers must release their claim via SetEvictable first.
func (r *LRUKReplacer) Remove(frameID uint32) {
	r.checkFrameID("Remove", frameID)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	node, exists := r.nodes[frameID]
	if !exists {
		return
	}
	if !node.evictable {
		panic(ErrFrameNotEvictable("Remove", frameID))
	}

	delete(r.nodes, frameID)
	r.curSize--
}

// Size returns the number of evictable frames
func (r *LRUKReplacer) Size() uint32 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.curSize
}

// checkFrameID panics if frameID is outside [0, capacity).
// An out-of-range id is a contract violation by the buffer pool, not a
// recoverable condition; accepting it silently would corrupt the policy's
// bookkeeping.
func (r *LRUKReplacer) checkFrameID(op string, frameID uint32) {
	if frameID >= r.capacity {
		panic(ErrInvalidFrameID(op, frameID, r.capacity))
	}
}

// LRUKStats contains a snapshot of the replacer's state
type LRUKStats struct {
	Capacity        uint32 // Maximum trackable frames
	K               uint32 // History depth
	TrackedFrames   int    // Frames with recorded history
	EvictableFrames uint32 // Frames eligible for eviction
	Clock           uint64 // Current logical timestamp
}

// GetStats returns statistics about the replacer state
func (r *LRUKReplacer) GetStats() LRUKStats {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return LRUKStats{
		Capacity:        r.capacity,
		K:               r.k,
		TrackedFrames:   len(r.nodes),
		EvictableFrames: r.curSize,
		Clock:           r.clock,
	}
}
