package storage

import (
	"container/list"
	"sync"
)

// ARCReplacer implements Adaptive Replacement Cache behind the common
// Replacer surface. Four LRU lists are maintained:
// - T1: frames seen once recently (recency)
// - T2: frames seen at least twice (frequency)
// - B1: ghosts of frames evicted from T1
// - B2: ghosts of frames evicted from T2
//
// A ghost hit shifts the adaptive target p between recency and
// frequency, steering which list future evictions prefer.
type ARCReplacer struct {
	capacity uint32
	p        int // Target share of T1 (adaptive)

	t1 *list.List
	t2 *list.List
	b1 *list.List
	b2 *list.List

	t1Map map[uint32]*list.Element
	t2Map map[uint32]*list.Element
	b1Map map[uint32]*list.Element
	b2Map map[uint32]*list.Element

	curSize uint32
	mutex   sync.Mutex
}

// arcEntry represents a tracked frame in T1 or T2
type arcEntry struct {
	frameID   uint32
	evictable bool
}

// NewARCReplacer creates an ARC replacer for frames in [0, capacity)
func NewARCReplacer(capacity uint32) *ARCReplacer {
	return &ARCReplacer{
		capacity: capacity,
		p:        0, // Initially favor recency
		t1:       list.New(),
		t2:       list.New(),
		b1:       list.New(),
		b2:       list.New(),
		t1Map:    make(map[uint32]*list.Element),
		t2Map:    make(map[uint32]*list.Element),
		b1Map:    make(map[uint32]*list.Element),
		b2Map:    make(map[uint32]*list.Element),
	}
}

// RecordAccess notes that a frame was referenced, promoting it between
// lists and adapting p on ghost hits.
func (arc *ARCReplacer) RecordAccess(frameID uint32, accessType AccessType) {
	arc.mutex.Lock()
	defer arc.mutex.Unlock()

	arc.checkFrameID("RecordAccess", frameID)

	// Second access promotes from T1 to T2
	if elem, ok := arc.t1Map[frameID]; ok {
		entry := elem.Value.(*arcEntry)
		arc.t1.Remove(elem)
		delete(arc.t1Map, frameID)
		arc.t2Map[frameID] = arc.t2.PushBack(entry)
		return
	}

	// Repeat access refreshes the LRU position in T2
	if elem, ok := arc.t2Map[frameID]; ok {
		arc.t2.MoveToBack(elem)
		return
	}

	// Ghost hit in B1: the recency list was too small, grow p
	if elem, ok := arc.b1Map[frameID]; ok {
		delta := 1
		if arc.b1.Len() < arc.b2.Len() {
			delta = arc.b2.Len() / arc.b1.Len()
		}
		arc.p = min(arc.p+max(delta, 1), int(arc.capacity))

		arc.b1.Remove(elem)
		delete(arc.b1Map, frameID)
		arc.t2Map[frameID] = arc.t2.PushBack(&arcEntry{frameID: frameID})
		return
	}

	// Ghost hit in B2: the frequency list was too small, shrink p
	if elem, ok := arc.b2Map[frameID]; ok {
		delta := 1
		if arc.b2.Len() < arc.b1.Len() {
			delta = arc.b1.Len() / arc.b2.Len()
		}
		arc.p = max(arc.p-max(delta, 1), 0)

		arc.b2.Remove(elem)
		delete(arc.b2Map, frameID)
		arc.t2Map[frameID] = arc.t2.PushBack(&arcEntry{frameID: frameID})
		return
	}

	// First sighting goes to T1, non-evictable until released
	arc.t1Map[frameID] = arc.t1.PushBack(&arcEntry{frameID: frameID})
}

// SetEvictable marks a frame as eligible or ineligible for eviction
func (arc *ARCReplacer) SetEvictable(frameID uint32, evictable bool) {
	arc.mutex.Lock()
	defer arc.mutex.Unlock()

	arc.checkFrameID("SetEvictable", frameID)

	entry := arc.lookup(frameID)
	if entry == nil {
		return
	}
	if entry.evictable == evictable {
		return
	}

	entry.evictable = evictable
	if evictable {
		arc.curSize++
	} else {
		arc.curSize--
	}
}

// Evict drops one evictable frame, choosing between the recency and
// frequency lists according to the adaptive target p.
func (arc *ARCReplacer) Evict() (uint32, bool) {
	arc.mutex.Lock()
	defer arc.mutex.Unlock()

	if arc.curSize == 0 {
		return 0, false
	}

	if arc.t1.Len() > max(1, arc.p) {
		if frameID, ok := arc.evictFrom(arc.t1, arc.t1Map, arc.b1, arc.b1Map); ok {
			return frameID, true
		}
		return arc.evictFrom(arc.t2, arc.t2Map, arc.b2, arc.b2Map)
	}

	if frameID, ok := arc.evictFrom(arc.t2, arc.t2Map, arc.b2, arc.b2Map); ok {
		return frameID, true
	}
	return arc.evictFrom(arc.t1, arc.t1Map, arc.b1, arc.b1Map)
}

// evictFrom removes the least recent evictable frame from a cache list,
// leaving a ghost entry behind
func (arc *ARCReplacer) evictFrom(cache *list.List, cacheMap map[uint32]*list.Element, ghost *list.List, ghostMap map[uint32]*list.Element) (uint32, bool) {
	for e := cache.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*arcEntry)
		if !entry.evictable {
			continue
		}

		frameID := entry.frameID
		cache.Remove(e)
		delete(cacheMap, frameID)
		arc.curSize--

		ghostMap[frameID] = ghost.PushBack(frameID)
		if ghost.Len() > int(arc.capacity) {
			oldest := ghost.Front()
			delete(ghostMap, oldest.Value.(uint32))
			ghost.Remove(oldest)
		}

		return frameID, true
	}
	return 0, false
}

// Remove drops a specific frame and forgets its history entirely.
// The frame must be evictable; removing an untracked frame is a no-op.
func (arc *ARCReplacer) Remove(frameID uint32) {
	arc.mutex.Lock()
	defer arc.mutex.Unlock()

	arc.checkFrameID("Remove", frameID)

	entry := arc.lookup(frameID)
	if entry == nil {
		return
	}
	if !entry.evictable {
		panic(ErrFrameNotEvictable("Remove", frameID))
	}

	if elem, ok := arc.t1Map[frameID]; ok {
		arc.t1.Remove(elem)
		delete(arc.t1Map, frameID)
	} else if elem, ok := arc.t2Map[frameID]; ok {
		arc.t2.Remove(elem)
		delete(arc.t2Map, frameID)
	}
	arc.curSize--
}

// Size returns the number of evictable tracked frames
func (arc *ARCReplacer) Size() uint32 {
	arc.mutex.Lock()
	defer arc.mutex.Unlock()

	return arc.curSize
}

// lookup finds a tracked frame's entry in T1 or T2
func (arc *ARCReplacer) lookup(frameID uint32) *arcEntry {
	if elem, ok := arc.t1Map[frameID]; ok {
		return elem.Value.(*arcEntry)
	}
	if elem, ok := arc.t2Map[frameID]; ok {
		return elem.Value.(*arcEntry)
	}
	return nil
}

func (arc *ARCReplacer) checkFrameID(op string, frameID uint32) {
	if frameID >= arc.capacity {
		panic(ErrInvalidFrameID(op, frameID, arc.capacity))
	}
}

// ARCStats describes the current list sizes and adaptation target
type ARCStats struct {
	T1Size   int
	T2Size   int
	B1Size   int
	B2Size   int
	TargetP  int
	Capacity uint32
}

// GetStats returns ARC-specific statistics
func (arc *ARCReplacer) GetStats() ARCStats {
	arc.mutex.Lock()
	defer arc.mutex.Unlock()

	return ARCStats{
		T1Size:   arc.t1.Len(),
		T2Size:   arc.t2.Len(),
		B1Size:   arc.b1.Len(),
		B2Size:   arc.b2.Len(),
		TargetP:  arc.p,
		Capacity: arc.capacity,
	}
}
