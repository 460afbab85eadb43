package storage

import (
	"container/list"
	"sync"
)

// TwoQReplacer implements the 2Q replacement algorithm behind the common
// Replacer surface. Frames live in two queues:
// - A1: first-time accesses, FIFO ("probationary")
// - A2: repeatedly accessed frames, LRU ("protected")
// A frame graduates from A1 to A2 on its second access. A ghost list
// remembers frames recently dropped from A1 so a re-access can promote
// them straight to A2.
type TwoQReplacer struct {
	mu sync.Mutex

	a1    *list.List
	a1Map map[uint32]*list.Element

	a2    *list.List
	a2Map map[uint32]*list.Element

	a1out        *list.List
	a1outMap     map[uint32]*list.Element
	a1outMaxSize int

	evictable map[uint32]bool
	curSize   uint32
	capacity  uint32
}

// NewTwoQReplacer creates a 2Q replacer for frames in [0, capacity).
// Following the 2Q paper, the ghost list remembers up to half the
// capacity worth of recently dropped frames.
func NewTwoQReplacer(capacity uint32) *TwoQReplacer {
	a1outSize := int(capacity) / 2
	if a1outSize < 1 {
		a1outSize = 1
	}

	return &TwoQReplacer{
		a1:           list.New(),
		a1Map:        make(map[uint32]*list.Element),
		a2:           list.New(),
		a2Map:        make(map[uint32]*list.Element),
		a1out:        list.New(),
		a1outMap:     make(map[uint32]*list.Element),
		a1outMaxSize: a1outSize,
		evictable:    make(map[uint32]bool),
		capacity:     capacity,
	}
}

// RecordAccess notes that a frame was referenced, promoting it between
// queues according to its access history.
func (r *TwoQReplacer) RecordAccess(frameID uint32, accessType AccessType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkFrameID("RecordAccess", frameID)

	// Repeat access in the protected queue: refresh LRU position
	if elem, exists := r.a2Map[frameID]; exists {
		r.a2.MoveToFront(elem)
		return
	}

	// Second access while probationary: graduate to A2
	if elem, exists := r.a1Map[frameID]; exists {
		r.a1.Remove(elem)
		delete(r.a1Map, frameID)
		r.addToA2(frameID)
		return
	}

	// Re-access of a recently dropped frame: skip probation
	if elem, exists := r.a1outMap[frameID]; exists {
		r.a1out.Remove(elem)
		delete(r.a1outMap, frameID)
		r.track(frameID)
		r.addToA2(frameID)
		return
	}

	r.track(frameID)
	r.addToA1(frameID)
}

// track registers a newly seen frame, non-evictable by default
func (r *TwoQReplacer) track(frameID uint32) {
	if _, exists := r.evictable[frameID]; !exists {
		r.evictable[frameID] = false
	}
}

// SetEvictable marks a frame as eligible or ineligible for eviction
func (r *TwoQReplacer) SetEvictable(frameID uint32, evictableFlag bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkFrameID("SetEvictable", frameID)

	current, tracked := r.evictable[frameID]
	if !tracked {
		return
	}
	if current == evictableFlag {
		return
	}

	r.evictable[frameID] = evictableFlag
	if evictableFlag {
		r.curSize++
	} else {
		r.curSize--
	}
}

// Evict drops the first evictable frame, preferring the probationary
// queue (FIFO order) over the protected one (LRU order).
func (r *TwoQReplacer) Evict() (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.curSize == 0 {
		return 0, false
	}

	// Probationary frames go first, oldest arrival forward
	for elem := r.a1.Back(); elem != nil; elem = elem.Prev() {
		frameID := elem.Value.(uint32)
		if !r.evictable[frameID] {
			continue
		}
		r.a1.Remove(elem)
		delete(r.a1Map, frameID)
		delete(r.evictable, frameID)
		r.curSize--
		// Remember it so a quick re-access skips probation
		r.addToA1out(frameID)
		return frameID, true
	}

	for elem := r.a2.Back(); elem != nil; elem = elem.Prev() {
		frameID := elem.Value.(uint32)
		if !r.evictable[frameID] {
			continue
		}
		r.a2.Remove(elem)
		delete(r.a2Map, frameID)
		delete(r.evictable, frameID)
		r.curSize--
		return frameID, true
	}

	return 0, false
}

// Remove drops a specific frame regardless of queue position.
// The frame must be evictable; removing an untracked frame is a no-op.
func (r *TwoQReplacer) Remove(frameID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkFrameID("Remove", frameID)

	evictableFlag, tracked := r.evictable[frameID]
	if !tracked {
		return
	}
	if !evictableFlag {
		panic(ErrFrameNotEvictable("Remove", frameID))
	}

	if elem, exists := r.a1Map[frameID]; exists {
		r.a1.Remove(elem)
		delete(r.a1Map, frameID)
	} else if elem, exists := r.a2Map[frameID]; exists {
		r.a2.Remove(elem)
		delete(r.a2Map, frameID)
	}

	delete(r.evictable, frameID)
	r.curSize--
}

// Size returns the number of evictable tracked frames
func (r *TwoQReplacer) Size() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.curSize
}

// addToA1 places a first-time frame in the probationary queue.
// Tracked frames only ever leave through Evict or Remove, so the queue
// is bounded by the frame capacity rather than a separate A1 limit.
func (r *TwoQReplacer) addToA1(frameID uint32) {
	elem := r.a1.PushFront(frameID)
	r.a1Map[frameID] = elem
}

// addToA2 places a graduated frame at the head of the protected queue
func (r *TwoQReplacer) addToA2(frameID uint32) {
	elem := r.a2.PushFront(frameID)
	r.a2Map[frameID] = elem
}

// addToA1out records a ghost entry for a frame dropped from A1
func (r *TwoQReplacer) addToA1out(frameID uint32) {
	if r.a1out.Len() >= r.a1outMaxSize {
		elem := r.a1out.Back()
		ghostID := elem.Value.(uint32)
		r.a1out.Remove(elem)
		delete(r.a1outMap, ghostID)
	}

	elem := r.a1out.PushFront(frameID)
	r.a1outMap[frameID] = elem
}

func (r *TwoQReplacer) checkFrameID(op string, frameID uint32) {
	if frameID >= r.capacity {
		panic(ErrInvalidFrameID(op, frameID, r.capacity))
	}
}
