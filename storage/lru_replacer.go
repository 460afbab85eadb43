package storage

import (
	"container/list"
	"sync"
)

// lruNode represents a tracked frame in the LRU list
type lruNode struct {
	frameID   uint32
	evictable bool
}

// LRUReplacer implements the classic LRU (Least Recently Used) policy
// behind the same operation surface as LRU-K. Only the most recent access
// matters: the evictable frame touched longest ago is the victim.
type LRUReplacer struct {
	capacity uint32
	lruList  *list.List // Front = least recently used
	lruMap   map[uint32]*list.Element
	curSize  uint32 // Number of evictable frames
	mutex    sync.Mutex
}

// NewLRUReplacer creates a new LRU replacer tracking frame ids in [0, capacity)
func NewLRUReplacer(capacity uint32) *LRUReplacer {
	return &LRUReplacer{
		capacity: capacity,
		lruList:  list.New(),
		lruMap:   make(map[uint32]*list.Element),
	}
}

// RecordAccess marks frameID as most recently used.
// First access starts tracking the frame as non-evictable.
func (lru *LRUReplacer) RecordAccess(frameID uint32, accessType AccessType) {
	lru.checkFrameID("RecordAccess", frameID)

	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	if elem, exists := lru.lruMap[frameID]; exists {
		lru.lruList.MoveToBack(elem)
		return
	}

	node := &lruNode{frameID: frameID}
	lru.lruMap[frameID] = lru.lruList.PushBack(node)
}

// SetEvictable toggles eviction eligibility for frameID.
// Untracked frames are ignored.
func (lru *LRUReplacer) SetEvictable(frameID uint32, evictable bool) {
	lru.checkFrameID("SetEvictable", frameID)

	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	elem, exists := lru.lruMap[frameID]
	if !exists {
		return
	}

	node := elem.Value.(*lruNode)
	if evictable && !node.evictable {
		node.evictable = true
		lru.curSize++
	} else if !evictable && node.evictable {
		node.evictable = false
		lru.curSize--
	}
}

// Evict removes and returns the least recently used evictable frame.
// Returns false if no frame is evictable.
func (lru *LRUReplacer) Evict() (uint32, bool) {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	for elem := lru.lruList.Front(); elem != nil; elem = elem.Next() {
		node := elem.Value.(*lruNode)
		if !node.evictable {
			continue
		}
		lru.lruList.Remove(elem)
		delete(lru.lruMap, node.frameID)
		lru.curSize--
		return node.frameID, true
	}

	return 0, false
}

// Remove drops frameID from the replacer regardless of its recency.
// Untracked frames are ignored; removing a non-evictable frame panics.
func (lru *LRUReplacer) Remove(frameID uint32) {
	lru.checkFrameID("Remove", frameID)

	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	elem, exists := lru.lruMap[frameID]
	if !exists {
		return
	}

	node := elem.Value.(*lruNode)
	if !node.evictable {
		panic(ErrFrameNotEvictable("Remove", frameID))
	}

	lru.lruList.Remove(elem)
	delete(lru.lruMap, frameID)
	lru.curSize--
}

// Size returns the number of evictable frames
func (lru *LRUReplacer) Size() uint32 {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	return lru.curSize
}

// checkFrameID panics if frameID is outside [0, capacity)
func (lru *LRUReplacer) checkFrameID(op string, frameID uint32) {
	if frameID >= lru.capacity {
		panic(ErrInvalidFrameID(op, frameID, lru.capacity))
	}
}
