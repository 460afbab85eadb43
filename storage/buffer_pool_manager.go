package storage

import (
	"sync"
	"time"
)

// Page represents a page resident in a buffer pool frame
type Page struct {
	pageId   uint32
	pinCount int32
	isDirty  bool
	data     []byte // PageSize bytes
	mutex    sync.RWMutex
}

// NewPage creates a new in-memory page with the given page ID
func NewPage(pageId uint32) *Page {
	return &Page{
		pageId: pageId,
		data:   make([]byte, PageSize),
	}
}

// GetPageId returns the page ID
func (p *Page) GetPageId() uint32 {
	return p.pageId
}

// GetPinCount returns the pin count
func (p *Page) GetPinCount() int32 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.pinCount
}

// IsDirty returns whether the page is dirty
func (p *Page) IsDirty() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.isDirty
}

// SetDirty sets the dirty flag
func (p *Page) SetDirty(dirty bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.isDirty = dirty
}

// Pin increments the pin count
func (p *Page) Pin() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.pinCount++
}

// Unpin decrements the pin count
func (p *Page) Unpin() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.pinCount > 0 {
		p.pinCount--
	}
}

// GetData returns the page's data buffer
func (p *Page) GetData() []byte {
	return p.data
}

// BufferPoolManager manages a fixed pool of page frames in memory.
// Frame reclamation is delegated to a Replacer: every page access is
// reported with RecordAccess, pinned frames are held non-evictable, and
// frames whose pin count drops to zero are handed back as candidates.
type BufferPoolManager struct {
	poolSize    uint32
	pages       []*Page // Indexed by frame ID
	pageTable   map[uint32]uint32
	freeList    []uint32
	diskManager DiskBackend
	replacer    Replacer
	metrics     *Metrics

	tableMutex    sync.RWMutex // Protects pageTable and pages
	freeListMutex sync.Mutex   // Protects freeList only
}

// NewBufferPoolManager creates a buffer pool with the default LRU-K policy
func NewBufferPoolManager(poolSize uint32, diskManager DiskBackend) (*BufferPoolManager, error) {
	return NewBufferPoolManagerWithReplacer(poolSize, diskManager, "lruk", DefaultHistoryDepth)
}

// NewBufferPoolManagerWithReplacer creates a buffer pool with a specific
// replacement policy. k is the history depth and only applies to LRU-K.
func NewBufferPoolManagerWithReplacer(poolSize uint32, diskManager DiskBackend, replacerAlg string, k uint32) (*BufferPoolManager, error) {
	if poolSize == 0 {
		return nil, NewStorageError(ErrCodeInternal, "NewBufferPoolManager", "pool size must be greater than 0", nil)
	}

	bpm := &BufferPoolManager{
		poolSize:    poolSize,
		pages:       make([]*Page, poolSize),
		pageTable:   make(map[uint32]uint32, poolSize),
		freeList:    make([]uint32, 0, poolSize),
		diskManager: diskManager,
		replacer:    NewReplacer(replacerAlg, poolSize, k),
		metrics:     NewMetrics(),
	}

	// Initialize free list with all frame indices
	for i := uint32(0); i < poolSize; i++ {
		bpm.freeList = append(bpm.freeList, i)
	}

	return bpm, nil
}

// GetPoolSize returns the pool size
func (bpm *BufferPoolManager) GetPoolSize() uint32 {
	return bpm.poolSize
}

// NewPage allocates a new page on disk and brings it into the buffer pool.
// The returned page is pinned; callers must UnpinPage when done.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	pageId, err := bpm.diskManager.AllocatePage()
	if err != nil {
		return nil, ErrDiskOperation("NewPage", err)
	}

	frameId, err := bpm.getFrameId()
	if err != nil {
		return nil, err
	}

	page := NewPage(pageId)
	page.Pin()

	bpm.tableMutex.Lock()
	bpm.pages[frameId] = page
	bpm.pageTable[pageId] = frameId
	bpm.tableMutex.Unlock()

	// Register the access and hold the frame while pinned
	bpm.replacer.RecordAccess(frameId, AccessUnspecified)
	bpm.replacer.SetEvictable(frameId, false)

	return page, nil
}

// FetchPage fetches a page, reading it from disk on a cache miss.
// The returned page is pinned; callers must UnpinPage when done.
func (bpm *BufferPoolManager) FetchPage(pageId uint32) (*Page, error) {
	return bpm.FetchPageWithAccessType(pageId, AccessUnspecified)
}

// FetchPageWithAccessType fetches a page while classifying the access for
// the replacement policy (e.g. AccessScan for sequential reads).
func (bpm *BufferPoolManager) FetchPageWithAccessType(pageId uint32, accessType AccessType) (*Page, error) {
	start := time.Now()
	defer func() {
		bpm.metrics.RecordPageFetchLatency(time.Since(start))
	}()

	// Check if page is already in buffer pool
	bpm.tableMutex.RLock()
	frameId, exists := bpm.pageTable[pageId]
	var page *Page
	if exists {
		page = bpm.pages[frameId]
	}
	bpm.tableMutex.RUnlock()

	if exists {
		bpm.metrics.RecordCacheHit()
		page.Pin()
		bpm.replacer.RecordAccess(frameId, accessType)
		bpm.replacer.SetEvictable(frameId, false)
		return page, nil
	}

	// Cache miss - bring the page in from disk
	bpm.metrics.RecordCacheMiss()

	frameId, err := bpm.getFrameId()
	if err != nil {
		return nil, err
	}

	pageData, err := bpm.diskManager.ReadPage(pageId)
	if err != nil {
		// Hand the frame back so it is not leaked
		bpm.freeListMutex.Lock()
		bpm.freeList = append(bpm.freeList, frameId)
		bpm.freeListMutex.Unlock()
		return nil, ErrDiskOperation("FetchPage", err)
	}

	page = NewPage(pageId)
	copy(page.data, pageData)
	page.Pin()

	bpm.tableMutex.Lock()
	// A concurrent fetch may have brought the page in while we read disk
	if residentFrame, raced := bpm.pageTable[pageId]; raced {
		resident := bpm.pages[residentFrame]
		bpm.tableMutex.Unlock()

		bpm.freeListMutex.Lock()
		bpm.freeList = append(bpm.freeList, frameId)
		bpm.freeListMutex.Unlock()

		resident.Pin()
		bpm.replacer.RecordAccess(residentFrame, accessType)
		bpm.replacer.SetEvictable(residentFrame, false)
		return resident, nil
	}
	bpm.pages[frameId] = page
	bpm.pageTable[pageId] = frameId
	bpm.tableMutex.Unlock()

	bpm.replacer.RecordAccess(frameId, accessType)
	bpm.replacer.SetEvictable(frameId, false)

	return page, nil
}

// UnpinPage unpins a page and optionally marks it as dirty.
// When the pin count reaches zero the frame becomes an eviction candidate.
func (bpm *BufferPoolManager) UnpinPage(pageId uint32, isDirty bool) error {
	bpm.tableMutex.RLock()
	frameId, exists := bpm.pageTable[pageId]
	var page *Page
	if exists {
		page = bpm.pages[frameId]
	}
	bpm.tableMutex.RUnlock()

	if !exists {
		return ErrPageNotFound("UnpinPage", pageId)
	}

	page.Unpin()

	if isDirty {
		page.SetDirty(true)
	}

	if page.GetPinCount() == 0 {
		bpm.replacer.SetEvictable(frameId, true)
	}

	return nil
}

// DeletePage drops a page from the buffer pool and erases its access
// history. The page must be unpinned.
func (bpm *BufferPoolManager) DeletePage(pageId uint32) error {
	bpm.tableMutex.Lock()
	frameId, exists := bpm.pageTable[pageId]
	if !exists {
		// Not resident, nothing to do
		bpm.tableMutex.Unlock()
		return nil
	}

	page := bpm.pages[frameId]
	if pinCount := page.GetPinCount(); pinCount > 0 {
		bpm.tableMutex.Unlock()
		return ErrPagePinned("DeletePage", pageId, pinCount)
	}

	delete(bpm.pageTable, pageId)
	bpm.pages[frameId] = nil
	bpm.tableMutex.Unlock()

	// The frame was marked evictable when its pin count hit zero
	bpm.replacer.Remove(frameId)

	bpm.freeListMutex.Lock()
	bpm.freeList = append(bpm.freeList, frameId)
	bpm.freeListMutex.Unlock()

	return nil
}

// getFrameId returns a free frame ID, evicting a page if necessary
func (bpm *BufferPoolManager) getFrameId() (uint32, error) {
	bpm.freeListMutex.Lock()
	if len(bpm.freeList) > 0 {
		frameId := bpm.freeList[0]
		bpm.freeList = bpm.freeList[1:]
		bpm.freeListMutex.Unlock()
		return frameId, nil
	}
	bpm.freeListMutex.Unlock()

	return bpm.evictPage()
}

// evictPage reclaims a frame using the replacement policy
func (bpm *BufferPoolManager) evictPage() (uint32, error) {
	frameId, ok := bpm.replacer.Evict()
	if !ok {
		return 0, ErrNoEvictableFrames("evictPage")
	}

	bpm.tableMutex.Lock()
	page := bpm.pages[frameId]
	if page != nil {
		// Flush dirty page before eviction
		if page.IsDirty() {
			bpm.metrics.RecordDirtyPageFlush()
			if err := bpm.flushPage(page); err != nil {
				bpm.tableMutex.Unlock()
				return 0, err
			}
		}

		delete(bpm.pageTable, page.GetPageId())
		bpm.pages[frameId] = nil
	}
	bpm.tableMutex.Unlock()

	bpm.metrics.RecordPageEviction()

	return frameId, nil
}

// flushPage writes a page back to disk
func (bpm *BufferPoolManager) flushPage(page *Page) error {
	start := time.Now()
	defer func() {
		bpm.metrics.RecordPageFlushLatency(time.Since(start))
	}()

	if err := bpm.diskManager.WritePage(page.GetPageId(), page.data); err != nil {
		return ErrDiskOperation("flushPage", err)
	}

	page.SetDirty(false)
	return nil
}

// FlushPage explicitly flushes a page to disk
func (bpm *BufferPoolManager) FlushPage(pageId uint32) error {
	bpm.tableMutex.RLock()
	frameId, exists := bpm.pageTable[pageId]
	var page *Page
	if exists {
		page = bpm.pages[frameId]
	}
	bpm.tableMutex.RUnlock()

	if !exists {
		return ErrPageNotFound("FlushPage", pageId)
	}

	return bpm.flushPage(page)
}

// FlushAllPages flushes all dirty pages to disk using a single batch write
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.tableMutex.RLock()
	dirtyPages := make([]PageWrite, 0)
	for _, page := range bpm.pages {
		if page != nil && page.IsDirty() {
			dirtyPages = append(dirtyPages, PageWrite{
				PageID: page.GetPageId(),
				Data:   page.data,
			})
		}
	}
	bpm.tableMutex.RUnlock()

	if len(dirtyPages) == 0 {
		return nil
	}

	if err := bpm.diskManager.WritePagesV(dirtyPages); err != nil {
		return ErrDiskOperation("FlushAllPages", err)
	}

	// Mark all pages as clean
	bpm.tableMutex.RLock()
	for _, pw := range dirtyPages {
		if frameId, exists := bpm.pageTable[pw.PageID]; exists {
			bpm.pages[frameId].SetDirty(false)
		}
	}
	bpm.tableMutex.RUnlock()

	bpm.metrics.RecordDirtyPageFlush()

	return nil
}

// GetDirtyPageCount returns the number of dirty pages in the buffer pool
func (bpm *BufferPoolManager) GetDirtyPageCount() int {
	bpm.tableMutex.RLock()
	defer bpm.tableMutex.RUnlock()

	count := 0
	for _, page := range bpm.pages {
		if page != nil && page.IsDirty() {
			count++
		}
	}
	return count
}

// GetDirtyPages returns the IDs of up to maxPages dirty resident pages
func (bpm *BufferPoolManager) GetDirtyPages(maxPages int) []uint32 {
	bpm.tableMutex.RLock()
	defer bpm.tableMutex.RUnlock()

	pageIds := make([]uint32, 0, maxPages)
	for _, page := range bpm.pages {
		if page != nil && page.IsDirty() {
			pageIds = append(pageIds, page.GetPageId())
			if len(pageIds) >= maxPages {
				break
			}
		}
	}
	return pageIds
}

// GetMetrics returns the buffer pool metrics
func (bpm *BufferPoolManager) GetMetrics() *Metrics {
	return bpm.metrics
}
