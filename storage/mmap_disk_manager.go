//go:build linux

package storage

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// MmapDiskManager provides zero-copy page access using a memory-mapped file.
// Reads and writes go straight through the mapping; Sync msyncs the mapping
// to stable storage. Pages are stored raw (no transparent compression).
type MmapDiskManager struct {
	file       *os.File
	mmapData   []byte
	fileSize   int64
	nextPageId uint32
	mutex      sync.RWMutex
	growMutex  sync.Mutex // Serializes file growth and remapping
}

const (
	// Initial file size: 64MB (16K pages * 4KB)
	InitialFileSize = 64 * 1024 * 1024
	// Grow by 64MB when we run out of space
	FileGrowSize = 64 * 1024 * 1024
)

// NewMmapDiskManager creates a new memory-mapped disk manager
func NewMmapDiskManager(fileName string) (*MmapDiskManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open/create file %s: %w", fileName, err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fileSize := fileInfo.Size()
	nextPageId := uint32(fileSize / PageSize)

	// If file is new or too small, grow it to initial size
	if fileSize < InitialFileSize {
		if err := file.Truncate(InitialFileSize); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to grow file: %w", err)
		}
		fileSize = InitialFileSize
	}

	dm := &MmapDiskManager{
		file:       file,
		fileSize:   fileSize,
		nextPageId: nextPageId,
	}

	if err := dm.createMapping(); err != nil {
		file.Close()
		return nil, err
	}

	return dm, nil
}

// createMapping maps the whole file read-write
func (dm *MmapDiskManager) createMapping() error {
	data, err := unix.Mmap(
		int(dm.file.Fd()),
		0,
		int(dm.fileSize),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %w", err)
	}

	dm.mmapData = data
	return nil
}

// AllocatePage allocates a new page and returns its page ID
func (dm *MmapDiskManager) AllocatePage() (uint32, error) {
	dm.mutex.Lock()
	pageId := dm.nextPageId
	dm.nextPageId++
	needed := int64(pageId+1) * PageSize
	current := dm.fileSize
	dm.mutex.Unlock()

	if needed > current {
		if err := dm.growFile(needed); err != nil {
			return 0, err
		}
	}

	return pageId, nil
}

// growFile expands the file and recreates the mapping
func (dm *MmapDiskManager) growFile(needed int64) error {
	dm.growMutex.Lock()
	defer dm.growMutex.Unlock()

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	// Another grower may have beaten us here
	if needed <= dm.fileSize {
		return nil
	}

	newSize := dm.fileSize + FileGrowSize
	for newSize < needed {
		newSize += FileGrowSize
	}

	if err := unix.Munmap(dm.mmapData); err != nil {
		return fmt.Errorf("failed to unmap file: %w", err)
	}
	dm.mmapData = nil

	if err := dm.file.Truncate(newSize); err != nil {
		return fmt.Errorf("failed to grow file: %w", err)
	}
	dm.fileSize = newSize

	return dm.createMapping()
}

// ReadPage reads a page from the mapping given its page ID.
// Returns a copy; the mapping may move on file growth.
func (dm *MmapDiskManager) ReadPage(pageId uint32) ([]byte, error) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	offset := int64(pageId) * PageSize
	if offset+PageSize > dm.fileSize {
		return nil, fmt.Errorf("failed to read page %d: offset beyond file size", pageId)
	}

	data := make([]byte, PageSize)
	copy(data, dm.mmapData[offset:offset+PageSize])
	return data, nil
}

// WritePage writes a page into the mapping at the specified page ID
func (dm *MmapDiskManager) WritePage(pageId uint32, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageId) * PageSize
	if offset+PageSize > dm.fileSize {
		return fmt.Errorf("failed to write page %d: offset beyond file size", pageId)
	}

	copy(dm.mmapData[offset:offset+PageSize], data)
	return nil
}

// WritePagesV writes multiple pages into the mapping
func (dm *MmapDiskManager) WritePagesV(writes []PageWrite) error {
	for _, pw := range writes {
		if err := dm.WritePage(pw.PageID, pw.Data); err != nil {
			return err
		}
	}
	return nil
}

// Sync flushes the mapping to stable storage
func (dm *MmapDiskManager) Sync() error {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	if err := unix.Msync(dm.mmapData, unix.MS_SYNC); err != nil {
		return fmt.Errorf("failed to msync: %w", err)
	}
	return nil
}

// Close unmaps the file and closes it
func (dm *MmapDiskManager) Close() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if dm.mmapData != nil {
		if err := unix.Munmap(dm.mmapData); err != nil {
			return fmt.Errorf("failed to unmap file: %w", err)
		}
		dm.mmapData = nil
	}

	if dm.file != nil {
		return dm.file.Close()
	}
	return nil
}
