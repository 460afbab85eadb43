package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// PageSize is the fixed on-disk and in-memory page size in bytes
const PageSize = 4096

// DiskBackend abstracts page-granular disk access so the buffer pool can
// run against either the file-backed or the memory-mapped manager.
type DiskBackend interface {
	AllocatePage() (uint32, error)
	ReadPage(pageId uint32) ([]byte, error)
	WritePage(pageId uint32, data []byte) error
	WritePagesV(writes []PageWrite) error
	Sync() error
	Close() error
}

// DiskManager manages fixed-size pages in a single file
type DiskManager struct {
	file        *os.File
	nextPageId  uint32
	compression CompressionType
	mutex       sync.Mutex
}

// NewDiskManager creates a new disk manager that manages pages in a file
func NewDiskManager(fileName string) (*DiskManager, error) {
	return NewDiskManagerWithCompression(fileName, CompressionNone)
}

// NewDiskManagerWithCompression creates a disk manager that transparently
// compresses pages on write and decompresses them on read.
func NewDiskManagerWithCompression(fileName string, compression CompressionType) (*DiskManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open/create file %s: %w", fileName, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file %s: %w", fileName, err)
	}

	return &DiskManager{
		file:        file,
		nextPageId:  uint32((info.Size() + PageSize - 1) / PageSize),
		compression: compression,
	}, nil
}

// AllocatePage allocates a new page and returns its page ID
func (dm *DiskManager) AllocatePage() (uint32, error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	pageId := dm.nextPageId
	dm.nextPageId++
	return pageId, nil
}

// ReadPage reads a page from disk given its page ID.
// Compressed pages are detected by their header and decompressed.
func (dm *DiskManager) ReadPage(pageId uint32) ([]byte, error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageId) * PageSize
	data := make([]byte, PageSize)

	// A compressed page at the end of the file occupies less than a full
	// slot, so a short read is acceptable as long as something came back.
	n, err := dm.file.ReadAt(data, offset)
	if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
		return nil, fmt.Errorf("failed to read page %d: %w", pageId, err)
	}

	return DecompressPageTransparent(data)
}

// WritePage writes a page to disk at the specified page ID
func (dm *DiskManager) WritePage(pageId uint32, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}

	stored, err := dm.encodePage(data)
	if err != nil {
		return err
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageId) * PageSize
	_, err = dm.file.WriteAt(stored, offset)
	if err != nil {
		return fmt.Errorf("failed to write page %d: %w", pageId, err)
	}

	return dm.file.Sync() // Ensure data is written to disk
}

// PageWrite represents a single page write operation
type PageWrite struct {
	PageID uint32
	Data   []byte
}

// WritePagesV writes multiple pages in a single batch operation.
// More efficient than writing pages one-at-a-time.
func (dm *DiskManager) WritePagesV(writes []PageWrite) error {
	if len(writes) == 0 {
		return nil
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	for _, pw := range writes {
		if len(pw.Data) != PageSize {
			return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(pw.Data))
		}

		stored, err := dm.encodePage(pw.Data)
		if err != nil {
			return err
		}

		offset := int64(pw.PageID) * PageSize
		_, err = dm.file.WriteAt(stored, offset)
		if err != nil {
			return fmt.Errorf("failed to write page %d: %w", pw.PageID, err)
		}
	}

	// Single fsync for all pages (amortize cost)
	return dm.file.Sync()
}

// encodePage applies the configured compression, falling back to the raw
// page when compression is disabled or not worthwhile.
func (dm *DiskManager) encodePage(data []byte) ([]byte, error) {
	if dm.compression == CompressionNone {
		return data, nil
	}
	return CompressPageTransparent(data, dm.compression)
}

// Sync flushes file contents to stable storage
func (dm *DiskManager) Sync() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	return dm.file.Sync()
}

// Close closes the disk manager and its underlying file
func (dm *DiskManager) Close() error {
	if dm.file != nil {
		return dm.file.Close()
	}
	return nil
}
