package storage

import (
	"fmt"
)

// ErrorCode represents different types of storage errors
type ErrorCode int

const (
	// Generic errors
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInternal

	// Replacer errors
	ErrCodeInvalidFrameID
	ErrCodeFrameNotEvictable
	ErrCodeInvalidHistoryDepth
	ErrCodeNoEvictableFrames

	// Page errors
	ErrCodePageNotFound
	ErrCodeInvalidPageID
	ErrCodePageCorrupted

	// Buffer pool errors
	ErrCodeNoFreeFrames
	ErrCodePagePinned

	// Disk errors
	ErrCodeDiskReadFailed
	ErrCodeDiskWriteFailed
)

// StorageError represents a storage engine error with context
type StorageError struct {
	Code    ErrorCode
	Message string
	Op      string // Operation that failed
	Err     error  // Underlying error (if any)
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a specific error code
func (e *StorageError) Is(target error) bool {
	if t, ok := target.(*StorageError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewStorageError creates a new storage error
func NewStorageError(code ErrorCode, op, message string, err error) *StorageError {
	return &StorageError{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Helper functions for common errors

func ErrInvalidFrameID(op string, frameID, capacity uint32) *StorageError {
	return NewStorageError(
		ErrCodeInvalidFrameID,
		op,
		fmt.Sprintf("frame id %d out of range [0, %d)", frameID, capacity),
		nil,
	)
}

func ErrFrameNotEvictable(op string, frameID uint32) *StorageError {
	return NewStorageError(
		ErrCodeFrameNotEvictable,
		op,
		fmt.Sprintf("frame %d is not evictable", frameID),
		nil,
	)
}

func ErrInvalidHistoryDepth(op string) *StorageError {
	return NewStorageError(
		ErrCodeInvalidHistoryDepth,
		op,
		"history depth k must be at least 1",
		nil,
	)
}

func ErrNoEvictableFrames(op string) *StorageError {
	return NewStorageError(
		ErrCodeNoEvictableFrames,
		op,
		"no evictable frames in buffer pool",
		nil,
	)
}

func ErrPageNotFound(op string, pageID uint32) *StorageError {
	return NewStorageError(
		ErrCodePageNotFound,
		op,
		fmt.Sprintf("page %d not found", pageID),
		nil,
	)
}

func ErrPagePinned(op string, pageID uint32, pinCount int32) *StorageError {
	return NewStorageError(
		ErrCodePagePinned,
		op,
		fmt.Sprintf("page %d is pinned (pin count: %d)", pageID, pinCount),
		nil,
	)
}

func ErrDiskOperation(op string, err error) *StorageError {
	return NewStorageError(
		ErrCodeDiskWriteFailed,
		op,
		"disk operation failed",
		err,
	)
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	if se, ok := err.(*StorageError); ok {
		return se.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrCodeUnknown
func GetErrorCode(err error) ErrorCode {
	if se, ok := err.(*StorageError); ok {
		return se.Code
	}
	return ErrCodeUnknown
}
