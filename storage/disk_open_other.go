//go:build !linux

package storage

// OpenDiskBackend opens the disk backend selected by the configuration.
// Mmap access is linux-only; other platforms fall back to buffered file IO.
func OpenDiskBackend(config *Config) (DiskBackend, error) {
	compression, err := ParseCompressionType(config.PageCompression)
	if err != nil {
		return nil, err
	}
	return NewDiskManagerWithCompression(config.DataFilePath(), compression)
}
