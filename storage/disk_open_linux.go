//go:build linux

package storage

// OpenDiskBackend opens the disk backend selected by the configuration.
// On linux, mmap-backed access is available via UseMmap.
func OpenDiskBackend(config *Config) (DiskBackend, error) {
	if config.UseMmap {
		return NewMmapDiskManager(config.DataFilePath())
	}

	compression, err := ParseCompressionType(config.PageCompression)
	if err != nil {
		return nil, err
	}
	return NewDiskManagerWithCompression(config.DataFilePath(), compression)
}
