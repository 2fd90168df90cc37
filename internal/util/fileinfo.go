package util

import (
	"syscall"

	"github.com/spf13/afero"
)

// FileInfo contains the file attributes used to validate cached decodes.
type FileInfo struct {
	ModTime int64  // Last modification time of the file (unix nanoseconds)
	Size    int64  // File size in bytes
	Inode   uint64 // Inode number, 0 when the filesystem does not expose one
}

// GetFileInfo stats path on fs. The inode is only available on OS-backed
// filesystems.
func GetFileInfo(fs afero.Fs, path string) (*FileInfo, error) {
	stat, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}

	info := &FileInfo{
		ModTime: stat.ModTime().UnixNano(),
		Size:    stat.Size(),
	}
	if sysStat, ok := stat.Sys().(*syscall.Stat_t); ok {
		info.Inode = uint64(sysStat.Ino)
	}

	return info, nil
}
