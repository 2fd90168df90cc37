package util

import (
	"fmt"
	"hash/crc32"
	"io"

	"github.com/spf13/afero"
)

const fingerprintWindow = 2048

// CalculateFileFingerprint calculates the CRC32 of the first and last 2KB of a
// file. Performance logs are rewritten in place by the flight software, so
// the head (magic plus first records) is included alongside the tail.
func CalculateFileFingerprint(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", err
	}

	size := stat.Size()
	readSize := int64(fingerprintWindow)
	if size < readSize {
		readSize = size
	}

	crc := crc32.NewIEEE()
	buf := make([]byte, readSize)

	if _, err := io.ReadFull(file, buf); err != nil {
		return "", err
	}
	crc.Write(buf)

	if size > readSize {
		if _, err := file.Seek(-readSize, io.SeekEnd); err != nil {
			return "", err
		}
		if _, err := io.ReadFull(file, buf); err != nil {
			return "", err
		}
		crc.Write(buf)
	}

	return fmt.Sprintf("%08x", crc.Sum32()), nil
}
