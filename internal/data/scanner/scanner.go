package scanner

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-cfs-perfmon/internal/core/constants"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
	"github.com/spf13/afero"
)

// FileScanner scans files in the specified directory
type FileScanner struct {
	fs         afero.Fs
	baseDir    string
	extensions []string
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(fs afero.Fs, baseDir string) *FileScanner {
	return &FileScanner{
		fs:         fs,
		baseDir:    baseDir,
		extensions: constants.LogFileExtensions,
	}
}

// IsLogFile reports whether path has a performance log extension.
func IsLogFile(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range constants.LogFileExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Scan walks the directory and returns every performance log, sorted by
// path so that multi-log loads are reproducible.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()
	var files []string
	dirCount := 0
	totalCount := 0

	util.LogDebug(fmt.Sprintf("Start scanning directory: %s", s.baseDir))

	err := afero.Walk(s.fs, s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip file (error): %s - %v", path, err))
			return nil
		}

		if info.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		if s.matches(path) {
			files = append(files, path)
		}

		return nil
	})

	sort.Strings(files)

	util.LogDebug(fmt.Sprintf("File scan completed: duration %v, scanned %d directories, %d files, found %d logs",
		time.Since(start), dirCount, totalCount, len(files)))

	return files, err
}

func (s *FileScanner) matches(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range s.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ExpandPaths replaces each directory argument with the logs it contains.
// Plain files are kept in the order given.
func ExpandPaths(fs afero.Fs, args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := fs.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := NewFileScanner(fs, arg).Scan()
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no performance logs found in %s", arg)
		}
		paths = append(paths, found...)
	}
	return paths, nil
}
