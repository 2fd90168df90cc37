package analyzer

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const notesSuffix = ".notes"

// NotesPath returns the sidecar file holding the notes of a log.
func NotesPath(logPath string) string {
	return logPath + notesSuffix
}

// LoadNotes reads "index,note" lines. A missing file means no notes.
func LoadNotes(afs afero.Fs, logPath string) (map[int]string, error) {
	notes := make(map[int]string)

	file, err := afs.Open(NotesPath(logPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return notes, nil
		}
		return nil, fmt.Errorf("failed to open notes: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		idxStr, note, ok := strings.Cut(text, ",")
		if !ok {
			return nil, fmt.Errorf("notes line %d: missing comma", line)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("notes line %d: invalid index %q", line, idxStr)
		}
		notes[idx] = note
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	return notes, nil
}

// SaveNotes replaces the sidecar file through a temporary file and a
// rename. An empty map removes the file.
func SaveNotes(afs afero.Fs, logPath string, notes map[int]string) error {
	path := NotesPath(logPath)
	if len(notes) == 0 {
		if err := afs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove notes: %w", err)
		}
		return nil
	}

	indexes := make([]int, 0, len(notes))
	for idx := range notes {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	var b strings.Builder
	for _, idx := range indexes {
		note := strings.NewReplacer("\r", " ", "\n", " ").Replace(notes[idx])
		fmt.Fprintf(&b, "%d,%s\n", idx, note)
	}

	tmp, err := afero.TempFile(afs, filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create notes: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		afs.Remove(tmpName)
		return fmt.Errorf("failed to write notes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		afs.Remove(tmpName)
		return fmt.Errorf("failed to write notes: %w", err)
	}
	if err := afs.Rename(tmpName, path); err != nil {
		afs.Remove(tmpName)
		return fmt.Errorf("failed to replace notes: %w", err)
	}
	return nil
}
