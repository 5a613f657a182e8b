package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/theirongolddev/financas/internal/model"
)

// ScanDir walks dir and discovers every .csv export, sorted by path.
func ScanDir(dir string) ([]DiscoveredFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []DiscoveredFile
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		files = append(files, DiscoveredFile{Path: path, Name: d.Name()})
		return nil
	})

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, err
}

// ReadFile parses one CSV export from disk.
func ReadFile(path string) ([]model.Transaction, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the user on purpose
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	txs, err := ParseCSV(f)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return txs, nil
}
