package pipeline

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/source"
)

// LoadResult holds the output of the loading stage.
type LoadResult struct {
	Transactions []model.Transaction
	TotalFiles   int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

type fileResult struct {
	txs []model.Transaction
	err error
}

// Load reads one export, or every .csv export under a directory.
// Files are parsed with a bounded worker pool and concatenated in path order.
// The first malformed file (by path order) fails the whole load.
func Load(path string, progressFn ProgressFunc) (*LoadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		txs, err := source.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if progressFn != nil {
			progressFn(1, 1)
		}
		return &LoadResult{Transactions: txs, TotalFiles: 1}, nil
	}

	files, err := source.ScanDir(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	result := &LoadResult{TotalFiles: len(files)}
	if len(files) == 0 {
		return result, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]fileResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				txs, err := source.ReadFile(files[idx].Path)
				results[idx] = fileResult{txs: txs, err: err}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	for _, fr := range results {
		if fr.err != nil {
			return nil, fr.err
		}
		result.Transactions = append(result.Transactions, fr.txs...)
	}

	return result, nil
}
