package digest

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SourceReader fetches and parses one source into normalized items.
type SourceReader interface {
	Read(ctx context.Context, source SourceConfig) ([]NormalizedItem, error)
}

type sourceResult struct {
	items    []NormalizedItem
	err      error
	duration time.Duration
}

// Pool fans source reads out over a fixed number of workers. Every source
// settles into its own result slot, so results come back in input order.
type Pool struct {
	reader      SourceReader
	workerCount int
	timeout     time.Duration
}

func NewPool(reader SourceReader, workerCount int, timeout time.Duration) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		reader:      reader,
		workerCount: workerCount,
		timeout:     timeout,
	}
}

func (p *Pool) Run(ctx context.Context, sources []SourceConfig) []sourceResult {
	results := make([]sourceResult, len(sources))
	if len(sources) == 0 {
		return results
	}

	queue := make(chan int, len(sources))
	for i := range sources {
		queue <- i
	}
	close(queue)

	workers := min(p.workerCount, len(sources))

	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range queue {
				results[i] = p.read(ctx, workerID, sources[i])
			}
		}(id)
	}
	wg.Wait()

	return results
}

func (p *Pool) read(ctx context.Context, workerID int, source SourceConfig) sourceResult {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return sourceResult{err: err}
	}

	readCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	items, err := p.reader.Read(readCtx, source)
	duration := time.Since(start)

	if err != nil {
		slog.Warn("Source read failed", "worker_id", workerID, "source", source.ID, "duration", duration, "error", err)
		return sourceResult{err: err, duration: duration}
	}

	slog.Debug("Source read completed", "worker_id", workerID, "source", source.ID, "duration", duration, "items", len(items))
	return sourceResult{items: items, duration: duration}
}
