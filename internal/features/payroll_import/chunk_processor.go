package payroll_import

import (
	"context"
	"runtime"
)

// ChunkProcessor validates a parsed sheet in fixed-size chunks. Chunking only
// bounds the work done between yields; results do not depend on chunk size.
type ChunkProcessor struct {
	validator *RowValidator
	chunkSize int
}

func NewChunkProcessor(validator *RowValidator, chunkSize int) *ChunkProcessor {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &ChunkProcessor{validator: validator, chunkSize: chunkSize}
}

// ChunkRun is one in-flight processing job.
type ChunkRun struct {
	progress chan ProgressUpdate
	done     chan struct{}
	result   *PreviewResult
	err      error
}

// Progress yields one update per processed chunk and is closed when processing
// ends. It is buffered for every chunk, so ignoring it never stalls the run.
func (r *ChunkRun) Progress() <-chan ProgressUpdate { return r.progress }

// Wait blocks until processing has finished.
func (r *ChunkRun) Wait() (*PreviewResult, error) {
	<-r.done
	return r.result, r.err
}

// Start begins processing sheet in the background.
func (p *ChunkProcessor) Start(ctx context.Context, sheet *Sheet) *ChunkRun {
	total := len(sheet.Rows)
	chunkCount := 1
	if total > p.chunkSize {
		chunkCount = (total + p.chunkSize - 1) / p.chunkSize
	}

	run := &ChunkRun{
		progress: make(chan ProgressUpdate, chunkCount),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(run.done)
		defer close(run.progress)
		run.result, run.err = p.process(ctx, sheet, chunkCount, run.progress)
	}()
	return run
}

// Process runs Start and waits for the result.
func (p *ChunkProcessor) Process(ctx context.Context, sheet *Sheet) (*PreviewResult, error) {
	return p.Start(ctx, sheet).Wait()
}

func (p *ChunkProcessor) process(ctx context.Context, sheet *Sheet, chunkCount int, progress chan<- ProgressUpdate) (*PreviewResult, error) {
	total := len(sheet.Rows)
	rows := make([]ImportRow, 0, total)

	size := p.chunkSize
	if chunkCount == 1 {
		size = total
	}

	for chunk := 0; chunk < chunkCount; chunk++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := chunk * size
		end := start + size
		if end > total {
			end = total
		}
		for _, sr := range sheet.Rows[start:end] {
			rows = append(rows, p.validator.ValidateRow(sr))
		}

		pct := 100.0
		if total > 0 {
			pct = float64(end) * 100 / float64(total)
		}
		progress <- ProgressUpdate{
			Processed:  end,
			Total:      total,
			ChunkIndex: chunk,
			ChunkCount: chunkCount,
			Percentage: pct,
		}

		if chunk < chunkCount-1 {
			runtime.Gosched()
		}
	}

	if err := p.validator.Finalize(ctx, rows); err != nil {
		return nil, err
	}

	return &PreviewResult{
		Headers: append([]string(nil), sheet.Headers...),
		Rows:    rows,
		Summary: summarize(rows),
	}, nil
}
