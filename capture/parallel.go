package capture

import (
	"context"
	"sort"
	"sync"

	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/trove"
	"github.com/seam-io/seam/types"
)

// DefaultParallelism bounds concurrent segment writes for the parallel
// strategy.
const DefaultParallelism = 4

// BoundedParallelWriter writes segments with a bounded worker pool.
//
// Segments are independent records, so they can be written concurrently;
// the manifest is still written only after every segment succeeds, which
// preserves the reader-facing ordering guarantee. On failure the error
// reports the lowest-numbered failed segment and the returned slice holds
// every confirmed write, sorted ascending.
type BoundedParallelWriter struct {
	client      trove.Client
	logger      *log.Logger
	parallelism int
}

// NewBoundedParallelWriter creates a parallel writer. A parallelism of
// zero or less falls back to DefaultParallelism.
func NewBoundedParallelWriter(client trove.Client, logger *log.Logger, parallelism int) *BoundedParallelWriter {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &BoundedParallelWriter{client: client, logger: logger, parallelism: parallelism}
}

type segmentResult struct {
	index   int
	written types.WrittenSegment
	err     error
}

// WriteSegments implements Writer.
func (w *BoundedParallelWriter) WriteSegments(ctx context.Context, meta SegmentMeta, segments []types.Segment) ([]types.WrittenSegment, error) {
	jobs := make(chan int)
	results := make(chan segmentResult, len(segments))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	workers := w.parallelism
	if workers > len(segments) {
		workers = len(segments)
	}
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				seg := segments[i]
				id, err := w.client.CreateRecord(ctx, segmentRequest(meta, seg))
				if err != nil {
					results <- segmentResult{index: i, err: err}
					continue
				}
				results <- segmentResult{index: i, written: types.WrittenSegment{
					PartNumber: seg.PartNumber,
					RecordID:   id,
					SizeBytes:  seg.SizeBytes,
				}}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range segments {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var written []types.WrittenSegment
	var failed *segmentResult
	for res := range results {
		if res.err != nil {
			w.logger.Error("segment write failed", map[string]any{
				"session_id":  meta.SessionID,
				"part_number": segments[res.index].PartNumber,
				"error":       res.err.Error(),
			})
			if failed == nil || res.index < failed.index {
				r := res
				failed = &r
			}
			cancel()
			continue
		}
		written = append(written, res.written)
	}

	sort.Slice(written, func(i, j int) bool {
		return written[i].PartNumber < written[j].PartNumber
	})

	if failed != nil {
		return written, &WriteError{
			Index:      failed.index,
			PartNumber: segments[failed.index].PartNumber,
			Err:        failed.err,
		}
	}
	return written, nil
}

// Verify BoundedParallelWriter implements Writer.
var _ Writer = (*BoundedParallelWriter)(nil)
