package dedup

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/inodb/vibe-dedup/internal/sam"
)

// Block is a run of consecutive records sharing one chromosome, plus any
// header lines that fall inside it.
type Block struct {
	Seq     int
	Chrom   string
	Records []*sam.Record
}

// BlockResult holds the deduplication output for a single block.
type BlockResult struct {
	Seq      int
	Kept     []*sam.Record
	Counters *Counters
	Chrom    string // chromosome of the block's window, "" if it had none
	Err      error
}

// RunParallel deduplicates like Run, but processes chromosome blocks on a
// pool of workers. Blocks share no state, and results are written in input
// order, so sorted input produces the same output and counters as Run.
// Each block is held in memory until written; at most 2*workers blocks are
// in flight. If workers is 0, runtime.NumCPU() is used.
func (p *Processor) RunParallel(ctx context.Context, r RecordReader, w RecordWriter, workers int) (*Counters, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	blocks := make(chan Block, 2*workers)
	var readErr error

	go func() {
		defer close(blocks)
		readErr = SplitBlocks(ctx, r, func(b Block) bool {
			select {
			case blocks <- b:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	results := p.ParallelDedup(blocks, workers)

	total := NewCounters()
	var closed map[string]bool
	if p.strictSort {
		closed = make(map[string]bool)
	}
	var last string

	err := OrderedCollect(results, func(res BlockResult) error {
		err := p.collect(res, w, total, closed, &last)
		if err != nil {
			// Stop the reader so the drain in OrderedCollect ends early.
			cancel()
		}
		return err
	})
	if err != nil {
		return total, err
	}
	if readErr != nil {
		return total, fmt.Errorf("read record: %w", readErr)
	}
	if err := ctx.Err(); err != nil {
		return total, err
	}

	if err := w.Flush(); err != nil {
		return total, fmt.Errorf("flush output: %w", err)
	}
	return total, nil
}

// collect writes one block's kept records and merges its counters.
func (p *Processor) collect(res BlockResult, w RecordWriter, total *Counters, closed map[string]bool, last *string) error {
	if res.Err != nil {
		return res.Err
	}
	if closed != nil && res.Chrom != "" && res.Chrom != *last {
		if closed[res.Chrom] {
			return fmt.Errorf("%w: chromosome %s seen again after its block ended", ErrUnsortedInput, res.Chrom)
		}
		if *last != "" {
			closed[*last] = true
		}
		*last = res.Chrom
	}
	for _, rec := range res.Kept {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	total.Merge(res.Counters)
	return nil
}

// SplitBlocks reads r to the end and cuts it into chromosome blocks.
// A new block starts when a data record names a different chromosome than
// the current block. Header lines and records too short to name a
// chromosome stay in the current block. emit returns false to stop early,
// which is only expected once ctx is done.
func SplitBlocks(ctx context.Context, r RecordReader, emit func(Block) bool) error {
	var (
		cur     Block
		started bool
		seq     int
	)
	flush := func() bool {
		if len(cur.Records) == 0 {
			return true
		}
		cur.Seq = seq
		seq++
		ok := emit(cur)
		cur = Block{}
		return ok
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}

		if !rec.IsHeader() && len(rec.Fields) > 2 {
			chrom := rec.Fields[2]
			if !started {
				cur.Chrom = chrom
				started = true
			} else if chrom != cur.Chrom {
				if !flush() {
					return ctx.Err()
				}
				cur.Chrom = chrom
			}
		}
		cur.Records = append(cur.Records, rec)
	}
	flush()
	return nil
}

// ParallelDedup deduplicates blocks using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
func (p *Processor) ParallelDedup(blocks <-chan Block, workers int) <-chan BlockResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan BlockResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for b := range blocks {
				results <- p.dedupBlock(b)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func (p *Processor) dedupBlock(b Block) BlockResult {
	s := &stream{p: p, counters: NewCounters()}
	res := BlockResult{Seq: b.Seq, Counters: s.counters}

	for _, rec := range b.Records {
		keep, err := s.process(rec)
		if err != nil {
			res.Err = err
			return res
		}
		if keep {
			res.Kept = append(res.Kept, rec)
		}
	}
	if s.window != nil {
		res.Chrom = s.window.Chrom
	}
	s.closeWindow()
	return res
}

// OrderedCollect hands block results to fn in input order, so kept
// records and chromosome transitions reach the writer in the order a
// serial Run would write them. A block that finishes early is held until
// every block before it has been written. Once fn fails the remaining
// results are drained so no worker stays blocked on send.
// It returns when results is closed.
func OrderedCollect(results <-chan BlockResult, fn func(BlockResult) error) error {
	finished := make(map[int]BlockResult)
	next := 0

	for r := range results {
		finished[r.Seq] = r

		for {
			block, ok := finished[next]
			if !ok {
				break
			}
			delete(finished, next)
			next++
			if err := fn(block); err != nil {
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
