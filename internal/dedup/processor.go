package dedup

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-dedup/internal/cigar"
	"github.com/inodb/vibe-dedup/internal/sam"
	"github.com/inodb/vibe-dedup/internal/umi"
)

// ErrUnsortedInput is returned by the sort guard when a chromosome
// reappears after its block has ended.
var ErrUnsortedInput = errors.New("input is not grouped by chromosome")

// RecordReader is the source of SAM records. *sam.Parser implements it.
type RecordReader interface {
	// Next returns nil, nil when there are no more records.
	Next() (*sam.Record, error)
}

// RecordWriter receives the records that survive deduplication.
// *sam.Writer implements it.
type RecordWriter interface {
	Write(r *sam.Record) error
	Flush() error
}

// Processor removes PCR duplicates from a SAM stream.
type Processor struct {
	whitelist  *umi.Whitelist
	extractor  umi.Extractor
	strictSort bool
	logger     *zap.Logger
}

// NewProcessor creates a processor that keeps reads whose UMI is in w.
func NewProcessor(w *umi.Whitelist) *Processor {
	return &Processor{
		whitelist: w,
		extractor: umi.Extractor{Field: umi.LastField},
		logger:    zap.NewNop(),
	}
}

// SetUMIField selects the colon-delimited read name token holding the UMI.
// umi.LastField (the default) selects the last token.
func (p *Processor) SetUMIField(field int) {
	p.extractor.Field = field
}

// SetStrictSort enables the guard that aborts on a chromosome reappearing
// after its block has ended. Without it such input is deduplicated
// incorrectly and silently.
func (p *Processor) SetStrictSort(strict bool) {
	p.strictSort = strict
}

// SetLogger sets the logger for debug and info messages.
func (p *Processor) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Run deduplicates every record from r in a single pass, writing header
// lines and unique reads to w. A malformed record or CIGAR aborts the run.
func (p *Processor) Run(ctx context.Context, r RecordReader, w RecordWriter) (*Counters, error) {
	s := p.newStream()

	for {
		if err := ctx.Err(); err != nil {
			return s.counters, err
		}

		rec, err := r.Next()
		if err != nil {
			return s.counters, fmt.Errorf("read record: %w", err)
		}
		if rec == nil {
			break
		}

		keep, err := s.process(rec)
		if err != nil {
			return s.counters, err
		}
		if keep {
			if err := w.Write(rec); err != nil {
				return s.counters, fmt.Errorf("write record: %w", err)
			}
		}
	}
	s.closeWindow()

	if err := w.Flush(); err != nil {
		return s.counters, fmt.Errorf("flush output: %w", err)
	}
	return s.counters, nil
}

// stream is the mutable state of one pass.
type stream struct {
	p        *Processor
	window   *Window
	closed   map[string]bool // chromosomes whose block has ended, strict mode only
	counters *Counters
}

func (p *Processor) newStream() *stream {
	s := &stream{p: p, counters: NewCounters()}
	if p.strictSort {
		s.closed = make(map[string]bool)
	}
	return s
}

// process decides whether rec is written out.
func (s *stream) process(rec *sam.Record) (bool, error) {
	if rec.IsHeader() {
		s.counters.HeaderLines++
		return true, nil
	}

	u, err := s.p.extractor.FromReadName(rec.Fields[0])
	if err != nil {
		return false, rec.Wrap(fmt.Errorf("%w: %w", sam.ErrMalformedRecord, err))
	}
	if !s.p.whitelist.Contains(u) {
		s.counters.WrongUMIs++
		return false, nil
	}

	read, err := sam.Classify(rec)
	if err != nil {
		return false, err
	}
	pos, err := cigar.Adjust(read.Strand, read.Pos, read.Cigar)
	if err != nil {
		return false, rec.Wrap(err)
	}

	if s.window == nil || s.window.Chrom != read.Chrom {
		if err := s.enter(read.Chrom); err != nil {
			return false, rec.Wrap(err)
		}
	}

	k := Key{UMI: u, Chrom: read.Chrom, Strand: read.Strand, Pos: pos}
	if !s.window.Add(k) {
		s.counters.DuplicatesRemoved++
		return false, nil
	}
	s.counters.addUnique(read.Chrom, 1)
	return true, nil
}

// enter replaces the current window with an empty one for chrom.
func (s *stream) enter(chrom string) error {
	if s.closed != nil && s.closed[chrom] {
		return fmt.Errorf("%w: chromosome %s seen again after its block ended", ErrUnsortedInput, chrom)
	}
	s.closeWindow()
	s.window = NewWindow(chrom)
	return nil
}

func (s *stream) closeWindow() {
	if s.window == nil {
		return
	}
	s.p.logger.Debug("chromosome done",
		zap.String("chrom", s.window.Chrom),
		zap.Int("keys", s.window.Len()))
	if s.closed != nil {
		s.closed[s.window.Chrom] = true
	}
	s.window = nil
}
