// Package report renders the counters of a deduplication run.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-dedup/internal/dedup"
)

// Summary is a finished run ready to be rendered.
type Summary struct {
	Source   string // input file identifier
	Counters *dedup.Counters
}

// Writer writes run summaries.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a new report writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteReport writes the plain-text report: totals followed by unique reads
// per chromosome, sorted by chromosome name.
func (rw *Writer) WriteReport(s Summary) error {
	c := s.Counters
	fmt.Fprintf(rw.w, "Source file: %s\n", s.Source)
	fmt.Fprintf(rw.w, "Header lines: %d\n", c.HeaderLines)
	fmt.Fprintf(rw.w, "Unique reads: %d\n", c.UniqueReads)
	fmt.Fprintf(rw.w, "Wrong UMIs: %d\n", c.WrongUMIs)
	fmt.Fprintf(rw.w, "Duplicates removed: %d\n", c.DuplicatesRemoved)
	rw.w.WriteString("\nUnique reads per chromosome:\n")
	return rw.writeChromTable(c)
}

// WriteChromTSV writes only the per-chromosome table.
func (rw *Writer) WriteChromTSV(c *dedup.Counters) error {
	return rw.writeChromTable(c)
}

func (rw *Writer) writeChromTable(c *dedup.Counters) error {
	rw.w.WriteString("Chromosome\tUnique_Reads\n")
	for _, chrom := range c.SortedChromosomes() {
		row := []string{chrom, strconv.Itoa(c.PerChrom[chrom])}
		if _, err := rw.w.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (rw *Writer) Flush() error {
	return rw.w.Flush()
}
