// Package dedup removes PCR duplicates from a coordinate-sorted SAM stream
// using the UMI, chromosome, strand and 5' start of each read.
package dedup

import (
	"fmt"

	"github.com/inodb/vibe-dedup/internal/sam"
)

// Key identifies a group of PCR duplicates. Two reads with equal keys on
// the same chromosome block are duplicates.
type Key struct {
	UMI    string
	Chrom  string
	Strand sam.Strand
	Pos    int // 5' adjusted position
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d(%s)", k.UMI, k.Chrom, k.Pos, k.Strand)
}

// Window holds the keys seen on the chromosome currently being processed.
// It is discarded as a whole when the next chromosome starts; the key set
// grows with read depth until then.
type Window struct {
	Chrom string
	seen  map[Key]struct{}
}

// NewWindow creates an empty window for chrom.
func NewWindow(chrom string) *Window {
	return &Window{Chrom: chrom, seen: make(map[Key]struct{})}
}

// Add records k and returns true if it had not been seen in this window.
func (w *Window) Add(k Key) bool {
	if _, ok := w.seen[k]; ok {
		return false
	}
	w.seen[k] = struct{}{}
	return true
}

// Len returns the number of distinct keys in the window.
func (w *Window) Len() int {
	return len(w.seen)
}
