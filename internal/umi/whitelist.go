// Package umi loads known UMI lists and extracts UMIs from read names.
package umi

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingUMI is returned when a read name has no UMI token.
var ErrMissingUMI = errors.New("read name has no umi")

// Whitelist is the immutable set of known UMIs. Matching is exact and
// case-sensitive.
type Whitelist struct {
	umis map[string]struct{}
}

// NewWhitelist builds a whitelist from the given UMIs.
func NewWhitelist(umis ...string) *Whitelist {
	w := &Whitelist{umis: make(map[string]struct{}, len(umis))}
	for _, u := range umis {
		w.umis[u] = struct{}{}
	}
	return w
}

// LoadWhitelist reads a newline-delimited UMI file.
func LoadWhitelist(path string) (*Whitelist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open umi list: %w", err)
	}
	defer f.Close()

	w, err := ReadWhitelist(f)
	if err != nil {
		return nil, fmt.Errorf("read umi list %s: %w", path, err)
	}
	return w, nil
}

// ReadWhitelist reads one UMI per line. Surrounding whitespace is trimmed
// and blank lines are ignored.
func ReadWhitelist(r io.Reader) (*Whitelist, error) {
	w := NewWhitelist()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		u := strings.TrimSpace(scanner.Text())
		if u == "" {
			continue
		}
		w.umis[u] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return w, nil
}

// Contains returns true if u is a known UMI.
func (w *Whitelist) Contains(u string) bool {
	_, ok := w.umis[u]
	return ok
}

// Len returns the number of known UMIs.
func (w *Whitelist) Len() int {
	return len(w.umis)
}
