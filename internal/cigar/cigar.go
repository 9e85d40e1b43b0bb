// Package cigar tokenizes CIGAR strings and derives the 5' start of a read
// from its leftmost mapped position.
package cigar

import (
	"errors"
	"fmt"

	htssam "github.com/biogo/hts/sam"

	"github.com/inodb/vibe-dedup/internal/sam"
)

// ErrMalformedCigar is returned for CIGAR strings that cannot be tokenized.
var ErrMalformedCigar = errors.New("malformed cigar")

// maxOpLen is the largest length a packed htssam.CigarOp can hold.
const maxOpLen = 1<<28 - 1

var opTypes = map[byte]htssam.CigarOpType{
	'M': htssam.CigarMatch,
	'I': htssam.CigarInsertion,
	'D': htssam.CigarDeletion,
	'N': htssam.CigarSkipped,
	'S': htssam.CigarSoftClipped,
	'H': htssam.CigarHardClipped,
	'P': htssam.CigarPadded,
	'=': htssam.CigarEqual,
	'X': htssam.CigarMismatch,
}

// Parse tokenizes s into CIGAR operations, left to right. "" and "*" carry
// no alignment information and yield an empty Cigar.
func Parse(s string) (htssam.Cigar, error) {
	if s == "" || s == "*" {
		return nil, nil
	}

	var (
		c      htssam.Cigar
		n      int
		digits int
	)
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= '0' && b <= '9' {
			n = n*10 + int(b-'0')
			digits++
			if n > maxOpLen {
				return nil, fmt.Errorf("%w: %q: length too large at offset %d", ErrMalformedCigar, s, i)
			}
			continue
		}

		t, ok := opTypes[b]
		if !ok {
			return nil, fmt.Errorf("%w: %q: unknown operation %q", ErrMalformedCigar, s, b)
		}
		if digits == 0 {
			return nil, fmt.Errorf("%w: %q: operation %q has no length", ErrMalformedCigar, s, b)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %q: zero-length operation %q", ErrMalformedCigar, s, b)
		}
		c = append(c, htssam.NewCigarOp(t, n))
		n, digits = 0, 0
	}
	if digits != 0 {
		return nil, fmt.Errorf("%w: %q: trailing length without operation", ErrMalformedCigar, s)
	}
	return c, nil
}

// Adjust returns the 5' start of a read given its strand, 1-based leftmost
// mapped position and CIGAR.
//
// Forward reads move left by a leading soft clip. Reverse reads start at the
// far end of the alignment: the M, D and N lengths plus a trailing soft clip
// are added to pos. Insertions and hard clips never move the start.
func Adjust(strand sam.Strand, pos int, cigar string) (int, error) {
	c, err := Parse(cigar)
	if err != nil {
		return 0, err
	}
	if len(c) == 0 {
		return pos, nil
	}

	if strand == sam.Forward {
		if first := c[0]; first.Type() == htssam.CigarSoftClipped {
			pos -= first.Len()
		}
		return pos, nil
	}

	for _, op := range c {
		switch op.Type() {
		case htssam.CigarMatch, htssam.CigarDeletion, htssam.CigarSkipped:
			pos += op.Len()
		}
	}
	if last := c[len(c)-1]; last.Type() == htssam.CigarSoftClipped {
		pos += last.Len()
	}
	return pos, nil
}
