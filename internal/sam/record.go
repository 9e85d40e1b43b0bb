// Package sam reads, classifies and writes SAM text alignment lines.
package sam

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	htssam "github.com/biogo/hts/sam"
)

// HeaderPrefix marks SAM header lines.
const HeaderPrefix = '@'

// minFields is the number of columns needed to reach CIGAR.
const minFields = 6

// ErrMalformedRecord is returned for data lines whose required fields
// are missing or not numeric.
var ErrMalformedRecord = errors.New("malformed record")

// Strand is the reference strand a read is mapped to.
type Strand uint8

const (
	Forward Strand = iota
	Reverse
)

func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// Record is a single line of a SAM file. It is never modified after
// it is read and is written back out verbatim.
type Record struct {
	Line   int    // 1-based line number in the input
	Text   string // line without its terminator
	Fields []string
}

// NewRecord splits a line into a Record.
func NewRecord(line int, text string) *Record {
	r := &Record{Line: line, Text: text}
	if !r.IsHeader() {
		r.Fields = strings.Split(text, "\t")
	}
	return r
}

// IsHeader returns true if the record is a header line.
func (r *Record) IsHeader() bool {
	return len(r.Text) > 0 && r.Text[0] == HeaderPrefix
}

// Read holds the fields of a data record that duplicate detection uses.
type Read struct {
	Name   string       // QNAME
	Flags  htssam.Flags // FLAG
	Chrom  string       // RNAME
	Pos    int          // 1-based leftmost mapped position
	Cigar  string       // CIGAR, verbatim
	Strand Strand
}

// Classify extracts the read name, flag, chromosome, position and CIGAR
// from a data record.
func Classify(r *Record) (*Read, error) {
	if len(r.Fields) < minFields {
		return nil, r.errorf("expected at least %d columns, found %d", minFields, len(r.Fields))
	}

	flag, err := strconv.ParseUint(r.Fields[1], 10, 16)
	if err != nil {
		return nil, r.errorf("invalid flag: %s", r.Fields[1])
	}

	pos, err := strconv.Atoi(r.Fields[3])
	if err != nil || pos < 1 {
		return nil, r.errorf("invalid position: %s", r.Fields[3])
	}

	read := &Read{
		Name:  r.Fields[0],
		Flags: htssam.Flags(flag),
		Chrom: r.Fields[2],
		Pos:   pos,
		Cigar: r.Fields[5],
	}
	if read.Flags&htssam.Reverse != 0 {
		read.Strand = Reverse
	}
	return read, nil
}

func (r *Record) errorf(format string, args ...any) error {
	return &ParseError{
		Line: r.Line,
		Text: r.Text,
		Err:  fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...)),
	}
}

// Wrap attaches the record's line context to err.
func (r *Record) Wrap(err error) error {
	return &ParseError{Line: r.Line, Text: r.Text, Err: err}
}

// ParseError represents an error with the line that caused it.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sam parse error at line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
