package sam

import (
	"bufio"
	"io"
)

// Writer writes records verbatim, one per line.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a new buffered record writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes the record's original text followed by a newline.
func (sw *Writer) Write(r *Record) error {
	if _, err := sw.w.WriteString(r.Text); err != nil {
		return err
	}
	return sw.w.WriteByte('\n')
}

// Flush flushes any buffered data to the underlying writer.
func (sw *Writer) Flush() error {
	return sw.w.Flush()
}
