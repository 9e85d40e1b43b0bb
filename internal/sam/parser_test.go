package sam

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallSAM = "@HD\tVN:1.0\tSO:coordinate\r\n" +
	"@SQ\tSN:1\tLN:1000\n" +
	"\n" +
	"r1:AAAA\t0\t1\t100\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII\n" +
	"r2:CCCC\t16\t1\t200\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII"

func readAll(t *testing.T, p *Parser) []*Record {
	t.Helper()
	var recs []*Record
	for {
		r, err := p.Next()
		require.NoError(t, err)
		if r == nil {
			return recs
		}
		recs = append(recs, r)
	}
}

func TestParser_FromReader(t *testing.T) {
	p, err := NewParserFromReader(strings.NewReader(smallSAM))
	require.NoError(t, err)
	defer p.Close()

	recs := readAll(t, p)
	require.Len(t, recs, 4)

	assert.True(t, recs[0].IsHeader())
	assert.Equal(t, "@HD\tVN:1.0\tSO:coordinate", recs[0].Text)
	assert.True(t, recs[1].IsHeader())

	// Blank line 3 is skipped but still counted
	assert.Equal(t, 4, recs[2].Line)
	assert.Equal(t, "r1:AAAA", recs[2].Fields[0])

	// Final line without a newline is still returned
	assert.Equal(t, 5, recs[3].Line)
	assert.Equal(t, "IIIIIIIIII", recs[3].Fields[10])
	assert.Equal(t, 5, p.LineNumber())
}

func TestParser_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(smallSAM))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "in.sam.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	p, err := NewParser(path)
	require.NoError(t, err)
	defer p.Close()

	assert.Len(t, readAll(t, p), 4)
}

func TestParser_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.sam")
	require.NoError(t, os.WriteFile(path, []byte(smallSAM), 0644))

	p, err := NewParser(path)
	require.NoError(t, err)
	defer p.Close()

	assert.Len(t, readAll(t, p), 4)
}

func TestParser_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.sam")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	p, err := NewParser(path)
	require.NoError(t, err)
	defer p.Close()

	assert.Empty(t, readAll(t, p))
}

func TestParser_MissingFile(t *testing.T) {
	_, err := NewParser(filepath.Join(t.TempDir(), "nope.sam"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriter_Verbatim(t *testing.T) {
	p, err := NewParserFromReader(strings.NewReader(smallSAM))
	require.NoError(t, err)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, r := range readAll(t, p) {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "@SQ\tSN:1\tLN:1000", lines[1])
	assert.Equal(t, "r2:CCCC\t16\t1\t200\t60\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII", lines[3])
}
