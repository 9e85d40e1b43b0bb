package umi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWhitelist(t *testing.T) {
	w, err := ReadWhitelist(strings.NewReader("AACGCCAT\r\nAAGGTACG\n\n  AATTCCGG \n"))
	require.NoError(t, err)

	assert.Equal(t, 3, w.Len())
	assert.True(t, w.Contains("AACGCCAT"))
	assert.True(t, w.Contains("AATTCCGG"))
	assert.False(t, w.Contains("aacgccat"), "matching is case-sensitive")
	assert.False(t, w.Contains(""))
}

func TestLoadWhitelist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "STL96.txt")
	require.NoError(t, os.WriteFile(path, []byte("AACGCCAT\nAAGGTACG\n"), 0644))

	w, err := LoadWhitelist(path)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Len())

	_, err = LoadWhitelist(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractor_LastField(t *testing.T) {
	e := Extractor{Field: LastField}

	u, err := e.FromReadName("NS500451:154:HWKTMBGXX:1:11101:24260:1121:CTGTTCAC")
	require.NoError(t, err)
	assert.Equal(t, "CTGTTCAC", u)

	u, err = e.FromReadName("short:GGTTAACC")
	require.NoError(t, err)
	assert.Equal(t, "GGTTAACC", u)

	u, err = e.FromReadName("nocolon")
	require.NoError(t, err)
	assert.Equal(t, "nocolon", u)

	u, err = e.FromReadName("trailing:")
	require.NoError(t, err)
	assert.Equal(t, "", u)
}

func TestExtractor_FixedField(t *testing.T) {
	e := Extractor{Field: 7}

	u, err := e.FromReadName("NS500451:154:HWKTMBGXX:1:11101:24260:1121:CTGTTCAC:extra")
	require.NoError(t, err)
	assert.Equal(t, "CTGTTCAC", u)

	_, err = e.FromReadName("a:b:c")
	assert.ErrorIs(t, err, ErrMissingUMI)
}
