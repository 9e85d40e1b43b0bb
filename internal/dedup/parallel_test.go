package dedup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-dedup/internal/cigar"
	"github.com/inodb/vibe-dedup/internal/sam"
)

func runParallel(t *testing.T, p *Processor, in string, workers int) (string, *Counters, error) {
	t.Helper()
	parser, err := sam.NewParserFromReader(strings.NewReader(in))
	require.NoError(t, err)

	var buf bytes.Buffer
	c, err := p.RunParallel(context.Background(), parser, sam.NewWriter(&buf), workers)
	return buf.String(), c, err
}

// manyChromosomes builds sorted input with duplicates on every chromosome.
func manyChromosomes(n int) string {
	lines := []string{"@HD\tVN:1.0\tSO:coordinate"}
	for i := 0; i < n; i++ {
		chrom := string(rune('A'+i%26)) + strings.Repeat("x", i/26)
		lines = append(lines,
			samLine("AACGCCAT", 0, chrom, 100, "76M", "IIII"),
			samLine("AACGCCAT", 0, chrom, 102, "2S74M", "IIII"),
			samLine("GGGGGGGG", 0, chrom, 100, "76M", "IIII"),
			samLine("AAGGTACG", 16, chrom, 100+i, "50M", "IIII"),
		)
	}
	return samText(lines...)
}

func TestRunParallel_MatchesSerial(t *testing.T) {
	for _, in := range []string{mixedInput(), manyChromosomes(60)} {
		want, wantCounts, err := runSerial(t, NewProcessor(testUMIs), in)
		require.NoError(t, err)

		for _, workers := range []int{0, 1, 3, 8} {
			got, gotCounts, err := runParallel(t, NewProcessor(testUMIs), in, workers)
			require.NoError(t, err)
			assert.Equal(t, want, got, "workers=%d", workers)
			assert.Equal(t, wantCounts.HeaderLines, gotCounts.HeaderLines)
			assert.Equal(t, wantCounts.UniqueReads, gotCounts.UniqueReads)
			assert.Equal(t, wantCounts.WrongUMIs, gotCounts.WrongUMIs)
			assert.Equal(t, wantCounts.DuplicatesRemoved, gotCounts.DuplicatesRemoved)
			assert.Equal(t, wantCounts.PerChrom, gotCounts.PerChrom)
			assert.Equal(t, wantCounts.Chromosomes(), gotCounts.Chromosomes())
		}
	}
}

func TestRunParallel_MalformedCigar(t *testing.T) {
	in := manyChromosomes(20) + samText(samLine("AACGCCAT", 0, "zz", 1, "5Q", "IIII")) + manyChromosomes(20)

	_, _, err := runParallel(t, NewProcessor(testUMIs), in, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, cigar.ErrMalformedCigar)
}

func TestRunParallel_UnsortedInput(t *testing.T) {
	in := samText(
		samLine("AACGCCAT", 0, "1", 100, "76M", "IIII"),
		samLine("AACGCCAT", 0, "2", 100, "76M", "IIII"),
		samLine("AACGCCAT", 0, "1", 100, "76M", "IIII"),
	)

	p := NewProcessor(testUMIs)
	p.SetStrictSort(true)
	_, _, err := runParallel(t, p, in, 2)
	assert.ErrorIs(t, err, ErrUnsortedInput)

	_, c, err := runParallel(t, NewProcessor(testUMIs), in, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, c.UniqueReads)
}

func TestSplitBlocks(t *testing.T) {
	in := samText(
		"@HD\tVN:1.0",
		samLine("AACGCCAT", 0, "1", 100, "76M", "IIII"),
		"@CO\tmid-stream comment",
		"short",
		samLine("AACGCCAT", 0, "1", 200, "76M", "IIII"),
		samLine("AACGCCAT", 0, "2", 100, "76M", "IIII"),
	)
	parser, err := sam.NewParserFromReader(strings.NewReader(in))
	require.NoError(t, err)

	var blocks []Block
	err = SplitBlocks(context.Background(), parser, func(b Block) bool {
		blocks = append(blocks, b)
		return true
	})
	require.NoError(t, err)

	require.Len(t, blocks, 2)
	assert.Equal(t, 0, blocks[0].Seq)
	assert.Equal(t, "1", blocks[0].Chrom)
	assert.Len(t, blocks[0].Records, 5)
	assert.Equal(t, 1, blocks[1].Seq)
	assert.Equal(t, "2", blocks[1].Chrom)
	assert.Len(t, blocks[1].Records, 1)
}

func TestOrderedCollect_ChromosomesInInputOrder(t *testing.T) {
	chroms := []string{"1", "2", "7", "X", "MT"}
	ch := make(chan BlockResult, len(chroms))
	for _, seq := range []int{3, 1, 4, 0, 2} {
		ch <- BlockResult{Seq: seq, Chrom: chroms[seq]}
	}
	close(ch)

	var written []string
	err := OrderedCollect(ch, func(r BlockResult) error {
		written = append(written, r.Chrom)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, chroms, written)
}

func TestOrderedCollect_ErrorDrains(t *testing.T) {
	ch := make(chan BlockResult, 10)
	for i := 0; i < 10; i++ {
		ch <- BlockResult{Seq: i}
	}
	close(ch)

	errStop := errors.New("stop")
	var count int
	err := OrderedCollect(ch, func(r BlockResult) error {
		count++
		if r.Seq == 2 {
			return errStop
		}
		return nil
	})
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, 3, count)
	assert.Empty(t, ch, "channel should be drained")
}
