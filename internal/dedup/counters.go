package dedup

import "sort"

// Counters are the tallies of a deduplication run.
type Counters struct {
	HeaderLines       int
	UniqueReads       int
	WrongUMIs         int
	DuplicatesRemoved int

	// PerChrom counts unique reads per chromosome.
	PerChrom   map[string]int
	chromOrder []string
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{PerChrom: make(map[string]int)}
}

func (c *Counters) addUnique(chrom string, n int) {
	if _, ok := c.PerChrom[chrom]; !ok {
		c.chromOrder = append(c.chromOrder, chrom)
	}
	c.PerChrom[chrom] += n
	c.UniqueReads += n
}

// DataLines returns the number of non-header lines accounted for.
func (c *Counters) DataLines() int {
	return c.UniqueReads + c.WrongUMIs + c.DuplicatesRemoved
}

// Chromosomes returns chromosomes with kept reads in first-seen order.
func (c *Counters) Chromosomes() []string {
	return append([]string(nil), c.chromOrder...)
}

// SortedChromosomes returns chromosomes with kept reads in lexicographic order.
func (c *Counters) SortedChromosomes() []string {
	chroms := c.Chromosomes()
	sort.Strings(chroms)
	return chroms
}

// Merge adds o's tallies into c. Chromosomes new to c keep o's order.
func (c *Counters) Merge(o *Counters) {
	c.HeaderLines += o.HeaderLines
	c.WrongUMIs += o.WrongUMIs
	c.DuplicatesRemoved += o.DuplicatesRemoved
	for _, chrom := range o.chromOrder {
		c.addUnique(chrom, o.PerChrom[chrom])
	}
}
