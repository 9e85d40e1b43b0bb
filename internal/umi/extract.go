package umi

import (
	"fmt"
	"strings"
)

// LastField selects the last colon-delimited token of a read name.
const LastField = -1

// Extractor pulls the UMI out of a read name such as
// "NS500451:154:HWKTMBGXX:1:11101:24260:1121:CTGTTCAC".
type Extractor struct {
	// Field is the 0-based colon-delimited token holding the UMI,
	// or LastField.
	Field int
}

// FromReadName returns the UMI embedded in name. The last token always
// exists, so in LastField mode a name without colons is its own UMI and
// one ending in a colon has an empty UMI; both are left to the whitelist.
// A fixed field past the end of the name is ErrMissingUMI.
func (e Extractor) FromReadName(name string) (string, error) {
	if e.Field < 0 {
		return name[strings.LastIndexByte(name, ':')+1:], nil
	}

	tokens := strings.Split(name, ":")
	if e.Field >= len(tokens) {
		return "", fmt.Errorf("%w: %q has no token %d", ErrMissingUMI, name, e.Field)
	}
	return tokens[e.Field], nil
}
