package normalizer

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// GenericNames returns col_0 … col_{n-1}
func GenericNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = genericName(i)
	}
	return names
}

func genericName(i int) string {
	return fmt.Sprintf("col_%d", i)
}

// CleanHeader turns a raw header cell into a column identifier: accents are
// decomposed and dropped, whitespace runs become "_", and anything that is
// not a letter, number or underscore is removed. Applying it twice yields
// the same result as applying it once.
func CleanHeader(raw string) string {
	h := norm.NFKD.String(raw)
	h = strings.Join(strings.Fields(strings.ToLower(h)), "_")
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return -1
	}, h)
}

// CleanHeaders cleans every header cell and deduplicates the result. Cells
// that clean to nothing, or are missing, become col_<position>.
func CleanHeaders(row []string, present []bool) []string {
	headers := make([]string, len(row))
	for i, cell := range row {
		h := ""
		if present == nil || present[i] {
			h = CleanHeader(cell)
		}
		if h == "" {
			h = genericName(i)
		}
		headers[i] = h
	}
	return Dedupe(headers)
}

// Dedupe scans names left to right and suffixes repeats with the lowest
// unused _N, so ["a", "a", "a"] becomes ["a", "a_1", "a_2"].
func Dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, base := range names {
		name := base
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
