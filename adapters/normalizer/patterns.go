package normalizer

import (
	"regexp"

	"tabconv/domain/table"
)

var (
	numberPattern   = regexp.MustCompile(`^[+-]?\d+(?:[.,]\d+)*$`)
	currencyPattern = regexp.MustCompile(`^[€$¥£]?\d+(?:[.,]\d+)*$`)
	percentPattern  = regexp.MustCompile(`^\d+(?:[.,]\d+)?%$`)
	datePattern     = regexp.MustCompile(`^\d{1,2}[-/\\.]\d{1,2}[-/\\.]\d{2,4}$`)

	currencySymbols = regexp.MustCompile(`[€$¥£]`)
)

var typePatterns = map[table.ColumnType]*regexp.Regexp{
	table.TypeNumber:   numberPattern,
	table.TypeCurrency: currencyPattern,
	table.TypePercent:  percentPattern,
	table.TypeDate:     datePattern,
}

// isNumber reports whether a cell reads as a plain signed number
func isNumber(s string) bool {
	return numberPattern.MatchString(s)
}

// TypeAnalysis holds the per-type match counts of a column sample
type TypeAnalysis struct {
	SampleSize      int                      `json:"sample_size"`
	Matches         map[table.ColumnType]int `json:"matches"`
	RecommendedType table.ColumnType         `json:"recommended_type"`
}

// Ratio returns the share of the sample matching t
func (a TypeAnalysis) Ratio(t table.ColumnType) float64 {
	if a.SampleSize == 0 {
		return 0
	}
	return float64(a.Matches[t]) / float64(a.SampleSize)
}

// sampleColumn takes up to size non-missing, non-empty values in row order
func sampleColumn(values []string, present []bool, size int) []string {
	sample := make([]string, 0, min(size, len(values)))
	for i, v := range values {
		if len(sample) >= size {
			break
		}
		if !present[i] || v == "" {
			continue
		}
		sample = append(sample, v)
	}
	return sample
}

// analyzeSample counts pattern matches and picks the first type, in priority
// order, whose match ratio is strictly above threshold.
func analyzeSample(sample []string, threshold float64) TypeAnalysis {
	analysis := TypeAnalysis{
		SampleSize:      len(sample),
		Matches:         make(map[table.ColumnType]int, len(typePatterns)),
		RecommendedType: table.TypeText,
	}
	if len(sample) == 0 {
		return analysis
	}

	for _, v := range sample {
		for t, pattern := range typePatterns {
			if pattern.MatchString(v) {
				analysis.Matches[t]++
			}
		}
	}

	for _, t := range table.InferenceOrder {
		if analysis.Ratio(t) > threshold {
			analysis.RecommendedType = t
			break
		}
	}
	return analysis
}
