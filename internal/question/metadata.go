package question

import (
	"regexp"
	"strconv"
)

// Patterns are tried in order over the whole text; the first in-range capture wins.
var (
	totalMarksPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)maximum\s+marks\s*:?\s*(\d+)`),
		regexp.MustCompile(`(?i)total\s+marks\s*:?\s*(\d+)`),
		regexp.MustCompile(`(?i)marks\s*:?\s*(\d+)`),
	}
	durationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)time(?:\s+allowed)?\s*:?\s*(\d+)\s*h(?:ou)?rs?\b`),
		regexp.MustCompile(`(?i)duration\s*:?\s*(\d+)\s*h(?:ou)?rs?\b`),
	}
)

const (
	minTotalMarks    = 10
	maxTotalMarks    = 500
	minDurationHours = 1
	maxDurationHours = 8
)

// ExtractTotalMarks finds the paper's total marks, or nil when no label
// carries a value in [10,500].
func ExtractTotalMarks(text string) *int {
	n, ok := firstInRange(text, totalMarksPatterns, minTotalMarks, maxTotalMarks)
	if !ok {
		return nil
	}
	return intPtr(n)
}

// ExtractDuration finds the exam duration in minutes, or nil when no label
// carries an hour count in [1,8].
func ExtractDuration(text string) *int {
	n, ok := firstInRange(text, durationPatterns, minDurationHours, maxDurationHours)
	if !ok {
		return nil
	}
	return intPtr(n * 60)
}

// ExtractMetadata runs both document-level extractors.
func ExtractMetadata(text string) DocumentMetadata {
	return DocumentMetadata{
		TotalMarks:      ExtractTotalMarks(text),
		DurationMinutes: ExtractDuration(text),
	}
}

func firstInRange(text string, patterns []*regexp.Regexp, lo, hi int) (int, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= lo && n <= hi {
			return n, true
		}
	}
	return 0, false
}
