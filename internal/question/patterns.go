package question

import (
	"regexp"
	"strconv"
)

// pageBreakPatterns approximate page boundaries in linear extracted text.
// A line matching any of them is consumed as a page marker.
var pageBreakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\(?\s*P\s*\.?\s*T\s*\.?\s*O\s*\.?\s*\)?$`), // PTO, P.T.O., P. T. O., (P.T.O.)
	regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^\[\s*\d+\s*\]$`),
}

// markerRule recognizes one surface form of a question marker.
type markerRule struct {
	re         *regexp.Regexp
	id         func(m []string) string
	confidence Confidence

	// markerEnd, when non-zero, is the capture group whose end closes the
	// marker; text matched after it is kept as question text.
	markerEnd int
}

// markerRules are ordered most specific first; the first match wins.
var markerRules = []markerRule{
	{
		re:         regexp.MustCompile(`^(\d+)\s*\(([a-z])\)\.?`),
		id:         func(m []string) string { return m[1] + "(" + m[2] + ")" },
		confidence: ConfidenceHigh,
	},
	{
		re:         regexp.MustCompile(`^(\d+)(\.)(?:\D|$)`), // "1.5 kg" is not a marker
		id:         func(m []string) string { return m[1] },
		confidence: ConfidenceHigh,
		markerEnd:  2,
	},
	{
		re:         regexp.MustCompile(`(?i)^question\s+(\d+)\.?`),
		id:         func(m []string) string { return "Question " + m[1] },
		confidence: ConfidenceHigh,
	},
	{
		re:         regexp.MustCompile(`(?i)^q\.?\s?(\d+)\b\.?`),
		id:         func(m []string) string { return "Q" + m[1] },
		confidence: ConfidenceMedium,
	},
	{
		re:         regexp.MustCompile(`^\(([a-z])\)`),
		id:         func(m []string) string { return "(" + m[1] + ")" },
		confidence: ConfidenceMedium,
	},
}

// marksPatterns are tried in order against a marker line and the two lines
// after it.
var marksPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*marks?\b`),
	regexp.MustCompile(`(?i)\(\s*(\d+)\s*marks?\s*\)`),
	regexp.MustCompile(`(?i)\[\s*(\d+)\s*marks?\s*\]`),
	regexp.MustCompile(`(?i)marks?\s*:\s*(\d+)`),
	regexp.MustCompile(`\(\s*(\d+)\s*\)`),
	regexp.MustCompile(`\[\s*(\d+)\s*\]`),
}

// isPageBreak reports whether a trimmed line looks like a page boundary.
func isPageBreak(line string) bool {
	for _, re := range pageBreakPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// matchMarker returns the canonical id, confidence and trailing text of the
// first marker rule matching the trimmed line.
func matchMarker(line string) (id string, conf Confidence, rest string, ok bool) {
	for _, rule := range markerRules {
		loc := rule.re.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = line[loc[2*i]:loc[2*i+1]]
			}
		}
		end := loc[1]
		if rule.markerEnd > 0 {
			end = loc[2*rule.markerEnd+1]
		}
		return rule.id(m), rule.confidence, line[end:], true
	}
	return "", "", "", false
}

// findMarks returns the first capture in (0,100] across marksPatterns.
func findMarks(window string) *int {
	for _, re := range marksPatterns {
		m := re.FindStringSubmatch(window)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > 0 && n <= 100 {
			return intPtr(n)
		}
	}
	return nil
}
