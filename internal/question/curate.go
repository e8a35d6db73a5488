package question

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	minQuestionText = 3
	minQuestionNum  = 1
	maxQuestionNum  = 100
)

var (
	digitsRe  = regexp.MustCompile(`\d+`)
	subPartRe = regexp.MustCompile(`\(([a-z])\)`)
)

// Curate deduplicates, filters and orders detected questions.
//
// Duplicates by exact QuestionNumber keep the first occurrence. Records with
// non-empty text shorter than three characters are dropped, as are records
// whose numeric key falls outside [1,100]. Records without text are kept.
// The result is sorted by numeric key, then sub-part, and the input slice is
// left untouched. Curate is idempotent.
func Curate(qs []DetectedQuestion) []DetectedQuestion {
	seen := make(map[string]bool, len(qs))
	out := make([]DetectedQuestion, 0, len(qs))

	for _, q := range qs {
		if seen[q.QuestionNumber] {
			continue
		}
		seen[q.QuestionNumber] = true

		if isFalsePositive(q) {
			continue
		}
		out = append(out, q)
	}

	slices.SortStableFunc(out, compareQuestions)
	return out
}

func isFalsePositive(q DetectedQuestion) bool {
	text := strings.TrimSpace(q.QuestionText)
	if text != "" && utf8.RuneCountInString(text) < minQuestionText {
		return true
	}
	n := NumericKey(q.QuestionNumber)
	return n < minQuestionNum || n > maxQuestionNum
}

// NumericKey returns the first run of digits in a question number, or 0.
func NumericKey(number string) int {
	d := digitsRe.FindString(number)
	if d == "" {
		return 0
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		// Longer than an int; far outside any valid range.
		return -1
	}
	return n
}

// SubPart returns the lettered sub-part of a question number ("a" for
// "1(a)"), or "" if there is none.
func SubPart(number string) string {
	m := subPartRe.FindStringSubmatch(number)
	if m == nil {
		return ""
	}
	return m[1]
}

func compareQuestions(a, b DetectedQuestion) int {
	if c := cmp.Compare(NumericKey(a.QuestionNumber), NumericKey(b.QuestionNumber)); c != 0 {
		return c
	}
	sa, sb := SubPart(a.QuestionNumber), SubPart(b.QuestionNumber)
	switch {
	case sa == sb:
		return 0
	case sa == "":
		return -1
	case sb == "":
		return 1
	}
	return strings.Compare(sa, sb)
}
