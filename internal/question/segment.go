package question

import "strings"

// marksLookahead is how many lines after a marker line are searched for marks.
const marksLookahead = 2

// Parse segments extracted exam-paper text into questions in discovery order.
//
// Lines are walked once. Page-break lines advance the page counter and are
// not inspected further. Other lines are matched against the marker rules;
// the first record for a canonical id wins and later duplicates are ignored.
// Parse never fails: text without markers yields an empty result.
func Parse(text string) ParseResult {
	lines := strings.Split(text, "\n")

	page := 1
	seen := make(map[string]bool)
	questions := []DetectedQuestion{}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if isPageBreak(line) {
			page++
			continue
		}

		id, conf, rest, ok := matchMarker(line)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true

		questions = append(questions, DetectedQuestion{
			QuestionNumber: id,
			QuestionText:   strings.TrimSpace(rest),
			Marks:          findMarks(marksWindow(lines, i)),
			PageNumber:     page,
			Confidence:     conf,
		})
	}

	return ParseResult{
		TotalQuestions: len(questions),
		Questions:      questions,
		TotalPages:     page,
		Text:           text,
	}
}

// marksWindow joins line i with up to marksLookahead following lines.
func marksWindow(lines []string, i int) string {
	end := min(i+1+marksLookahead, len(lines))
	return strings.Join(lines[i:end], " ")
}
