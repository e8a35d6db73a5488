package question

// Confidence tags how specific the marker pattern that produced a question was.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DetectedQuestion is one question recovered from an exam paper's text.
type DetectedQuestion struct {
	QuestionNumber string     `json:"questionNumber"`         // Canonical marker id, e.g. "1", "1(a)", "Q1", "Question 1", "(a)"
	QuestionText   string     `json:"questionText,omitempty"` // Text after the marker on the same line
	Marks          *int       `json:"marks,omitempty"`        // Point value in [1,100], nil if none found
	PageNumber     int        `json:"pageNumber"`             // Approximate page, starting at 1
	Confidence     Confidence `json:"confidence"`
}

// HasText reports whether the question carries any trailing text.
func (q DetectedQuestion) HasText() bool {
	return q.QuestionText != ""
}

// ParseResult is the segmenter's output for one document.
type ParseResult struct {
	TotalQuestions int                `json:"totalQuestions"`
	Questions      []DetectedQuestion `json:"questions"`
	TotalPages     int                `json:"totalPages"`
	Text           string             `json:"text"`
}

// DocumentMetadata holds document-level values found in the paper header.
type DocumentMetadata struct {
	TotalMarks      *int `json:"totalMarks,omitempty"`
	DurationMinutes *int `json:"durationMinutes,omitempty"`
}

func intPtr(n int) *int {
	return &n
}
