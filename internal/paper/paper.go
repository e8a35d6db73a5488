package paper

import (
	"time"

	"github.com/dgallion1/papergest/internal/question"
)

// Paper is a curated exam paper as persisted by the paper store.
type Paper struct {
	ID          string `json:"paper_id"`
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	ContentHash string `json:"content_hash"`

	PageCount     int `json:"page_count"`     // Pages reported by the extractor (0 if N/A)
	DetectedPages int `json:"detected_pages"` // Pages counted by the page-break heuristic

	TotalMarks      *int `json:"total_marks,omitempty"`
	DurationMinutes *int `json:"duration_minutes,omitempty"`

	Questions     []question.DetectedQuestion `json:"questions"`
	QuestionCount int                         `json:"question_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetQuestions curates qs and stores the result with its count.
func (p *Paper) SetQuestions(qs []question.DetectedQuestion) {
	p.Questions = question.Curate(qs)
	p.QuestionCount = len(p.Questions)
}

// MarksAllocated sums the marks of questions that carry a value.
func (p *Paper) MarksAllocated() int {
	total := 0
	for _, q := range p.Questions {
		if q.Marks != nil {
			total += *q.Marks
		}
	}
	return total
}

// MarksMismatch reports whether the per-question marks disagree with the
// paper's stated total. Papers without a total or without any per-question
// marks never mismatch.
func (p *Paper) MarksMismatch() bool {
	if p.TotalMarks == nil {
		return false
	}
	allocated := p.MarksAllocated()
	return allocated > 0 && allocated != *p.TotalMarks
}
