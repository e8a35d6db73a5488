package paper

import (
	"testing"

	"github.com/dgallion1/papergest/internal/question"
)

func marks(n int) *int { return &n }

func TestSetQuestions_Curates(t *testing.T) {
	p := &Paper{}
	p.SetQuestions([]question.DetectedQuestion{
		{QuestionNumber: "2", QuestionText: "Second"},
		{QuestionNumber: "1", QuestionText: "First"},
		{QuestionNumber: "2", QuestionText: "Duplicate"},
		{QuestionNumber: "3", QuestionText: "no"},
	})
	if p.QuestionCount != 2 {
		t.Fatalf("expected 2 questions, got %d", p.QuestionCount)
	}
	if p.Questions[0].QuestionNumber != "1" || p.Questions[1].QuestionText != "Second" {
		t.Errorf("unexpected curated list %+v", p.Questions)
	}
}

func TestMarksAllocated(t *testing.T) {
	p := &Paper{Questions: []question.DetectedQuestion{
		{QuestionNumber: "1", Marks: marks(5)},
		{QuestionNumber: "2"},
		{QuestionNumber: "3", Marks: marks(10)},
	}}
	if got := p.MarksAllocated(); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
}

func TestMarksMismatch(t *testing.T) {
	tests := []struct {
		name  string
		total *int
		qs    []question.DetectedQuestion
		want  bool
	}{
		{"no total", nil, []question.DetectedQuestion{{Marks: marks(5)}}, false},
		{"no per-question marks", marks(80), []question.DetectedQuestion{{}}, false},
		{"matches", marks(15), []question.DetectedQuestion{{Marks: marks(5)}, {Marks: marks(10)}}, false},
		{"differs", marks(80), []question.DetectedQuestion{{Marks: marks(5)}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &Paper{TotalMarks: tc.total, Questions: tc.qs}
			if got := p.MarksMismatch(); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
