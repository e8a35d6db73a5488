package question

import "testing"

func TestExtractTotalMarks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int // 0 means absent
	}{
		{"maximum marks", "Class X Science\nMaximum Marks: 80\nTime: 3 Hours", 80},
		{"total marks", "TOTAL MARKS 70", 70},
		{"plain marks label", "Marks: 50", 50},
		{"maximum wins over marks", "Marks: 40\nMaximum Marks: 90", 90},
		{"falls through out of range", "Maximum Marks: 5\nTotal Marks: 60", 60},
		{"lower bound", "Total Marks: 10", 10},
		{"upper bound", "Total Marks: 500", 500},
		{"below range", "Marks: 5", 0}, // labelled totals below 10 are still rejected
		{"above range", "Maximum Marks: 501", 0},
		{"missing", "Answer all questions.", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractTotalMarks(tc.text)
			if tc.want == 0 {
				if got != nil {
					t.Errorf("expected absent, got %d", *got)
				}
				return
			}
			if got == nil || *got != tc.want {
				t.Errorf("expected %d, got %v", tc.want, got)
			}
		})
	}
}

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int // minutes, 0 means absent
	}{
		{"time hours", "Time: 3 Hours", 180},
		{"time allowed", "Time Allowed: 2 hours", 120},
		{"duration", "Duration 1 Hour", 60},
		{"hrs abbreviation", "Duration: 8 hrs", 480},
		{"time wins over duration", "Time: 2 Hours\nDuration: 3 Hours", 120},
		{"zero hours", "Time: 0 Hours", 0},
		{"too long", "Duration: 9 Hours", 0},
		{"minutes not hours", "Time: 45 minutes", 0},
		{"missing", "Maximum Marks: 80", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractDuration(tc.text)
			if tc.want == 0 {
				if got != nil {
					t.Errorf("expected absent, got %d", *got)
				}
				return
			}
			if got == nil || *got != tc.want {
				t.Errorf("expected %d, got %v", tc.want, got)
			}
		})
	}
}

func TestExtractMetadata_Independent(t *testing.T) {
	md := ExtractMetadata("Time: 3 Hours")
	if md.TotalMarks != nil {
		t.Errorf("expected no total marks, got %d", *md.TotalMarks)
	}
	if md.DurationMinutes == nil || *md.DurationMinutes != 180 {
		t.Errorf("expected 180 minutes, got %v", md.DurationMinutes)
	}

	md = ExtractMetadata("Maximum Marks: 100")
	if md.TotalMarks == nil || *md.TotalMarks != 100 {
		t.Errorf("expected 100 marks, got %v", md.TotalMarks)
	}
	if md.DurationMinutes != nil {
		t.Errorf("expected no duration, got %d", *md.DurationMinutes)
	}
}
