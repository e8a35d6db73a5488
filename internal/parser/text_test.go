package parser

import (
	"strings"
	"testing"
)

func TestTextParser_KeepsLines(t *testing.T) {
	input := "1. First question\n\n2. Second question\nPage 2\n3. Third"
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "paper.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "paper" {
		t.Errorf("expected title %q, got %q", "paper", doc.Title)
	}
	if doc.Text != input {
		t.Errorf("expected text to be preserved, got %q", doc.Text)
	}
	if doc.Source != "text" {
		t.Errorf("expected source %q, got %q", "text", doc.Source)
	}
}

func TestTextParser_FormFeedCountsPages(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader("page one\n\fpage two\n\fpage three"), "ff.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", doc.PageCount)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", doc.Title)
	}
	if doc.Text != "" {
		t.Errorf("expected empty text, got %q", doc.Text)
	}
	if doc.PageCount != 1 {
		t.Errorf("expected 1 page, got %d", doc.PageCount)
	}
}

func TestTextParser_LineTooLong(t *testing.T) {
	p := &TextParser{}
	_, err := p.Parse(strings.NewReader(strings.Repeat("x", 2*1024*1024)), "huge.txt")
	if err == nil {
		t.Error("expected error for a line above the scanner limit")
	}
}
