package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text files. Form feeds are kept as page separators.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	pages := 1
	for scanner.Scan() {
		line := scanner.Text()
		pages += strings.Count(line, "\f")
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Document{
		Title:     trimExt(filename, ".txt"),
		Text:      strings.Join(lines, "\n"),
		PageCount: pages,
		Source:    "text",
	}, nil
}
