// Command papergest extracts and segments exam papers from the command line.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/papergest/internal/config"
	"github.com/dgallion1/papergest/internal/parser"
	"github.com/dgallion1/papergest/internal/question"
	"github.com/urfave/cli/v2"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("ignoring .env", "error", err)
	}
	if err := newApp(config.Load(), log).Run(os.Args); err != nil {
		log.Error("papergest failed", "error", err)
		os.Exit(1)
	}
}

func newApp(cfg config.Config, log *slog.Logger) *cli.App {
	return &cli.App{
		Name:  "papergest",
		Usage: "Detect questions in exam papers",
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Extract a paper and print its questions as JSON",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Print detected questions in discovery order without curation",
					},
					&cli.BoolFlag{
						Name:  "pdftotext",
						Value: cfg.PDFFallbackPdftotext,
						Usage: "Fall back to the pdftotext binary when a PDF has no text layer",
					},
				},
				Action: func(c *cli.Context) error {
					return runParse(c, log)
				},
			},
			{
				Name:      "curate",
				Usage:     "Curate a JSON list of detected questions",
				ArgsUsage: "[FILE|-]",
				Action:    runCurate,
			},
			{
				Name:      "meta",
				Usage:     "Print total marks and duration of a paper",
				ArgsUsage: "FILE",
				Action: func(c *cli.Context) error {
					return runMeta(c, cfg)
				},
			},
		},
	}
}

func runParse(c *cli.Context, log *slog.Logger) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("parse: FILE is required", 2)
	}

	start := time.Now()
	doc, err := extractFile(path, parser.Options{FallbackPdftotext: c.Bool("pdftotext")})
	if err != nil {
		return err
	}

	res := question.Parse(doc.Text)
	questions := res.Questions
	if !c.Bool("raw") {
		questions = question.Curate(questions)
	}
	log.Info("parsed paper",
		"file", path,
		"source", doc.Source,
		"detected", res.TotalQuestions,
		"kept", len(questions),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	out := map[string]any{
		"title":          doc.Title,
		"totalQuestions": len(questions),
		"questions":      questions,
		"totalPages":     res.TotalPages,
		"pageCount":      doc.PageCount,
		"metadata":       question.ExtractMetadata(doc.Text),
	}
	if c.Bool("raw") {
		out["text"] = res.Text
	}
	return printJSON(c.App.Writer, out)
}

func runCurate(c *cli.Context) error {
	var r io.Reader = c.App.Reader
	if path := c.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("curate: %w", err)
		}
		defer f.Close()
		r = f
	}

	// Accept either a bare array or a parse result object.
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("curate: read input: %w", err)
	}
	var qs []question.DetectedQuestion
	if err := json.Unmarshal(data, &qs); err != nil {
		var wrapped struct {
			Questions []question.DetectedQuestion `json:"questions"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return fmt.Errorf("curate: decode input: %w", err)
		}
		qs = wrapped.Questions
	}

	curated := question.Curate(qs)
	return printJSON(c.App.Writer, map[string]any{
		"totalQuestions": len(curated),
		"questions":      curated,
	})
}

func runMeta(c *cli.Context, cfg config.Config) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("meta: FILE is required", 2)
	}
	doc, err := extractFile(path, parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, question.ExtractMetadata(doc.Text))
}

func extractFile(path string, opts parser.Options) (*parser.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := parser.Extract(f, path, opts)
	if errors.Is(err, parser.ErrParseFailed) {
		return nil, cli.Exit(err.Error(), 1)
	}
	return doc, err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
