package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/papergest/internal/paper"
	"github.com/dgallion1/papergest/internal/paperstore"
	"github.com/dgallion1/papergest/internal/parser"
	"github.com/dgallion1/papergest/internal/question"
	"github.com/dgallion1/papergest/internal/stats"
)

// Worker processes a single paper job.
type Worker struct {
	store   *paperstore.Client
	stats   *stats.Latency
	log     *slog.Logger
	opts    parser.Options
	backoff func(attempt int) time.Duration

	// storeSem bounds concurrent store writes across workers.
	storeSem chan struct{}
}

func NewWorker(store *paperstore.Client, latency *stats.Latency, log *slog.Logger, opts parser.Options) *Worker {
	return &Worker{
		store:    store,
		stats:    latency,
		log:      log,
		opts:     opts,
		backoff:  Backoff,
		storeSem: make(chan struct{}, 1),
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "paper_id", job.PaperID, "owner_id", job.OwnerID)

	// Phase 1: Extract text
	job.SetStatus(StatusExtracting, "extracting")
	start := time.Now()
	doc, err := parser.Extract(bytes.NewReader(job.FileData()), job.Filename, w.opts)
	job.releaseFileData()
	if err != nil {
		w.stats.Observe(start, err)
		log.Error("extraction failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	title := doc.Title
	if job.Title != "" {
		title = job.Title
	}
	contentHash := ContentHashHex([]byte(doc.Text))
	job.SetContentHash(contentHash)

	// Phase 1.5: Dedup check
	if !job.Force {
		existing, err := w.store.FindByHash(ctx, job.OwnerID, contentHash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if existing != "" && existing != job.PaperID {
			w.stats.Observe(start, nil)
			log.Info("duplicate paper, skipping", "existing_paper_id", existing)
			job.MarkDuplicate(existing)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Segment
	job.SetStatus(StatusSegmenting, "segmenting")
	res := question.Parse(doc.Text)
	job.SetPages(doc.PageCount, res.TotalPages)
	log.Info("segmented paper", "questions", res.TotalQuestions, "detected_pages", res.TotalPages, "source", doc.Source)

	// Phase 3: Curate
	job.SetStatus(StatusCurating, "curating")
	now := time.Now()
	md := question.ExtractMetadata(doc.Text)
	p := &paper.Paper{
		ID:              job.PaperID,
		OwnerID:         job.OwnerID,
		Title:           title,
		Filename:        job.Filename,
		ContentHash:     contentHash,
		PageCount:       doc.PageCount,
		DetectedPages:   res.TotalPages,
		TotalMarks:      md.TotalMarks,
		DurationMinutes: md.DurationMinutes,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       now,
	}
	p.SetQuestions(res.Questions)
	job.SetQuestionCounts(res.TotalQuestions, p.QuestionCount)
	job.SetPaper(p)
	w.stats.Observe(start, nil)

	if p.QuestionCount == 0 {
		log.Warn("no questions detected; paper needs manual entry")
	}
	if p.MarksMismatch() {
		log.Warn("question marks do not add up to total", "allocated", p.MarksAllocated(), "total", *p.TotalMarks)
	}

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	if err := w.storePaper(ctx, log, p); err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusPartial, "done")
		return
	}
	job.MarkStored()
	log.Info("paper stored", "questions", p.QuestionCount)
	job.SetStatus(StatusCompleted, "done")
}

// storePaper writes the paper, retrying transient store failures.
func (w *Worker) storePaper(ctx context.Context, log *slog.Logger, p *paper.Paper) error {
	select {
	case w.storeSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-w.storeSem }()

	return retry(ctx, w.backoff,
		func(attempt int, err error) {
			log.Warn("retryable store error", "attempt", attempt, "error", err)
		},
		func() error { return w.store.PutPaper(ctx, p) },
	)
}
