package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/papergest/internal/paper"
)

// JobStatus represents the state of a paper ingestion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusSegmenting JobStatus = "segmenting"
	StatusCurating   JobStatus = "curating"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single paper ingestion.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	PaperID string `json:"paper_id"`
	OwnerID string `json:"owner_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Force    bool      `json:"force"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	paper    *paper.Paper
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	PageCount         int      `json:"page_count"`
	DetectedPages     int      `json:"detected_pages"`
	QuestionsDetected int      `json:"questions_detected"`
	QuestionsKept     int      `json:"questions_kept"`
	Stored            bool     `json:"stored"`
	DuplicateOf       string   `json:"duplicate_of,omitempty"`
	Errors            []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetPages records the extractor and heuristic page counts.
func (j *Job) SetPages(extracted, detected int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.PageCount = extracted
	j.Progress.DetectedPages = detected
	j.UpdatedAt = time.Now()
}

// SetQuestionCounts records how many questions were detected and kept.
func (j *Job) SetQuestionCounts(detected, kept int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.QuestionsDetected = detected
	j.Progress.QuestionsKept = kept
	j.UpdatedAt = time.Now()
}

// SetPaper attaches the curated paper to the job.
func (j *Job) SetPaper(p *paper.Paper) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.paper = p
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash of the extracted text.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.UpdatedAt = time.Now()
}

// MarkStored records a successful store write.
func (j *Job) MarkStored() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Stored = true
	j.UpdatedAt = time.Now()
}

// MarkDuplicate records the id of an existing paper with the same content.
func (j *Job) MarkDuplicate(paperID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DuplicateOf = paperID
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseFileData drops the upload once it has been extracted.
func (j *Job) releaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string       `json:"job_id"`
	PaperID  string       `json:"paper_id"`
	OwnerID  string       `json:"owner_id"`
	Status   JobStatus    `json:"status"`
	Phase    string       `json:"phase"`
	Filename string       `json:"filename"`
	Title    string       `json:"title"`
	Progress Progress     `json:"progress"`
	Paper    *paper.Paper `json:"paper,omitempty"`

	ContentHash string `json:"content_hash,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	progress := j.Progress
	progress.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:       j.ID,
		PaperID:  j.PaperID,
		OwnerID:  j.OwnerID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Title:    j.Title,
		Progress: progress,
		Paper:    j.paper,

		ContentHash: j.ContentHash,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
