package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dgallion1/papergest/internal/paperstore"
	"github.com/dgallion1/papergest/internal/parser"
	"github.com/dgallion1/papergest/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

const defaultListLimit = 200

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	ownerID := r.FormValue("owner_id")
	if ownerID == "" {
		jsonError(w, "owner_id is required", http.StatusBadRequest)
		return
	}
	paperID := r.FormValue("paper_id")
	if !validIDs(w, ownerID) || (paperID != "" && !validIDs(w, paperID)) {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, ok := s.readUpload(w, file)
	if !ok {
		return
	}

	job := newJob(ownerID, paperID, filename, data)
	job.Title = r.FormValue("title")
	job.Force = r.FormValue("force") == "true"

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, jobAccepted(job))
}

func (s *Server) handleBatchIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	ownerID := r.FormValue("owner_id")
	if ownerID == "" {
		jsonError(w, "owner_id is required", http.StatusBadRequest)
		return
	}
	if !validIDs(w, ownerID) {
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	force := r.FormValue("force") == "true"

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		data, err := s.readPart(fh, filename)
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		job := newJob(ownerID, "", filename, data)
		job.Force = force
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		res := jobAccepted(job)
		res["filename"] = filename
		results = append(results, res)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

// readPart validates and reads one file of a batch upload.
func (s *Server) readPart(fh *multipart.FileHeader, filename string) ([]byte, error) {
	if !parser.IsSupportedExtension(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, errors.New("file too large or read error")
	}
	return data, nil
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleListPapers lists all stored papers for an owner.
func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	papers, err := s.orchestrator.Store().ListPapers(r.Context(), ownerID, limit)
	if err != nil {
		jsonError(w, "failed to list papers: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"papers": papers})
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	paperID, ok := requirePaperID(w, r)
	if !ok {
		return
	}
	p, err := s.orchestrator.Store().GetPaper(r.Context(), ownerID, paperID)
	if err != nil {
		jsonError(w, "failed to get paper: "+err.Error(), http.StatusBadGateway)
		return
	}
	if p == nil {
		jsonError(w, "paper not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleReplaceQuestions stores a manually edited question list. The list
// is curated again before it is written.
func (s *Server) handleReplaceQuestions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	paperID, ok := requirePaperID(w, r)
	if !ok {
		return
	}
	var req curateRequest
	if !s.decodeJSON(w, r, s.cfg.MaxTextBytes, &req) {
		return
	}

	ctx := r.Context()
	store := s.orchestrator.Store()
	p, err := store.GetPaper(ctx, ownerID, paperID)
	if err != nil {
		jsonError(w, "failed to get paper: "+err.Error(), http.StatusBadGateway)
		return
	}
	if p == nil {
		jsonError(w, "paper not found", http.StatusNotFound)
		return
	}

	p.SetQuestions(req.Questions)
	p.UpdatedAt = time.Now()
	if err := store.PutPaper(ctx, p); err != nil {
		jsonError(w, "failed to store paper: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.log.Info("questions replaced", "owner_id", ownerID, "paper_id", p.ID, "questions", p.QuestionCount)
	writeJSON(w, http.StatusOK, p)
}

// handleDeletePaper deletes a paper and its hash index entry.
func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	paperID, ok := requirePaperID(w, r)
	if !ok {
		return
	}
	found, err := s.orchestrator.Store().DeletePaper(r.Context(), ownerID, paperID)
	if err != nil {
		jsonError(w, "failed to delete paper: "+err.Error(), http.StatusBadGateway)
		return
	}
	if !found {
		jsonError(w, "paper not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paper_id": paperID, "deleted": true})
}

func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		jsonError(w, "owner_id query parameter is required", http.StatusBadRequest)
		return "", false
	}
	return ownerID, validIDs(w, ownerID)
}

func requirePaperID(w http.ResponseWriter, r *http.Request) (string, bool) {
	paperID := chi.URLParam(r, "paperID")
	return paperID, validIDs(w, paperID)
}

// validIDs writes a 400 for the first id that cannot be used as a store
// key segment.
func validIDs(w http.ResponseWriter, ids ...string) bool {
	for _, id := range ids {
		if err := paperstore.ValidateID(id); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return false
		}
	}
	return true
}

// newJob builds a queued job. Without an explicit paper id the id is
// derived from the upload bytes, so re-uploading a file overwrites it.
func newJob(ownerID, paperID, filename string, data []byte) *pipeline.Job {
	if paperID == "" {
		paperID = pipeline.ContentHashHex(data)[:16]
	}
	now := time.Now()
	job := &pipeline.Job{
		ID:        pipeline.NewID(),
		PaperID:   paperID,
		OwnerID:   ownerID,
		Status:    pipeline.StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.SetFileData(data)
	return job
}

func jobAccepted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":   snap.ID,
		"paper_id": snap.PaperID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/papers/jobs/%s/status", snap.ID),
	}
}
