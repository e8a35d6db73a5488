package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/papergest/internal/parser"
	"github.com/dgallion1/papergest/internal/question"
)

// parseResponse is the body returned by the synchronous parse endpoints.
type parseResponse struct {
	Title          string                      `json:"title,omitempty"`
	Source         string                      `json:"source,omitempty"`
	TotalQuestions int                         `json:"totalQuestions"`
	Questions      []question.DetectedQuestion `json:"questions"`
	TotalPages     int                         `json:"totalPages"`
	PageCount      int                         `json:"pageCount,omitempty"`
	Metadata       question.DocumentMetadata   `json:"metadata"`
	Text           string                      `json:"text,omitempty"`
}

type textRequest struct {
	Text string `json:"text"`
}

type curateRequest struct {
	Questions []question.DetectedQuestion `json:"questions"`
}

// handleParse extracts an uploaded paper and returns its questions without
// storing anything.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

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

	start := time.Now()
	doc, err := parser.Extract(bytes.NewReader(data), filename, s.parserOptions())
	s.orchestrator.Stats().Observe(start, err)
	if err != nil {
		s.log.Warn("parse failed", "filename", filename, "error", err)
		if errors.Is(err, parser.ErrParseFailed) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := buildParseResponse(doc.Text, isRaw(r))
	resp.Title = doc.Title
	resp.Source = doc.Source
	resp.PageCount = doc.PageCount
	writeJSON(w, http.StatusOK, resp)
}

// handleParseText runs the question parser over already-extracted text.
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decodeJSON(w, r, s.cfg.MaxTextBytes, &req) {
		return
	}

	start := time.Now()
	resp := buildParseResponse(req.Text, isRaw(r))
	s.orchestrator.Stats().Observe(start, nil)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurate(w http.ResponseWriter, r *http.Request) {
	var req curateRequest
	if !s.decodeJSON(w, r, s.cfg.MaxTextBytes, &req) {
		return
	}
	curated := question.Curate(req.Questions)
	writeJSON(w, http.StatusOK, map[string]any{
		"totalQuestions": len(curated),
		"questions":      curated,
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decodeJSON(w, r, s.cfg.MaxTextBytes, &req) {
		return
	}
	writeJSON(w, http.StatusOK, question.ExtractMetadata(req.Text))
}

// buildParseResponse segments text and, unless raw is set, curates the
// result. Raw responses keep discovery order and echo the text.
func buildParseResponse(text string, raw bool) parseResponse {
	res := question.Parse(text)
	resp := parseResponse{
		TotalPages: res.TotalPages,
		Metadata:   question.ExtractMetadata(text),
	}
	if raw {
		resp.Questions = res.Questions
		resp.Text = res.Text
	} else {
		resp.Questions = question.Curate(res.Questions)
	}
	resp.TotalQuestions = len(resp.Questions)
	return resp
}

func isRaw(r *http.Request) bool {
	return r.URL.Query().Get("raw") == "true"
}

func (s *Server) parserOptions() parser.Options {
	return parser.Options{FallbackPdftotext: s.cfg.PDFFallbackPdftotext}
}

// readUpload reads an uploaded file up to MaxUploadBytes, writing an error
// response and returning false when it cannot.
func (s *Server) readUpload(w http.ResponseWriter, file io.Reader) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, false
	}
	return data, true
}

// decodeJSON reads a JSON body of at most limit bytes into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return false
	}
	if int64(len(body)) > limit {
		jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", limit), http.StatusRequestEntityTooLarge)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
