package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/papergest/internal/config"
	"github.com/dgallion1/papergest/internal/paperstore"
	"github.com/dgallion1/papergest/internal/paperstore/storetest"
	"github.com/dgallion1/papergest/internal/pipeline"
	"github.com/dgallion1/papergest/internal/stats"
)

const testAPIKey = "test-key"

const samplePaper = "Maximum Marks: 40\nTime allowed: 2 hours\n" +
	"1. Define velocity (5 marks)\n\n\n" +
	"2(b) Explain\n\n\n" +
	"2(a) State Newton's law\n" +
	"Page 2\n" +
	"Q3 Describe friction\n" +
	"(c) ok"

func newTestServer(t *testing.T) (*Server, *storetest.Server) {
	t.Helper()
	store := storetest.NewServer("store-key")
	t.Cleanup(store.Close)

	cfg := config.Config{
		PapergestAPIKey:    testAPIKey,
		WorkerCount:        1,
		MaxQueueSize:       4,
		MaxConcurrentStore: 1,
		MaxUploadBytes:     1 << 20,
		MaxTextBytes:       4096,
		JobTTL:             time.Hour,
		StatsWindow:        time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, paperstore.NewClient(store.URL, "store-key"), stats.NewLatency(cfg.StatsWindow), log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return NewServer(orch, log, cfg), store
}

func do(t *testing.T, s *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, s *Server, method, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return do(t, s, method, target, bytes.NewReader(body), "application/json")
}

func multipartBody(t *testing.T, fileField string, fields, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile(fileField, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func waitForJob(t *testing.T, s *Server, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := do(t, s, http.MethodGet, "/api/papers/jobs/"+jobID+"/status", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 polling job, got %d", rec.Code)
		}
		snap := decode[pipeline.JobSnapshot](t, rec)
		switch snap.Status {
		case pipeline.StatusCompleted, pipeline.StatusFailed, pipeline.StatusPartial, pipeline.StatusDupSkipped:
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return pipeline.JobSnapshot{}
}

func TestHealth_Public(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testAPIKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/parse/text", strings.NewReader(`{"text":""}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestParseText_Curated(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/parse/text", textRequest{Text: samplePaper})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[parseResponse](t, rec)

	var got []string
	for _, q := range resp.Questions {
		got = append(got, q.QuestionNumber)
	}
	want := []string{"1", "2(a)", "2(b)", "Q3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
	if resp.TotalQuestions != 4 {
		t.Errorf("expected 4 questions, got %d", resp.TotalQuestions)
	}
	if resp.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", resp.TotalPages)
	}
	if resp.Metadata.TotalMarks == nil || *resp.Metadata.TotalMarks != 40 {
		t.Errorf("expected total marks 40, got %v", resp.Metadata.TotalMarks)
	}
	if resp.Text != "" {
		t.Error("expected text to be omitted from curated response")
	}
}

func TestParseText_Raw(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/parse/text?raw=true", textRequest{Text: samplePaper})
	resp := decode[parseResponse](t, rec)

	var got []string
	for _, q := range resp.Questions {
		got = append(got, q.QuestionNumber)
	}
	want := []string{"1", "2(b)", "2(a)", "Q3", "(c)"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected discovery order %v, got %v", want, got)
	}
	if resp.Text != samplePaper {
		t.Error("expected raw response to echo the text")
	}
}

func TestParseText_TooLarge(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/parse/text", textRequest{Text: strings.Repeat("x", 5000)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestParseText_InvalidJSON(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/parse/text", strings.NewReader("{"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestParseUpload(t *testing.T) {
	s, _ := newTestServer(t)
	body, ct := multipartBody(t, "file", nil, map[string]string{"physics.txt": samplePaper})
	rec := do(t, s, http.MethodPost, "/api/parse", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[parseResponse](t, rec)
	if resp.Title != "physics" || resp.Source != "text" {
		t.Errorf("unexpected title/source %q/%q", resp.Title, resp.Source)
	}
	if resp.TotalQuestions != 4 {
		t.Errorf("expected 4 questions, got %d", resp.TotalQuestions)
	}

	statsResp := decode[map[string]json.RawMessage](t, do(t, s, http.MethodGet, "/api/stats/parse", nil, ""))
	if !strings.Contains(string(statsResp["stats"]), `"count":1`) {
		t.Errorf("expected one recorded parse, got %s", statsResp["stats"])
	}
}

func TestParseUpload_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name     string
		filename string
		content  string
		want     int
	}{
		{"unsupported extension", "scan.tiff", "II*", http.StatusBadRequest},
		{"corrupt pdf", "broken.pdf", "not a pdf at all", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, "file", nil, map[string]string{tt.filename: tt.content})
			rec := do(t, s, http.MethodPost, "/api/parse", body, ct)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCurate(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/curate", strings.NewReader(`{"questions":[
		{"questionNumber":"2","questionText":"Second","pageNumber":1,"confidence":"high"},
		{"questionNumber":"1","questionText":"ok","pageNumber":1,"confidence":"high"},
		{"questionNumber":"1(a)","questionText":"First part","pageNumber":1,"confidence":"high"}
	]}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[curateRequest](t, rec)
	if len(resp.Questions) != 2 || resp.Questions[0].QuestionNumber != "1(a)" || resp.Questions[1].QuestionNumber != "2" {
		t.Errorf("unexpected curated list %+v", resp.Questions)
	}
}

func TestMetadata(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/metadata", textRequest{Text: "Total Marks: 80\nDuration: 3 hours"})
	body := rec.Body.String()
	if !strings.Contains(body, `"totalMarks":80`) || !strings.Contains(body, `"durationMinutes":180`) {
		t.Errorf("unexpected metadata %s", body)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/metadata", textRequest{Text: "Marks: 5"})
	if got := strings.TrimSpace(rec.Body.String()); got != "{}" {
		t.Errorf("expected empty metadata, got %s", got)
	}
}

func TestPaperLifecycle(t *testing.T) {
	s, store := newTestServer(t)

	body, ct := multipartBody(t, "file", map[string]string{"owner_id": "owner-1", "paper_id": "P1", "title": "Physics"}, map[string]string{"physics.txt": samplePaper})
	rec := do(t, s, http.MethodPost, "/api/papers", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	accepted := decode[map[string]string](t, rec)
	if accepted["paper_id"] != "P1" || !strings.HasSuffix(accepted["poll_url"], "/status") {
		t.Errorf("unexpected accept body %v", accepted)
	}

	snap := waitForJob(t, s, accepted["job_id"])
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if _, ok := store.Value(paperstore.PaperKey("owner-1", "P1")); !ok {
		t.Fatal("expected paper in store")
	}

	// List.
	rec = do(t, s, http.MethodGet, "/api/papers?owner_id=owner-1", nil, "")
	list := decode[map[string][]map[string]any](t, rec)
	if len(list["papers"]) != 1 || list["papers"][0]["title"] != "Physics" {
		t.Errorf("unexpected list %v", list)
	}

	// Replace questions; the short one is curated away.
	rec = do(t, s, http.MethodPut, "/api/papers/P1/questions?owner_id=owner-1", strings.NewReader(`{"questions":[
		{"questionNumber":"4","questionText":"New question","pageNumber":2,"confidence":"high"},
		{"questionNumber":"5","questionText":"no","pageNumber":2,"confidence":"high"}
	]}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/papers/P1?owner_id=owner-1", nil, "")
	got := decode[map[string]any](t, rec)
	if got["question_count"] != float64(1) {
		t.Errorf("expected 1 question after replace, got %v", got["question_count"])
	}

	// Delete.
	rec = do(t, s, http.MethodDelete, "/api/papers/P1?owner_id=owner-1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if keys := store.Keys(); len(keys) != 0 {
		t.Errorf("expected store to be empty, got %v", keys)
	}
	rec = do(t, s, http.MethodGet, "/api/papers/P1?owner_id=owner-1", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestBatchIngest(t *testing.T) {
	s, _ := newTestServer(t)
	body, ct := multipartBody(t, "files",
		map[string]string{"owner_id": "owner-1"},
		map[string]string{"a.txt": samplePaper, "b.exe": "MZ"},
	)
	rec := do(t, s, http.MethodPost, "/api/papers/batch", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string][]map[string]any](t, rec)
	if len(resp["jobs"]) != 2 {
		t.Fatalf("expected 2 results, got %v", resp)
	}
	for _, res := range resp["jobs"] {
		switch res["filename"] {
		case "a.txt":
			if res["job_id"] == nil {
				t.Errorf("expected job for a.txt, got %v", res)
			}
		case "b.exe":
			if res["error"] == nil {
				t.Errorf("expected error for b.exe, got %v", res)
			}
		}
	}
}

func TestPapers_RequireOwner(t *testing.T) {
	s, _ := newTestServer(t)
	for _, target := range []string{"/api/papers", "/api/papers/P1"} {
		rec := do(t, s, http.MethodGet, target, nil, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestPapers_RejectInvalidIDs(t *testing.T) {
	s, store := newTestServer(t)

	for _, tc := range []struct {
		method, target string
	}{
		{http.MethodGet, "/api/papers?owner_id=a%2Fb"},
		{http.MethodGet, "/api/papers/P1?owner_id=by_hash"},
		{http.MethodGet, "/api/papers/by_hash?owner_id=owner-1"},
		{http.MethodDelete, "/api/papers/by_hash?owner_id=owner-1"},
		{http.MethodDelete, "/api/papers/a%2Fb?owner_id=owner-1"},
	} {
		rec := do(t, s, tc.method, tc.target, nil, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s: expected 400, got %d", tc.method, tc.target, rec.Code)
		}
	}

	for _, fields := range []map[string]string{
		{"owner_id": "owner-1", "paper_id": "by_hash"},
		{"owner_id": "owner-1", "paper_id": "a/b"},
		{"owner_id": "a/b"},
	} {
		body, ct := multipartBody(t, "file", fields, map[string]string{"physics.txt": samplePaper})
		rec := do(t, s, http.MethodPost, "/api/papers", body, ct)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("ingest %v: expected 400, got %d", fields, rec.Code)
		}
	}

	if n := store.Calls(http.MethodGet) + store.Calls(http.MethodPut) + store.Calls(http.MethodDelete); n != 0 {
		t.Errorf("expected no store requests, got %d", n)
	}
}

func TestIngestStatus_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/papers/jobs/missing/status", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"paper.pdf", "paper.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\x\exam.docx`, "exam.docx"},
		{"", "unnamed"},
		{"a..b.txt", "a_b.txt"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
