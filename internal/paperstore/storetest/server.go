// Package storetest provides an in-memory KV server speaking the paper
// store's HTTP protocol, for tests.
package storetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Server is an in-memory KV store behind an httptest.Server.
type Server struct {
	*httptest.Server

	APIKey string

	mu         sync.Mutex
	nodes      map[string]json.RawMessage
	fail       map[string]int // method -> remaining injected failures
	failStatus map[string]int // method -> status of injected failures
	calls      map[string]int // method -> request count
}

// NewServer starts a store that requires apiKey as a bearer token.
func NewServer(apiKey string) *Server {
	s := &Server{
		APIKey:     apiKey,
		nodes:      make(map[string]json.RawMessage),
		fail:       make(map[string]int),
		failStatus: make(map[string]int),
		calls:      make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailNext makes the next n requests with the given method return status.
func (s *Server) FailNext(method string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus[method] = status
	s.fail[method] = n
}

// Calls returns how many requests with the given method were received.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Keys returns all stored keys, sorted.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the raw stored value for key.
func (s *Server) Value(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.nodes[key]
	return v, ok
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[r.Method]++
	if r.Header.Get("Authorization") != "Bearer "+s.APIKey {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if n := s.fail[r.Method]; n > 0 {
		s.fail[r.Method] = n - 1
		http.Error(w, `{"error":"injected failure"}`, s.failStatus[r.Method])
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.nodes[key] = body.Value
		w.WriteHeader(http.StatusCreated)

	case http.MethodGet:
		if prefix, ok := strings.CutSuffix(key, "/*"); ok {
			s.list(w, r, prefix)
			return
		}
		v, ok := s.nodes[key]
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"key_path": key, "value": v})

	case http.MethodDelete:
		delete(s.nodes, key)
		if r.URL.Query().Get("children") == "true" {
			for k := range s.nodes {
				if strings.HasPrefix(k, key+"/") {
					delete(s.nodes, k)
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, prefix string) {
	keys := make([]string, 0)
	for k := range s.nodes {
		if strings.HasPrefix(k, prefix+"/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	nodes := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, map[string]any{"key_path": k, "value": s.nodes[k]})
	}
	writeJSON(w, map[string]any{"nodes": nodes})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
