package meilisearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/garden-ai/garden-catalog/internal/domain"
	"github.com/garden-ai/garden-catalog/internal/domain/searchindex"
)

// fakeServer emulates the subset of the Meilisearch REST API the client uses.
type fakeServer struct {
	mu        sync.Mutex
	docs      map[string]json.RawMessage
	statuses  []string // returned by successive GET /tasks/{uid}
	polls     int
	lastPath  string
	failWrite bool
	filters   []string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/health":
			_, _ = io.WriteString(w, `{"status":"available"}`)

		case r.Method == http.MethodPost && r.URL.Path == "/indexes/gardens/documents":
			if f.failWrite {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"message":"down","code":"internal","type":"internal","link":""}`)
				return
			}
			var docs []map[string]json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
				t.Errorf("decode documents: %v", err)
			}
			for _, d := range docs {
				var id string
				_ = json.Unmarshal(d["id"], &id)
				raw, _ := json.Marshal(d)
				f.docs[id] = raw
			}
			writeTaskInfo(w, 7)

		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/indexes/gardens/documents/"):
			delete(f.docs, strings.TrimPrefix(r.URL.Path, "/indexes/gardens/documents/"))
			writeTaskInfo(w, 8)

		case r.Method == http.MethodGet && r.URL.Path == "/indexes/gardens/stats":
			_, _ = io.WriteString(w, `{"numberOfDocuments":`+strconv.Itoa(len(f.docs))+`,"isIndexing":false,"fieldDistribution":{}}`)

		case r.Method == http.MethodPut && r.URL.Path == "/indexes/gardens/settings/filterable-attributes":
			if err := json.NewDecoder(r.Body).Decode(&f.filters); err != nil {
				t.Errorf("decode filterable attributes: %v", err)
			}
			writeTaskInfo(w, 9)

		case strings.HasPrefix(r.URL.Path, "/tasks/"):
			status := "succeeded"
			if f.polls < len(f.statuses) {
				status = f.statuses[f.polls]
			}
			f.polls++
			uid := strings.TrimPrefix(r.URL.Path, "/tasks/")
			_, _ = io.WriteString(w, `{"uid":`+uid+`,"indexUid":"gardens","status":"`+status+
				`","type":"documentAdditionOrUpdate","enqueuedAt":"2024-01-01T00:00:00Z"}`)

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func writeTaskInfo(w http.ResponseWriter, uid int) {
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"taskUid":    uid,
		"indexUid":   "gardens",
		"status":     "enqueued",
		"type":       "documentAdditionOrUpdate",
		"enqueuedAt": "2024-01-01T00:00:00Z",
	})
}

func newTestClient(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	if f.docs == nil {
		f.docs = map[string]json.RawMessage{}
	}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New(&Config{Host: srv.URL, Index: "gardens", PollInterval: time.Millisecond})
}

func TestDocumentID_IsMeilisearchSafe(t *testing.T) {
	id := DocumentID("10.26311/abc.def/ghi")
	for _, r := range id {
		ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			t.Fatalf("id %q contains %q", id, r)
		}
	}
	if DocumentID("10.1/a") == DocumentID("10.1/b") {
		t.Error("ids must be distinct")
	}
}

func TestCreateEntry_ThenAwait(t *testing.T) {
	f := &fakeServer{statuses: []string{"enqueued", "processing", "succeeded"}}
	c := newTestClient(t, f)

	task, err := c.CreateEntry(context.Background(), searchindex.Entry{
		Subject:   "10.1/g",
		VisibleTo: []string{searchindex.VisibleToPublic},
		Content:   json.RawMessage(`{"title":"G"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != "7" || task.Status != searchindex.TaskEnqueued {
		t.Errorf("task = %+v", task)
	}

	done, err := c.AwaitTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != searchindex.TaskSucceeded {
		t.Errorf("status = %s, want succeeded", done.Status)
	}
	if f.polls != 3 {
		t.Errorf("polls = %d, want 3", f.polls)
	}

	stored, ok := f.docs[DocumentID("10.1/g")]
	if !ok {
		t.Fatal("document not stored")
	}
	if !strings.Contains(string(stored), `"subject":"10.1/g"`) {
		t.Errorf("stored = %s", stored)
	}
}

func TestAwaitTask_Failed(t *testing.T) {
	c := newTestClient(t, &fakeServer{statuses: []string{"failed"}})

	task, err := c.AwaitTask(context.Background(), "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != searchindex.TaskFailed || task.Message == "" {
		t.Errorf("task = %+v", task)
	}
}

func TestAwaitTask_ContextCancelled(t *testing.T) {
	statuses := make([]string, 1000)
	for i := range statuses {
		statuses[i] = "processing"
	}
	c := newTestClient(t, &fakeServer{statuses: statuses})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.AwaitTask(ctx, "3")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestAwaitTask_BadID(t *testing.T) {
	c := newTestClient(t, &fakeServer{})
	if _, err := c.AwaitTask(context.Background(), "redis-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteEntry(t *testing.T) {
	f := &fakeServer{docs: map[string]json.RawMessage{DocumentID("10.1/g"): json.RawMessage(`{}`)}}
	c := newTestClient(t, f)

	task, err := c.DeleteEntry(context.Background(), "10.1/g")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != "8" {
		t.Errorf("task id = %s", task.ID)
	}
	if _, ok := f.docs[DocumentID("10.1/g")]; ok {
		t.Error("document still stored")
	}
}

func TestCreateEntry_ServerError(t *testing.T) {
	c := newTestClient(t, &fakeServer{failWrite: true})

	_, err := c.CreateEntry(context.Background(), searchindex.Entry{Subject: "10.1/g", Content: json.RawMessage(`{}`)})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestEnsureIndexAndPing(t *testing.T) {
	f := &fakeServer{}
	c := newTestClient(t, f)

	if err := c.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if f.lastPath != "/health" {
		t.Errorf("last path = %s", f.lastPath)
	}
	if strings.Join(f.filters, ",") != strings.Join(FilterableAttributes, ",") {
		t.Errorf("filterable attributes = %v, want %v", f.filters, FilterableAttributes)
	}
}

func TestPing_Unreachable(t *testing.T) {
	c := New(&Config{Host: "http://127.0.0.1:1", Index: "gardens"})
	if err := c.Ping(context.Background()); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestCount(t *testing.T) {
	f := &fakeServer{docs: map[string]json.RawMessage{
		DocumentID("10.1/a"): json.RawMessage(`{}`),
		DocumentID("10.1/b"): json.RawMessage(`{}`),
	}}
	c := newTestClient(t, f)

	n, err := c.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}
