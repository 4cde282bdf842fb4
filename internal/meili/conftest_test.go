package meili

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/meiligate/internal/config"
)

const testMasterKey = "masterKey"

// fakeMeili is an in-memory stand-in for the Meilisearch HTTP API, covering
// only the endpoints the gateway calls.
type fakeMeili struct {
	t *testing.T

	mu         sync.Mutex
	indexes    map[string]string // uid -> primary key
	tasks      map[int64]map[string]any
	nextTask   int64
	lastBody   map[string][]byte // path -> last request body
	taskStatus string            // status reported for every task
	taskError  map[string]any

	settingsReads int
}

func newFakeMeili(t *testing.T) (*fakeMeili, *httptest.Server) {
	t.Helper()
	f := &fakeMeili{
		t:          t,
		indexes:    map[string]string{},
		tasks:      map[int64]map[string]any{},
		lastBody:   map[string][]byte{},
		taskStatus: "succeeded",
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestProvider(t *testing.T, srv *httptest.Server) *Provider {
	t.Helper()
	p, err := NewProvider(config.Connection{URL: srv.URL, APIKey: testMasterKey}, Options{
		TaskWaitTimeout:  2 * time.Second,
		TaskPollInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, code, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"message": msg, "code": code, "type": "invalid_request",
		"link": "https://docs.meilisearch.com/errors#" + code,
	})
}

const fakeTime = "2026-10-15T12:00:00.000000Z"

func (f *fakeMeili) enqueue(w http.ResponseWriter, indexUID, taskType string) {
	f.nextTask++
	uid := f.nextTask
	task := map[string]any{
		"uid": uid, "taskUid": uid, "indexUid": indexUID, "status": f.taskStatus,
		"type": taskType, "enqueuedAt": fakeTime,
	}
	if f.taskError != nil {
		task["error"] = f.taskError
	}
	f.tasks[uid] = task
	writeJSON(w, http.StatusAccepted, map[string]any{
		"taskUid": uid, "indexUid": indexUID, "status": "enqueued", "type": taskType, "enqueuedAt": fakeTime,
	})
}

func (f *fakeMeili) indexJSON(uid string) map[string]any {
	var pk any
	if p := f.indexes[uid]; p != "" {
		pk = p
	}
	return map[string]any{"uid": uid, "primaryKey": pk, "createdAt": fakeTime, "updatedAt": fakeTime}
}

func (f *fakeMeili) body(r *http.Request) []byte {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		f.t.Errorf("read body: %v", err)
	}
	f.lastBody[r.URL.Path] = b
	return b
}

func (f *fakeMeili) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+testMasterKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing key", "code": "missing_authorization_header"})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "available"})

	case r.URL.Path == "/version":
		writeJSON(w, http.StatusOK, map[string]string{
			"commitSha": "abc", "commitDate": fakeTime, "pkgVersion": "1.11.0",
		})

	case parts[0] == "tasks" && len(parts) == 2:
		for uid, task := range f.tasks {
			if parts[1] == jsonNumber(uid) {
				writeJSON(w, http.StatusOK, task)
				return
			}
		}
		notFound(w, "task_not_found", "Task not found.")

	case r.URL.Path == "/indexes" && r.Method == http.MethodPost:
		var req struct {
			UID        string `json:"uid"`
			PrimaryKey string `json:"primaryKey"`
		}
		_ = json.Unmarshal(f.body(r), &req)
		if f.taskError == nil {
			f.indexes[req.UID] = req.PrimaryKey
		}
		f.enqueue(w, req.UID, "indexCreation")

	case r.URL.Path == "/indexes" && r.Method == http.MethodGet:
		results := []map[string]any{}
		for uid := range f.indexes {
			results = append(results, f.indexJSON(uid))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": results, "offset": 0, "limit": 20, "total": len(results),
		})

	case parts[0] == "indexes" && len(parts) == 2:
		uid := parts[1]
		if _, ok := f.indexes[uid]; !ok {
			notFound(w, "index_not_found", "Index `"+uid+"` not found.")
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, f.indexJSON(uid))
		case http.MethodDelete:
			delete(f.indexes, uid)
			f.enqueue(w, uid, "indexDeletion")
		case http.MethodPatch:
			var req struct {
				PrimaryKey string `json:"primaryKey"`
			}
			_ = json.Unmarshal(f.body(r), &req)
			f.indexes[uid] = req.PrimaryKey
			f.enqueue(w, uid, "indexUpdate")
		}

	case parts[0] == "indexes" && len(parts) == 3 && parts[2] == "search":
		f.body(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"hits":               []map[string]any{{"id": 1, "title": "Nemo", "_formatted": map[string]any{"title": "<em>Nemo</em>"}}},
			"query":              "nemo",
			"processingTimeMs":   1,
			"limit":              20,
			"offset":             0,
			"estimatedTotalHits": 1,
		})

	case parts[0] == "indexes" && len(parts) == 3 && parts[2] == "documents" && r.Method == http.MethodPost:
		f.body(r)
		f.enqueue(w, parts[1], "documentAdditionOrUpdate")

	case parts[0] == "indexes" && len(parts) == 3 && parts[2] == "settings" && r.Method == http.MethodGet:
		f.settingsReads++
		writeJSON(w, http.StatusOK, map[string]any{
			"rankingRules":         []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
			"distinctAttribute":    nil,
			"searchableAttributes": []string{"*"},
			"displayedAttributes":  []string{"*"},
			"stopWords":            []string{},
			"synonyms":             map[string]any{},
			"filterableAttributes": []string{},
			"sortableAttributes":   []string{},
			"typoTolerance":        map[string]any{"enabled": true, "minWordSizeForTypos": map[string]int{"oneTypo": 5, "twoTypos": 9}},
			"faceting":             map[string]any{"maxValuesPerFacet": 100, "sortFacetValuesBy": map[string]string{"*": "alpha"}},
		})

	case parts[0] == "indexes" && len(parts) == 3 && parts[2] == "settings" && r.Method == http.MethodPatch:
		if _, ok := f.indexes[parts[1]]; !ok {
			notFound(w, "index_not_found", "Index `"+parts[1]+"` not found.")
			return
		}
		f.body(r)
		f.enqueue(w, parts[1], "settingsUpdate")

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		notFound(w, "not_found", "unexpected route")
	}
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
