package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/meiligate/internal/domain"
	domdoc "github.com/kailas-cloud/meiligate/internal/domain/document"
	domidx "github.com/kailas-cloud/meiligate/internal/domain/index"
	"github.com/kailas-cloud/meiligate/internal/domain/key"
	domsearch "github.com/kailas-cloud/meiligate/internal/domain/search"
	domset "github.com/kailas-cloud/meiligate/internal/domain/settings"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
	adminuc "github.com/kailas-cloud/meiligate/internal/usecase/admin"
	documentuc "github.com/kailas-cloud/meiligate/internal/usecase/document"
	healthuc "github.com/kailas-cloud/meiligate/internal/usecase/health"
	indexuc "github.com/kailas-cloud/meiligate/internal/usecase/index"
	searchuc "github.com/kailas-cloud/meiligate/internal/usecase/search"
	settingsuc "github.com/kailas-cloud/meiligate/internal/usecase/settings"
)

// --- Fake engine ---

type fakeIndex struct {
	info     domidx.Info
	docs     map[string]domdoc.Document
	order    []string
	settings domset.Settings
}

// fakeEngine is an in-memory Meilisearch where every task succeeds at once.
type fakeEngine struct {
	mu         sync.Mutex
	indexes    map[string]*fakeIndex
	keys       map[string]key.Key
	nextTask   int64
	lastSearch domsearch.Request
	failTask   *domain.TaskFailedError
	acquireErr error
	pingErr    error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{indexes: map[string]*fakeIndex{}, keys: map[string]key.Key{}}
}

var fakeNow = domain.Timestamp{Time: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}

func (f *fakeEngine) enqueue(uid, typ string) task.Handle {
	f.nextTask++
	return task.Handle{TaskUID: f.nextTask, IndexUID: uid, Status: task.StatusEnqueued, Type: typ, EnqueuedAt: fakeNow}
}

func indexNotFound(uid string) error {
	return &domain.UpstreamError{
		Status: http.StatusNotFound, Code: "index_not_found", Type: "invalid_request",
		Message: "Index `" + uid + "` not found.", Link: "https://docs.meilisearch.com/errors#index_not_found",
	}
}

func (f *fakeEngine) index(uid string) (*fakeIndex, error) {
	idx, ok := f.indexes[uid]
	if !ok {
		return nil, indexNotFound(uid)
	}
	return idx, nil
}

func (f *fakeEngine) CreateIndex(_ context.Context, uid, primaryKey string) (task.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.indexes[uid]; !ok {
		info := domidx.Info{UID: uid, CreatedAt: fakeNow, UpdatedAt: fakeNow}
		if primaryKey != "" {
			info.PrimaryKey = &primaryKey
		}
		f.indexes[uid] = &fakeIndex{info: info, docs: map[string]domdoc.Document{}}
	}
	return f.enqueue(uid, "indexCreation"), nil
}

func (f *fakeEngine) GetIndex(_ context.Context, uid string) (domidx.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return domidx.Info{}, err
	}
	return idx.info, nil
}

func (f *fakeEngine) ListIndexes(_ context.Context, offset, limit int64) ([]domidx.Info, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uids := make([]string, 0, len(f.indexes))
	for uid := range f.indexes {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	var out []domidx.Info
	for i := offset; i < int64(len(uids)) && i < offset+limit; i++ {
		out = append(out, f.indexes[uids[i]].info)
	}
	return out, int64(len(uids)), nil
}

func (f *fakeEngine) UpdateIndex(_ context.Context, uid, primaryKey string) (task.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return task.Handle{}, err
	}
	idx.info.PrimaryKey = &primaryKey
	return f.enqueue(uid, "indexUpdate"), nil
}

func (f *fakeEngine) DeleteIndex(_ context.Context, uid string) (task.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexes, uid)
	return f.enqueue(uid, "indexDeletion"), nil
}

func (f *fakeEngine) IndexStats(_ context.Context, uid string) (domidx.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return domidx.Stats{}, err
	}
	return domidx.Stats{NumberOfDocuments: int64(len(idx.docs))}, nil
}

func (f *fakeEngine) AwaitTask(_ context.Context, taskUID int64) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTask != nil {
		return task.Task{UID: taskUID, Status: task.StatusFailed}, f.failTask
	}
	return task.Task{UID: taskUID, Status: task.StatusSucceeded}, nil
}

func (f *fakeEngine) GetSettings(_ context.Context, uid string) (domset.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return domset.Settings{}, err
	}
	return idx.settings, nil
}

func (f *fakeEngine) UpdateSettings(_ context.Context, uid string, s domset.Settings) (task.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return task.Handle{}, err
	}
	if s.Synonyms != nil {
		idx.settings.Synonyms = s.Synonyms
	}
	if s.StopWords != nil {
		idx.settings.StopWords = s.StopWords
	}
	if s.RankingRules != nil {
		idx.settings.RankingRules = s.RankingRules
	}
	if s.Faceting != nil {
		idx.settings.Faceting = s.Faceting
	}
	if s.TypoTolerance != nil {
		idx.settings.TypoTolerance = s.TypoTolerance
	}
	return f.enqueue(uid, "settingsUpdate"), nil
}

func (f *fakeEngine) ResetSettings(_ context.Context, uid string) (task.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return task.Handle{}, err
	}
	idx.settings = domset.Settings{}
	return f.enqueue(uid, "settingsUpdate"), nil
}

func (f *fakeEngine) ResetAttribute(_ context.Context, uid string, attr domset.Attribute) (task.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return task.Handle{}, err
	}
	if attr == domset.Synonyms {
		idx.settings.Synonyms = nil
	}
	return f.enqueue(uid, "settingsUpdate"), nil
}

func (f *fakeEngine) AddDocuments(_ context.Context, uid string, docs []domdoc.Document, primaryKey string) (task.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.indexes[uid]
	if !ok {
		idx = &fakeIndex{info: domidx.Info{UID: uid, CreatedAt: fakeNow, UpdatedAt: fakeNow}, docs: map[string]domdoc.Document{}}
		f.indexes[uid] = idx
	}
	pk := primaryKey
	if pk == "" {
		pk = "id"
	}
	for _, d := range docs {
		id := fmt.Sprint(d[pk])
		if _, exists := idx.docs[id]; !exists {
			idx.order = append(idx.order, id)
		}
		idx.docs[id] = d
	}
	return f.enqueue(uid, "documentAdditionOrUpdate"), nil
}

func (f *fakeEngine) UpdateDocuments(ctx context.Context, uid string, docs []domdoc.Document, primaryKey string) (task.Handle, error) {
	return f.AddDocuments(ctx, uid, docs, primaryKey)
}

func (f *fakeEngine) GetDocuments(_ context.Context, uid string, q domdoc.ListQuery) (domdoc.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return domdoc.Page{}, err
	}
	page := domdoc.Page{Offset: q.Offset, Limit: q.Limit, Total: int64(len(idx.order))}
	for i := q.Offset; i < int64(len(idx.order)) && i < q.Offset+q.Limit; i++ {
		page.Results = append(page.Results, idx.docs[idx.order[i]])
	}
	return page, nil
}

func (f *fakeEngine) GetDocument(_ context.Context, uid, id string, _ []string) (domdoc.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return nil, err
	}
	doc, ok := idx.docs[id]
	if !ok {
		return nil, &domain.UpstreamError{Status: http.StatusNotFound, Code: "document_not_found", Message: "Document `" + id + "` not found."}
	}
	return doc, nil
}

func (f *fakeEngine) deleteDocs(idx *fakeIndex, ids ...string) {
	for _, id := range ids {
		delete(idx.docs, id)
	}
	kept := idx.order[:0]
	for _, id := range idx.order {
		if _, ok := idx.docs[id]; ok {
			kept = append(kept, id)
		}
	}
	idx.order = kept
}

func (f *fakeEngine) DeleteDocument(_ context.Context, uid, id string) (task.Handle, error) {
	return f.DeleteDocuments(context.Background(), uid, []string{id})
}

func (f *fakeEngine) DeleteDocuments(_ context.Context, uid string, ids []string) (task.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return task.Handle{}, err
	}
	f.deleteDocs(idx, ids...)
	return f.enqueue(uid, "documentDeletion"), nil
}

func (f *fakeEngine) DeleteAllDocuments(_ context.Context, uid string) (task.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.index(uid)
	if err != nil {
		return task.Handle{}, err
	}
	f.deleteDocs(idx, idx.order...)
	return f.enqueue(uid, "documentDeletion"), nil
}

func (f *fakeEngine) Search(_ context.Context, req domsearch.Request) (domsearch.Results, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSearch = req
	if _, err := f.index(req.UID); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"hits":[{"id":1,"_formatted":{"title":"<em>Nemo</em>"}}],"query":"` + req.Query + `","processingTimeMs":1}`), nil
}

func (f *fakeEngine) Health(context.Context) (string, error) { return "available", nil }

func (f *fakeEngine) Version(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"pkgVersion":"1.11.0"}`), nil
}

func (f *fakeEngine) Stats(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"databaseSize":1024,"indexes":{}}`), nil
}

func (f *fakeEngine) ListKeys(_ context.Context, q key.ListQuery) (key.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := key.Page{Offset: q.Offset, Limit: q.Limit, Total: int64(len(f.keys))}
	for _, k := range f.keys {
		page.Results = append(page.Results, k)
	}
	return page, nil
}

func (f *fakeEngine) GetKey(_ context.Context, keyOrUID string) (key.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[keyOrUID]
	if !ok {
		return key.Key{}, &domain.UpstreamError{Status: http.StatusNotFound, Code: "api_key_not_found", Message: "API key `" + keyOrUID + "` not found."}
	}
	return k, nil
}

func (f *fakeEngine) CreateKey(_ context.Context, req key.CreateRequest) (key.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := req.UID
	if uid == "" {
		uid = "01b4bc42-eb33-4041-b481-254d00cce834"
	}
	k := key.Key{UID: uid, Key: "secret-" + uid, Name: req.Name, Actions: req.Actions, Indexes: req.Indexes, CreatedAt: fakeNow, UpdatedAt: fakeNow}
	f.keys[uid] = k
	return k, nil
}

func (f *fakeEngine) UpdateKey(_ context.Context, keyOrUID string, req key.UpdateRequest) (key.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[keyOrUID]
	if !ok {
		return key.Key{}, &domain.UpstreamError{Status: http.StatusNotFound, Code: "api_key_not_found", Message: "not found"}
	}
	if req.Name != nil {
		k.Name = *req.Name
	}
	f.keys[keyOrUID] = k
	return k, nil
}

func (f *fakeEngine) DeleteKey(_ context.Context, keyOrUID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, keyOrUID)
	return nil
}

func (f *fakeEngine) GenerateTenantToken(req key.TenantTokenRequest) (string, error) {
	return "signed." + req.APIKey.UID, nil
}

func (f *fakeEngine) Ping(context.Context) error { return f.pingErr }

// --- Harness ---

func lease[G any](f *fakeEngine) func(context.Context) (G, func(), error) {
	return func(context.Context) (G, func(), error) {
		var zero G
		if f.acquireErr != nil {
			return zero, nil, f.acquireErr
		}
		return any(f).(G), func() {}, nil
	}
}

func newTestServer(t *testing.T, f *fakeEngine, maxBody int64) http.Handler {
	t.Helper()
	svc := Services{
		Indexes:   indexuc.New(lease[indexuc.Gateway](f), indexuc.Options{}),
		Documents: documentuc.New(lease[documentuc.Gateway](f)),
		Search:    searchuc.New(lease[searchuc.Gateway](f)),
		Settings:  settingsuc.New(lease[settingsuc.Gateway](f)),
		Admin:     adminuc.New(lease[adminuc.Gateway](f)).WithClock(func() time.Time { return fakeNow.Time }),
		Health:    healthuc.New(f, time.Second),
	}
	return NewServer(svc, maxBody, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, http.NoBody)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func decodeResp(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func seedMovies(t *testing.T, h http.Handler) {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/documents", `{"uid":"movies","primary_key":"id","documents":[
		{"id":"1","title":"Nemo"},{"id":"2","title":"Up"},{"id":"3","title":"Cars"}]}`)
	expectStatus(t, rr, http.StatusAccepted)
}

// --- Index routes ---

func TestCreateIndex(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	rr := do(t, h, http.MethodPost, "/indexes", `{"uid":"movies","primary_key":"id"}`)
	expectStatus(t, rr, http.StatusCreated)

	var info map[string]any
	decodeResp(t, rr, &info)
	if info["uid"] != "movies" || info["primaryKey"] != "id" {
		t.Errorf("unexpected index %v", info)
	}
	if info["createdAt"] == nil || info["updatedAt"] == nil {
		t.Errorf("expected timestamps, got %v", info)
	}
}

func TestCreateIndex_InvalidUID(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	rr := do(t, h, http.MethodPost, "/indexes", `{"uid":"bad uid!"}`)
	expectStatus(t, rr, http.StatusBadRequest)

	var resp ErrorResponse
	decodeResp(t, rr, &resp)
	if resp.Code != CodeBadRequest {
		t.Errorf("expected %s, got %s", CodeBadRequest, resp.Code)
	}
	if strings.HasPrefix(resp.Message, "bad request") {
		t.Errorf("sentinel prefix should be stripped, got %q", resp.Message)
	}
}

func TestCreateIndex_TaskFailureMapsToConflict(t *testing.T) {
	f := newFakeEngine()
	f.failTask = &domain.TaskFailedError{TaskUID: 1, Code: "index_already_exists", Message: "Index `movies` already exists."}
	h := newTestServer(t, f, 0)

	rr := do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`)
	expectStatus(t, rr, http.StatusConflict)

	var resp ErrorResponse
	decodeResp(t, rr, &resp)
	if resp.Code != "index_already_exists" || resp.Message != "Index `movies` already exists." {
		t.Errorf("expected task error passthrough, got %+v", resp)
	}
}

func TestListIndexes_EmptyIsArray(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	rr := do(t, h, http.MethodGet, "/indexes", "")
	expectStatus(t, rr, http.StatusOK)
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("expected [], got %s", got)
	}
}

func TestGetIndex_NotFoundPassthrough(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	rr := do(t, h, http.MethodGet, "/indexes/missing", "")
	expectStatus(t, rr, http.StatusNotFound)

	var resp ErrorResponse
	decodeResp(t, rr, &resp)
	if resp.Code != "index_not_found" || resp.Message != "Index `missing` not found." {
		t.Errorf("unexpected error body %+v", resp)
	}
	if resp.Link == "" {
		t.Error("expected documentation link to be forwarded")
	}
}

func TestUpdateIndex(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)

	rr := do(t, h, http.MethodPatch, "/indexes", `{"uid":"movies","primaryKey":"movie_id"}`)
	expectStatus(t, rr, http.StatusOK)

	rr = do(t, h, http.MethodGet, "/indexes/primary-key/movies", "")
	expectStatus(t, rr, http.StatusOK)
	var pk primaryKeyResponse
	decodeResp(t, rr, &pk)
	if pk.PrimaryKey == nil || *pk.PrimaryKey != "movie_id" {
		t.Errorf("unexpected primary key %v", pk.PrimaryKey)
	}

	expectStatus(t, do(t, h, http.MethodPatch, "/indexes", `{"uid":"movies"}`), http.StatusBadRequest)
}

func TestDeleteIndexIfExists(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)

	expectStatus(t, do(t, h, http.MethodDelete, "/indexes/delete-if-exists/ghost", ""), http.StatusNoContent)

	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)
	expectStatus(t, do(t, h, http.MethodDelete, "/indexes/delete-if-exists/movies", ""), http.StatusNoContent)
	if _, ok := f.indexes["movies"]; ok {
		t.Error("expected index to be deleted")
	}
}

func TestDeleteIndex_ReturnsHandle(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)

	rr := do(t, h, http.MethodDelete, "/indexes/movies", "")
	expectStatus(t, rr, http.StatusAccepted)
	var handle task.Handle
	decodeResp(t, rr, &handle)
	if handle.Type != "indexDeletion" || handle.IndexUID != "movies" {
		t.Errorf("unexpected handle %+v", handle)
	}
}

func TestIndexStats(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	seedMovies(t, h)

	rr := do(t, h, http.MethodGet, "/indexes/stats/movies", "")
	expectStatus(t, rr, http.StatusOK)
	var stats domidx.Stats
	decodeResp(t, rr, &stats)
	if stats.NumberOfDocuments != 3 || stats.FieldDistribution == nil {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// --- Attribute routes ---

func TestSynonyms_UserDataKeysKept(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)
	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)

	rr := do(t, h, http.MethodPatch, "/indexes/synonyms", `{"uid":"movies","synonyms":{"new_york":["nyc"]}}`)
	expectStatus(t, rr, http.StatusAccepted)

	rr = do(t, h, http.MethodGet, "/indexes/synonyms/movies", "")
	expectStatus(t, rr, http.StatusOK)
	var got map[string]map[string][]string
	decodeResp(t, rr, &got)
	if syn := got["synonyms"]["new_york"]; len(syn) != 1 || syn[0] != "nyc" {
		t.Errorf("expected synonym key kept verbatim, got %v", got)
	}

	expectStatus(t, do(t, h, http.MethodDelete, "/indexes/synonyms/movies", ""), http.StatusAccepted)
	if f.indexes["movies"].settings.Synonyms != nil {
		t.Error("expected synonyms reset")
	}
}

func TestAttributePatch_RejectsMissingValue(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)

	for _, tc := range []struct{ path, body string }{
		{"/indexes/synonyms", `{"uid":"movies"}`},
		{"/indexes/synonyms", `{"uid":"movies","synonyms":{}}`},
		{"/indexes/typo-tolerance", `{"uid":"movies","typo_tolerance":{}}`},
		{"/indexes/stop-words", `{"uid":"movies","stop_words":null}`},
		{"/indexes/faceting", `{"uid":"movies"}`},
		{"/indexes/ranking-rules", `{"ranking_rules":["words"]}`},
	} {
		rr := do(t, h, http.MethodPatch, tc.path, tc.body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s %s: got %d, want 400", tc.path, tc.body, rr.Code)
		}
	}
}

func TestFaceting_InlineSnakeCase(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)
	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)

	rr := do(t, h, http.MethodPatch, "/indexes/faceting", `{"uid":"movies","max_values_per_facet":50}`)
	expectStatus(t, rr, http.StatusAccepted)

	rr = do(t, h, http.MethodGet, "/indexes/faceting/movies", "")
	expectStatus(t, rr, http.StatusOK)
	var fac domset.Faceting
	decodeResp(t, rr, &fac)
	if fac.MaxValuesPerFacet == nil || *fac.MaxValuesPerFacet != 50 {
		t.Errorf("expected maxValuesPerFacet 50, got %+v", fac)
	}
}

func TestTypoTolerance_NestedSnakeCase(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)
	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)

	rr := do(t, h, http.MethodPatch, "/indexes/typo-tolerance",
		`{"uid":"movies","typo_tolerance":{"min_word_size_for_typos":{"one_typo":4}}}`)
	expectStatus(t, rr, http.StatusAccepted)

	typo := f.indexes["movies"].settings.TypoTolerance
	if typo == nil || typo.MinWordSizeForTypos == nil || typo.MinWordSizeForTypos.OneTypo == nil ||
		*typo.MinWordSizeForTypos.OneTypo != 4 {
		t.Errorf("expected oneTypo 4, got %+v", typo)
	}
}

// --- Document routes ---

func TestDeleteDocuments_LeavesOthers(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	seedMovies(t, h)

	rr := do(t, h, http.MethodPost, "/documents/delete", `{"uid":"movies","document_ids":["1","2"]}`)
	expectStatus(t, rr, http.StatusAccepted)

	rr = do(t, h, http.MethodGet, "/documents/movies", "")
	expectStatus(t, rr, http.StatusOK)
	var page domdoc.Page
	decodeResp(t, rr, &page)
	if len(page.Results) != 1 || page.Results[0]["id"] != "3" {
		t.Errorf("expected only document 3, got %v", page.Results)
	}
}

func TestDeleteDocuments_NumericIDs(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)
	rr := do(t, h, http.MethodPost, "/documents", `{"uid":"movies","documents":[{"id":1},{"id":12345678901234567}]}`)
	expectStatus(t, rr, http.StatusAccepted)
	if _, ok := f.indexes["movies"].docs["12345678901234567"]; !ok {
		t.Fatalf("expected large integer id kept exactly, have %v", f.indexes["movies"].order)
	}

	rr = do(t, h, http.MethodPost, "/documents/delete", `{"uid":"movies","documentIds":[1]}`)
	expectStatus(t, rr, http.StatusAccepted)
	if got := f.indexes["movies"].order; len(got) != 1 || got[0] != "12345678901234567" {
		t.Errorf("unexpected remaining ids %v", got)
	}
}

func TestDeleteDocuments_EmptyIDs(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	seedMovies(t, h)
	expectStatus(t, do(t, h, http.MethodPost, "/documents/delete", `{"uid":"movies","documentIds":[]}`), http.StatusBadRequest)
}

func TestListDocuments_EmptyIndex(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)

	rr := do(t, h, http.MethodGet, "/documents/movies?offset=0&limit=5", "")
	expectStatus(t, rr, http.StatusOK)
	var raw map[string]json.RawMessage
	decodeResp(t, rr, &raw)
	if string(raw["results"]) != "[]" {
		t.Errorf("expected empty results array, got %s", raw["results"])
	}
	if string(raw["limit"]) != "5" {
		t.Errorf("expected limit 5, got %s", raw["limit"])
	}
}

func TestListDocuments_BadQuery(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	seedMovies(t, h)

	expectStatus(t, do(t, h, http.MethodGet, "/documents/movies?limit=abc", ""), http.StatusBadRequest)
	expectStatus(t, do(t, h, http.MethodGet, "/documents/movies?offset=-1", ""), http.StatusBadRequest)
}

func TestGetDocument(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	seedMovies(t, h)

	rr := do(t, h, http.MethodGet, "/documents/movies/2?fields=id,title", "")
	expectStatus(t, rr, http.StatusOK)
	var doc map[string]any
	decodeResp(t, rr, &doc)
	if doc["title"] != "Up" {
		t.Errorf("unexpected document %v", doc)
	}

	expectStatus(t, do(t, h, http.MethodGet, "/documents/movies/99", ""), http.StatusNotFound)
}

func TestDeleteOneAndAllDocuments(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)
	seedMovies(t, h)

	expectStatus(t, do(t, h, http.MethodDelete, "/documents/movies/1", ""), http.StatusAccepted)
	if len(f.indexes["movies"].docs) != 2 {
		t.Fatalf("expected 2 documents left, got %d", len(f.indexes["movies"].docs))
	}

	expectStatus(t, do(t, h, http.MethodDelete, "/documents/movies", ""), http.StatusAccepted)
	if len(f.indexes["movies"].docs) != 0 {
		t.Errorf("expected no documents left, got %d", len(f.indexes["movies"].docs))
	}
}

func TestDeleteOneDocument_IndexNamedDelete(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)
	seedMovies(t, h)
	expectStatus(t, do(t, h, http.MethodPost, "/documents",
		`{"uid":"delete","documents":[{"id":"movies"},{"id":"other"}]}`), http.StatusAccepted)

	expectStatus(t, do(t, h, http.MethodDelete, "/documents/delete/movies", ""), http.StatusAccepted)

	if got := len(f.indexes["movies"].docs); got != 3 {
		t.Errorf("index movies must be untouched, has %d documents", got)
	}
	if _, ok := f.indexes["delete"].docs["movies"]; ok {
		t.Error("expected document movies removed from index delete")
	}
	if got := len(f.indexes["delete"].docs); got != 1 {
		t.Errorf("expected 1 document left in index delete, got %d", got)
	}
}

func TestSubmitBatches(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)

	var docs []string
	for i := range 10 {
		docs = append(docs, fmt.Sprintf(`{"id":%d}`, i))
	}
	body := `{"uid":"movies","batch_size":3,"documents":[` + strings.Join(docs, ",") + `]}`

	rr := do(t, h, http.MethodPut, "/documents/batches", body)
	expectStatus(t, rr, http.StatusAccepted)
	var handles []task.Handle
	decodeResp(t, rr, &handles)
	if len(handles) != 4 {
		t.Fatalf("expected 4 handles, got %d", len(handles))
	}
	for i := 1; i < len(handles); i++ {
		if handles[i].TaskUID <= handles[i-1].TaskUID {
			t.Errorf("handles out of submission order: %+v", handles)
		}
	}
	if len(f.indexes["movies"].docs) != 10 {
		t.Errorf("expected 10 documents stored, got %d", len(f.indexes["movies"].docs))
	}
}

func TestSubmitBatches_Invalid(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	expectStatus(t, do(t, h, http.MethodPost, "/documents/batches", `{"uid":"movies","documents":[{"id":1}]}`), http.StatusBadRequest)
	expectStatus(t, do(t, h, http.MethodPost, "/documents/batches", `{"uid":"movies","batchSize":0,"documents":[{"id":1}]}`), http.StatusBadRequest)
	expectStatus(t, do(t, h, http.MethodPost, "/documents", `{"uid":"movies"}`), http.StatusBadRequest)
}

func TestSubmitAutoBatch(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	body := `{"uid":"movies","max_payload_size":20,"documents":[{"id":1,"t":"aaaa"},{"id":2,"t":"bbbb"},{"id":3,"t":"cccc"}]}`
	rr := do(t, h, http.MethodPost, "/documents/auto-batch", body)
	expectStatus(t, rr, http.StatusAccepted)
	var handles []task.Handle
	decodeResp(t, rr, &handles)
	if len(handles) != 3 {
		t.Errorf("expected one chunk per document, got %d", len(handles))
	}

	rr = do(t, h, http.MethodPost, "/documents/auto-batch", `{"uid":"movies","documents":[{"id":1},{"id":2}]}`)
	expectStatus(t, rr, http.StatusAccepted)
	decodeResp(t, rr, &handles)
	if len(handles) != 1 {
		t.Errorf("expected a single chunk under the default bound, got %d", len(handles))
	}

	expectStatus(t, do(t, h, http.MethodPost, "/documents/auto-batch", `{"uid":"movies","maxPayloadSize":-1,"documents":[]}`), http.StatusBadRequest)
}

// --- Search ---

func TestSearch_Passthrough(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)
	seedMovies(t, h)

	rr := do(t, h, http.MethodPost, "/search", `{"uid":"movies","q":"nemo","attributes_to_highlight":["title"],"filter":"year > 2000"}`)
	expectStatus(t, rr, http.StatusOK)

	if !strings.Contains(rr.Body.String(), `"_formatted"`) {
		t.Errorf("expected raw upstream body, got %s", rr.Body.String())
	}
	got := f.lastSearch
	if got.Limit != domsearch.DefaultLimit || got.HighlightPreTag != "<em>" || got.MatchingStrategy != domsearch.MatchingLast {
		t.Errorf("expected defaults applied, got %+v", got)
	}
	if len(got.AttributesToHighlight) != 1 || got.AttributesToHighlight[0] != "title" {
		t.Errorf("expected snake_case key to be honoured, got %v", got.AttributesToHighlight)
	}
	if got.Filter != "year > 2000" {
		t.Errorf("expected filter passthrough, got %v", got.Filter)
	}
}

func TestSearch_Invalid(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	expectStatus(t, do(t, h, http.MethodPost, "/search", `{"q":"nemo"}`), http.StatusBadRequest)
	expectStatus(t, do(t, h, http.MethodPost, "/search", `{"uid":"movies","matchingStrategy":"fuzzy"}`), http.StatusBadRequest)
	expectStatus(t, do(t, h, http.MethodPost, "/search", `{"uid":"missing"}`), http.StatusNotFound)
}

// --- Settings routes ---

func TestSettings_UpdateAndGet(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)

	rr := do(t, h, http.MethodPatch, "/settings", `{"uid":"movies","stop_words":["the","a"]}`)
	expectStatus(t, rr, http.StatusAccepted)
	expectStatus(t, do(t, h, http.MethodPost, "/settings", `{"uid":"movies","ranking_rules":["words"]}`), http.StatusAccepted)

	rr = do(t, h, http.MethodGet, "/settings/movies", "")
	expectStatus(t, rr, http.StatusOK)
	var got domset.Settings
	decodeResp(t, rr, &got)
	if len(got.StopWords) != 2 || len(got.RankingRules) != 1 {
		t.Errorf("expected merged settings, got %+v", got)
	}
	if got.SortableAttributes == nil {
		t.Error("expected unset lists to read as empty")
	}

	expectStatus(t, do(t, h, http.MethodPatch, "/settings", `{"uid":"movies"}`), http.StatusBadRequest)
}

func TestSettings_ReplaceReturnsTwoHandles(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)
	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)
	expectStatus(t, do(t, h, http.MethodPatch, "/settings", `{"uid":"movies","stopWords":["the"]}`), http.StatusAccepted)

	rr := do(t, h, http.MethodPut, "/settings", `{"uid":"movies","synonyms":{"wolverine":["logan"]}}`)
	expectStatus(t, rr, http.StatusAccepted)
	var handles []task.Handle
	decodeResp(t, rr, &handles)
	if len(handles) != 2 || handles[0].TaskUID >= handles[1].TaskUID {
		t.Fatalf("expected reset then update handles, got %+v", handles)
	}
	if s := f.indexes["movies"].settings; s.StopWords != nil || len(s.Synonyms) != 1 {
		t.Errorf("expected full overwrite, got %+v", s)
	}
}

func TestSettings_Reset(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)
	expectStatus(t, do(t, h, http.MethodDelete, "/settings/missing", ""), http.StatusNotFound)

	expectStatus(t, do(t, h, http.MethodPost, "/indexes", `{"uid":"movies"}`), http.StatusCreated)
	expectStatus(t, do(t, h, http.MethodDelete, "/settings/movies", ""), http.StatusAccepted)
}

// --- Admin routes ---

func TestAdmin_HealthVersionStats(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	rr := do(t, h, http.MethodGet, "/meilisearch/health", "")
	expectStatus(t, rr, http.StatusOK)
	var hr healthResponse
	decodeResp(t, rr, &hr)
	if hr.Status != "available" {
		t.Errorf("unexpected health %q", hr.Status)
	}

	rr = do(t, h, http.MethodGet, "/meilisearch/version", "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "1.11.0") {
		t.Errorf("unexpected version body %s", rr.Body.String())
	}

	expectStatus(t, do(t, h, http.MethodGet, "/meilisearch/stats", ""), http.StatusOK)
}

func TestAdmin_KeyLifecycle(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	rr := do(t, h, http.MethodPost, "/meilisearch/keys", `{"name":"search","actions":["search"],"indexes":["movies"],"expires_at":null}`)
	expectStatus(t, rr, http.StatusCreated)
	var k key.Key
	decodeResp(t, rr, &k)
	if k.UID == "" || k.Name != "search" {
		t.Fatalf("unexpected key %+v", k)
	}

	rr = do(t, h, http.MethodGet, "/meilisearch/keys?limit=5", "")
	expectStatus(t, rr, http.StatusOK)
	var page key.Page
	decodeResp(t, rr, &page)
	if len(page.Results) != 1 || page.Limit != 5 {
		t.Errorf("unexpected key page %+v", page)
	}

	rr = do(t, h, http.MethodPatch, "/meilisearch/keys/"+k.UID, `{"name":"renamed"}`)
	expectStatus(t, rr, http.StatusOK)
	decodeResp(t, rr, &k)
	if k.Name != "renamed" {
		t.Errorf("expected renamed key, got %q", k.Name)
	}

	expectStatus(t, do(t, h, http.MethodDelete, "/meilisearch/keys/"+k.UID, ""), http.StatusNoContent)
	expectStatus(t, do(t, h, http.MethodGet, "/meilisearch/keys/"+k.UID, ""), http.StatusNotFound)
	expectStatus(t, do(t, h, http.MethodPost, "/meilisearch/keys", `{"actions":[],"indexes":["movies"]}`), http.StatusBadRequest)
}

func TestTenantToken(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	const keyUID = "6062abda-a5aa-4414-ac91-ecd7944c0f8d"
	future := fakeNow.Add(time.Hour).Format(time.RFC3339)
	body := `{"search_rules":["movies"],"api_key":{"uid":"` + keyUID + `","key":"parent","indexes":["movies"]},"expires_at":"` + future + `"}`

	rr := do(t, h, http.MethodPost, "/meilisearch/generate-tenant-token", body)
	expectStatus(t, rr, http.StatusOK)
	var tok key.TenantToken
	decodeResp(t, rr, &tok)
	if tok.TenantToken != "signed."+keyUID {
		t.Errorf("unexpected token %q", tok.TenantToken)
	}
}

func TestTenantToken_Rejected(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	const keyUID = "6062abda-a5aa-4414-ac91-ecd7944c0f8d"
	past := fakeNow.Add(-time.Hour).Format(time.RFC3339)
	tests := []struct {
		name string
		body string
	}{
		{"expired", `{"search_rules":["movies"],"api_key":{"uid":"` + keyUID + `","key":"k","indexes":["*"]},"expires_at":"` + past + `"}`},
		{"outside key scope", `{"searchRules":{"books":{}},"apiKey":{"uid":"` + keyUID + `","key":"k","indexes":["movies"]}}`},
		{"bad key uid", `{"searchRules":["movies"],"apiKey":{"uid":"nope","key":"k","indexes":["*"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, do(t, h, http.MethodPost, "/meilisearch/generate-tenant-token", tt.body), http.StatusBadRequest)
		})
	}
}

// --- Cross-cutting ---

func TestHealthCheck(t *testing.T) {
	f := newFakeEngine()
	h := newTestServer(t, f, 0)

	rr := do(t, h, http.MethodGet, "/health", "")
	expectStatus(t, rr, http.StatusOK)

	f.pingErr = errors.New("down")
	rr = do(t, h, http.MethodGet, "/health", "")
	expectStatus(t, rr, http.StatusServiceUnavailable)
	var report healthuc.Report
	decodeResp(t, rr, &report)
	if report.Status != healthuc.Degraded || report.Checks["meilisearch"] != healthuc.CheckError {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code ErrorCode
	}{
		{"unreachable", fmt.Errorf("search: %w", domain.ErrUpstreamUnavailable), http.StatusBadGateway, CodeUpstreamFailure},
		{"upstream without status", &domain.UpstreamError{Message: "dial tcp"}, http.StatusBadGateway, CodeUpstreamFailure},
		{"closed", domain.ErrProviderClosed, http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"task timeout", domain.ErrTaskTimeout, http.StatusGatewayTimeout, CodeTaskTimeout},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTaskTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
		{"upstream 400", &domain.UpstreamError{Status: 400, Code: "invalid_search_q", Message: "bad q"}, http.StatusBadRequest, "invalid_search_q"},
		{"task not found", &domain.TaskFailedError{Code: "index_not_found", Message: "gone"}, http.StatusNotFound, "index_not_found"},
		{"task other", &domain.TaskFailedError{Code: "invalid_settings_ranking_rules", Message: "bad"}, http.StatusBadRequest, "invalid_settings_ranking_rules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeEngine()
			f.acquireErr = tt.err
			h := newTestServer(t, f, 0)

			rr := do(t, h, http.MethodGet, "/indexes/movies", "")
			expectStatus(t, rr, tt.want)
			var resp ErrorResponse
			decodeResp(t, rr, &resp)
			if resp.Code != tt.code {
				t.Errorf("code: got %s, want %s", resp.Code, tt.code)
			}
		})
	}
}

func TestBodyTooLarge(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 64)

	body := `{"uid":"movies","documents":[{"id":1,"text":"` + strings.Repeat("x", 128) + `"}]}`
	rr := do(t, h, http.MethodPost, "/documents", body)
	expectStatus(t, rr, http.StatusRequestEntityTooLarge)
}

func TestMalformedBodies(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	for _, body := range []string{"", "[]", "{", `{"uid":42}`} {
		rr := do(t, h, http.MethodPost, "/indexes", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want 400", body, rr.Code)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	rr := do(t, h, http.MethodGet, "/nope", "")
	expectStatus(t, rr, http.StatusNotFound)
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got %q", ct)
	}

	rr = do(t, h, http.MethodPut, "/search", `{}`)
	expectStatus(t, rr, http.StatusMethodNotAllowed)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	rr := do(t, h, http.MethodGet, "/metrics", "")
	expectStatus(t, rr, http.StatusOK)
	if !bytes.Contains(rr.Body.Bytes(), []byte("go_goroutines")) {
		t.Error("expected default Go collectors in exposition")
	}
}

func TestVersionRoute(t *testing.T) {
	h := newTestServer(t, newFakeEngine(), 0)

	rr := do(t, h, http.MethodGet, "/version", "")
	expectStatus(t, rr, http.StatusOK)
	var info map[string]string
	decodeResp(t, rr, &info)
	if info["version"] == "" || info["commit"] == "" {
		t.Errorf("unexpected build info %v", info)
	}
}
