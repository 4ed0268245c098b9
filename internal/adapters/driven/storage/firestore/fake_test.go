package firestore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

const testDatabase = "projects/test-project/databases/(default)/documents"

// fakeFirestore serves the subset of the REST API the store uses.
type fakeFirestore struct {
	mu      sync.Mutex
	docs    map[string]wireDocument
	queries []structuredQuery
	commits []map[string]any
	fail    int
}

func newFakeFirestore(t *testing.T) (*fakeFirestore, *httptest.Server) {
	t.Helper()
	f := &fakeFirestore{docs: make(map[string]wireDocument)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeFirestore) put(collection, id string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := testDatabase + "/" + collection + "/" + id
	f.docs[name] = wireDocument{Name: name, Fields: encodeFields(fields)}
}

func (f *fakeFirestore) has(collection, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[testDatabase+"/"+collection+"/"+id]
	return ok
}

func writeError(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": strings.ToLower(status), "status": status},
	})
}

func (f *fakeFirestore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != 0 {
		writeError(w, f.fail, "UNAVAILABLE")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "documents:runQuery"):
		var body struct {
			StructuredQuery structuredQuery `json:"structuredQuery"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT")
			return
		}
		f.queries = append(f.queries, body.StructuredQuery)
		_ = json.NewEncoder(w).Encode(f.run(body.StructuredQuery))

	case r.Method == http.MethodPost && strings.HasSuffix(path, "documents:commit"):
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT")
			return
		}
		if !f.apply(body) {
			writeError(w, http.StatusNotFound, "NOT_FOUND")
			return
		}
		f.commits = append(f.commits, body)
		_ = json.NewEncoder(w).Encode(map[string]any{"commitTime": "2024-01-01T00:00:00Z"})

	case r.Method == http.MethodGet:
		doc, ok := f.docs[path]
		if !ok {
			writeError(w, http.StatusNotFound, "NOT_FOUND")
			return
		}
		_ = json.NewEncoder(w).Encode(doc)

	default:
		writeError(w, http.StatusNotImplemented, "UNIMPLEMENTED")
	}
}

func (f *fakeFirestore) run(q structuredQuery) []map[string]any {
	prefix := testDatabase + "/" + q.From[0].CollectionID + "/"
	var filters []fieldFilter
	if q.Where != nil {
		if q.Where.FieldFilter != nil {
			filters = append(filters, *q.Where.FieldFilter)
		}
		if q.Where.CompositeFilter != nil {
			for _, sub := range q.Where.CompositeFilter.Filters {
				filters = append(filters, *sub.FieldFilter)
			}
		}
	}
	after := ""
	if q.StartAt != nil {
		after = *q.StartAt.Values[0].ReferenceValue
	}

	var names []string
	for name := range f.docs {
		if strings.HasPrefix(name, prefix) && name > after {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := []map[string]any{{"readTime": "2024-01-01T00:00:00Z"}}
	count := 0
	for _, name := range names {
		doc := f.docs[name]
		if !matchesAll(doc, filters) {
			continue
		}
		out = append(out, map[string]any{"document": doc, "readTime": "2024-01-01T00:00:00Z"})
		count++
		if q.Limit > 0 && count == q.Limit {
			break
		}
	}
	return out
}

func matchesAll(doc wireDocument, filters []fieldFilter) bool {
	for _, ff := range filters {
		got, ok := doc.Fields[ff.Field.FieldPath]
		if !ok {
			return false
		}
		a, _ := json.Marshal(got)
		b, _ := json.Marshal(ff.Value)
		if string(a) != string(b) {
			return false
		}
	}
	return true
}

// apply executes a commit atomically. It reports false when an update
// precondition fails, in which case nothing changes.
func (f *fakeFirestore) apply(body map[string]any) bool {
	writes, _ := body["writes"].([]any)
	for _, raw := range writes {
		write := raw.(map[string]any)
		if update, ok := write["update"].(map[string]any); ok {
			if _, exists := f.docs[update["name"].(string)]; !exists {
				return false
			}
		}
	}
	for _, raw := range writes {
		write := raw.(map[string]any)
		if name, ok := write["delete"].(string); ok {
			delete(f.docs, name)
			continue
		}
		update := write["update"].(map[string]any)
		name := update["name"].(string)
		data, _ := json.Marshal(update)
		var patch wireDocument
		_ = json.Unmarshal(data, &patch)
		doc := f.docs[name]
		for k, v := range patch.Fields {
			doc.Fields[k] = v
		}
		f.docs[name] = doc
	}
	return true
}
