// api/audit/repository_test.go
package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type esCall struct {
	method string
	path   string
	query  string
	body   string
}

func fakeElasticsearch(t *testing.T, status int, response string) (*httptest.Server, *[]esCall) {
	t.Helper()
	var calls []esCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, esCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestElasticsearchRepositoryLogAccess(t *testing.T) {
	srv, calls := fakeElasticsearch(t, http.StatusCreated, `{"result":"created"}`)
	repo, err := NewElasticsearchRepository(srv.URL, "")
	require.NoError(t, err)

	err = repo.LogAccess(context.Background(), AuditRecord{ID: "rec-1", RequesterID: "dr-1", Outcome: OutcomeCompleted})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPut, call.method)
	assert.Equal(t, "/access-audit/_doc/rec-1", call.path)
	assert.Contains(t, call.query, "refresh=true")
	assert.Contains(t, call.body, `"requester_id":"dr-1"`)
}

func TestElasticsearchRepositoryLogAccessError(t *testing.T) {
	srv, _ := fakeElasticsearch(t, http.StatusServiceUnavailable, `{"error":"cluster_block_exception"}`)
	repo, err := NewElasticsearchRepository(srv.URL, "audit")
	require.NoError(t, err)

	err = repo.LogAccess(context.Background(), AuditRecord{ID: "rec-1"})
	assert.ErrorContains(t, err, "error indexing document")
}

func TestElasticsearchRepositoryQueryLogs(t *testing.T) {
	srv, calls := fakeElasticsearch(t, http.StatusOK, `{
		"hits": {"hits": [
			{"_source": {"id": "rec-2", "requester_id": "dr-1", "subject_id": "p-1"}},
			{"_source": {"id": "rec-1", "requester_id": "dr-1", "subject_id": "p-1"}}
		]}
	}`)
	repo, err := NewElasticsearchRepository(srv.URL, "audit")
	require.NoError(t, err)

	records, err := repo.QueryLogs(context.Background(), Query{RequesterID: "dr-1", Limit: 25})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec-2", records[0].ID)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/audit/_search", call.path)
	assert.Contains(t, call.query, "size=25")
	assert.Contains(t, call.query, "sort=timestamp")
	assert.Contains(t, call.body, `"requester_id":"dr-1"`)
}

func TestBuildSearchQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := buildSearchQuery(Query{From: from, SubjectID: "p-1"})

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, `"range":{"timestamp":{"gte":"2024-01-01T00:00:00Z"}}`)
	assert.Contains(t, s, `"term":{"subject_id":"p-1"}`)
	assert.False(t, strings.Contains(s, "requester_id"))

	empty, err := json.Marshal(buildSearchQuery(Query{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"bool":{"must":[]}}}`, string(empty))
}
