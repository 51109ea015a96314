package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-wikidex/core"
	"github.com/hubenschmidt/go-wikidex/monitor"
	"github.com/hubenschmidt/go-wikidex/vector"
)

// mapEmbedder returns a fixed vector per known text and a default
// vector otherwise, so ranking in tests is deterministic.
type mapEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (e *mapEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if v, ok := e.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float64{1, 0, 0}
		}
	}
	return out, nil
}

type recordedTask struct {
	query string
	names []string
}

type recordingBackfiller struct {
	tasks []recordedTask
}

func (b *recordingBackfiller) Submit(query string, excludeNames []string) bool {
	b.tasks = append(b.tasks, recordedTask{query: query, names: excludeNames})
	return true
}

type serverFixture struct {
	store      *vector.MemoryStore
	embedder   *mapEmbedder
	backfiller *recordingBackfiller
	metrics    *monitor.BackfillCollector
	handler    http.Handler
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	f := &serverFixture{
		store:      vector.NewMemoryStore(3),
		embedder:   &mapEmbedder{vectors: map[string][]float64{}},
		backfiller: &recordingBackfiller{},
		metrics:    monitor.NewBackfillCollector(),
	}
	srv, err := New(Config{
		Store:      f.store,
		Embedder:   f.embedder,
		Backfiller: f.backfiller,
		Metrics:    f.metrics,
	})
	require.NoError(t, err)
	f.handler = srv.Handler()
	return f
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestNewRequiresStoreAndEmbedder(t *testing.T) {
	_, err := New(Config{Embedder: &mapEmbedder{}})
	assert.Error(t, err)

	_, err = New(Config{Store: vector.NewMemoryStore(3)})
	assert.Error(t, err)
}

func TestHandleRoot(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestUpsertThenQuery(t *testing.T) {
	f := newServerFixture(t)
	f.embedder.vectors["Hello world"] = []float64{1, 0, 0}
	f.embedder.vectors["Hello"] = []float64{0.9, 0.1, 0}

	rec := f.do(t, http.MethodPost, "/upsert", UpsertRequest{
		Documents: []core.Document{{Text: "  Hello world  "}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var up UpsertResponse
	decodeInto(t, rec, &up)
	require.Len(t, up.IDs, 1)
	assert.NotEmpty(t, up.IDs[0])

	rec = f.do(t, http.MethodPost, "/query", QueryRequest{
		Queries: []core.Query{{Query: "Hello", TopK: 1}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var qr QueryResponse
	decodeInto(t, rec, &qr)
	require.Len(t, qr.Results, 1)
	assert.Equal(t, "Hello", qr.Results[0].Query)
	require.Len(t, qr.Results[0].Results, 1)

	got := qr.Results[0].Results[0]
	assert.Equal(t, up.IDs[0], got.ID)
	assert.Equal(t, "Hello world", got.Text)
	assert.Equal(t, core.TextMD5("Hello world"), got.TextMD5)
	assert.Greater(t, got.Score, 0.0)
}

func TestUpsertRejectsBadInput(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/upsert", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/upsert", UpsertRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp ErrorResponse
	decodeInto(t, rec, &errResp)
	assert.Equal(t, "empty documents", errResp.Error)
}

func TestQueryRejectsEmptyQueries(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodPost, "/query", QueryRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubQueryAliasesQuery(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodPost, "/sub/query", QueryRequest{
		Queries: []core.Query{{Query: "anything"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var qr QueryResponse
	decodeInto(t, rec, &qr)
	require.Len(t, qr.Results, 1)
	assert.Empty(t, qr.Results[0].Results)
}

func TestQuerySubmitsBackfillWithCoveredNames(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/upsert", UpsertRequest{
		Documents: []core.Document{{
			Text:     "Go is a language",
			Metadata: core.DocumentMetadata{"name": "Go (programming language)"},
		}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/query", QueryRequest{
		Queries: []core.Query{{Query: "golang"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.backfiller.tasks, 1)
	assert.Equal(t, "golang", f.backfiller.tasks[0].query)
	assert.Equal(t, []string{"Go (programming language)"}, f.backfiller.tasks[0].names)
}

func TestQueryWithoutBackfillerStillAnswers(t *testing.T) {
	srv, err := New(Config{
		Store:    vector.NewMemoryStore(3),
		Embedder: &mapEmbedder{},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(`{"queries":[{"query":"q"}]}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDelete(t *testing.T) {
	t.Run("no selector is a 400", func(t *testing.T) {
		f := newServerFixture(t)
		rec := f.do(t, http.MethodDelete, "/delete", DeleteRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var errResp ErrorResponse
		decodeInto(t, rec, &errResp)
		assert.Contains(t, errResp.Error, "one of ids, filter or delete_all is required")
	})

	t.Run("multiple selectors is a 400 naming the conflict", func(t *testing.T) {
		f := newServerFixture(t)
		rec := f.do(t, http.MethodDelete, "/delete", DeleteRequest{
			IDs:       []string{"a"},
			DeleteAll: true,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var errResp ErrorResponse
		decodeInto(t, rec, &errResp)
		assert.Contains(t, errResp.Error, "mutually exclusive")
	})

	t.Run("by ids", func(t *testing.T) {
		f := newServerFixture(t)
		rec := f.do(t, http.MethodPost, "/upsert", UpsertRequest{
			Documents: []core.Document{{Text: "doc one"}, {Text: "doc two"}},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var up UpsertResponse
		decodeInto(t, rec, &up)

		rec = f.do(t, http.MethodDelete, "/delete", DeleteRequest{IDs: up.IDs[:1]})
		require.Equal(t, http.StatusOK, rec.Code)

		var del DeleteResponse
		decodeInto(t, rec, &del)
		assert.True(t, del.Success)
		assert.Equal(t, 1, f.store.Count())
	})

	t.Run("delete all", func(t *testing.T) {
		f := newServerFixture(t)
		rec := f.do(t, http.MethodPost, "/upsert", UpsertRequest{
			Documents: []core.Document{{Text: "doc one"}, {Text: "doc two"}},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodDelete, "/delete", DeleteRequest{DeleteAll: true})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, f.store.Count())
	})

	t.Run("by filter", func(t *testing.T) {
		f := newServerFixture(t)
		rec := f.do(t, http.MethodPost, "/upsert", UpsertRequest{
			Documents: []core.Document{
				{Text: "keep", Metadata: core.DocumentMetadata{"source": "manual"}},
				{Text: "drop", Metadata: core.DocumentMetadata{"source": "wiki"}},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodDelete, "/delete", DeleteRequest{
			Filter: &core.MetadataFilter{Source: "wiki"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, f.store.Count())
	})
}

func TestEmbedderFailureIsAGeneric500(t *testing.T) {
	f := newServerFixture(t)
	f.embedder.err = errors.New("upstream quota exceeded")

	rec := f.do(t, http.MethodPost, "/query", QueryRequest{
		Queries: []core.Query{{Query: "q"}},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var errResp ErrorResponse
	decodeInto(t, rec, &errResp)
	assert.Equal(t, "internal service error", errResp.Error)
	assert.NotContains(t, rec.Body.String(), "quota")
}

func TestBackfillMetricsEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.metrics.Submitted()
	f.metrics.Succeeded(2)

	rec := f.do(t, http.MethodGet, "/metrics/backfill", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats monitor.BackfillStats
	decodeInto(t, rec, &stats)
	assert.Equal(t, int64(1), stats.Submitted)
	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, int64(2), stats.Indexed)
}

func TestBackfillMetricsWithoutCollectorIs404(t *testing.T) {
	srv, err := New(Config{
		Store:    vector.NewMemoryStore(3),
		Embedder: &mapEmbedder{},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics/backfill", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newServerFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
