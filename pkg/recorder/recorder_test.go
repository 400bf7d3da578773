package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/apirecord/internal/catalog"
	"github.com/usestring/apirecord/internal/route"
	"github.com/usestring/apirecord/pkg/value"
)

func schemaJSON(t *testing.T, frag *OperationFragment, status string) string {
	t.Helper()
	var target any
	if status == "" {
		require.NotNil(t, frag.RequestBody)
		target = frag.RequestBody.Content[catalog.ContentTypeJSON].Schema
	} else {
		require.Contains(t, frag.Responses, status)
		target = frag.Responses[status].Content[catalog.ContentTypeJSON].Schema
	}
	data, err := json.Marshal(target)
	require.NoError(t, err)
	return string(data)
}

func TestRecordObservation_AndOperationSchema(t *testing.T) {
	rec := New()

	_, err := rec.RecordObservation("/things", "POST", RequestBody(), map[string]any{"a": 1, "b": map[string]any{"c": 2, "d": 3}})
	require.NoError(t, err)
	_, err = rec.RecordObservation("/things", "POST", RequestBody(), value.Object{"a": value.Int(5), "b": value.Object{"c": value.Int(9)}})
	require.NoError(t, err)

	frag, err := rec.OperationSchema("/things", "post")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"object",
		"properties":{
			"a":{"type":"integer"},
			"b":{"type":"object","properties":{"c":{"type":"integer"},"d":{"type":"integer"}},"required":["c"]}
		},
		"required":["a","b"]
	}`, schemaJSON(t, frag, ""))
}

func TestRecordObservation_Invalid(t *testing.T) {
	rec := New()
	_, err := rec.RecordObservation("/x", "GET", RequestBody(), make(chan int))
	assert.ErrorIs(t, err, ErrInvalidObservation)
	_, err = rec.RecordObservation("/x", "GET", QueryParams(), "not an object")
	assert.ErrorIs(t, err, ErrInvalidObservation)
	_, err = rec.RecordObservation("", "GET", RequestBody(), 1)
	assert.ErrorIs(t, err, ErrInvalidObservation)
}

func TestOperationSchema_Unknown(t *testing.T) {
	_, err := New().OperationSchema("/nope", "GET")
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestRecordExchange_Slots(t *testing.T) {
	rec := New()
	ctx := context.Background()

	rt, err := rec.RecordExchange(ctx, Exchange{
		Method:              "GET",
		URL:                 "/users/12?include=posts",
		Status:              200,
		ResponseContentType: "application/json",
		ResponseBody:        []byte(`{"id":12,"name":"a"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "/users/{id}", rt.Template)

	_, err = rec.RecordExchange(ctx, Exchange{
		Method:              "GET",
		URL:                 "https://api.example.com/users/13",
		Status:              200,
		ResponseContentType: "application/json; charset=utf-8",
		ResponseBody:        []byte(`{"id":13}`),
	})
	require.NoError(t, err)

	// failed exchanges only contribute their response
	_, err = rec.RecordExchange(ctx, Exchange{
		Method:              "GET",
		URL:                 "/users/99?bogus=1",
		Status:              404,
		ResponseContentType: "application/json",
		ResponseBody:        []byte(`{"error":"not found"}`),
	})
	require.NoError(t, err)

	frag, err := rec.OperationSchema("/users/{id}", "GET")
	require.NoError(t, err)

	assert.Equal(t, []string{"Users"}, frag.Tags)
	assert.Equal(t, []catalog.Parameter{
		{In: "path", Name: "id", Schema: catalog.ParameterSchema{Type: "string"}, Required: true},
		{In: "query", Name: "include", Schema: catalog.ParameterSchema{Type: "string"}, Required: false},
	}, frag.Parameters)
	assert.JSONEq(t, `{"type":"object","properties":{"id":{"type":"integer"},"name":{"type":"string"}},"required":["id"]}`, schemaJSON(t, frag, "200"))
	assert.JSONEq(t, `{"type":"object","properties":{"error":{"type":"string"}},"required":["error"]}`, schemaJSON(t, frag, "404"))
	assert.Equal(t, "Not Found", frag.Responses["404"].Description)
}

func TestRecordExchange_RequestBodyOnlyOnSuccess(t *testing.T) {
	rec := New()
	ctx := context.Background()

	_, err := rec.RecordExchange(ctx, Exchange{
		Method: "POST", URL: "/orders", Status: 422,
		RequestContentType: "application/json", RequestBody: []byte(`{"junk":true}`),
	})
	require.NoError(t, err)

	frag, err := rec.OperationSchema("/orders", "POST")
	require.NoError(t, err)
	assert.Nil(t, frag.RequestBody)

	_, err = rec.RecordExchange(ctx, Exchange{
		Method: "POST", URL: "/orders", Status: 201,
		RequestContentType: "application/x-www-form-urlencoded", RequestBody: []byte(`sku=a&qty=2`),
		ResponseContentType: "application/json", ResponseBody: []byte(`{"id":1}`),
	})
	require.NoError(t, err)

	frag, err = rec.OperationSchema("/orders", "POST")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"qty":{"type":"string"},"sku":{"type":"string"}},"required":["qty","sku"]}`, schemaJSON(t, frag, ""))
}

func TestRecordExchange_CustomSuccessCodes(t *testing.T) {
	rec := New(WithSuccessCodes(204))
	_, err := rec.RecordExchange(context.Background(), Exchange{Method: "DELETE", URL: "/items/1", Status: 204})
	require.NoError(t, err)

	frag, err := rec.OperationSchema("/items/{id}", "DELETE")
	require.NoError(t, err)
	require.Len(t, frag.Parameters, 1)
	assert.True(t, frag.Parameters[0].Required)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, schemaJSON(t, frag, "204"))
}

func TestRecordExchange_UndecodableBodiesAreLogged(t *testing.T) {
	var logs bytes.Buffer
	rec := New(WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	_, err := rec.RecordExchange(context.Background(), Exchange{
		Method: "GET", URL: "/page", Status: 200,
		ResponseContentType: "application/json", ResponseBody: []byte(`{broken`),
	})
	require.NoError(t, err)
	_, err = rec.RecordExchange(context.Background(), Exchange{
		Method: "GET", URL: "/page", Status: 200,
		ResponseContentType: "text/html", ResponseBody: []byte(`<html></html>`),
	})
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "body could not be decoded")
	assert.Contains(t, logs.String(), "body not sampled")

	frag, err := rec.OperationSchema("/page", "GET")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, schemaJSON(t, frag, "200"))
}

func TestRecordExchange_Errors(t *testing.T) {
	table := route.NewTemplateMatcher()
	require.NoError(t, table.Register("/known"))
	rec := New(WithMatcher(table))

	_, err := rec.RecordExchange(context.Background(), Exchange{Method: "GET", URL: "/unknown", Status: 200})
	assert.ErrorIs(t, err, ErrNoRoute)

	_, err = rec.RecordExchange(context.Background(), Exchange{Method: "", URL: "/known", Status: 200})
	assert.ErrorIs(t, err, ErrInvalidObservation)

	_, err = rec.RecordExchange(context.Background(), Exchange{Method: "GET", URL: "/known", Status: 0})
	assert.ErrorIs(t, err, ErrInvalidObservation)
	_, err = rec.RecordExchange(context.Background(), Exchange{Method: "GET", URL: "/known", Status: 600})
	assert.ErrorIs(t, err, ErrInvalidObservation)

	// rejected exchanges leave nothing behind
	assert.Empty(t, rec.Operations())
	_, err = rec.OperationSchema("/known", "GET")
	assert.ErrorIs(t, err, ErrUnknownOperation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rec.RecordExchange(ctx, Exchange{Method: "GET", URL: "/known", Status: 200})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordExchange_AbortedExchangeKeepsDocumentClean(t *testing.T) {
	rec := New()
	ctx := context.Background()

	_, err := rec.RecordExchange(ctx, Exchange{Method: "GET", URL: "/users/1", Status: 0})
	require.ErrorIs(t, err, ErrInvalidObservation)
	_, err = rec.RecordExchange(ctx, Exchange{Method: "GET", URL: "/health", Status: 200})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rec.WriteDocument(&buf, FormatYAML))
	assert.NotContains(t, buf.String(), "/users/{id}")
	assert.Contains(t, buf.String(), "/health")
}

func TestRecordExchange_EmptyQuerySamples(t *testing.T) {
	exchanges := []Exchange{
		{Method: "GET", URL: "/search?q=a", Status: 200},
		{Method: "GET", URL: "/search", Status: 200},
		{Method: "GET", URL: "/search?q=b&page=2", Status: 200},
	}
	queryParams := func(rec *Recorder) map[string]bool {
		for _, ex := range exchanges {
			_, err := rec.RecordExchange(context.Background(), ex)
			require.NoError(t, err)
		}
		frag, err := rec.OperationSchema("/search", "GET")
		require.NoError(t, err)
		got := make(map[string]bool)
		for _, p := range frag.Parameters {
			if p.In == "query" {
				got[p.Name] = p.Required
			}
		}
		return got
	}

	t.Run("sampled by default", func(t *testing.T) {
		assert.Equal(t, map[string]bool{"q": false, "page": false}, queryParams(New()))
	})

	t.Run("skipped", func(t *testing.T) {
		rec := New(WithEmptyQuerySamples(false))
		assert.Equal(t, map[string]bool{"q": true, "page": false}, queryParams(rec))
	})
}

func TestRecorder_ConflictsAreLoggedAndAnnotated(t *testing.T) {
	var logs bytes.Buffer
	rec := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	for _, body := range []any{map[string]any{"v": 1}, map[string]any{"v": "x"}} {
		_, err := rec.RecordObservation("/c", "GET", ResponseBody(200), body)
		require.NoError(t, err)
	}

	frag, err := rec.OperationSchema("/c", "GET")
	require.NoError(t, err)
	assert.Contains(t, schemaJSON(t, frag, "200"), `"x-kind-conflicts":["string"]`)
	assert.Contains(t, logs.String(), "kind conflict")
	assert.Contains(t, logs.String(), "path=$.v")

	plain := New(WithLedger(rec.Ledger()), WithoutConflictAnnotations(), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	frag, err = plain.OperationSchema("/c", "GET")
	require.NoError(t, err)
	assert.NotContains(t, schemaJSON(t, frag, "200"), "x-kind-conflicts")
}

func TestRecorder_SharedLedgerIsolation(t *testing.T) {
	a := New()
	b := New()
	_, err := a.RecordObservation("/only-a", "GET", ResponseBody(200), 1)
	require.NoError(t, err)

	assert.Len(t, a.Operations(), 1)
	assert.Empty(t, b.Operations())

	shared := New(WithLedger(a.Ledger()))
	assert.Len(t, shared.Operations(), 1)
}

func TestRecorder_Options(t *testing.T) {
	rec := New(WithStrictEmpty(true), WithAdditionalProperties(false), WithInfo("Shop", "9"), WithCacheSize(2))
	for _, body := range []any{map[string]any{"a": 1}, map[string]any{}} {
		_, err := rec.RecordObservation("/o", "PUT", RequestBody(), body)
		require.NoError(t, err)
	}

	frag, err := rec.OperationSchema("/o", "PUT")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"a":{"type":"integer"}},"additionalProperties":false}`, schemaJSON(t, frag, ""))

	doc := rec.Document()
	assert.Equal(t, "Shop", doc.Info.Title)
	assert.Equal(t, "9", doc.Info.Version)
}

func TestFieldStats(t *testing.T) {
	rec := New()
	for _, body := range []any{
		map[string]any{"id": 1, "email": "a@example.com"},
		map[string]any{"id": 2},
	} {
		_, err := rec.RecordObservation("/u", "GET", ResponseBody(200), body)
		require.NoError(t, err)
	}

	stats, err := rec.FieldStats("/u", "GET", ResponseBody(200))
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "email", stats[0].Path)
	assert.Equal(t, 0.5, stats[0].Frequency)
	assert.Equal(t, "id", stats[1].Path)
	assert.True(t, stats[1].Required)

	_, err = rec.FieldStats("/missing", "GET", ResponseBody(200))
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestWriteDocument(t *testing.T) {
	rec := New(WithInfo("Demo", "1.0"))
	_, err := rec.RecordObservation("/ping", "GET", ResponseBody(200), map[string]any{"ok": true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rec.WriteDocument(&buf, FormatYAML))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "openapi: 3.0.0\n"))
	assert.Contains(t, out, "/ping:")
	assert.Contains(t, out, "get:")
	assert.Contains(t, out, "description: OK")
}

func TestRecordExchange_Concurrent(t *testing.T) {
	rec := New()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rec.RecordExchange(context.Background(), Exchange{
				Method: "GET", URL: "/n/" + strings.Repeat("1", i%3+1), Status: 200,
				ResponseContentType: "application/json", ResponseBody: []byte(`{"n":1}`),
			})
			assert.NoError(t, err)
			_ = rec.Document()
		}()
	}
	wg.Wait()

	frag, err := rec.OperationSchema("/n/{id}", "GET")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"n":{"type":"integer"}},"required":["n"]}`, schemaJSON(t, frag, "200"))
	assert.Equal(t, 20*3, rec.Ledger().Len())
}

func newUsersHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["name"] == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"name required"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1,"name":"` + body["name"].(string) + `"}`))
	})
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":` + r.PathValue("id") + `}`))
	})
	return mux
}

func TestMiddleware(t *testing.T) {
	rec := New()
	srv := httptest.NewServer(rec.Middleware(newUsersHandler()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/users", "application/json", strings.NewReader(`{"name":"ada","age":36}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/users", "application/json", strings.NewReader(`{"age":1}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/users/7")
	require.NoError(t, err)
	_ = resp.Body.Close()

	post, err := rec.OperationSchema("/users", "POST")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"age":{"type":"integer"},"name":{"type":"string"}},"required":["age","name"]}`, schemaJSON(t, post, ""))
	assert.Contains(t, post.Responses, "201")
	assert.Contains(t, post.Responses, "400")

	get, err := rec.OperationSchema("/users/{id}", "GET")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"id":{"type":"integer"}},"required":["id"]}`, schemaJSON(t, get, "200"))
}

func TestTransport(t *testing.T) {
	srv := httptest.NewServer(newUsersHandler())
	defer srv.Close()

	rec := New()
	client := &http.Client{Transport: rec.Transport(nil)}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/users?dry_run=true", strings.NewReader(`{"name":"grace"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, "grace", body["name"], "caller still sees the response body")

	frag, err := rec.OperationSchema("/users", "POST")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`, schemaJSON(t, frag, ""))
	assert.Equal(t, []catalog.Parameter{
		{In: "query", Name: "dry_run", Schema: catalog.ParameterSchema{Type: "string"}, Required: true},
	}, frag.Parameters)
}
