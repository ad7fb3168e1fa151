package strapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
)

// testServer wires an httptest server with a login endpoint and a
// per-path handler table.
type testServer struct {
	*httptest.Server
	logins   int
	handlers map[string]http.HandlerFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{handlers: map[string]http.HandlerFunc{}}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin/login" {
			ts.logins++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]string{"token": fmt.Sprintf("tok-%d", ts.logins)},
			})
			return
		}
		if h, ok := ts.handlers[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) client() *HTTPClient {
	return NewHTTPClient(Instance{
		ID:       "test",
		BaseURL:  ts.URL,
		Email:    "admin@example.com",
		Password: "secret",
	})
}

func TestAuthenticateCachesToken(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client()
	ctx := context.Background()

	require.NoError(t, c.Authenticate(ctx))
	require.NoError(t, c.Authenticate(ctx))
	assert.Equal(t, 1, ts.logins, "a fresh token short-circuits")

	// An invalidated token forces a re-login on the next call.
	c.InvalidateToken()
	require.NoError(t, c.Authenticate(ctx))
	assert.Equal(t, 2, ts.logins)
}

func TestRequestsCarryBearerToken(t *testing.T) {
	ts := newTestServer(t)
	var gotAuth string
	ts.handlers["GET /content-type-builder/content-types"] = func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}

	c := ts.client()
	_, err := c.ContentTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

// serveCollectionSchema registers the content-type listing the client
// consults to pick the endpoint family for a uid.
func serveCollectionSchema(ts *testServer, uid string) {
	body := fmt.Sprintf(`{"data":[{"uid":%q,"schema":{"kind":"collectionType","attributes":{"title":{"type":"string"}}}}]}`, uid)
	ts.handlers["GET /content-type-builder/content-types"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func TestUpsertEntryFallsBackToCreate(t *testing.T) {
	ts := newTestServer(t)
	serveCollectionSchema(ts, "api::a.a")
	var createdBody map[string]any
	ts.handlers["PUT /content-manager/collection-types/api::a.a/doc-1"] = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Not Found"}`, http.StatusNotFound)
	}
	ts.handlers["POST /content-manager/collection-types/api::a.a"] = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&createdBody))
		_, _ = w.Write([]byte(`{"data":{"id":7,"documentId":"doc-1","title":"T"}}`))
	}

	c := ts.client()
	created, err := c.UpsertEntry(context.Background(), "api::a.a", "doc-1",
		content.Object{"title": content.String("T")})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", createdBody["documentId"],
		"creation carries the documentId so both instances share it")
	assert.Equal(t, content.String("doc-1"), created["documentId"])
	assert.Equal(t, content.Number("7"), created["id"])
}

func TestUpsertEntrySingleTypeUsesSingleTypesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.handlers["GET /content-type-builder/content-types"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"uid":"api::home.home","schema":{"kind":"singleType","attributes":{"headline":{"type":"string"}}}}
		]}`))
	}
	var gotBody map[string]any
	ts.handlers["PUT /content-manager/single-types/api::home.home"] = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"data":{"id":1,"documentId":"home-1","headline":"H"}}`))
	}

	c := ts.client()
	created, err := c.UpsertEntry(context.Background(), "api::home.home", "home-1",
		content.Object{"headline": content.String("H")})
	require.NoError(t, err)

	assert.Equal(t, "H", gotBody["headline"])
	assert.Equal(t, content.String("home-1"), created["documentId"])
}

func TestDeleteEntrySingleTypeUsesSingleTypesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.handlers["GET /content-type-builder/content-types"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"uid":"api::home.home","schema":{"kind":"singleType","attributes":{"headline":{"type":"string"}}}}
		]}`))
	}
	deleted := false
	ts.handlers["DELETE /content-manager/single-types/api::home.home"] = func(w http.ResponseWriter, r *http.Request) {
		deleted = true
		_, _ = w.Write([]byte(`{"data":{"id":1,"documentId":"home-1"}}`))
	}

	c := ts.client()
	require.NoError(t, c.DeleteEntry(context.Background(), "api::home.home", "home-1"))
	assert.True(t, deleted)
}

func TestUpsertEntryOtherErrorsPropagate(t *testing.T) {
	ts := newTestServer(t)
	serveCollectionSchema(ts, "api::a.a")
	ts.handlers["PUT /content-manager/collection-types/api::a.a/doc-1"] = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"ValidationError"}`, http.StatusBadRequest)
	}

	c := ts.client()
	_, err := c.UpsertEntry(context.Background(), "api::a.a", "doc-1", content.Object{})
	require.Error(t, err)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadRequest, re.Status)
	assert.Contains(t, re.Body, "ValidationError", "response body kept verbatim")
}

func TestEntriesPaginates(t *testing.T) {
	ts := newTestServer(t)
	ts.handlers["GET /content-manager/collection-types/api::a.a"] = func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			_, _ = w.Write([]byte(`{"results":[{"id":1,"documentId":"d1"}],"pagination":{"pageCount":2}}`))
		case "2":
			_, _ = w.Write([]byte(`{"results":[{"id":2,"documentId":"d2"}],"pagination":{"pageCount":2}}`))
		default:
			t.Errorf("unexpected page %q", page)
		}
	}

	c := ts.client()
	entries, err := c.Entries(context.Background(), schema.ContentType{UID: "api::a.a", Kind: schema.KindCollection})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, content.String("d1"), entries[0]["documentId"])
	assert.Equal(t, content.String("d2"), entries[1]["documentId"])
}

func TestEntriesSingleTypeAbsentIsEmpty(t *testing.T) {
	ts := newTestServer(t)
	// No handler registered: the single-type endpoint 404s.
	c := ts.client()

	entries, err := c.Entries(context.Background(), schema.ContentType{UID: "api::home.home", Kind: schema.KindSingle})
	require.NoError(t, err)
	assert.Empty(t, entries, "an absent single type is an empty set, not an error")
}

func TestEnsureFolderCreatesMissingSegments(t *testing.T) {
	ts := newTestServer(t)
	created := []string{}
	ts.handlers["GET /upload/folders"] = func(w http.ResponseWriter, r *http.Request) {
		// "assets" exists at the root; everything else is missing.
		if r.URL.Query().Get("filters[name]") == "assets" {
			_, _ = w.Write([]byte(`{"data":[{"id":3}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}
	ts.handlers["POST /upload/folders"] = func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		created = append(created, body["name"].(string))
		_, _ = w.Write([]byte(`{"data":{"id":9}}`))
	}

	c := ts.client()
	id, err := c.EnsureFolder(context.Background(), "/assets/covers")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.Equal(t, []string{"covers"}, created)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&RequestError{Status: 404}))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", &RequestError{Status: 404})))
	assert.False(t, IsNotFound(&RequestError{Status: 500}))
	assert.False(t, IsNotFound(fmt.Errorf("plain")))
}
