package github

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gh "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *APIClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := gh.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)

	client.BaseURL = baseURL

	return NewClientWith(client)
}

func TestAPIClient_FileSHA(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/app/contents/README.md", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"file","name":"README.md","path":"README.md","sha":"abc123"}`))
	})
	mux.HandleFunc("GET /repos/octo/app/contents/missing.md", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})
	mux.HandleFunc("GET /repos/octo/app/contents/broken.md", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Resource not accessible by integration"}`))
	})

	client := newTestClient(t, mux)

	sha, found, err := client.FileSHA(t.Context(), "octo", "app", "README.md")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc123", sha)

	sha, found, err = client.FileSHA(t.Context(), "octo", "app", "missing.md")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, sha)

	_, _, err = client.FileSHA(t.Context(), "octo", "app", "broken.md")
	assert.Error(t, err)
}

func TestAPIClient_PutFile(t *testing.T) {
	var bodies []map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /repos/octo/app/contents/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		bodies = append(bodies, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":{"path":"notes.txt"},"commit":{"sha":"commit-1"}}`))
	})

	client := newTestClient(t, mux)

	sha, err := client.PutFile(t.Context(), "octo", "app", "notes.txt", "add notes", []byte("hello"), "")
	require.NoError(t, err)
	assert.Equal(t, "commit-1", sha)

	_, err = client.PutFile(t.Context(), "octo", "app", "notes.txt", "update notes", []byte("hello again"), "blob-9")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.NotContains(t, bodies[0], "sha")
	assert.Equal(t, "add notes", bodies[0]["message"])
	assert.Equal(t, "aGVsbG8=", bodies[0]["content"])
	assert.Equal(t, "blob-9", bodies[1]["sha"])
}

func TestAPIClient_CreateIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/octo/app/issues", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Bug", body["title"])
		assert.Equal(t, "it broke", body["body"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":7,"html_url":"https://github.com/octo/app/issues/7"}`))
	})

	client := newTestClient(t, mux)

	issue, err := client.CreateIssue(t.Context(), "octo", "app", "Bug", "it broke")
	require.NoError(t, err)
	assert.Equal(t, 7, issue.Number)
	assert.Equal(t, "https://github.com/octo/app/issues/7", issue.HTMLURL)
}

func TestAPIClient_CurrentUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
	})

	login, err := newTestClient(t, mux).CurrentUser(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "octocat", login)
}
