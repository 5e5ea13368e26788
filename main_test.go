package main

import (
	"encoding/json"
	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, s VideoSearcher, store *Store) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	metrics := NewRegistry()
	server := &Server{
		cfg:      &cfg,
		searcher: s,
		thumbs:   NewThumbnailLoader(&cfg, metrics),
		store:    store,
		metrics:  metrics,
		log:      log.New(io.Discard, "", 0),
	}
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return server, srv
}

func TestSearchEndpoint(t *testing.T) {
	s := newFakeSearcher()
	s.set("cats dogs", "ABC", makePage("a", "DEF", 15))
	server, srv := newTestServer(t, s, nil)

	res, err := http.Get(srv.URL + "/search?q=cats&q=dogs&pageToken=ABC")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var page SearchResultPage
	require.NoError(t, json.NewDecoder(res.Body).Decode(&page))
	assert.Equal(t, "DEF", page.NextPageToken)
	assert.Len(t, page.Items, 15)
	assert.Equal(t, uint64(1), server.metrics.Get(metricSearchHandled))
}

func TestSearchEndpointBrotli(t *testing.T) {
	s := newFakeSearcher()
	s.set("cats", "", makePage("a", "ABC", 15))
	_, srv := newTestServer(t, s, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/search?q=cats", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "br")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "br", res.Header.Get("Content-Encoding"))

	var page SearchResultPage
	require.NoError(t, json.NewDecoder(brotli.NewReader(res.Body)).Decode(&page))
	assert.Equal(t, "ABC", page.NextPageToken)
}

func TestSearchEndpointErrors(t *testing.T) {
	s := newFakeSearcher()
	_, srv := newTestServer(t, s, nil)

	res, err := http.Get(srv.URL + "/search")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, err = http.Get(srv.URL + "/search?q=unknown")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestIndexPage(t *testing.T) {
	_, srv := newTestServer(t, newFakeSearcher(), nil)

	res, err := http.Get(srv.URL + "/?q=cats")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `value="cats"`)

	res, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = http.Get(srv.URL + "/admin/stats")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode, "no store, no admin page")
}

func TestAdminStats(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddUser("admin", "hunter2", 1))
	s := newFakeSearcher()
	s.set("cats", "", makePage("a", "ABC", 15))
	_, srv := newTestServer(t, s, store)

	res, err := http.Get(srv.URL + "/search?q=cats")
	require.NoError(t, err)
	res.Body.Close()

	res, err = http.Get(srv.URL + "/admin/stats")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, res.Header.Get("WWW-Authenticate"), "Basic")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/stats", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "hunter2")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "search_requests 1")
}
