package main

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func newTestApi(t *testing.T, handler http.HandlerFunc, cache *ReqCache) YouTubeApi {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig()
	cfg.YouTube.Key = "secret"
	cfg.YouTube.BaseUrl = srv.URL
	return NewYouTubeApi(&cfg, cache)
}

func TestYouTubeFetchPage(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "snippet", q.Get("part"))
		assert.Equal(t, "cats & dogs", q.Get("q"))
		assert.Equal(t, "ABC", q.Get("pageToken"))
		assert.Equal(t, "US", q.Get("regionCode"))
		assert.Equal(t, "15", q.Get("maxResults"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "secret", q.Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePage))
	}, nil)

	page, err := api.FetchPage(context.Background(), "cats & dogs", "ABC")
	require.NoError(t, err)
	assert.Equal(t, "CAUQAA", page.NextPageToken)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "dQw4w9WgXcQ", page.Items[0].Id.VideoId)
	assert.Equal(t, "youtube", api.Type())
	assert.Equal(t, 15, api.PageSize())
}

func TestYouTubeFetchPageEmptyToken(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		values, ok := r.URL.Query()["pageToken"]
		assert.True(t, ok)
		assert.Equal(t, []string{""}, values)
		w.Write([]byte(samplePage))
	}, nil)

	_, err := api.FetchPage(context.Background(), "cats", "")
	require.NoError(t, err)
}

func TestYouTubeFetchPageErrors(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403}}`, http.StatusForbidden)
	}, nil)
	_, err := api.FetchPage(context.Background(), "cats", "")
	assert.ErrorIs(t, err, ErrTransport)

	api = newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": "nope"}`))
	}, nil)
	_, err = api.FetchPage(context.Background(), "cats", "")
	assert.ErrorIs(t, err, ErrDecode)

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	cfg := DefaultConfig()
	cfg.YouTube.BaseUrl = srv.URL
	unreachable := NewYouTubeApi(&cfg, nil)
	_, err = unreachable.FetchPage(context.Background(), "cats", "")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestYouTubeFetchPageCancelled(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := api.FetchPage(ctx, "cats", "")
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestYouTubeFetchPageCached(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var hits atomic.Int32
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("q") == "broken" {
			http.Error(w, "quota", http.StatusForbidden)
			return
		}
		w.Write([]byte(samplePage))
	}, NewReqCache(ctx, store))

	first, err := api.FetchPage(context.Background(), "cats", "")
	require.NoError(t, err)
	second, err := api.FetchPage(context.Background(), "cats", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	_, err = api.FetchPage(context.Background(), "cats", "CAUQAA")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	for i := 0; i < 2; i++ {
		_, err = api.FetchPage(context.Background(), "broken", "")
		assert.ErrorIs(t, err, ErrTransport)
	}
	assert.Equal(t, int32(4), hits.Load(), "error responses are not stored")
}
