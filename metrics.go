package main

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

const (
	metricSessions      = "sessions"
	metricPagesFetched  = "pages_fetched"
	metricPagesStale    = "pages_stale"
	metricFetchErrors   = "fetch_errors"
	metricThumbsServed  = "thumbnails_served"
	metricThumbsFailed  = "thumbnails_failed"
	metricSearchHandled = "search_requests"
)

// Registry is a minimal in-memory counter store. A nil Registry ignores
// increments.
type Registry struct {
	mu     sync.RWMutex
	counts map[string]uint64
}

func NewRegistry() *Registry {
	return &Registry{
		counts: make(map[string]uint64),
	}
}

func (r *Registry) Inc(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.counts[name]++
	r.mu.Unlock()
}

func (r *Registry) Get(name string) uint64 {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[name]
}

// Wrap counts requests reaching next under name.
func (r *Registry) Wrap(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Inc(name)
		next.ServeHTTP(w, req)
	})
}

// Handler exposes counters as plain text, one "name value" pair per line.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		r.mu.RLock()
		keys := make([]string, 0, len(r.counts))
		for k := range r.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s %d\n", k, r.counts[k])
		}
		r.mu.RUnlock()
	})
}
