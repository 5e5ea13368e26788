package main

import (
	"context"
	"log"
	"os"
)

type FeedEventKind int

const (
	PageAppended FeedEventKind = iota
	FeedReset
)

// FeedEvent reports a change applied to a Feed. PrefetchItem is the index of
// the row in Page that should request the next page when shown, or -1.
type FeedEvent struct {
	Kind         FeedEventKind
	Query        string
	PageIndex    int
	Page         SearchResultPage
	PrefetchItem int
}

type FeedOptions struct {
	PerPage int
	// AppendOnFreshSearch keeps earlier results when a new search starts
	// instead of clearing them.
	AppendOnFreshSearch bool
	Metrics             *Registry
}

// Feed accumulates result pages for one viewer. All state is owned by the
// goroutine running Run; fetches run on their own goroutines and hand their
// pages back to it.
type Feed struct {
	searcher      VideoSearcher
	perPage       int
	appendOnFresh bool
	listener      func(FeedEvent)
	metrics       *Registry
	log           *log.Logger

	ops  chan func()
	done chan struct{}

	// owned by Run
	ctx        context.Context
	pages      []SearchResultPage
	query      string
	generation int
}

// NewFeed builds a Feed. listener, if set, is called from the Run goroutine
// for every applied change.
func NewFeed(searcher VideoSearcher, opts FeedOptions, listener func(FeedEvent)) *Feed {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = searcher.PageSize()
	}
	return &Feed{
		searcher:      searcher,
		perPage:       perPage,
		appendOnFresh: opts.AppendOnFreshSearch,
		listener:      listener,
		metrics:       opts.Metrics,
		log:           log.New(os.Stderr, "(feed) ", log.LstdFlags),
		ops:           make(chan func()),
		done:          make(chan struct{}),
	}
}

// Run processes requests and completed fetches until ctx is done. In-flight
// fetches are cancelled with ctx.
func (f *Feed) Run(ctx context.Context) error {
	f.ctx = ctx
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op := <-f.ops:
			op()
		}
	}
}

func (f *Feed) post(op func()) bool {
	select {
	case f.ops <- op:
		return true
	case <-f.done:
		return false
	}
}

func (f *Feed) call(op func()) bool {
	finished := make(chan struct{})
	if !f.post(func() { op(); close(finished) }) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-f.done:
		return false
	}
}

// RequestPage starts a fetch for (query, pageToken). An empty token starts a
// fresh search. It returns false once the feed has stopped.
func (f *Feed) RequestPage(query string, pageToken string) bool {
	return f.post(func() { f.requestPage(query, pageToken) })
}

// Prefetch is called when the row at ref is shown. If that row is the
// prefetch slot of the last page the next page is requested.
func (f *Feed) Prefetch(ref PageRef) bool {
	var triggered bool
	f.call(func() {
		token, ok := ShouldPrefetch(f.pages, f.perPage, ref)
		if !ok {
			return
		}
		f.log.Printf("prefetch at %s for %q", &ref, f.query)
		f.requestPage(f.query, token)
		triggered = true
	})
	return triggered
}

func (f *Feed) Pages() []SearchResultPage {
	var pages []SearchResultPage
	f.call(func() {
		pages = make([]SearchResultPage, len(f.pages))
		copy(pages, f.pages)
	})
	return pages
}

func (f *Feed) Query() string {
	var q string
	f.call(func() { q = f.query })
	return q
}

func (f *Feed) PerPage() int {
	return f.perPage
}

func (f *Feed) requestPage(query string, pageToken string) {
	if pageToken == "" {
		f.query = query
		if !f.appendOnFresh {
			f.pages = nil
			f.generation++
			f.emit(FeedEvent{Kind: FeedReset, Query: query, PrefetchItem: -1})
		}
	}
	gen := f.generation
	ctx := f.ctx
	go func() {
		page, err := f.searcher.FetchPage(ctx, query, pageToken)
		if err != nil {
			f.metrics.Inc(metricFetchErrors)
			f.log.Printf("dropping %q page %q: %v", query, pageToken, err)
			return
		}
		f.post(func() { f.appendPage(gen, query, page) })
	}()
}

func (f *Feed) appendPage(gen int, query string, page SearchResultPage) {
	if gen != f.generation {
		f.metrics.Inc(metricPagesStale)
		f.log.Printf("dropping stale page for %q", query)
		return
	}
	f.pages = append(f.pages, page)
	f.metrics.Inc(metricPagesFetched)
	idx := len(f.pages) - 1
	ev := FeedEvent{Kind: PageAppended, Query: query, PageIndex: idx, Page: page, PrefetchItem: -1}
	if _, ok := ShouldPrefetch(f.pages, f.perPage, PageRef{Page: idx, Item: prefetchIndex(f.perPage)}); ok {
		ev.PrefetchItem = prefetchIndex(f.perPage)
	}
	f.emit(ev)
}

func (f *Feed) emit(ev FeedEvent) {
	if f.listener != nil {
		f.listener(ev)
	}
}
