package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"github.com/andybalholm/brotli"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
)

type Server struct {
	cfg      *Config
	searcher VideoSearcher
	thumbs   *ThumbnailLoader
	store    *Store
	metrics  *Registry
	log      *log.Logger
}

func (s *Server) newFeed(listener func(FeedEvent)) *Feed {
	return NewFeed(s.searcher, FeedOptions{
		PerPage:             s.searcher.PageSize(),
		AppendOnFreshSearch: s.cfg.Feed.AppendOnFreshSearch,
		Metrics:             s.metrics,
	}, listener)
}

// Handler builds the route table. /admin/stats only exists when a store is
// configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/search", s.metrics.Wrap(metricSearchHandled, http.HandlerFunc(s.handleSearch)))
	mux.Handle("/ws", NewSessionHandler(s.newFeed, s.metrics))
	mux.Handle("/thumb", s.thumbs)
	if s.store != nil {
		mux.Handle("/admin/stats", requireUser(s.store, s.metrics.Handler()))
	}
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Not Found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	body := brotli.HTTPCompressor(w, r)
	defer body.Close()
	io.WriteString(body, RenderShell(r.URL.Query().Get("q")))
}

// handleSearch answers /search?q=&pageToken= with one page as JSON.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, hasQ := r.URL.Query()["q"]
	if !hasQ {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Query Search Parameter ?q= missing")
		return
	}
	search := strings.Join(q, " ")
	page, err := s.searcher.FetchPage(r.Context(), search, r.URL.Query().Get("pageToken"))
	if err != nil {
		s.log.Println("Error connecting to upstream services:", err)
		http.Error(w, "Error connecting to upstream services", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	body := brotli.HTTPCompressor(w, r)
	defer body.Close()
	enc := json.NewEncoder(body)
	indent := ""
	if s.cfg.Debug.PrettyJson {
		indent = "  "
	}
	enc.SetIndent("", indent)
	if err := enc.Encode(page); err != nil {
		s.log.Println("Failed to write response:", err)
	}
}

func addUser(store *Store, arg string) error {
	name, pass, ok := strings.Cut(arg, ":")
	if !ok || name == "" || pass == "" {
		return fmt.Errorf("expected name:password, got %q", arg)
	}
	return store.AddUser(name, pass, 1)
}

func main() {
	configPath := flag.String("config", defaultConfigFile, "configuration file")
	newUser := flag.String("adduser", "", "add an operator as name:password and exit")
	flag.Parse()

	loadDotEnv()
	cfg := DefaultConfig()
	if err := loadConfig(*configPath, &cfg); err != nil {
		log.Fatal(err)
	}
	applyEnv(&cfg)

	var store *Store
	if cfg.Database != "" {
		var err error
		store, err = NewStore(cfg.Database)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
	}
	if *newUser != "" {
		if store == nil {
			log.Fatal("-adduser needs \"database\" set in the configuration")
		}
		if err := addUser(store, *newUser); err != nil {
			log.Fatal(err)
		}
		return
	}
	if store != nil && !store.HasUsers() {
		log.Println("No operators configured; add one with -adduser to reach /admin/stats")
	}
	if cfg.YouTube.Key == "" {
		log.Println("No API key configured; set YOUTUBE_API_KEY or youtube.com.key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	metrics := NewRegistry()
	reqCache := NewReqCache(ctx, store)
	yt := NewYouTubeApi(&cfg, reqCache)

	srv := &Server{
		cfg:      &cfg,
		searcher: &yt,
		thumbs:   NewThumbnailLoader(&cfg, metrics),
		store:    store,
		metrics:  metrics,
		log:      log.New(os.Stderr, "(server) ", log.LstdFlags),
	}
	log.Println("Starting Server on", cfg.Http.Listen)
	log.Fatal(http.ListenAndServe(cfg.Http.Listen, srv.Handler()))
}
