package main

import (
	"context"
	"github.com/gorilla/websocket"
	"log"
	"net/http"
	"os"
	"time"
)

const sessionWriteWait = 10 * time.Second

// FeedFactory builds the Feed backing one session. listener receives the
// feed's changes on the feed's own goroutine.
type FeedFactory func(listener func(FeedEvent)) *Feed

type clientMessage struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	Page  int    `json:"page"`
	Item  int    `json:"item"`
}

type serverMessage struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
	Index int    `json:"index"`
	Html  string `json:"html,omitempty"`
}

// SessionHandler serves /ws. Each connection gets a fresh Feed from newFeed;
// feed changes are rendered and pushed to the browser as they are applied.
type SessionHandler struct {
	newFeed  FeedFactory
	upgrader websocket.Upgrader
	metrics  *Registry
	log      *log.Logger
}

func NewSessionHandler(newFeed FeedFactory, metrics *Registry) *SessionHandler {
	return &SessionHandler{
		newFeed:  newFeed,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		metrics:  metrics,
		log:      log.New(os.Stderr, "(session) ", log.LstdFlags),
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Println("Upgrade failed:", err)
		return
	}
	defer conn.Close()
	h.metrics.Inc(metricSessions)

	// Only the feed goroutine writes to conn.
	send := func(msg serverMessage) {
		_ = conn.SetWriteDeadline(time.Now().Add(sessionWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Println("Write failed:", err)
		}
	}
	feed := h.newFeed(func(ev FeedEvent) {
		switch ev.Kind {
		case FeedReset:
			send(serverMessage{Type: "reset", Query: ev.Query})
		case PageAppended:
			send(serverMessage{
				Type:  "page",
				Query: ev.Query,
				Index: ev.PageIndex,
				Html:  RenderPage(ev.PageIndex, ev.Page, ev.PrefetchItem),
			})
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = feed.Run(ctx)
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Println("Read failed:", err)
			}
			break
		}
		switch msg.Type {
		case "search":
			feed.RequestPage(msg.Query, "")
		case "more":
			feed.Prefetch(PageRef{Page: msg.Page, Item: msg.Item})
		default:
			h.log.Printf("Unknown message type %q", msg.Type)
		}
	}
	cancel()
	<-stopped
}
