package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"log"
	"net/http"
	"net/http/httputil"
	"os"
	"time"
)

// ReqCache replays stored upstream responses for identical requests. A nil
// ReqCache, or one without a store, always goes to the network.
type ReqCache struct {
	store *Store
	log   *log.Logger
}

func NewReqCache(ctx context.Context, store *Store) *ReqCache {
	logger := log.New(os.Stderr, "(cache) ", log.LstdFlags)
	rc := ReqCache{
		store: store,
		log:   logger,
	}
	if store != nil {
		go rc.purgeExpired(ctx)
	}
	return &rc
}

func (rc *ReqCache) purgeExpired(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		rc.store.DeleteBefore(time.Now().Unix())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func requestHash(req *http.Request) string {
	reqBytes, _ := httputil.DumpRequest(req, true)
	md5Hash := md5.Sum(reqBytes)
	return hex.EncodeToString(md5Hash[:])
}

// CachedFetch performs req with client. Successful responses are stored for
// ttl seconds; error statuses are never stored.
func (rc *ReqCache) CachedFetch(req *http.Request, client *http.Client, ttl int) (*http.Response, error) {
	if rc == nil || rc.store == nil {
		return client.Do(req)
	}
	reqHash := requestHash(req)
	data, ok := rc.store.GetResponse(reqHash, time.Now().Unix())
	if ok {
		res, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), req)
		if err == nil {
			return res, nil
		}
		rc.log.Println("Problems decoding cached result", err.Error())
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	respBytes, err := httputil.DumpResponse(resp, true)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	rc.log.Println("MISS", req.URL.Host)
	rc.store.StoreResponse(reqHash, respBytes, time.Now().Unix()+int64(ttl))
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(respBytes)), req)
}
