package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const defaultYouTubeBaseUrl = "https://www.googleapis.com/youtube/v3"

type YouTubeApi struct {
	Http       http.Client
	cache      *ReqCache
	apiKey     string
	baseUrl    string
	regionCode string
	maxResults int
	log        *log.Logger
}

func NewYouTubeApi(cfg *Config, cache *ReqCache) YouTubeApi {
	api := YouTubeApi{
		cache:      cache,
		apiKey:     cfg.YouTube.Key,
		baseUrl:    cfg.YouTube.BaseUrl,
		regionCode: cfg.YouTube.RegionCode,
		maxResults: cfg.YouTube.MaxResults,
		log:        log.New(os.Stderr, "(youtube) ", log.LstdFlags),
	}
	if api.baseUrl == "" {
		api.baseUrl = defaultYouTubeBaseUrl
	}
	if api.regionCode == "" {
		api.regionCode = "US"
	}
	if api.maxResults <= 0 {
		api.maxResults = PageSize
	}
	api.Http.Timeout = time.Duration(cfg.Http.Timeout) * time.Second
	return api
}

func (api *YouTubeApi) Type() string {
	return "youtube"
}

func (api *YouTubeApi) TTL() int {
	return 3600
}

func (api *YouTubeApi) PageSize() int { return api.maxResults }

// FetchPage runs one search request. An empty pageToken asks for the first
// page. Failures are logged here; callers only need to drop the result.
func (api *YouTubeApi) FetchPage(ctx context.Context, query string, pageToken string) (SearchResultPage, error) {
	qParam := url.Values{}
	qParam.Add("part", "snippet")
	qParam.Add("q", query)
	qParam.Add("pageToken", pageToken)
	qParam.Add("regionCode", api.regionCode)
	qParam.Add("maxResults", strconv.Itoa(api.PageSize()))
	qParam.Add("type", "video")
	qParam.Add("key", api.apiKey)
	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, api.baseUrl+"/search?"+qParam.Encode(), nil)
	if err != nil {
		api.log.Println("Failed to create http request:", err)
		return SearchResultPage{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	res, err := api.cache.CachedFetch(getReq, &api.Http, api.TTL())
	if err != nil {
		api.log.Println("Failed to get json data:", err)
		return SearchResultPage{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		api.log.Printf("Search request failed: %s (%s)", res.Status, body)
		return SearchResultPage{}, fmt.Errorf("%w: search request failed: %s", ErrTransport, res.Status)
	}

	data := SearchResultPage{}
	err = json.NewDecoder(res.Body).Decode(&data)
	if err != nil {
		api.log.Println("Failed to decode response:", err)
		return SearchResultPage{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return data, nil
}
