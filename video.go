package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrTransport = errors.New("transport error")
	ErrDecode    = errors.New("decode error")
)

type ThumbnailInfo struct {
	Url    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Thumbnail is one resolution variant of a preview image. A variant missing
// from the response (or sent as null) decodes as absent.
type Thumbnail struct {
	info    ThumbnailInfo
	present bool
}

func ThumbnailOf(url string, width, height int) Thumbnail {
	return Thumbnail{
		info:    ThumbnailInfo{Url: url, Width: width, Height: height},
		present: true,
	}
}

func (t Thumbnail) Get() (ThumbnailInfo, bool) {
	return t.info, t.present
}

// URLOr returns the variant's URL, or fallback when the variant is absent.
func (t Thumbnail) URLOr(fallback string) string {
	if !t.present {
		return fallback
	}
	return t.info.Url
}

func (t *Thumbnail) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Thumbnail{}
		return nil
	}
	var info ThumbnailInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return err
	}
	*t = Thumbnail{info: info, present: true}
	return nil
}

func (t Thumbnail) MarshalJSON() ([]byte, error) {
	if !t.present {
		return []byte("null"), nil
	}
	return json.Marshal(t.info)
}

type Thumbnails struct {
	Default Thumbnail `json:"default"`
	High    Thumbnail `json:"high"`
}

type VideoId struct {
	Kind    string `json:"kind"`
	VideoId string `json:"videoId"`
}

type Snippet struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Thumbnails  Thumbnails `json:"thumbnails"`
}

type ResultItem struct {
	Id      VideoId `json:"id"`
	Snippet Snippet `json:"snippet"`
}

// SearchResultPage is one response of the search endpoint. NextPageToken
// continues the same search; an empty token means there are no more pages.
type SearchResultPage struct {
	Kind          string       `json:"kind"`
	Etag          string       `json:"etag"`
	NextPageToken string       `json:"nextPageToken"`
	RegionCode    string       `json:"regionCode"`
	Items         []ResultItem `json:"items"`
}

type VideoSearcher interface {
	FetchPage(ctx context.Context, query string, pageToken string) (SearchResultPage, error)
	Type() string
	TTL() int
	PageSize() int
}
