package main

import "fmt"

const PageSize int = 15

// PageRef locates one rendered row: the page it came from and its index
// within that page.
type PageRef struct {
	Page int
	Item int
}

// prefetchIndex is the item index whose appearance loads the next page: the
// second-to-last slot of a full page.
func prefetchIndex(perPage int) int {
	if perPage < 2 {
		return 0
	}
	return perPage - 2
}

// ShouldPrefetch reports whether showing the row at ref should request the
// next page, and with which continuation token. Only the last loaded page can
// trigger, and only while it carries a token.
func ShouldPrefetch(pages []SearchResultPage, perPage int, ref PageRef) (string, bool) {
	last := len(pages) - 1
	if last < 0 || ref.Page != last {
		return "", false
	}
	if ref.Item != prefetchIndex(perPage) || ref.Item >= len(pages[last].Items) {
		return "", false
	}
	token := pages[last].NextPageToken
	if token == "" {
		return "", false
	}
	return token, true
}

func CountItems(pages []SearchResultPage) int {
	n := 0
	for _, p := range pages {
		n += len(p.Items)
	}
	return n
}

func (p *PageRef) String() string {
	return fmt.Sprintf("#%d [%d]", p.Page, p.Item)
}
