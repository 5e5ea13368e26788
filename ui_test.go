package main

import (
	"github.com/stretchr/testify/assert"
	"strings"
	"testing"
)

func TestRenderPage(t *testing.T) {
	page := makePage("a", "ABC", 15)
	page.Items[0].Snippet.Title = `Cats <script>`
	page.Items[1].Snippet.Thumbnails.High = Thumbnail{}

	out := RenderPage(2, page, 13)

	assert.True(t, strings.HasPrefix(out, `<div class="page" data-index="2">`))
	assert.Equal(t, 15, strings.Count(out, `class="row"`))
	assert.Contains(t, out, `<b>Cats &lt;script&gt;</b>`)
	assert.NotContains(t, out, `<script>`)
	assert.Contains(t, out, `data-page="2" data-item="13" data-more="1"`)
	assert.Equal(t, 1, strings.Count(out, `data-more`))
	assert.Contains(t, out, `/thumb?url=https%3A%2F%2Fi.ytimg.com%2Fvi%2Fa-0%2Fhqdefault.jpg`)
	assert.Contains(t, out, `data-item="1"><div class="thumb"></div>`, "absent variant renders the placeholder")
	assert.Equal(t, 14, strings.Count(out, `<img `))
}

func TestRenderPageWithoutPrefetch(t *testing.T) {
	out := RenderPage(0, makePage("a", "", 3), -1)
	assert.NotContains(t, out, `data-more`)
	assert.Contains(t, out, `Description a-2`)
}

func TestRenderShell(t *testing.T) {
	out := RenderShell(`"cats"`)
	assert.Contains(t, out, `value="&#34;cats&#34;"`)
	assert.Contains(t, out, `id="results"`)
	assert.Contains(t, out, `/ws`)
}
