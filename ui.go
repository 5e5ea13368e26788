package main

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

func Escape(s string) string {
	return html.EscapeString(s)
}

const shellStyle = `body{font-family:Arial,sans-serif;margin:0;background:#f1f1f1}
.head{background:#2c2c2c;color:#fff;padding:10px;font-size:20px;font-weight:bold}
.box{padding:10px}
.box input{width:100%;box-sizing:border-box;padding:8px;border:1px solid #bbb;border-radius:6px;font-size:16px}
.row{display:flex;height:150px;background:#fff;border-bottom:1px solid #ddd}
.thumb{flex:0 0 200px;background:#1e66d0;display:flex;align-items:center;justify-content:center}
.thumb img{max-width:200px;max-height:150px}
.text{padding:5px;overflow:hidden}
.text p{margin:5px 0 0 0;font-size:14px}`

// The script keeps the list in sync with the session: a fresh search clears
// it, every page message appends rows, and the row flagged data-more asks for
// the next page the first time it scrolls into view.
const shellScript = `(function(){
var list=document.getElementById("results");
var input=document.getElementById("search-input");
var proto=location.protocol==="https:"?"wss://":"ws://";
var ws=new WebSocket(proto+location.host+"/ws");
var seen=new IntersectionObserver(function(entries){
entries.forEach(function(e){
if(!e.isIntersecting)return;
seen.unobserve(e.target);
ws.send(JSON.stringify({type:"more",page:+e.target.dataset.page,item:+e.target.dataset.item}));
});
});
ws.onopen=function(){if(input.value!==""){ws.send(JSON.stringify({type:"search",query:input.value}));}};
ws.onmessage=function(ev){
var msg=JSON.parse(ev.data);
if(msg.type==="reset"){list.innerHTML="";return;}
if(msg.type==="page"){
list.insertAdjacentHTML("beforeend",msg.html);
list.querySelectorAll("[data-more]").forEach(function(el){seen.observe(el);el.removeAttribute("data-more");});
}
};
document.getElementById("search-form").onsubmit=function(e){
e.preventDefault();
ws.send(JSON.stringify({type:"search",query:input.value}));
};
})();`

// RenderShell renders the single screen: the search box and an empty list
// that the websocket session fills in.
func RenderShell(query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html><html><head><meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Video Search</title>
<style>%s</style>
</head><body><div class="head">Video Search</div>
<div class="box">
<form id="search-form" action="/" method="get"><input id="search-input" type="text" name="q" placeholder="Search" value="%s" autofocus></form>
</div>
<div id="results"></div>
<script>%s</script>
</body></html>`, shellStyle, Escape(query), shellScript)
	return b.String()
}

// RenderPage renders the rows of one page. The row at prefetchItem (if >= 0)
// is flagged so the client reports when it comes into view.
func RenderPage(pageIndex int, page SearchResultPage, prefetchItem int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="page" data-index="%d">`, pageIndex)
	for i, it := range page.Items {
		more := ""
		if i == prefetchItem {
			more = ` data-more="1"`
		}
		fmt.Fprintf(&b, `<div class="row" data-page="%d" data-item="%d"%s>`, pageIndex, i, more)
		b.WriteString(renderThumb(it.Snippet.Thumbnails.High))
		fmt.Fprintf(&b, `<div class="text"><b>%s</b><p>%s</p></div></div>`,
			Escape(it.Snippet.Title), Escape(it.Snippet.Description))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func renderThumb(t Thumbnail) string {
	info, ok := t.Get()
	if !ok || info.Url == "" {
		return `<div class="thumb"></div>`
	}
	return `<div class="thumb"><img src="/thumb?url=` + Escape(url.QueryEscape(info.Url)) + `" alt=""></div>`
}
