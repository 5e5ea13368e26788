package main

import (
	"bytes"
	"context"
	"fmt"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const (
	maxThumbnailSize   = 5 << 20 // 5MB
	maxThumbnailPixels = 4096 * 4096
)

var defaultThumbnailHosts = []string{
	"ytimg.com",
	"ggpht.com",
	"googleusercontent.com",
}

// ThumbnailLoader fetches a remote preview image and scales it to row size.
// Nothing is cached: every request goes upstream.
type ThumbnailLoader struct {
	Http        http.Client
	width       int
	height      int
	hosts       []string
	placeholder []byte
	metrics     *Registry
	log         *log.Logger
}

func NewThumbnailLoader(cfg *Config, metrics *Registry) *ThumbnailLoader {
	tl := &ThumbnailLoader{
		width:   cfg.Thumbnail.Width,
		height:  cfg.Thumbnail.Height,
		hosts:   defaultThumbnailHosts,
		metrics: metrics,
		log:     log.New(os.Stderr, "(thumb) ", log.LstdFlags),
	}
	if tl.width <= 0 {
		tl.width = 200
	}
	if tl.height <= 0 {
		tl.height = 150
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		log.Panicln("placeholder encode:", err)
	}
	tl.placeholder = buf.Bytes()
	return tl
}

// Load downloads rawUrl and returns it decoded and fitted inside the row
// size, keeping the aspect ratio. ctx cancels the download.
func (tl *ThumbnailLoader) Load(ctx context.Context, rawUrl string) (image.Image, error) {
	target, err := url.Parse(rawUrl)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawUrl)
	}
	if !tl.isAllowedHost(target.Hostname()) {
		return nil, fmt.Errorf("host not permitted: %s", target.Host)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := tl.Http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailSize))
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxThumbnailPixels {
		return nil, fmt.Errorf("thumbnail dimensions %dx%d out of range", cfg.Width, cfg.Height)
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}
	tl.log.Println("loaded", format, target.Host)
	return tl.fit(src), nil
}

func (tl *ThumbnailLoader) fit(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || (w <= tl.width && h <= tl.height) {
		return src
	}
	// scale by the tighter of the two bounds
	nw, nh := tl.width, h*tl.width/w
	if nh > tl.height {
		nw, nh = w*tl.height/h, tl.height
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// isAllowedHost matches a listed domain or any of its subdomains.
func (tl *ThumbnailLoader) isAllowedHost(host string) bool {
	host = strings.ToLower(host)
	for _, domain := range tl.hosts {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// ServeHTTP answers /thumb?url=. Any failure yields the blank placeholder so
// the row simply stays empty.
func (tl *ThumbnailLoader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		tl.writePlaceholder(w)
		return
	}
	img, err := tl.Load(r.Context(), raw)
	if err != nil {
		tl.metrics.Inc(metricThumbsFailed)
		tl.log.Println("Failed to load thumbnail:", err)
		tl.writePlaceholder(w)
		return
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		tl.metrics.Inc(metricThumbsFailed)
		tl.log.Println("Failed to encode thumbnail:", err)
		tl.writePlaceholder(w)
		return
	}
	tl.metrics.Inc(metricThumbsServed)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (tl *ThumbnailLoader) writePlaceholder(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Thumbnail", "placeholder")
	_, _ = w.Write(tl.placeholder)
}
