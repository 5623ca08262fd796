package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"livechat-bot/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

const (
	tiklydownAPI = "https://api.tiklydown.eu/api/download"
	tikwmAPI     = "https://www.tikwm.com/api/"

	// TikTok APIs don't always report a length.
	tiktokDefaultDuration = 30.0
	sniffLen              = 512
)

func init() {
	// The stdlib table only knows a handful of types unless the host ships mime.types.
	for ext, typ := range map[string]string{
		".mp4":  "video/mp4",
		".m4v":  "video/mp4",
		".mov":  "video/quicktime",
		".webm": "video/webm",
		".mkv":  "video/x-matroska",
		".mp3":  "audio/mpeg",
		".ogg":  "audio/ogg",
		".wav":  "audio/wav",
		".m4a":  "audio/mp4",
		".gif":  "image/gif",
	} {
		if mime.TypeByExtension(ext) == "" {
			_ = mime.AddExtensionType(ext, typ)
		}
	}
}

// DurationProber measures the playback length of a media URL.
type DurationProber interface {
	Duration(ctx context.Context, input string) (float64, error)
}

// Resolver implements best-effort media introspection. Results are cached per URL.
type Resolver struct {
	client *http.Client
	prober DurationProber
	cache  *expirable.LRU[string, models.MediaInfo]
	log    zerolog.Logger

	tiktokPrimary  string
	tiktokFallback string
}

func NewResolver(client *http.Client, prober DurationProber, cfg models.MediaConfig, log zerolog.Logger) *Resolver {
	size := cfg.ResolveCache
	if size <= 0 {
		size = 512
	}
	ttl := cfg.ResolveTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Resolver{
		client:         client,
		prober:         prober,
		cache:          expirable.NewLRU[string, models.MediaInfo](size, nil, ttl),
		log:            log.With().Str("component", "media").Logger(),
		tiktokPrimary:  tiklydownAPI,
		tiktokFallback: tikwmAPI,
	}
}

// Resolve reports what can be learned about rawURL: TikTok links go through
// public download APIs, other links are typed by extension, then by the
// Content-Type header, then by sniffing, and their length is probed.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) models.MediaInfo {
	if info, ok := r.cache.Get(rawURL); ok {
		return info
	}

	info := r.resolve(ctx, rawURL)
	r.cache.Add(rawURL, info)
	return info
}

func (r *Resolver) resolve(ctx context.Context, rawURL string) models.MediaInfo {
	if isTikTokURL(rawURL) {
		info, err := r.tiktok(ctx, rawURL)
		if err == nil {
			return info
		}
		r.log.Warn().Err(err).Str("url", rawURL).Msg("tiktok lookup failed")
	}

	var info models.MediaInfo
	info.ContentType = contentTypeFromExtension(rawURL)
	if info.ContentType == "" {
		ct, err := r.fetchContentType(ctx, rawURL)
		if err != nil {
			r.log.Debug().Err(err).Str("url", rawURL).Msg("content type lookup failed")
		}
		info.ContentType = ct
	}

	if r.prober != nil && probeable(info.ContentType) {
		if d, err := r.prober.Duration(ctx, rawURL); err == nil {
			info.Duration = &d
		} else {
			r.log.Debug().Err(err).Str("url", rawURL).Msg("duration probe failed")
		}
	}
	return info
}

func isTikTokURL(rawURL string) bool {
	return strings.Contains(rawURL, "tiktok.com")
}

func contentTypeFromExtension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	return stripParams(mime.TypeByExtension(ext))
}

func (r *Resolver) fetchContentType(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if ct := stripParams(resp.Header.Get("Content-Type")); ct != "" {
		return ct, nil
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, sniffLen))
	if err != nil {
		return "", err
	}
	if ct := stripParams(http.DetectContentType(head)); ct != "application/octet-stream" {
		return ct, nil
	}
	return "", nil
}

// probeable skips images and text, which have no playback length.
func probeable(contentType string) bool {
	return contentType == "" ||
		strings.HasPrefix(contentType, "video/") ||
		strings.HasPrefix(contentType, "audio/")
}

func stripParams(ct string) string {
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	}
	return mediaType
}

type tiklydownResponse struct {
	Video    json.RawMessage `json:"video"`
	Duration float64         `json:"duration"`
}

type tikwmResponse struct {
	Data *struct {
		Play     string  `json:"play"`
		Duration float64 `json:"duration"`
	} `json:"data"`
}

func (r *Resolver) tiktok(ctx context.Context, rawURL string) (models.MediaInfo, error) {
	var primary tiklydownResponse
	err := r.getJSON(ctx, r.tiktokPrimary, rawURL, &primary)
	if err == nil {
		if direct := tiklydownVideoURL(primary.Video); direct != "" {
			return tiktokInfo(direct, primary.Duration), nil
		}
	}

	var fallback tikwmResponse
	if err := r.getJSON(ctx, r.tiktokFallback, rawURL, &fallback); err != nil {
		return models.MediaInfo{}, err
	}
	if fallback.Data == nil || fallback.Data.Play == "" {
		return models.MediaInfo{}, fmt.Errorf("no playable video for %s", rawURL)
	}
	return tiktokInfo(fallback.Data.Play, fallback.Data.Duration), nil
}

// tiklydownVideoURL accepts either a bare URL or an object of URLs.
func tiklydownVideoURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		NoWatermark string `json:"noWatermark"`
		Watermark   string `json:"watermark"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.NoWatermark != "" {
			return obj.NoWatermark
		}
		return obj.Watermark
	}
	return ""
}

func tiktokInfo(direct string, duration float64) models.MediaInfo {
	if duration <= 0 {
		duration = tiktokDefaultDuration
	}
	return models.MediaInfo{ContentType: "video/mp4", Duration: &duration, DirectURL: direct}
}

func (r *Resolver) getJSON(ctx context.Context, api, target string, out any) error {
	endpoint := api + "?url=" + url.QueryEscape(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: unexpected status %d", api, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w", api, err)
	}
	return nil
}
