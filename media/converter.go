package media

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"livechat-bot/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var cachedNameRE = regexp.MustCompile(`^[0-9a-f]{32}\.mp4$`)

// CodecProber reports the codecs of a local media file.
type CodecProber interface {
	Codecs(ctx context.Context, input string) (Codecs, error)
}

// Converter re-encodes videos uploaded to Discord into h264/aac mp4 and serves
// them from a local cache.
type Converter struct {
	client       *http.Client
	prober       CodecProber
	ffmpegPath   string
	cacheDir     string
	tempDir      string
	publicPrefix string

	group singleflight.Group
	log   zerolog.Logger
}

func NewConverter(client *http.Client, prober CodecProber, cfg models.MediaConfig, log zerolog.Logger) (*Converter, error) {
	for _, dir := range []string{cfg.CacheDir, cfg.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media directory %s: %w", dir, err)
		}
	}
	prefix := cfg.PublicPrefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	ffmpeg := cfg.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Converter{
		client:       client,
		prober:       prober,
		ffmpegPath:   ffmpeg,
		cacheDir:     cfg.CacheDir,
		tempDir:      cfg.TempDir,
		publicPrefix: prefix,
		log:          log.With().Str("component", "converter").Logger(),
	}, nil
}

// IsDiscordURL reports whether rawURL points at Discord's CDN.
func IsDiscordURL(rawURL string) bool {
	return strings.Contains(rawURL, "cdn.discordapp.com") || strings.Contains(rawURL, "media.discordapp.net")
}

// CacheKey names the converted copy of rawURL.
func CacheKey(rawURL string) string {
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// Normalize returns the public URL of a playable copy of rawURL, or rawURL
// itself when it is not hosted on Discord or conversion fails.
func (c *Converter) Normalize(ctx context.Context, rawURL string) string {
	if !IsDiscordURL(rawURL) {
		return rawURL
	}
	key := CacheKey(rawURL)
	public := c.publicPrefix + key + ".mp4"

	if _, err := os.Stat(c.cachePath(key)); err == nil {
		c.log.Debug().Str("url", rawURL).Msg("using cached conversion")
		return public
	}

	_, err, _ := c.group.Do(key, func() (any, error) {
		return nil, c.convert(ctx, rawURL, key)
	})
	if err != nil {
		c.log.Warn().Err(err).Str("url", rawURL).Msg("video conversion failed, keeping original")
		return rawURL
	}
	return public
}

// Open returns the cached file for a public name such as "<key>.mp4".
func (c *Converter) Open(name string) (string, error) {
	if !cachedNameRE.MatchString(name) {
		return "", os.ErrNotExist
	}
	p := filepath.Join(c.cacheDir, name)
	if _, err := os.Stat(p); err != nil {
		return "", err
	}
	return p, nil
}

// CleanCache removes cached conversions older than maxAge.
func (c *Converter) CleanCache(maxAge time.Duration) (int, error) {
	return CleanDir(c.cacheDir, maxAge, time.Now())
}

func (c *Converter) cachePath(key string) string {
	return filepath.Join(c.cacheDir, key+".mp4")
}

func (c *Converter) convert(ctx context.Context, rawURL, key string) error {
	id := uuid.NewString()
	input := filepath.Join(c.tempDir, "input-"+id)
	output := filepath.Join(c.tempDir, "output-"+id+".mp4")
	defer os.Remove(input)
	defer os.Remove(output)

	if err := c.download(ctx, rawURL, input); err != nil {
		return err
	}

	codecs, err := c.prober.Codecs(ctx, input)
	if err != nil {
		c.log.Debug().Err(err).Msg("codec analysis failed, converting anyway")
	}
	c.log.Debug().Str("video", codecs.Video).Str("audio", codecs.Audio).Msg("codecs detected")

	src := input
	if codecs.Video != "h264" || codecs.Audio != "aac" {
		cmd := exec.CommandContext(ctx, c.ffmpegPath, "-i", input,
			"-c:v", "libx264", "-preset", "fast", "-crf", "23",
			"-c:a", "aac", "-b:a", "128k",
			"-movflags", "+faststart", "-y", output)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(out))
		}
		src = output
	}

	// Move into the cache atomically so readers never see a partial file.
	tmp := c.cachePath(key) + ".part"
	if err := copyFile(src, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, c.cachePath(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to store conversion: %w", err)
	}
	c.log.Info().Str("url", rawURL).Str("key", key).Msg("video cached")
	return nil
}

func (c *Converter) download(ctx context.Context, rawURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("download: %w", err)
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return lines[len(lines)-1]
}
