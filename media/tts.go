package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	googleTTSEndpoint = "https://translate.google.com/translate_tts"
	ttsChunkLimit     = 200
)

// Speech synthesizes voice clips through Google Translate's public TTS endpoint.
type Speech struct {
	client   *http.Client
	endpoint string
}

func NewSpeech(client *http.Client) *Speech {
	return &Speech{client: client, endpoint: googleTTSEndpoint}
}

// Synthesize returns an mp3 clip of text spoken in lang.
func (s *Speech) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	chunks := splitText(text, ttsChunkLimit)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("nothing to say")
	}
	if lang == "" {
		lang = "fr"
	}

	var buf bytes.Buffer
	for i, chunk := range chunks {
		q := url.Values{}
		q.Set("ie", "UTF-8")
		q.Set("client", "tw-ob")
		q.Set("tl", lang)
		q.Set("q", chunk)
		q.Set("total", fmt.Sprint(len(chunks)))
		q.Set("idx", fmt.Sprint(i))
		q.Set("textlen", fmt.Sprint(utf8.RuneCountInString(chunk)))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tts request: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("tts request: unexpected status %d", resp.StatusCode)
		}
		_, err = io.Copy(&buf, resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("tts read: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// splitText cuts text into chunks of at most limit runes, preferring word boundaries.
func splitText(text string, limit int) []string {
	words := strings.Fields(text)
	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		for wl > limit {
			flush()
			r := []rune(w)
			chunks = append(chunks, string(r[:limit]))
			w = string(r[limit:])
			wl = utf8.RuneCountInString(w)
		}
		extra := wl
		if n > 0 {
			extra++
		}
		if n+extra > limit {
			flush()
			extra = wl
		}
		if n > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
		n += extra
	}
	flush()
	return chunks
}
