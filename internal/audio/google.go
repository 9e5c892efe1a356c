package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// googleChunk is the longest text translate_tts accepts per request
const googleChunk = 200

// GoogleTTS uses the keyless Google Translate speech endpoint. Quality is
// poor but it needs no credentials, which makes it the free fallback.
type GoogleTTS struct {
	lang    string
	baseURL string
	client  *http.Client
}

func NewGoogleTTS(lang string, client *http.Client) *GoogleTTS {
	if lang == "" {
		lang = "en"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleTTS{lang: lang, baseURL: "https://translate.google.com", client: client}
}

func (g *GoogleTTS) Name() string { return "google" }

func (g *GoogleTTS) Synthesize(ctx context.Context, text, outPath string) error {
	chunks := chunkText(text, googleChunk)
	if len(chunks) == 0 {
		return fmt.Errorf("nothing to speak")
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	for i, chunk := range chunks {
		if err := g.fetchChunk(ctx, f, chunk, i, len(chunks)); err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return f.Close()
}

func (g *GoogleTTS) fetchChunk(ctx context.Context, w io.Writer, chunk string, idx, total int) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", g.lang)
	q.Set("q", chunk)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(len([]rune(chunk))))

	u := strings.TrimRight(g.baseURL, "/") + "/translate_tts?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
