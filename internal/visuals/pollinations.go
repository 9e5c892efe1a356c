package visuals

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
)

// Pollinations generates images via Pollinations.ai (free, no key needed)
type Pollinations struct {
	baseURL    string
	width      int
	height     int
	attempts   int
	backoff    time.Duration
	httpClient *http.Client
}

func NewPollinations(cfg config.VisualsConfig) *Pollinations {
	w, h := cfg.Dimensions()
	return &Pollinations{
		baseURL:    "https://image.pollinations.ai",
		width:      w,
		height:     h,
		attempts:   3,
		backoff:    3 * time.Second,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Pollinations) Name() string { return "pollinations" }

// Generate fetches the image, retrying since Pollinations occasionally
// times out.
func (p *Pollinations) Generate(ctx context.Context, prompt, outPath string) error {
	// Format: {base}/prompt/{encoded_prompt}?params
	imageURL := fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		p.baseURL, url.PathEscape(prompt), p.width, p.height, seed(prompt))

	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		err = download(ctx, p.httpClient, imageURL, outPath)
		if err == nil {
			return nil
		}
		if attempt == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * p.backoff):
		}
	}
	return fmt.Errorf("pollinations fetch failed after %d attempts: %w", p.attempts, err)
}

// seed is derived from the prompt so reruns give the same picture
func seed(prompt string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	return h.Sum32() % 1_000_000
}

func download(ctx context.Context, client *http.Client, imageURL, outFile string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; HorrorStoryBot/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d fetching image", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	// an error page, not an image
	if len(data) < 100 {
		return fmt.Errorf("response too small (%d bytes)", len(data))
	}
	return os.WriteFile(outFile, data, 0o644)
}
