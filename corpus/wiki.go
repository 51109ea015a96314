package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/hubenschmidt/go-wikidex/config"
	"github.com/hubenschmidt/go-wikidex/core"
)

// Hard caps regardless of configuration.
const (
	maxTopK      = 10
	maxSentences = 8
	maxChars     = 4000
)

// WikiClient fetches page summaries from MediaWiki, one API host per
// language.
type WikiClient struct {
	defaultLang string
	topK        int
	sentences   int
	chars       int
	timeout     time.Duration
	concurrent  int
	client      *http.Client

	// baseURL pattern with %s for the language code; overridable in tests.
	apiURL string
}

// NewWikiClient builds a client with the configured limits. The per-call
// timeout is clamped to the configured [min, max] bounds.
func NewWikiClient(cfg config.CorpusConfig) *WikiClient {
	lang := cfg.DefaultLang
	if lang == "" {
		lang = "en"
	}

	timeout := clampInt(cfg.TimeoutS, cfg.MinTimeoutS, cfg.MaxTimeoutS)
	if timeout <= 0 {
		timeout = 15
	}

	concurrent := cfg.Concurrent
	if concurrent <= 0 {
		concurrent = 2
	}

	return &WikiClient{
		defaultLang: lang,
		topK:        clampInt(cfg.TopK, 1, maxTopK),
		sentences:   clampInt(cfg.Sentences, 1, maxSentences),
		chars:       clampInt(cfg.Chars, 0, maxChars),
		timeout:     time.Duration(timeout) * time.Second,
		concurrent:  concurrent,
		client:      &http.Client{},
		apiURL:      "https://%s.wikipedia.org/w/api.php",
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Search finds up to topK page titles for the query, skips excluded
// titles and fetches their summaries concurrently. Pages that fail to
// fetch or come back empty are logged and dropped.
func (c *WikiClient) Search(ctx context.Context, query, lang string, topK int, excludeTitles []string) ([]RawDocument, error) {
	query = strings.TrimSpace(query)
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = c.defaultLang
	}
	if topK <= 0 {
		topK = c.topK
	}
	topK = clampInt(topK, 1, maxTopK)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	titles, err := c.searchTitles(ctx, query, lang, topK)
	if err != nil {
		return nil, fmt.Errorf("wiki search %q: %w", query, err)
	}
	log.Printf("[corpus] query %q to wiki(%s) returned titles: %v", query, lang, titles)

	excluded := make(map[string]bool, len(excludeTitles))
	for _, t := range excludeTitles {
		excluded[t] = true
	}

	var fetch []string
	for _, title := range titles {
		if !excluded[title] {
			fetch = append(fetch, title)
		}
	}

	var (
		mu   sync.Mutex
		docs []RawDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrent)
	for _, title := range fetch {
		g.Go(func() error {
			text, err := c.fetchExtract(gctx, title, lang)
			if err != nil {
				// Per-item failure: skip the page, keep the batch.
				log.Printf("[corpus] fetch wiki page %q (%s): %v", title, lang, err)
				return nil
			}
			if text == "" {
				log.Printf("[corpus] wiki page %q (%s) has no content", title, lang)
				return nil
			}
			mu.Lock()
			docs = append(docs, RawDocument{
				Text: text,
				Metadata: core.DocumentMetadata{
					"name":   title,
					"title":  title,
					"source": "wiki",
					"lang":   lang,
				},
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("wiki fetch %q: %w", query, err)
	}
	return docs, nil
}

func (c *WikiClient) searchTitles(ctx context.Context, query, lang string, topK int) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(topK)},
		"srinfo":   {"suggestion"},
		"format":   {"json"},
	}

	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
			SearchInfo struct {
				Suggestion string `json:"suggestion"`
			} `json:"searchinfo"`
		} `json:"query"`
	}
	if err := c.get(ctx, lang, params, &result); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(result.Query.Search)+1)
	for _, s := range result.Query.Search {
		titles = append(titles, s.Title)
	}
	// The API's "did you mean" suggestion is treated as one more
	// candidate title.
	if s := result.Query.SearchInfo.Suggestion; s != "" {
		titles = append(titles, s)
	}
	return titles, nil
}

func (c *WikiClient) fetchExtract(ctx context.Context, title, lang string) (string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"exsentences": {strconv.Itoa(c.sentences)},
		"titles":      {title},
		"format":      {"json"},
		"redirects":   {"1"},
	}

	var result struct {
		Query struct {
			Pages map[string]struct {
				Title   string  `json:"title"`
				Extract string  `json:"extract"`
				Missing *string `json:"missing"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, lang, params, &result); err != nil {
		return "", err
	}

	for id, page := range result.Query.Pages {
		if id == "-1" || page.Missing != nil {
			return "", fmt.Errorf("wiki page %q: %w", title, core.ErrNotFound)
		}
		text := strings.TrimSpace(page.Extract)
		// chars counts characters, not bytes: never split a rune.
		if c.chars > 0 && utf8.RuneCountInString(text) > c.chars {
			text = string([]rune(text)[:c.chars])
		}
		return text, nil
	}
	return "", fmt.Errorf("wiki page %q: %w", title, core.ErrNotFound)
}

func (c *WikiClient) get(ctx context.Context, lang string, params url.Values, out any) error {
	endpoint := fmt.Sprintf(c.apiURL, lang) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "go-wikidex/0.1")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("wiki API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
