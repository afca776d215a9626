package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxTitleLen = 100

// DuckDuckGo queries the DuckDuckGo instant-answer API over HTTP.
type DuckDuckGo struct {
	endpoint   string
	httpClient *http.Client
	log        *zap.Logger
}

// NewDuckDuckGo creates a client targeting the given API base URL.
func NewDuckDuckGo(endpoint string, log *zap.Logger) *DuckDuckGo {
	return &DuckDuckGo{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// ddgResponse mirrors the subset of the instant-answer JSON we consume.
type ddgResponse struct {
	Abstract      string     `json:"Abstract"`
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

// Search returns up to maxResults hits for the query. Any transport, HTTP,
// or decode failure yields an empty result set; the research worker treats
// missing search context as a soft degradation, not an error.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) []Result {
	reqURL := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		d.endpoint, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		d.log.Warn("building search request", zap.Error(err))
		return nil
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.log.Warn("web search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.log.Warn("search API returned non-200", zap.Int("status", resp.StatusCode))
		return nil
	}

	var data ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		d.log.Warn("decoding search response", zap.Error(err))
		return nil
	}

	var results []Result
	for _, topic := range data.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		results = append(results, Result{
			Title:   truncate(topic.Text, maxTitleLen),
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
	}

	// Fall back to the abstract when no related topics matched.
	if len(results) == 0 && data.Abstract != "" {
		results = append(results, Result{
			Title:   query,
			URL:     data.AbstractURL,
			Snippet: data.Abstract,
		})
	}

	return results
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// FetchPage retrieves a URL and returns its visible text, capped at 2000
// characters. Returns an empty string on any failure.
func (d *DuckDuckGo) FetchPage(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; QuorumBot/1.0)")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.log.Warn("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}

	text := scriptRe.ReplaceAllString(string(body), "")
	text = styleRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))

	if len(text) > 2000 {
		text = text[:2000]
	}
	return text
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
