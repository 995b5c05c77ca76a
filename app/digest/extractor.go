package digest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-shiori/go-readability"
)

// maxArticleSize bounds how much of an article page is read for extraction.
const maxArticleSize = 5 << 20

type ContentExtractor struct {
	fetcher *Fetcher
}

func NewContentExtractor(fetcher *Fetcher) *ContentExtractor {
	return &ContentExtractor{fetcher: fetcher}
}

// Run returns the readable text of an HTML page.
func (e *ContentExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(text))

	return text, nil
}

// Enrich replaces an item's excerpt with the extracted article text when the
// extracted text is longer than what the feed carried.
func (e *ContentExtractor) Enrich(ctx context.Context, item NormalizedItem) (NormalizedItem, error) {
	if item.URL == "" {
		return item, fmt.Errorf("item has no link")
	}

	data, err := e.fetchArticle(ctx, item.URL)
	if err != nil {
		return item, fmt.Errorf("failed to fetch article content: %w", err)
	}

	text, err := e.Run(data)
	if err != nil {
		return item, err
	}

	length := len([]rune(text))
	if length > item.ContentLength {
		item.Excerpt = text
		item.ContentKind = ContentKindContent
		item.ContentLength = length
	}

	return item, nil
}

func (e *ContentExtractor) fetchArticle(ctx context.Context, url string) ([]byte, error) {
	header := http.Header{}
	header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.fetcher.Get(ctx, url, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
