package digest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `
<!DOCTYPE html>
<html>
<head>
	<title>Test Article</title>
</head>
<body>
	<header>
		<h1>Site Header</h1>
		<nav>Navigation</nav>
	</header>
	<main>
		<article>
			<h1>Main Article Title</h1>
			<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
			<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
			<p>Here is some more substantial content to ensure we meet the character threshold. This paragraph adds more context and information that would be valuable to readers.</p>
		</article>
	</main>
	<footer>
		<p>Copyright 2024</p>
	</footer>
</body>
</html>
`

func TestContentExtractor_Run(t *testing.T) {
	extractor := NewContentExtractor(nil)

	result, err := extractor.Run([]byte(articleHTML))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "main content of the article") {
		t.Errorf("Expected extracted content to contain main article text")
	}
	if strings.Contains(result, "Copyright 2024") {
		t.Errorf("Expected extracted content to exclude footer")
	}
	if strings.Contains(result, "\n") {
		t.Errorf("Expected whitespace to be collapsed")
	}
}

func TestContentExtractor_EmptyInput(t *testing.T) {
	extractor := NewContentExtractor(nil)

	if _, err := extractor.Run(nil); err == nil {
		t.Error("Expected error for empty input")
	}
}

func TestContentExtractor_Enrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(articleHTML))
		case "/image":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	extractor := NewContentExtractor(NewFetcher(server.Client(), FetcherOptions{}))

	item := NormalizedItem{URL: server.URL + "/article", Excerpt: "Teaser", ContentKind: ContentKindDescription, ContentLength: 6}
	enriched, err := extractor.Enrich(context.Background(), item)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if enriched.ContentKind != ContentKindContent {
		t.Errorf("Expected content kind 'content', got: %s", enriched.ContentKind)
	}
	if enriched.ContentLength <= item.ContentLength {
		t.Errorf("Expected longer content, got %d", enriched.ContentLength)
	}

	for _, path := range []string{"/image", "/missing"} {
		item := NormalizedItem{URL: server.URL + path, Excerpt: "Teaser", ContentLength: 6}
		unchanged, err := extractor.Enrich(context.Background(), item)
		if err == nil {
			t.Errorf("Expected error for %s", path)
		}
		if unchanged.Excerpt != "Teaser" {
			t.Errorf("Expected item to be unchanged for %s", path)
		}
	}

	if _, err := extractor.Enrich(context.Background(), NormalizedItem{}); err == nil {
		t.Error("Expected error for item without URL")
	}
}
