package cms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/news-digest/app/storage"
)

const postsResponse = `{
  "docs": [
    {
      "id": 10,
      "title": "Hello",
      "content": {
        "root": {
          "children": [
            {"type": "paragraph", "children": []},
            {"type": "upload", "id": 7, "value": null},
            {"type": "upload", "id": "missing", "value": null},
            {"type": "upload", "id": 8, "value": {"id": 8}}
          ]
        }
      }
    }
  ],
  "totalDocs": 1
}`

type cmsServer struct {
	*httptest.Server
	listCalls  atomic.Int32
	mediaCalls atomic.Int32
	lastQuery  atomic.Value
}

func newCMSServer(t *testing.T) *cmsServer {
	s := &cmsServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/posts", "/pages":
			s.listCalls.Add(1)
			s.lastQuery.Store(r.URL.Query())
			if r.URL.Path == "/posts" {
				w.Write([]byte(postsResponse))
				return
			}
			w.Write([]byte(`{"docs":[{"id":1}]}`))
		case "/media/7":
			s.mediaCalls.Add(1)
			w.Write([]byte(`{"id":7,"url":"/media/photo.jpg"}`))
		case "/media/missing":
			s.mediaCalls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return s
}

func TestService_ListPostsDefaults(t *testing.T) {
	srv := newCMSServer(t)
	defer srv.Close()

	service := NewService(NewClient(srv.URL, nil), storage.NewMemory(), time.Hour)

	result, err := service.List(context.Background(), "posts", ListQuery{Limit: "5"}, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Cached {
		t.Error("Expected first listing to miss the cache")
	}

	query := srv.lastQuery.Load().(url.Values)
	if got := query["where"]; len(got) != 1 || got[0] != `{"status":{"equals":"published"}}` {
		t.Errorf("Expected published filter, got %v", got)
	}
	if got := query["depth"]; len(got) != 1 || got[0] != "3" {
		t.Errorf("Expected depth 3, got %v", got)
	}
	if got := query["limit"]; len(got) != 1 || got[0] != "5" {
		t.Errorf("Expected limit 5, got %v", got)
	}

	var decoded struct {
		Docs []struct {
			Content struct {
				Root struct {
					Children []map[string]any `json:"children"`
				} `json:"root"`
			} `json:"content"`
		} `json:"docs"`
	}
	if err := json.Unmarshal(result.Body, &decoded); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}

	children := decoded.Docs[0].Content.Root.Children
	populated, ok := children[1]["value"].(map[string]any)
	if !ok || populated["url"] != "/media/photo.jpg" {
		t.Errorf("Expected upload 7 to be populated, got %v", children[1]["value"])
	}
	if children[2]["value"] != nil {
		t.Errorf("Expected failed upload to stay null, got %v", children[2]["value"])
	}
	if srv.mediaCalls.Load() != 2 {
		t.Errorf("Expected 2 media lookups, got %d", srv.mediaCalls.Load())
	}
}

func TestService_ListCaching(t *testing.T) {
	srv := newCMSServer(t)
	defer srv.Close()

	service := NewService(NewClient(srv.URL, nil), storage.NewMemory(), time.Hour)
	ctx := context.Background()

	service.List(ctx, "pages", ListQuery{}, false)
	cached, err := service.List(ctx, "pages", ListQuery{}, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !cached.Cached {
		t.Error("Expected second listing to hit the cache")
	}
	if srv.listCalls.Load() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", srv.listCalls.Load())
	}

	service.List(ctx, "pages", ListQuery{Page: "2"}, false)
	if srv.listCalls.Load() != 2 {
		t.Errorf("Expected different query to miss the cache, got %d calls", srv.listCalls.Load())
	}

	bypassed, _ := service.List(ctx, "pages", ListQuery{}, true)
	if bypassed.Cached {
		t.Error("Expected bypass to skip the cache")
	}
	if srv.listCalls.Load() != 3 {
		t.Errorf("Expected bypass to call upstream, got %d calls", srv.listCalls.Load())
	}
}

func TestService_ListCustomWhere(t *testing.T) {
	srv := newCMSServer(t)
	defer srv.Close()

	service := NewService(NewClient(srv.URL, nil), storage.NewMemory(), 0)
	if service.CacheTTL() != DefaultCacheTTL {
		t.Errorf("Expected default TTL, got %v", service.CacheTTL())
	}

	where := `{"category":{"equals":"ai"}}`
	service.List(context.Background(), "posts", ListQuery{Where: where, Depth: "1"}, true)

	query := srv.lastQuery.Load().(url.Values)
	if query["where"][0] != where {
		t.Errorf("Expected custom where, got %v", query["where"])
	}
	if query["depth"][0] != "1" {
		t.Errorf("Expected depth 1, got %v", query["depth"])
	}
}

func TestBypass(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"0", true},
		{"false", true},
		{"No", true},
		{"bypass", true},
		{"", false},
		{"1", false},
		{"true", false},
	}

	for _, tt := range tests {
		if got := Bypass(tt.value); got != tt.want {
			t.Errorf("Bypass(%q) = %v, expected %v", tt.value, got, tt.want)
		}
	}
}

func TestCacheHeaders(t *testing.T) {
	enabled := CacheHeaders(false)
	if enabled["X-Cache-Status"] != "ENABLED" {
		t.Errorf("Expected ENABLED, got %q", enabled["X-Cache-Status"])
	}
	if enabled["Cache-Control"] != "public, max-age=0, s-maxage=14400, stale-while-revalidate=60" {
		t.Errorf("Unexpected Cache-Control %q", enabled["Cache-Control"])
	}

	bypass := CacheHeaders(true)
	if bypass["X-Cache-Status"] != "BYPASS" || bypass["Pragma"] != "no-cache" || bypass["Expires"] != "0" {
		t.Errorf("Unexpected bypass headers %v", bypass)
	}
}
