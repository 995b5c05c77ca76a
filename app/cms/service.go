package cms

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/news-digest/app/storage"
)

const (
	DefaultCacheTTL = 4 * time.Hour
	DefaultDepth    = "3"

	postsCollection = "posts"
)

type ListQuery struct {
	Limit string
	Page  string
	Sort  string
	Depth string
	Where string
}

type ListResult struct {
	Body   []byte
	Cached bool
}

// Service adds listing defaults and a response cache on top of the client.
type Service struct {
	client *Client
	store  storage.Storage
	ttl    time.Duration
}

func NewService(client *Client, store storage.Storage, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		client: client,
		store:  store,
		ttl:    ttl,
	}
}

func (s *Service) CacheTTL() time.Duration {
	return s.ttl
}

// List fetches a collection page. Unless bypass is set, responses are served
// from and written to the cache.
func (s *Service) List(ctx context.Context, collection string, query ListQuery, bypass bool) (ListResult, error) {
	values := listValues(collection, query)
	key := "cms:" + s.client.BaseURL() + ":" + collection + "?" + values.Encode()

	if !bypass {
		data, ok, err := s.store.Get(ctx, key)
		if err != nil {
			slog.Warn("Failed to read CMS cache", "key", key, "error", err)
		} else if ok {
			return ListResult{Body: data, Cached: true}, nil
		}
	}

	data, err := s.client.Find(ctx, collection, values)
	if err != nil {
		return ListResult{}, err
	}

	if collection == postsCollection {
		data = s.populateUploads(ctx, data)
	}

	if !bypass {
		if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
			slog.Warn("Failed to write CMS cache", "key", key, "error", err)
		}
	}

	return ListResult{Body: data}, nil
}

func (s *Service) FindByID(ctx context.Context, collection, id, depth string) ([]byte, error) {
	return s.client.FindByID(ctx, collection, id, depth)
}

func (s *Service) FindBySlug(ctx context.Context, collection, slug, depth string) ([]byte, error) {
	return s.client.FindBySlug(ctx, collection, slug, depth)
}

func listValues(collection string, query ListQuery) url.Values {
	values := url.Values{}
	if query.Limit != "" {
		values.Set("limit", query.Limit)
	}
	if query.Page != "" {
		values.Set("page", query.Page)
	}
	if query.Sort != "" {
		values.Set("sort", query.Sort)
	}

	values.Set("depth", DefaultDepth)
	if query.Depth != "" {
		values.Set("depth", query.Depth)
	}

	if query.Where != "" {
		values.Set("where", query.Where)
	} else if collection == postsCollection {
		values.Set("where", `{"status":{"equals":"published"}}`)
	}

	return values
}

// populateUploads fills upload blocks in post content whose media relation
// was not resolved by the CMS. Failures leave the block unchanged.
func (s *Service) populateUploads(ctx context.Context, data []byte) []byte {
	var response map[string]any
	if err := json.Unmarshal(data, &response); err != nil {
		return data
	}

	docs, _ := response["docs"].([]any)
	populated := 0

	for _, doc := range docs {
		for _, child := range contentChildren(doc) {
			block, ok := child.(map[string]any)
			if !ok || block["type"] != "upload" {
				continue
			}
			if value, present := block["value"]; !present || value != nil {
				continue
			}
			id := mediaID(block["id"])
			if id == "" {
				continue
			}

			media, err := s.client.FindMedia(ctx, id)
			if err != nil {
				slog.Error("Failed to populate upload relationship", "media_id", id, "error", err)
				continue
			}
			block["value"] = media
			populated++
		}
	}

	if populated == 0 {
		return data
	}

	encoded, err := json.Marshal(response)
	if err != nil {
		slog.Warn("Failed to encode populated CMS response", "error", err)
		return data
	}

	slog.Debug("Populated upload relationships", "count", populated)
	return encoded
}

func contentChildren(doc any) []any {
	document, _ := doc.(map[string]any)
	content, _ := document["content"].(map[string]any)
	root, _ := content["root"].(map[string]any)
	children, _ := root["children"].([]any)
	return children
}

func mediaID(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Bypass reports whether a cache query parameter disables the listing cache.
func Bypass(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "false", "no", "bypass":
		return true
	default:
		return false
	}
}

// CacheHeaders returns the response headers for a listing.
func CacheHeaders(bypass bool) map[string]string {
	if bypass {
		return map[string]string{
			"Cache-Control":  "no-cache, no-store, must-revalidate",
			"Pragma":         "no-cache",
			"Expires":        "0",
			"X-Cache-Status": "BYPASS",
		}
	}
	return map[string]string{
		"Cache-Control":  "public, max-age=0, s-maxage=14400, stale-while-revalidate=60",
		"X-Cache-Status": "ENABLED",
	}
}
