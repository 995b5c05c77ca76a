package api

import (
	"context"

	"github.com/lysyi3m/news-digest/app/cms"
	"github.com/lysyi3m/news-digest/app/digest"
	"github.com/lysyi3m/news-digest/app/newsletter"
	"github.com/lysyi3m/news-digest/app/stocks"
)

type DigestInterface interface {
	Run(ctx context.Context, req digest.Request) digest.AggregationResult
}

type RegistryInterface interface {
	Run() error
	GetSources() []digest.SourceConfig
	GetPresets() []digest.SourcePreset
	GetSourceCount() int
}

type QuotesInterface interface {
	Quotes(ctx context.Context, req stocks.Request) ([]stocks.Quote, error)
}

type CMSInterface interface {
	List(ctx context.Context, collection string, query cms.ListQuery, bypass bool) (cms.ListResult, error)
	FindByID(ctx context.Context, collection, id, depth string) ([]byte, error)
	FindBySlug(ctx context.Context, collection, slug, depth string) ([]byte, error)
}

type SubscriberInterface interface {
	Subscribe(ctx context.Context, email, ip string) error
}

var (
	_ DigestInterface     = (*digest.Aggregator)(nil)
	_ RegistryInterface   = (*digest.Registry)(nil)
	_ QuotesInterface     = (*stocks.Service)(nil)
	_ CMSInterface        = (*cms.Service)(nil)
	_ SubscriberInterface = (*newsletter.Client)(nil)
)

// Dependencies groups the collaborators served over HTTP.
type Dependencies struct {
	Digest     DigestInterface
	Registry   RegistryInterface
	Quotes     QuotesInterface
	CMS        CMSInterface
	Newsletter SubscriberInterface

	BaseURL     string
	StorageKind string
	Version     string
}

type Handler struct {
	digest      DigestInterface
	registry    RegistryInterface
	quotes      QuotesInterface
	cms         CMSInterface
	newsletter  SubscriberInterface
	generator   *digest.Generator
	baseURL     string
	storageKind string
	version     string
}

type subscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
}
