package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/news-digest/app/cms"
	"github.com/lysyi3m/news-digest/app/digest"
	"github.com/lysyi3m/news-digest/app/newsletter"
	"github.com/lysyi3m/news-digest/app/stocks"
)

func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		digest:      deps.Digest,
		registry:    deps.Registry,
		quotes:      deps.Quotes,
		cms:         deps.CMS,
		newsletter:  deps.Newsletter,
		generator:   digest.NewGenerator(),
		baseURL:     deps.BaseURL,
		storageKind: deps.StorageKind,
		version:     deps.Version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   h.registry.GetSourceCount(),
		"presets":   len(h.registry.GetPresets()),
		"storage":   h.storageKind,
	}

	c.JSON(http.StatusOK, health)
}

// GetDigest aggregates the requested sources. Upstream failures are reported
// in meta.errors and never change the status code.
func (h *Handler) GetDigest(c *gin.Context) {
	req := digest.ParseRequest(c.Request.URL.Query())
	result := h.digest.Run(c.Request.Context(), req)

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetDigestRSS(c *gin.Context) {
	req := digest.ParseRequest(c.Request.URL.Query())
	req.IncludeRaw = false
	result := h.digest.Run(c.Request.Context(), req)

	channel := digest.ChannelInfo{
		Title: "News Digest",
		Link:  h.baseURL,
	}
	if h.baseURL != "" {
		channel.SelfLink = h.baseURL + c.Request.URL.RequestURI()
	}

	rss := h.generator.Run(channel, result)

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(result.Items)))
	c.Header("X-Request-Id", result.Meta.RequestID)

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetSources(c *gin.Context) {
	sources := h.registry.GetSources()
	presets := h.registry.GetPresets()

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"presets": presets,
		"total":   len(sources),
	})
}

func (h *Handler) APIReloadSources(c *gin.Context) {
	if err := h.registry.Run(); err != nil {
		slog.Error("Error reloading source registry", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload sources",
			"details": err.Error(),
		})
		return
	}

	slog.Info("Source registry reloaded", "sources", h.registry.GetSourceCount())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Sources reloaded successfully",
		"sources": h.registry.GetSourceCount(),
		"presets": len(h.registry.GetPresets()),
	})
}

func (h *Handler) GetStocks(c *gin.Context) {
	req := stocks.Request{
		Refresh: c.Query("refresh") == "true",
		Debug:   c.Query("debug") == "true",
	}

	quotes, err := h.quotes.Quotes(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, stocks.ErrMissingAPIKey) {
			slog.Error("Stock quotes requested without API key")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Stock API key not configured"})
			return
		}
		slog.Error("Failed to fetch stock quotes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock data"})
		return
	}

	c.JSON(http.StatusOK, quotes)
}

func (h *Handler) GetCMSCollection(c *gin.Context) {
	collection := c.Param("collection")
	bypass := cms.Bypass(c.Query("cache"))

	query := cms.ListQuery{
		Limit: c.Query("limit"),
		Page:  c.Query("page"),
		Sort:  c.Query("sort"),
		Depth: c.Query("depth"),
		Where: c.Query("where"),
	}

	result, err := h.cms.List(c.Request.Context(), collection, query, bypass)
	if err != nil {
		h.cmsError(c, "list", collection, err)
		return
	}

	for key, value := range cms.CacheHeaders(bypass) {
		c.Header(key, value)
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", result.Body)
}

func (h *Handler) GetCMSDocument(c *gin.Context) {
	collection := c.Param("collection")

	doc, err := h.cms.FindByID(c.Request.Context(), collection, c.Param("id"), c.Query("depth"))
	if err != nil {
		h.cmsError(c, "find_by_id", collection, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

func (h *Handler) GetCMSDocumentBySlug(c *gin.Context) {
	collection := c.Param("collection")

	doc, err := h.cms.FindBySlug(c.Request.Context(), collection, c.Param("slug"), c.Query("depth"))
	if err != nil {
		h.cmsError(c, "find_by_slug", collection, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

func (h *Handler) cmsError(c *gin.Context, operation, collection string, err error) {
	status, message := cms.Status(err)
	if status == http.StatusNotFound {
		slog.Debug("CMS document not found", "operation", operation, "collection", collection)
	} else {
		slog.Error("CMS error", "operation", operation, "collection", collection, "error", err)
	}
	c.JSON(status, gin.H{"error": message})
}

func (h *Handler) PostNewsletterSubscribe(c *gin.Context) {
	var body subscribeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid email address required"})
		return
	}

	err := h.newsletter.Subscribe(c.Request.Context(), body.Email, c.ClientIP())

	var rejected *newsletter.RejectedError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, newsletter.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid email address required"})
	case errors.Is(err, newsletter.ErrNotConfigured):
		slog.Error("Newsletter subscription without API key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Newsletter not configured"})
	case errors.As(err, &rejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": rejected.Message})
	default:
		slog.Error("Newsletter subscription failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Subscription failed"})
	}
}
