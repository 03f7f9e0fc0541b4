package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/kisansetu/kisanmitra/internal/infra"
	"github.com/kisansetu/kisanmitra/internal/refdata"
	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

// NewsSource represents an agricultural news feed configuration.
type NewsSource struct {
	Name    string
	RSSURL  string
	BaseURL string
}

// DefaultNewsSources lists the configured Indian agricultural news RSS feeds.
var DefaultNewsSources = []NewsSource{
	{
		Name:    "Krishi Jagran",
		RSSURL:  "https://krishijagran.com/rss/news/",
		BaseURL: "https://krishijagran.com",
	},
	{
		Name:    "Rural Voice",
		RSSURL:  "https://eng.ruralvoice.in/rss",
		BaseURL: "https://eng.ruralvoice.in",
	},
	{
		Name:    "Down To Earth Agriculture",
		RSSURL:  "https://www.downtoearth.org.in/rss/agriculture",
		BaseURL: "https://www.downtoearth.org.in",
	},
	{
		Name:    "Economic Times Agriculture",
		RSSURL:  "https://economictimes.indiatimes.com/news/economy/agriculture/rssfeeds/1286551815.cms",
		BaseURL: "https://economictimes.indiatimes.com",
	},
}

// AgriNews fetches agricultural news from Indian sources and tags articles
// with the commodities they mention.
type AgriNews struct {
	sources []NewsSource
	catalog *refdata.Catalog
	cache   *infra.Cache
	limiter *rate.Limiter
	parser  *gofeed.Parser
}

// NewAgriNews creates a news source with the default Indian agri feeds.
func NewAgriNews(catalog *refdata.Catalog) *AgriNews {
	return NewAgriNewsWithSources(catalog, DefaultNewsSources)
}

// NewAgriNewsWithSources creates a news source with custom feeds.
func NewAgriNewsWithSources(catalog *refdata.Catalog, sources []NewsSource) *AgriNews {
	return &AgriNews{
		sources: sources,
		catalog: catalog,
		cache:   infra.NewCache(15 * time.Minute),
		limiter: rate.NewLimiter(rate.Limit(2), 2), // conservative: 2 req/s
		parser:  gofeed.NewParser(),
	}
}

// Name returns the data source name.
func (n *AgriNews) Name() string { return "Agri News" }

// FlushCache drops all cached feed results so the next query refetches.
func (n *AgriNews) FlushCache() { n.cache.Flush() }

// GetNews returns recent agricultural news from all configured sources.
func (n *AgriNews) GetNews(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	cacheKey := fmt.Sprintf("news:agri:%d", limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	var all []models.NewsArticle
	for _, src := range n.sources {
		articles, err := n.fetchRSS(ctx, src)
		if err != nil {
			// Non-critical: skip failed sources.
			continue
		}
		all = append(all, articles...)
	}

	sortArticlesByDate(all)

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	n.cache.Set(cacheKey, all)
	return all, nil
}

// GetCropNews returns news articles mentioning a specific commodity.
// The commodity may be given by canonical id or any alias, Hindi included.
func (n *AgriNews) GetCropNews(ctx context.Context, commodity string, limit int) ([]models.NewsArticle, error) {
	commodityID := commodity
	if n.catalog != nil {
		if c, ok := n.catalog.CommodityByAlias(utils.NormalizeName(commodity)); ok {
			commodityID = c.CommodityID
		}
	}

	cacheKey := fmt.Sprintf("news:crop:%s:%d", commodityID, limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	all, err := n.GetNews(ctx, 0)
	if err != nil {
		return nil, err
	}

	var filtered []models.NewsArticle
	for _, a := range all {
		if containsString(a.Crops, commodityID) {
			filtered = append(filtered, a)
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	n.cache.Set(cacheKey, filtered)
	return filtered, nil
}

// fetchRSS parses one RSS feed and returns tagged articles.
func (n *AgriNews) fetchRSS(ctx context.Context, src NewsSource) ([]models.NewsArticle, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := n.parser.ParseURLWithContext(src.RSSURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Title:   item.Title,
			URL:     item.Link,
			Source:  src.Name,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		a.Crops = n.tagCrops(a.Title + " " + a.Summary)
		articles = append(articles, a)
	}

	return articles, nil
}

// tagCrops returns the canonical commodity ids mentioned in the text.
// Matching is alias-based so Hindi headlines tag correctly too.
func (n *AgriNews) tagCrops(text string) []string {
	if n.catalog == nil {
		return nil
	}
	normalized := " " + utils.NormalizeName(text) + " "
	seen := make(map[string]bool)
	var crops []string
	for _, c := range n.catalog.Commodities() {
		names := append([]string{c.DisplayName}, c.Aliases...)
		for _, name := range names {
			needle := " " + utils.NormalizeName(name) + " "
			if strings.Contains(normalized, needle) && !seen[c.CommodityID] {
				seen[c.CommodityID] = true
				crops = append(crops, c.CommodityID)
				break
			}
		}
	}
	return crops
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// sortArticlesByDate sorts articles by published date, newest first.
// Simple insertion sort, fine for small slices.
func sortArticlesByDate(articles []models.NewsArticle) {
	for i := 1; i < len(articles); i++ {
		key := articles[i]
		j := i - 1
		for j >= 0 && articles[j].PublishedAt.Before(key.PublishedAt) {
			articles[j+1] = articles[j]
			j--
		}
		articles[j+1] = key
	}
}

func containsString(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
