package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/kisansetu/kisanmitra/internal/refdata"
	"github.com/kisansetu/kisanmitra/pkg/models"
)

func newsCatalog(t *testing.T) *refdata.Catalog {
	t.Helper()
	catalog, err := refdata.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

func TestAgriNewsTagsCrops(t *testing.T) {
	n := NewAgriNews(newsCatalog(t))

	tests := []struct {
		text string
		want []string
	}{
		{"Wheat procurement opens at MSP in Uttar Pradesh", []string{"wheat"}},
		{"गेहूं की कीमतों में तेजी, आलू स्थिर", []string{"wheat", "potato"}},
		{"Monsoon outlook improves for kharif sowing", nil},
	}
	for _, tt := range tests {
		got := n.tagCrops(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("tagCrops(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for _, w := range tt.want {
			if !containsString(got, w) {
				t.Errorf("tagCrops(%q) = %v, missing %q", tt.text, got, w)
			}
		}
	}
}

func TestAgriNewsCropFilter(t *testing.T) {
	n := NewAgriNews(newsCatalog(t))

	now := time.Now()
	articles := []models.NewsArticle{
		{Title: "Wheat prices firm up", Crops: []string{"wheat"}, PublishedAt: now},
		{Title: "Onion exports resume", Crops: []string{"onion"}, PublishedAt: now.Add(-time.Hour)},
		{Title: "Fertilizer subsidy news", PublishedAt: now.Add(-2 * time.Hour)},
	}
	// Seed the cache so GetCropNews filters without touching the network.
	n.cache.Set("news:agri:0", articles)

	got, err := n.GetCropNews(context.Background(), "गेहूं", 0)
	if err != nil {
		t.Fatalf("GetCropNews: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Wheat prices firm up" {
		t.Errorf("filtered = %+v, want only the wheat article", got)
	}
}

func TestAgriNewsFlushCache(t *testing.T) {
	n := NewAgriNews(newsCatalog(t))

	n.cache.Set("news:agri:0", []models.NewsArticle{{Title: "cached"}})
	n.FlushCache()

	if _, ok := n.cache.Get("news:agri:0"); ok {
		t.Error("cached news survived FlushCache")
	}
}

func TestSortArticlesByDate(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	articles := []models.NewsArticle{
		{Title: "old", PublishedAt: base.Add(-48 * time.Hour)},
		{Title: "newest", PublishedAt: base},
		{Title: "middle", PublishedAt: base.Add(-24 * time.Hour)},
	}
	sortArticlesByDate(articles)
	want := []string{"newest", "middle", "old"}
	for i, w := range want {
		if articles[i].Title != w {
			t.Errorf("articles[%d] = %q, want %q", i, articles[i].Title, w)
		}
	}
}

func TestCleanHTML(t *testing.T) {
	got := cleanHTML(`<p>Mandi prices <b>rise</b> in UP</p>`)
	if got != "Mandi prices rise in UP" {
		t.Errorf("cleanHTML = %q", got)
	}
}
