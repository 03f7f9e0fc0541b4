package models

import "time"

// NewsArticle represents a single agricultural news article.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Crops       []string  `json:"crops,omitempty"` // related crops, when detected
}
